package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/queue"
	"go.uber.org/zap"
)

func TestNewReplyWorkerValidation(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, newMemRecordRepo(), nil)

	if _, err := NewReplyWorker(nil, &fakeConsumer{}, 1, zap.NewNop()); err == nil {
		t.Fatal("expected error when tracker is nil")
	}
	if _, err := NewReplyWorker(tracker, nil, 1, zap.NewNop()); err == nil {
		t.Fatal("expected error when consumer is nil")
	}

	worker, err := NewReplyWorker(tracker, &fakeConsumer{}, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReplyWorker() error = %v", err)
	}
	if worker.concurrency != minReplyConcurrency {
		t.Fatalf("concurrency = %d, want %d", worker.concurrency, minReplyConcurrency)
	}
}

func TestReplyWorkerConsumesReplyQueue(t *testing.T) {
	t.Parallel()

	records := newMemRecordRepo()
	seedFirstReminder(t, records, "ord-1", "+905551112233", at(7, 0))
	tracker := newTestTracker(t, records, nil)

	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.ReplyHandler) error {
			if queueName != queue.ReplyQueue {
				t.Errorf("queue = %q, want %q", queueName, queue.ReplyQueue)
			}
			return handler(ctx, queue.ReplyMessage{
				DriverPhone: "+905551112233",
				Response:    domain.DriverResponseYes,
				ReceivedAt:  at(7, 10),
			})
		},
	}

	worker, err := NewReplyWorker(tracker, consumer, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReplyWorker() error = %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	record, err := records.GetByOrderSet(context.Background(), "ord-1", domain.MessageTypeFirst)
	if err != nil {
		t.Fatalf("record lookup error = %v", err)
	}
	if !record.ResponseReceived {
		t.Fatal("reply should have closed the chain")
	}
}

func TestReplyWorkerRunsConfiguredConcurrency(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, newMemRecordRepo(), nil)

	var started atomic.Int32
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.ReplyHandler) error {
			started.Add(1)
			return nil
		},
	}

	worker, err := NewReplyWorker(tracker, consumer, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReplyWorker() error = %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := started.Load(); got != 3 {
		t.Fatalf("consumers started = %d, want 3", got)
	}
}

func TestReplyWorkerPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, newMemRecordRepo(), nil)

	wantErr := errors.New("broker gone")
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.ReplyHandler) error {
			return wantErr
		},
	}

	worker, err := NewReplyWorker(tracker, consumer, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReplyWorker() error = %v", err)
	}

	if err := worker.Start(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Start() error = %v, want %v", err, wantErr)
	}
}
