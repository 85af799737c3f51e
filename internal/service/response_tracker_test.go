package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/queue"
	"go.uber.org/zap"
)

func newTestTracker(t *testing.T, records *memRecordRepo, orders *fakeOrderRepo) *ResponseTracker {
	t.Helper()

	if orders == nil {
		orders = &fakeOrderRepo{}
	}
	tracker, err := NewResponseTracker(records, orders, &fakeSettingsRepo{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewResponseTracker() error = %v", err)
	}
	return tracker
}

func TestNewResponseTrackerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewResponseTracker(nil, nil, &fakeSettingsRepo{}, zap.NewNop()); err == nil {
		t.Fatal("expected error when record repository is nil")
	}
	if _, err := NewResponseTracker(newMemRecordRepo(), nil, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error when settings repository is nil")
	}
}

func TestRecordResponseClosesWholeChain(t *testing.T) {
	t.Parallel()

	records := newMemRecordRepo()
	seedFirstReminder(t, records, "ord-1", "+905551112233", at(7, 0))

	// An escalated second reminder is part of the same open chain.
	second := &domain.ReminderRecord{
		ID:            "rec-second",
		DriverPhone:   "+905551112233",
		OrderSetKey:   "ord-1",
		MessageType:   domain.MessageTypeSecond,
		MessageStatus: domain.MessageStatusSent,
		SentTime:      at(7, 20),
	}
	if err := records.CreateIfAbsent(context.Background(), second); err != nil {
		t.Fatalf("seed second record error = %v", err)
	}

	tracker := newTestTracker(t, records, nil)

	applied, err := tracker.RecordResponse(context.Background(), "+905551112233", at(7, 25))
	if err != nil {
		t.Fatalf("RecordResponse() error = %v", err)
	}
	if !applied {
		t.Fatal("expected response to close the chain")
	}

	for _, messageType := range []domain.MessageType{domain.MessageTypeFirst, domain.MessageTypeSecond} {
		record, err := records.GetByOrderSet(context.Background(), "ord-1", messageType)
		if err != nil {
			t.Fatalf("record lookup error = %v", err)
		}
		if !record.ResponseReceived {
			t.Fatalf("%s record should be responded", messageType)
		}
		if record.ResponseTime == nil || !record.ResponseTime.Equal(at(7, 25)) {
			t.Fatalf("%s response time = %v, want %v", messageType, record.ResponseTime, at(7, 25))
		}
	}
}

func TestRecordResponseWithoutOpenChain(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, newMemRecordRepo(), nil)

	applied, err := tracker.RecordResponse(context.Background(), "+905551112233", at(7, 25))
	if err != nil {
		t.Fatalf("RecordResponse() error = %v", err)
	}
	if applied {
		t.Fatal("expected no-op when no chain is open")
	}

	if _, err := tracker.RecordResponse(context.Background(), "  ", at(7, 25)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestApplyReplyWritesClassificationToOrders(t *testing.T) {
	t.Parallel()

	records := newMemRecordRepo()
	seedFirstReminder(t, records, "ord-1,ord-2", "+905551112233", at(7, 0))

	var gotOrderIDs []string
	var gotResponse domain.DriverResponse
	var gotDelay *int

	orders := &fakeOrderRepo{
		applyDriverResponseFn: func(ctx context.Context, orderIDs []string, response domain.DriverResponse, delayMinutes *int) error {
			gotOrderIDs = orderIDs
			gotResponse = response
			gotDelay = delayMinutes
			return nil
		},
	}

	tracker := newTestTracker(t, records, orders)

	delay := 25
	err := tracker.ApplyReply(context.Background(), queue.ReplyMessage{
		DriverPhone:  "+905551112233",
		Response:     domain.DriverResponseDelayed,
		DelayMinutes: &delay,
		ReceivedAt:   at(7, 10),
	})
	if err != nil {
		t.Fatalf("ApplyReply() error = %v", err)
	}

	if len(gotOrderIDs) != 2 || gotOrderIDs[0] != "ord-1" || gotOrderIDs[1] != "ord-2" {
		t.Fatalf("order ids = %v, want [ord-1 ord-2]", gotOrderIDs)
	}
	if gotResponse != domain.DriverResponseDelayed {
		t.Fatalf("response = %s, want DELAYED", gotResponse)
	}
	if gotDelay == nil || *gotDelay != 25 {
		t.Fatalf("delay = %v, want 25", gotDelay)
	}
}

func TestApplyReplyWithoutOpenChainIsAccepted(t *testing.T) {
	t.Parallel()

	orders := &fakeOrderRepo{
		applyDriverResponseFn: func(ctx context.Context, orderIDs []string, response domain.DriverResponse, delayMinutes *int) error {
			t.Fatal("no order update expected without an open chain")
			return nil
		},
	}

	tracker := newTestTracker(t, newMemRecordRepo(), orders)

	err := tracker.ApplyReply(context.Background(), queue.ReplyMessage{
		DriverPhone: "+905551112233",
		Response:    domain.DriverResponseYes,
		ReceivedAt:  at(7, 10),
	})
	if err != nil {
		t.Fatalf("ApplyReply() error = %v", err)
	}
}

func TestApplyReplyRejectsInvalidMessage(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, newMemRecordRepo(), nil)

	err := tracker.ApplyReply(context.Background(), queue.ReplyMessage{
		DriverPhone: "+905551112233",
		Response:    domain.DriverResponse("MAYBE"),
		ReceivedAt:  at(7, 10),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestDeriveReminderStatus(t *testing.T) {
	t.Parallel()

	cfg := domain.DefaultReminderSettings()
	responseTime := at(7, 5)

	testCases := []struct {
		name   string
		record domain.ReminderRecord
		now    time.Time
		want   domain.ReminderStatus
	}{
		{
			name:   "failed transport wins",
			record: domain.ReminderRecord{MessageStatus: domain.MessageStatusFailed, SentTime: at(7, 0)},
			now:    at(8, 0),
			want:   domain.ReminderStatusFailed,
		},
		{
			name: "responded",
			record: domain.ReminderRecord{
				MessageStatus:    domain.MessageStatusSent,
				SentTime:         at(7, 0),
				ResponseReceived: true,
				ResponseTime:     &responseTime,
			},
			now:  at(8, 0),
			want: domain.ReminderStatusResponded,
		},
		{
			name:   "critical after critical threshold",
			record: domain.ReminderRecord{MessageStatus: domain.MessageStatusSent, SentTime: at(7, 0)},
			now:    at(7, 30),
			want:   domain.ReminderStatusCritical,
		},
		{
			name:   "warning after response timeout",
			record: domain.ReminderRecord{MessageStatus: domain.MessageStatusSent, SentTime: at(7, 0)},
			now:    at(7, 15),
			want:   domain.ReminderStatusWarning,
		},
		{
			name:   "sent before any threshold",
			record: domain.ReminderRecord{MessageStatus: domain.MessageStatusSent, SentTime: at(7, 0)},
			now:    at(7, 10),
			want:   domain.ReminderStatusSent,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := DeriveReminderStatus(&tc.record, tc.now, &cfg); got != tc.want {
				t.Fatalf("status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestListDriverRemindersDerivesStatus(t *testing.T) {
	t.Parallel()

	records := newMemRecordRepo()
	seedFirstReminder(t, records, "ord-1", "+905551112233", at(7, 0))

	tracker := newTestTracker(t, records, nil)

	views, err := tracker.ListDriverReminders(context.Background(), "+905551112233", at(7, 30), 10)
	if err != nil {
		t.Fatalf("ListDriverReminders() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	if views[0].Status != domain.ReminderStatusCritical {
		t.Fatalf("status = %s, want CRITICAL", views[0].Status)
	}

	if _, err := tracker.ListDriverReminders(context.Background(), "", at(7, 30), 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
