package service

import (
	"context"
	"fmt"

	"github.com/seferlink/reminder-engine/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minReplyConcurrency = 1

// ReplyWorker consumes classified driver replies from the broker and feeds
// them into the response tracker.
type ReplyWorker struct {
	tracker     *ResponseTracker
	consumer    queue.Consumer
	logger      *zap.Logger
	concurrency int
}

func NewReplyWorker(
	tracker *ResponseTracker,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*ReplyWorker, error) {
	if tracker == nil {
		return nil, fmt.Errorf("response tracker is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minReplyConcurrency {
		concurrency = minReplyConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReplyWorker{
		tracker:     tracker,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the reply queue until context cancellation.
func (w *ReplyWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("reply worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.ReplyQueue, w.processReply)
			if err != nil {
				w.logger.Error("reply worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("reply worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *ReplyWorker) processReply(ctx context.Context, msg queue.ReplyMessage) error {
	return w.tracker.ApplyReply(ctx, msg)
}
