package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/observability"
	"github.com/seferlink/reminder-engine/internal/queue"
	"github.com/seferlink/reminder-engine/internal/repository"
	"go.uber.org/zap"
)

// ReminderView is a reminder record with its derived presentation status.
type ReminderView struct {
	Record domain.ReminderRecord `json:"record"`
	Status domain.ReminderStatus `json:"status"`
}

// ResponseTracker records driver replies against open reminder chains and
// derives presentation status from persisted fields and elapsed time.
type ResponseTracker struct {
	records  repository.ReminderRecordRepository
	orders   repository.OrderRepository
	settings repository.SettingsRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewResponseTracker(
	records repository.ReminderRecordRepository,
	orders repository.OrderRepository,
	settings repository.SettingsRepository,
	logger *zap.Logger,
) (*ResponseTracker, error) {
	if records == nil {
		return nil, fmt.Errorf("reminder record repository is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResponseTracker{
		records:  records,
		orders:   orders,
		settings: settings,
		logger:   logger,
	}, nil
}

func (t *ResponseTracker) SetMetrics(metrics *observability.Metrics) {
	if t == nil {
		return
	}
	t.metrics = metrics
}

// RecordResponse closes every open reminder for the phone. A driver addresses
// one outstanding question at a time, so a single reply settles the whole
// pending chain (first plus escalated second). Returns true if any record was
// updated.
func (t *ResponseTracker) RecordResponse(ctx context.Context, driverPhone string, responseTime time.Time) (bool, error) {
	if strings.TrimSpace(driverPhone) == "" {
		return false, fmt.Errorf("%w: driver phone is required", domain.ErrValidation)
	}

	rows, err := t.records.MarkResponded(ctx, driverPhone, responseTime)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminders responded: %w", err)
	}
	if rows == 0 {
		t.logger.Info("reply without open reminder chain",
			zap.String("driverPhone", driverPhone),
		)
		return false, nil
	}

	if t.metrics != nil {
		t.metrics.IncDriverResponse()
	}
	t.logger.Info("driver response recorded",
		zap.String("driverPhone", driverPhone),
		zap.Int64("recordsClosed", rows),
	)
	return true, nil
}

// ApplyReply records the response and writes the classified result back onto
// the orders of the chain it closed.
func (t *ResponseTracker) ApplyReply(ctx context.Context, msg queue.ReplyMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	latest, err := t.records.LatestUnresponded(ctx, msg.DriverPhone)
	if errors.Is(err, domain.ErrNotFound) {
		t.logger.Info("reply without open reminder chain",
			zap.String("driverPhone", msg.DriverPhone),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find open reminder: %w", err)
	}

	applied, err := t.RecordResponse(ctx, msg.DriverPhone, msg.ReceivedAt)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if t.orders != nil {
		if err := t.orders.ApplyDriverResponse(ctx, latest.OrderIDs(), msg.Response, msg.DelayMinutes); err != nil {
			return fmt.Errorf("failed to apply driver response to orders: %w", err)
		}
	}

	return nil
}

// ListDriverReminders returns the phone's recent reminder records with their
// derived status.
func (t *ResponseTracker) ListDriverReminders(ctx context.Context, driverPhone string, now time.Time, limit int) ([]ReminderView, error) {
	if strings.TrimSpace(driverPhone) == "" {
		return nil, fmt.Errorf("%w: driver phone is required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}

	cfg, err := t.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder settings: %w", err)
	}

	records, err := t.records.ListByPhone(ctx, driverPhone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	views := make([]ReminderView, 0, len(records))
	for i := range records {
		views = append(views, ReminderView{
			Record: records[i],
			Status: DeriveReminderStatus(&records[i], now, &cfg),
		})
	}

	return views, nil
}

// DeriveReminderStatus classifies a record for presentation. The status is
// computed from response state and elapsed minutes against configured
// thresholds; it is never stored.
func DeriveReminderStatus(record *domain.ReminderRecord, now time.Time, cfg *domain.ReminderSettings) domain.ReminderStatus {
	if record.MessageStatus == domain.MessageStatusFailed {
		return domain.ReminderStatusFailed
	}
	if record.ResponseReceived {
		return domain.ReminderStatusResponded
	}

	elapsed := record.ElapsedMinutesSince(now)
	switch {
	case elapsed >= cfg.CriticalMinutes:
		return domain.ReminderStatusCritical
	case elapsed >= cfg.ResponseTimeoutMinutes:
		return domain.ReminderStatusWarning
	default:
		return domain.ReminderStatusSent
	}
}

// MinutesUntilPickup returns whole minutes from now until the group's
// earliest pickup; negative once the pickup has passed.
func MinutesUntilPickup(group *domain.NotificationGroup, now time.Time) int {
	return domain.MinutesBetween(now, group.EarliestPickupAt(now))
}
