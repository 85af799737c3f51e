package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/observability"
	"github.com/seferlink/reminder-engine/internal/provider"
	"github.com/seferlink/reminder-engine/internal/ratelimit"
	"github.com/seferlink/reminder-engine/internal/repository"
	"github.com/seferlink/reminder-engine/internal/template"
	"go.uber.org/zap"
)

const (
	defaultTickInterval = 5 * time.Minute
	smsLane             = "sms"
)

// ReminderTickReport summarizes one reminder dispatch pass.
type ReminderTickReport struct {
	Sent            int `json:"sent"`
	SkippedTooEarly int `json:"skipped_too_early"`
	SkippedTooLate  int `json:"skipped_too_late"`
	Failed          int `json:"failed"`
}

// ReminderScheduler groups eligible orders and dispatches first reminders at
// lead time before each group's earliest pickup. All dedup state lives in the
// reminder record store, so overlapping ticks converge on one send per group.
type ReminderScheduler struct {
	orders   repository.OrderRepository
	records  repository.ReminderRecordRepository
	settings repository.SettingsRepository
	provider provider.Provider
	limiter  ratelimit.RateLimiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

func NewReminderScheduler(
	orders repository.OrderRepository,
	records repository.ReminderRecordRepository,
	settings repository.SettingsRepository,
	smsProvider provider.Provider,
	limiter ratelimit.RateLimiter,
	interval time.Duration,
	logger *zap.Logger,
) (*ReminderScheduler, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if records == nil {
		return nil, fmt.Errorf("reminder record repository is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if smsProvider == nil {
		return nil, fmt.Errorf("sms provider is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderScheduler{
		orders:   orders,
		records:  records,
		settings: settings,
		provider: smsProvider,
		limiter:  limiter,
		logger:   logger,
		interval: interval,
	}, nil
}

func (s *ReminderScheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs periodic reminder ticks until context cancellation.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.RunTick(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
		s.logger.Error("reminder initial tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunTick(ctx, time.Now().UTC()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("reminder tick failed", zap.Error(err))
			}
		}
	}
}

// RunTick evaluates all groups for now's calendar day exactly once. Per-group
// failures are isolated into the report; only settings/storage-level errors
// abort the tick.
func (s *ReminderScheduler) RunTick(ctx context.Context, now time.Time) (ReminderTickReport, error) {
	var report ReminderTickReport

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTickDuration("reminder", time.Since(start))
		}
	}()

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !cfg.IsActive {
		s.logger.Info("reminder engine inactive, skipping tick")
		return report, nil
	}

	orders, err := s.orders.ListEligibleForDate(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to list eligible orders: %w", err)
	}

	s.logUnparseablePickups(orders)

	groups := GroupOrdersByDriver(orders, cfg.GroupingGapMinutes)
	for i := range groups {
		s.evaluateGroup(ctx, &groups[i], now, &cfg, &report)
	}

	s.logger.Info("reminder tick completed",
		zap.Int("groups", len(groups)),
		zap.Int("sent", report.Sent),
		zap.Int("skippedTooEarly", report.SkippedTooEarly),
		zap.Int("skippedTooLate", report.SkippedTooLate),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

func (s *ReminderScheduler) evaluateGroup(
	ctx context.Context,
	group *domain.NotificationGroup,
	now time.Time,
	cfg *domain.ReminderSettings,
	report *ReminderTickReport,
) {
	pickupAt := group.EarliestPickupAt(now)
	dueAt := pickupAt.Add(-time.Duration(cfg.MinutesBefore) * time.Minute)

	if now.Before(dueAt) {
		report.SkippedTooEarly++
		return
	}
	if now.After(pickupAt) {
		s.logger.Warn("group too late for reminder, skipping",
			zap.String("orderSet", group.OrderSetKey()),
			zap.String("driverPhone", group.DriverPhone),
			zap.Time("earliestPickup", pickupAt),
		)
		report.SkippedTooLate++
		return
	}

	existing, err := s.records.GetByOrderSet(ctx, group.OrderSetKey(), domain.MessageTypeFirst)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.dispatchFirst(ctx, group, now, pickupAt, cfg, nil, report)
	case err != nil:
		s.logger.Error("failed to look up reminder record",
			zap.String("orderSet", group.OrderSetKey()),
			zap.Error(err),
		)
		report.Failed++
	case existing.MessageStatus == domain.MessageStatusFailed:
		// A failed send never reached the driver; retry once per tick until
		// it succeeds or the pickup window passes.
		s.dispatchFirst(ctx, group, now, pickupAt, cfg, existing, report)
	default:
		// Already sent; idempotent no-op.
	}
}

func (s *ReminderScheduler) dispatchFirst(
	ctx context.Context,
	group *domain.NotificationGroup,
	now time.Time,
	pickupAt time.Time,
	cfg *domain.ReminderSettings,
	failedRecord *domain.ReminderRecord,
	report *ReminderTickReport,
) {
	templates := cfg.TemplatesFor(cfg.Locale)
	tpl := templates.Single
	if group.IsMulti() {
		tpl = templates.Multi
	}
	content := template.Render(tpl, template.DataForGroup(group, domain.MinutesBetween(now, pickupAt)))

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, smsLane); err != nil {
			s.logger.Error("rate limiter wait failed",
				zap.String("orderSet", group.OrderSetKey()),
				zap.Error(err),
			)
			report.Failed++
			return
		}
	}

	_, sendErr := s.provider.Send(ctx, provider.SMS{Phone: group.DriverPhone, Body: content})
	if sendErr != nil {
		s.logger.Error("reminder send failed",
			zap.String("orderSet", group.OrderSetKey()),
			zap.String("driverPhone", group.DriverPhone),
			zap.Bool("transient", provider.IsTransient(sendErr)),
			zap.Error(sendErr),
		)
	}

	if failedRecord != nil {
		s.finishRetry(ctx, group, now, content, failedRecord, sendErr, report)
		return
	}

	status := domain.MessageStatusSent
	if sendErr != nil {
		status = domain.MessageStatusFailed
	}

	record := &domain.ReminderRecord{
		ID:            uuid.NewString(),
		DriverPhone:   group.DriverPhone,
		OrderSetKey:   group.OrderSetKey(),
		MessageType:   domain.MessageTypeFirst,
		MessageStatus: status,
		Content:       content,
		SentTime:      now,
	}

	if err := s.records.CreateIfAbsent(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicateAction) {
			// An overlapping tick already recorded this group.
			s.logger.Debug("duplicate first reminder absorbed",
				zap.String("orderSet", group.OrderSetKey()),
			)
			return
		}
		s.logger.Error("failed to persist reminder record",
			zap.String("orderSet", group.OrderSetKey()),
			zap.Error(err),
		)
		report.Failed++
		return
	}

	if sendErr != nil {
		report.Failed++
		if s.metrics != nil {
			s.metrics.IncReminderFailed("first")
		}
		return
	}

	report.Sent++
	if s.metrics != nil {
		s.metrics.IncReminderSent("first")
	}
}

func (s *ReminderScheduler) finishRetry(
	ctx context.Context,
	group *domain.NotificationGroup,
	now time.Time,
	content string,
	failedRecord *domain.ReminderRecord,
	sendErr error,
	report *ReminderTickReport,
) {
	if sendErr != nil {
		report.Failed++
		if s.metrics != nil {
			s.metrics.IncReminderFailed("first")
		}
		return
	}

	promoted, err := s.records.MarkSentAfterRetry(ctx, failedRecord.ID, now, content)
	if err != nil {
		s.logger.Error("failed to promote retried reminder record",
			zap.String("recordId", failedRecord.ID),
			zap.Error(err),
		)
		report.Failed++
		return
	}
	if !promoted {
		// A concurrent tick already promoted it; the extra SMS is the
		// accepted cost of retrying failed sends.
		s.logger.Debug("retry promotion lost race",
			zap.String("recordId", failedRecord.ID),
		)
		return
	}

	report.Sent++
	if s.metrics != nil {
		s.metrics.IncReminderSent("first")
	}
}

func (s *ReminderScheduler) logUnparseablePickups(orders []domain.Order) {
	for i := range orders {
		if _, err := orders[i].PickupMinutes(); err != nil {
			s.logger.Warn("order excluded from grouping",
				zap.String("orderId", orders[i].ID),
				zap.String("pickupTime", orders[i].PickupTime),
				zap.Error(err),
			)
		}
	}
}
