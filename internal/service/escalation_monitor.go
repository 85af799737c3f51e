package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/observability"
	"github.com/seferlink/reminder-engine/internal/provider"
	"github.com/seferlink/reminder-engine/internal/queue"
	"github.com/seferlink/reminder-engine/internal/ratelimit"
	"github.com/seferlink/reminder-engine/internal/repository"
	"github.com/seferlink/reminder-engine/internal/template"
	"go.uber.org/zap"
)

const defaultEscalationScanLimit = 200

// EscalationTickReport summarizes one escalation pass.
type EscalationTickReport struct {
	SecondRemindersSent int `json:"second_reminders_sent"`
	EscalatedToCritical int `json:"escalated_to_critical"`
	StillWaiting        int `json:"still_waiting"`
}

// EscalationMonitor walks unanswered first reminders and applies the two-stage
// timeout policy: a second reminder, then a critical case. Each stage fires at
// most once per order set; the second stage is guarded by the unique
// (order set, SECOND) record, the critical stage by a conditional flip of the
// first record's escalated flag.
type EscalationMonitor struct {
	records   repository.ReminderRecordRepository
	orders    repository.OrderRepository
	settings  repository.SettingsRepository
	cases     repository.CaseSink
	provider  provider.Provider
	limiter   ratelimit.RateLimiter
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	scanLimit int
}

func NewEscalationMonitor(
	records repository.ReminderRecordRepository,
	orders repository.OrderRepository,
	settings repository.SettingsRepository,
	cases repository.CaseSink,
	smsProvider provider.Provider,
	limiter ratelimit.RateLimiter,
	publisher queue.Publisher,
	interval time.Duration,
	scanLimit int,
	logger *zap.Logger,
) (*EscalationMonitor, error) {
	if records == nil {
		return nil, fmt.Errorf("reminder record repository is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if cases == nil {
		return nil, fmt.Errorf("case sink is required")
	}
	if smsProvider == nil {
		return nil, fmt.Errorf("sms provider is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if scanLimit <= 0 {
		scanLimit = defaultEscalationScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EscalationMonitor{
		records:   records,
		orders:    orders,
		settings:  settings,
		cases:     cases,
		provider:  smsProvider,
		limiter:   limiter,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		scanLimit: scanLimit,
	}, nil
}

func (m *EscalationMonitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Start runs periodic escalation ticks until context cancellation.
func (m *EscalationMonitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := m.RunTick(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
		m.logger.Error("escalation initial tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.RunTick(ctx, time.Now().UTC()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("escalation tick failed", zap.Error(err))
			}
		}
	}
}

// RunTick scans open first reminders and applies the escalation policy. All
// chain state is re-read from the record store; nothing carries over between
// ticks, so retries and overlapping invocations stay exactly-once per stage.
func (m *EscalationMonitor) RunTick(ctx context.Context, now time.Time) (EscalationTickReport, error) {
	var report EscalationTickReport

	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.ObserveTickDuration("escalation", time.Since(start))
		}
	}()

	cfg, err := m.settings.Get(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !cfg.IsActive {
		m.logger.Info("reminder engine inactive, skipping escalation tick")
		return report, nil
	}

	open, err := m.records.ListOpenFirstReminders(ctx, m.scanLimit)
	if err != nil {
		return report, fmt.Errorf("failed to list open reminders: %w", err)
	}

	for i := range open {
		m.evaluateChain(ctx, &open[i], now, &cfg, &report)
	}

	m.logger.Info("escalation tick completed",
		zap.Int("open", len(open)),
		zap.Int("secondRemindersSent", report.SecondRemindersSent),
		zap.Int("escalatedToCritical", report.EscalatedToCritical),
		zap.Int("stillWaiting", report.StillWaiting),
	)

	return report, nil
}

func (m *EscalationMonitor) evaluateChain(
	ctx context.Context,
	record *domain.ReminderRecord,
	now time.Time,
	cfg *domain.ReminderSettings,
	report *EscalationTickReport,
) {
	elapsed := record.ElapsedMinutesSince(now)
	acted := false

	if elapsed >= cfg.SecondReminderMinutes {
		if m.ensureSecondReminder(ctx, record, now, cfg) {
			report.SecondRemindersSent++
			acted = true
		}
	}

	if elapsed >= cfg.CriticalMinutes && !record.Escalated {
		if m.escalateToCritical(ctx, record, now) {
			report.EscalatedToCritical++
			acted = true
		}
	}

	if !acted {
		report.StillWaiting++
	}
}

// ensureSecondReminder sends the second nudge if the chain has none yet.
// Returns true only when this invocation actually dispatched one.
func (m *EscalationMonitor) ensureSecondReminder(
	ctx context.Context,
	first *domain.ReminderRecord,
	now time.Time,
	cfg *domain.ReminderSettings,
) bool {
	_, err := m.records.GetByOrderSet(ctx, first.OrderSetKey, domain.MessageTypeSecond)
	if err == nil {
		return false
	}
	if !errors.Is(err, domain.ErrNotFound) {
		m.logger.Error("failed to look up second reminder",
			zap.String("orderSet", first.OrderSetKey),
			zap.Error(err),
		)
		return false
	}

	content := m.renderSecond(ctx, first, cfg)

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx, smsLane); err != nil {
			m.logger.Error("rate limiter wait failed",
				zap.String("orderSet", first.OrderSetKey),
				zap.Error(err),
			)
			return false
		}
	}

	_, sendErr := m.provider.Send(ctx, provider.SMS{Phone: first.DriverPhone, Body: content})
	status := domain.MessageStatusSent
	if sendErr != nil {
		status = domain.MessageStatusFailed
		m.logger.Error("second reminder send failed",
			zap.String("orderSet", first.OrderSetKey),
			zap.Bool("transient", provider.IsTransient(sendErr)),
			zap.Error(sendErr),
		)
	}

	second := &domain.ReminderRecord{
		ID:            uuid.NewString(),
		DriverPhone:   first.DriverPhone,
		OrderSetKey:   first.OrderSetKey,
		MessageType:   domain.MessageTypeSecond,
		MessageStatus: status,
		Content:       content,
		SentTime:      now,
	}

	if err := m.records.CreateIfAbsent(ctx, second); err != nil {
		if errors.Is(err, domain.ErrDuplicateAction) {
			m.logger.Debug("duplicate second reminder absorbed",
				zap.String("orderSet", first.OrderSetKey),
			)
			return false
		}
		m.logger.Error("failed to persist second reminder record",
			zap.String("orderSet", first.OrderSetKey),
			zap.Error(err),
		)
		return false
	}

	if sendErr != nil {
		if m.metrics != nil {
			m.metrics.IncReminderFailed("second")
		}
		return false
	}

	if m.metrics != nil {
		m.metrics.IncReminderSent("second")
	}
	return true
}

// escalateToCritical flips the escalated flag and, on winning the race,
// creates the case. Returns true only for the winning invocation.
func (m *EscalationMonitor) escalateToCritical(ctx context.Context, record *domain.ReminderRecord, now time.Time) bool {
	won, err := m.records.MarkEscalatedIfPending(ctx, record.ID)
	if err != nil {
		m.logger.Error("failed to mark reminder escalated",
			zap.String("recordId", record.ID),
			zap.Error(err),
		)
		return false
	}
	if !won {
		// Resolved or escalated concurrently; no-op.
		m.logger.Debug("escalation lost race or already resolved",
			zap.String("recordId", record.ID),
		)
		return false
	}

	orderIDs := record.OrderIDs()
	reason := fmt.Sprintf("driver did not respond to reminders for orders %s", strings.Join(orderIDs, ", "))

	caseID, err := m.cases.CreateCase(ctx, record.DriverPhone, orderIDs, reason)
	if err != nil {
		m.logger.Error("failed to create escalation case",
			zap.String("recordId", record.ID),
			zap.String("orderSet", record.OrderSetKey),
			zap.Error(err),
		)
		return false
	}

	if m.publisher != nil {
		event := queue.CaseEvent{
			CaseID:      caseID,
			DriverPhone: record.DriverPhone,
			OrderIDs:    orderIDs,
			Reason:      reason,
			CreatedAt:   now,
		}
		if err := m.publisher.Publish(ctx, queue.CaseQueue, event); err != nil {
			// The case row already exists; the event stream is best-effort.
			m.logger.Warn("failed to publish case event",
				zap.String("caseId", caseID),
				zap.Error(err),
			)
		}
	}

	if m.metrics != nil {
		m.metrics.IncEscalated()
	}

	m.logger.Info("reminder escalated to critical case",
		zap.String("caseId", caseID),
		zap.String("driverPhone", record.DriverPhone),
		zap.String("orderSet", record.OrderSetKey),
	)

	return true
}

// renderSecond rebuilds enough group context for the second-reminder template
// from the first record's order set. Lookup failures degrade to a message
// without driver name rather than blocking the nudge.
func (m *EscalationMonitor) renderSecond(
	ctx context.Context,
	first *domain.ReminderRecord,
	cfg *domain.ReminderSettings,
) string {
	orderIDs := first.OrderIDs()
	data := template.Data{
		OrderCount: len(orderIDs),
		OrderList:  strings.Join(orderIDs, ", "),
	}

	if m.orders != nil && len(orderIDs) > 0 {
		if order, err := m.orders.GetByID(ctx, orderIDs[0]); err == nil {
			if order.DriverName != nil {
				data.DriverName = *order.DriverName
			}
			data.OrderID = order.ID
			data.PickupTime = order.PickupTime
			data.PickupAddress = order.PickupAddress
		}
	}

	return template.Render(cfg.TemplatesFor(cfg.Locale).Second, data)
}
