package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/provider"
	"github.com/seferlink/reminder-engine/internal/queue"
)

type fakeOrderRepo struct {
	createFn              func(ctx context.Context, o *domain.Order) error
	getByIDFn             func(ctx context.Context, id string) (*domain.Order, error)
	listEligibleForDateFn func(ctx context.Context, date time.Time) ([]domain.Order, error)
	updateStatusFn        func(ctx context.Context, id string, status domain.OrderStatus) error
	applyDriverResponseFn func(ctx context.Context, orderIDs []string, response domain.DriverResponse, delayMinutes *int) error
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if f.createFn != nil {
		return f.createFn(ctx, o)
	}
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) ListEligibleForDate(ctx context.Context, date time.Time) ([]domain.Order, error) {
	if f.listEligibleForDateFn != nil {
		return f.listEligibleForDateFn(ctx, date)
	}
	return nil, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeOrderRepo) ApplyDriverResponse(ctx context.Context, orderIDs []string, response domain.DriverResponse, delayMinutes *int) error {
	if f.applyDriverResponseFn != nil {
		return f.applyDriverResponseFn(ctx, orderIDs, response, delayMinutes)
	}
	return nil
}

type fakeSettingsRepo struct {
	getFn  func(ctx context.Context) (domain.ReminderSettings, error)
	saveFn func(ctx context.Context, settings domain.ReminderSettings) error
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (domain.ReminderSettings, error) {
	if f.getFn != nil {
		return f.getFn(ctx)
	}
	return domain.DefaultReminderSettings(), nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, settings domain.ReminderSettings) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, settings)
	}
	return nil
}

type fakeCaseSink struct {
	createCaseFn func(ctx context.Context, driverPhone string, orderIDs []string, reason string) (string, error)
}

func (f *fakeCaseSink) CreateCase(ctx context.Context, driverPhone string, orderIDs []string, reason string) (string, error) {
	if f.createCaseFn != nil {
		return f.createCaseFn(ctx, driverPhone, orderIDs, reason)
	}
	return "case-1", nil
}

type fakeProvider struct {
	sendFn func(ctx context.Context, msg provider.SMS) (*provider.ProviderResponse, error)
}

func (f *fakeProvider) Send(ctx context.Context, msg provider.SMS) (*provider.ProviderResponse, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.ProviderResponse{StatusCode: 200}, nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, event queue.CaseEvent) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, event queue.CaseEvent) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, event)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.ReplyHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.ReplyHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeLimiter struct {
	waitFn func(ctx context.Context, lane string) error
}

func (f *fakeLimiter) Allow(ctx context.Context, lane string) (bool, error) { return true, nil }

func (f *fakeLimiter) Wait(ctx context.Context, lane string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, lane)
	}
	return nil
}

// memRecordRepo is an in-memory reminder record store with the same
// uniqueness and conditional-update semantics as the database-backed one. It
// lets multi-tick tests exercise the exactly-once guards end to end.
type memRecordRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ReminderRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[string]*domain.ReminderRecord)}
}

func recordKey(orderSetKey string, messageType domain.MessageType) string {
	return orderSetKey + "|" + messageType.String()
}

func (m *memRecordRepo) CreateIfAbsent(ctx context.Context, r *domain.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(r.OrderSetKey, r.MessageType)
	if _, exists := m.records[key]; exists {
		return domain.ErrDuplicateAction
	}
	clone := *r
	m.records[key] = &clone
	return nil
}

func (m *memRecordRepo) GetByOrderSet(ctx context.Context, orderSetKey string, messageType domain.MessageType) (*domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[recordKey(orderSetKey, messageType)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memRecordRepo) ListOpenFirstReminders(ctx context.Context, limit int) ([]domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var open []domain.ReminderRecord
	for _, record := range m.records {
		if record.MessageType == domain.MessageTypeFirst &&
			record.MessageStatus == domain.MessageStatusSent &&
			!record.ResponseReceived &&
			!record.Escalated {
			open = append(open, *record)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].SentTime.Before(open[j].SentTime) })
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (m *memRecordRepo) ListByPhone(ctx context.Context, driverPhone string, limit int) ([]domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.ReminderRecord
	for _, record := range m.records {
		if record.DriverPhone == driverPhone {
			matched = append(matched, *record)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SentTime.After(matched[j].SentTime) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memRecordRepo) LatestUnresponded(ctx context.Context, driverPhone string) (*domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *domain.ReminderRecord
	for _, record := range m.records {
		if record.DriverPhone != driverPhone || record.ResponseReceived {
			continue
		}
		if latest == nil || record.SentTime.After(latest.SentTime) {
			latest = record
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *memRecordRepo) MarkResponded(ctx context.Context, driverPhone string, responseTime time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows int64
	for _, record := range m.records {
		if record.DriverPhone == driverPhone && !record.ResponseReceived {
			record.ResponseReceived = true
			t := responseTime
			record.ResponseTime = &t
			rows++
		}
	}
	return rows, nil
}

func (m *memRecordRepo) MarkEscalatedIfPending(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.ID != id {
			continue
		}
		if record.Escalated || record.ResponseReceived {
			return false, nil
		}
		record.Escalated = true
		return true, nil
	}
	return false, nil
}

func (m *memRecordRepo) MarkSentAfterRetry(ctx context.Context, id string, sentTime time.Time, content string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.ID != id {
			continue
		}
		if record.MessageStatus != domain.MessageStatusFailed {
			return false, nil
		}
		record.MessageStatus = domain.MessageStatusSent
		record.SentTime = sentTime
		record.Content = content
		return true, nil
	}
	return false, nil
}

func (m *memRecordRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func strPtr(s string) *string { return &s }

func approvedOrder(id, driverID, phone, pickup string, date time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		OrderDate:   date,
		DriverID:    strPtr(driverID),
		DriverName:  strPtr("Mehmet"),
		DriverPhone: strPtr(phone),
		PickupTime:  pickup,
		Status:      domain.OrderStatusApproved,
	}
}
