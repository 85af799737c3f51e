package repository

import (
	"context"
	"errors"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"gorm.io/gorm"
)

type ReminderRecordRepository interface {
	// CreateIfAbsent inserts the record, returning ErrDuplicateAction when a
	// record with the same (order set, message type) already exists. The guard
	// and the write are one unit: the unique index decides the winner.
	CreateIfAbsent(ctx context.Context, r *domain.ReminderRecord) error
	GetByOrderSet(ctx context.Context, orderSetKey string, messageType domain.MessageType) (*domain.ReminderRecord, error)
	ListOpenFirstReminders(ctx context.Context, limit int) ([]domain.ReminderRecord, error)
	ListByPhone(ctx context.Context, driverPhone string, limit int) ([]domain.ReminderRecord, error)
	LatestUnresponded(ctx context.Context, driverPhone string) (*domain.ReminderRecord, error)
	// MarkResponded closes every open record for the phone and returns how
	// many rows it touched. One reply settles the whole pending chain.
	MarkResponded(ctx context.Context, driverPhone string, responseTime time.Time) (int64, error)
	// MarkEscalatedIfPending flips the escalated flag only while the record is
	// still unanswered and unescalated; false means another tick won the race.
	MarkEscalatedIfPending(ctx context.Context, id string) (bool, error)
	// MarkSentAfterRetry promotes a FAILED record to SENT after a successful
	// resend; false means the record was no longer in FAILED state.
	MarkSentAfterRetry(ctx context.Context, id string, sentTime time.Time, content string) (bool, error)
}

type GormReminderRecordRepo struct {
	db *gorm.DB
}

func NewGormReminderRecordRepo(db *gorm.DB) *GormReminderRecordRepo {
	return &GormReminderRecordRepo{db: db}
}

func (r *GormReminderRecordRepo) CreateIfAbsent(ctx context.Context, record *domain.ReminderRecord) error {
	model := reminderModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateAction
		}
		return err
	}
	if record != nil {
		*record = *reminderModelToDomain(model)
	}
	return nil
}

func (r *GormReminderRecordRepo) GetByOrderSet(
	ctx context.Context,
	orderSetKey string,
	messageType domain.MessageType,
) (*domain.ReminderRecord, error) {
	var model ReminderRecordModel
	err := r.db.WithContext(ctx).
		Where("order_set_key = ? AND message_type = ?", orderSetKey, messageType).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

// ListOpenFirstReminders returns delivered first reminders still waiting on a
// reply, oldest first. FAILED records are excluded: a reminder the driver
// never received must not escalate. Escalated records are excluded too: both
// stages have fired for them, and letting them linger in the scan would
// crowd newer chains out of the limit window.
func (r *GormReminderRecordRepo) ListOpenFirstReminders(ctx context.Context, limit int) ([]domain.ReminderRecord, error) {
	var models []ReminderRecordModel
	err := r.db.WithContext(ctx).
		Where("message_type = ? AND message_status = ? AND response_received = ? AND escalated = ?",
			domain.MessageTypeFirst, domain.MessageStatusSent, false, false).
		Order("sent_time ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.ReminderRecord, 0, len(models))
	for i := range models {
		records = append(records, *reminderModelToDomain(&models[i]))
	}

	return records, nil
}

func (r *GormReminderRecordRepo) ListByPhone(ctx context.Context, driverPhone string, limit int) ([]domain.ReminderRecord, error) {
	var models []ReminderRecordModel
	err := r.db.WithContext(ctx).
		Where("driver_phone = ?", driverPhone).
		Order("sent_time DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.ReminderRecord, 0, len(models))
	for i := range models {
		records = append(records, *reminderModelToDomain(&models[i]))
	}

	return records, nil
}

func (r *GormReminderRecordRepo) LatestUnresponded(ctx context.Context, driverPhone string) (*domain.ReminderRecord, error) {
	var model ReminderRecordModel
	err := r.db.WithContext(ctx).
		Where("driver_phone = ? AND response_received = ?", driverPhone, false).
		Order("sent_time DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

func (r *GormReminderRecordRepo) MarkResponded(ctx context.Context, driverPhone string, responseTime time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderRecordModel{}).
		Where("driver_phone = ? AND response_received = ?", driverPhone, false).
		Updates(map[string]any{
			"response_received": true,
			"response_time":     responseTime,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormReminderRecordRepo) MarkEscalatedIfPending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderRecordModel{}).
		Where("id = ? AND escalated = ? AND response_received = ?", id, false, false).
		Update("escalated", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderRecordRepo) MarkSentAfterRetry(ctx context.Context, id string, sentTime time.Time, content string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderRecordModel{}).
		Where("id = ? AND message_status = ?", id, domain.MessageStatusFailed).
		Updates(map[string]any{
			"message_status": domain.MessageStatusSent,
			"sent_time":      sentTime,
			"content":        content,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
