package repository

import (
	"context"
	"errors"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListEligibleForDate(ctx context.Context, date time.Time) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	ApplyDriverResponse(ctx context.Context, orderIDs []string, response domain.DriverResponse, delayMinutes *int) error
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

func (r *GormOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	model := orderModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	if o != nil {
		*o = *orderModelToDomain(model)
	}
	return nil
}

func (r *GormOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}

// ListEligibleForDate returns approved, phone-equipped orders for a calendar
// day. Pickup-time parseability is checked by the caller so that unparseable
// entries can be logged individually, not silently dropped by SQL.
func (r *GormOrderRepo) ListEligibleForDate(ctx context.Context, date time.Time) ([]domain.Order, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("order_date = ? AND status = ? AND driver_phone IS NOT NULL AND driver_phone <> ''",
			day, domain.OrderStatusApproved).
		Order("driver_id ASC, pickup_time ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *orderModelToDomain(&models[i]))
	}

	return orders, nil
}

func (r *GormOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyDriverResponse writes the classified reply back onto the orders of a
// closed reminder chain. Missing IDs are tolerated; the audit record is the
// source of truth for what was asked.
func (r *GormOrderRepo) ApplyDriverResponse(
	ctx context.Context,
	orderIDs []string,
	response domain.DriverResponse,
	delayMinutes *int,
) error {
	if len(orderIDs) == 0 {
		return nil
	}

	updates := map[string]any{
		"driver_response": response,
	}
	if delayMinutes != nil {
		updates["estimated_delay_minutes"] = *delayMinutes
	}

	return r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id IN ?", orderIDs).
		Updates(updates).Error
}
