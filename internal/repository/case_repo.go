package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seferlink/reminder-engine/internal/domain"
	"gorm.io/gorm"
)

// CaseSink receives critical escalations as actionable alerts.
type CaseSink interface {
	CreateCase(ctx context.Context, driverPhone string, orderIDs []string, reason string) (string, error)
}

type GormCaseRepo struct {
	db *gorm.DB
}

func NewGormCaseRepo(db *gorm.DB) *GormCaseRepo {
	return &GormCaseRepo{db: db}
}

func (r *GormCaseRepo) CreateCase(ctx context.Context, driverPhone string, orderIDs []string, reason string) (string, error) {
	model := &EscalationCaseModel{
		ID:          uuid.NewString(),
		DriverPhone: driverPhone,
		OrderSetKey: domain.OrderSetKey(orderIDs),
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", err
	}

	return model.ID, nil
}

func (r *GormCaseRepo) ListRecent(ctx context.Context, limit int) ([]domain.EscalationCase, error) {
	var models []EscalationCaseModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	cases := make([]domain.EscalationCase, 0, len(models))
	for i := range models {
		cases = append(cases, domain.EscalationCase{
			ID:          models[i].ID,
			DriverPhone: models[i].DriverPhone,
			OrderSetKey: models[i].OrderSetKey,
			Reason:      models[i].Reason,
			CreatedAt:   models[i].CreatedAt,
		})
	}

	return cases, nil
}
