package repository

import (
	"context"
	"errors"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
	"gorm.io/gorm"
)

const settingsRowID = 1

type SettingsRepository interface {
	// Get loads the runtime scheduling settings, falling back to defaults
	// when no row exists yet. The returned value is normalized and safe to
	// use for a whole tick.
	Get(ctx context.Context) (domain.ReminderSettings, error)
	Save(ctx context.Context, settings domain.ReminderSettings) error
}

type GormSettingsRepo struct {
	db *gorm.DB
}

func NewGormSettingsRepo(db *gorm.DB) *GormSettingsRepo {
	return &GormSettingsRepo{db: db}
}

func (r *GormSettingsRepo) Get(ctx context.Context) (domain.ReminderSettings, error) {
	var model ReminderSettingsModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultReminderSettings(), nil
	}
	if err != nil {
		return domain.ReminderSettings{}, err
	}
	return settingsModelToDomain(&model), nil
}

func (r *GormSettingsRepo) Save(ctx context.Context, settings domain.ReminderSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	model := ReminderSettingsModel{
		ID:                     settingsRowID,
		IsActive:               settings.IsActive,
		MinutesBefore:          settings.MinutesBefore,
		GroupingGapMinutes:     settings.GroupingGapMinutes,
		SecondReminderMinutes:  settings.SecondReminderMinutes,
		CriticalMinutes:        settings.CriticalMinutes,
		ResponseTimeoutMinutes: settings.ResponseTimeoutMinutes,
		Locale:                 settings.Locale,
		Templates:              settings.Templates,
		UpdatedAt:              time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Save(&model).Error
}
