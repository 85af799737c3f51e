package repository

import (
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
)

// OrderModel is the persistence model for the orders table.
type OrderModel struct {
	ID                    string             `gorm:"type:varchar(64);primaryKey"`
	OrderDate             time.Time          `gorm:"type:date;not null"`
	DriverID              *string            `gorm:"type:varchar(64)"`
	DriverName            *string            `gorm:"type:varchar(255)"`
	DriverPhone           *string            `gorm:"type:varchar(32)"`
	PickupTime            string             `gorm:"type:varchar(16)"`
	DropoffTime           string             `gorm:"type:varchar(16)"`
	PickupAddress         string             `gorm:"type:text"`
	DropoffAddress        string             `gorm:"type:text"`
	Status                domain.OrderStatus `gorm:"type:varchar(20);not null"`
	DriverResponse        *domain.DriverResponse
	EstimatedDelayMinutes *int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// ReminderRecordModel is the persistence model for reminder_records.
type ReminderRecordModel struct {
	ID               string               `gorm:"type:uuid;primaryKey"`
	DriverPhone      string               `gorm:"type:varchar(32);not null"`
	OrderSetKey      string               `gorm:"type:varchar(1024);not null"`
	MessageType      domain.MessageType   `gorm:"type:varchar(10);not null"`
	MessageStatus    domain.MessageStatus `gorm:"type:varchar(10);not null"`
	Content          string               `gorm:"type:text"`
	SentTime         time.Time            `gorm:"not null"`
	ResponseReceived bool                 `gorm:"not null;default:false"`
	ResponseTime     *time.Time
	Escalated        bool `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ReminderRecordModel) TableName() string {
	return "reminder_records"
}

// EscalationCaseModel is the persistence model for escalation_cases.
type EscalationCaseModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	DriverPhone string `gorm:"type:varchar(32);not null"`
	OrderSetKey string `gorm:"type:varchar(1024);not null"`
	Reason      string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (EscalationCaseModel) TableName() string {
	return "escalation_cases"
}

// ReminderSettingsModel is the single-row persistence model for the runtime
// scheduling configuration.
type ReminderSettingsModel struct {
	ID                     int                                `gorm:"primaryKey"`
	IsActive               bool                               `gorm:"not null;default:true"`
	MinutesBefore          int                                `gorm:"not null;default:60"`
	GroupingGapMinutes     int                                `gorm:"not null;default:150"`
	SecondReminderMinutes  int                                `gorm:"not null;default:20"`
	CriticalMinutes        int                                `gorm:"not null;default:30"`
	ResponseTimeoutMinutes int                                `gorm:"not null;default:15"`
	Locale                 string                             `gorm:"type:varchar(8);not null;default:'tr'"`
	Templates              map[string]domain.MessageTemplates `gorm:"serializer:json"`
	UpdatedAt              time.Time
}

func (ReminderSettingsModel) TableName() string {
	return "reminder_settings"
}

func orderModelFromDomain(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}

	return &OrderModel{
		ID:                    o.ID,
		OrderDate:             o.OrderDate,
		DriverID:              o.DriverID,
		DriverName:            o.DriverName,
		DriverPhone:           o.DriverPhone,
		PickupTime:            o.PickupTime,
		DropoffTime:           o.DropoffTime,
		PickupAddress:         o.PickupAddress,
		DropoffAddress:        o.DropoffAddress,
		Status:                o.Status,
		DriverResponse:        o.DriverResponse,
		EstimatedDelayMinutes: o.EstimatedDelayMinutes,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}

	return &domain.Order{
		ID:                    m.ID,
		OrderDate:             m.OrderDate,
		DriverID:              m.DriverID,
		DriverName:            m.DriverName,
		DriverPhone:           m.DriverPhone,
		PickupTime:            m.PickupTime,
		DropoffTime:           m.DropoffTime,
		PickupAddress:         m.PickupAddress,
		DropoffAddress:        m.DropoffAddress,
		Status:                m.Status,
		DriverResponse:        m.DriverResponse,
		EstimatedDelayMinutes: m.EstimatedDelayMinutes,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func reminderModelFromDomain(r *domain.ReminderRecord) *ReminderRecordModel {
	if r == nil {
		return nil
	}

	return &ReminderRecordModel{
		ID:               r.ID,
		DriverPhone:      r.DriverPhone,
		OrderSetKey:      r.OrderSetKey,
		MessageType:      r.MessageType,
		MessageStatus:    r.MessageStatus,
		Content:          r.Content,
		SentTime:         r.SentTime,
		ResponseReceived: r.ResponseReceived,
		ResponseTime:     r.ResponseTime,
		Escalated:        r.Escalated,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderRecordModel) *domain.ReminderRecord {
	if m == nil {
		return nil
	}

	return &domain.ReminderRecord{
		ID:               m.ID,
		DriverPhone:      m.DriverPhone,
		OrderSetKey:      m.OrderSetKey,
		MessageType:      m.MessageType,
		MessageStatus:    m.MessageStatus,
		Content:          m.Content,
		SentTime:         m.SentTime,
		ResponseReceived: m.ResponseReceived,
		ResponseTime:     m.ResponseTime,
		Escalated:        m.Escalated,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func settingsModelToDomain(m *ReminderSettingsModel) domain.ReminderSettings {
	if m == nil {
		return domain.DefaultReminderSettings()
	}

	settings := domain.ReminderSettings{
		IsActive:               m.IsActive,
		MinutesBefore:          m.MinutesBefore,
		GroupingGapMinutes:     m.GroupingGapMinutes,
		SecondReminderMinutes:  m.SecondReminderMinutes,
		CriticalMinutes:        m.CriticalMinutes,
		ResponseTimeoutMinutes: m.ResponseTimeoutMinutes,
		Locale:                 m.Locale,
		Templates:              m.Templates,
	}
	settings.Normalize()
	return settings
}
