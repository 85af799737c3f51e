package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/seferlink/reminder-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_orders",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.OrderModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_orders_date_status ON orders (order_date, status)`,
					`CREATE INDEX IF NOT EXISTS idx_orders_driver_phone ON orders (driver_phone) WHERE driver_phone IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OrderModel{})
			},
		},
		{
			ID: "000002_create_reminder_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ReminderRecordModel{}); err != nil {
					return err
				}
				indexes := []string{
					// At most one FIRST and one SECOND per order set; this
					// constraint is the idempotency guard both tick loops
					// rely on under concurrent invocation.
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_records_set_type ON reminder_records (order_set_key, message_type)`,
					`CREATE INDEX IF NOT EXISTS idx_reminder_records_phone_sent ON reminder_records (driver_phone, sent_time DESC)`,
					`CREATE INDEX IF NOT EXISTS idx_reminder_records_open_first ON reminder_records (sent_time) WHERE message_type = 'FIRST' AND message_status = 'SENT' AND response_received = false AND escalated = false`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ReminderRecordModel{})
			},
		},
		{
			ID: "000003_create_escalation_cases",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.EscalationCaseModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_escalation_cases_phone ON escalation_cases (driver_phone)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.EscalationCaseModel{})
			},
		},
		{
			ID: "000004_create_reminder_settings",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ReminderSettingsModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ReminderSettingsModel{})
			},
		},
	})

	return m.Migrate()
}
