package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/seferlink/reminder-engine/internal/domain"
)

const defaultCaseLimit = 50

// SettingsStore reads and writes the persisted engine settings.
type SettingsStore interface {
	Get(ctx context.Context) (domain.ReminderSettings, error)
	Save(ctx context.Context, settings domain.ReminderSettings) error
}

// CaseLister reads recent escalation cases.
type CaseLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.EscalationCase, error)
}

type SettingsHandler struct {
	settings SettingsStore
	cases    CaseLister
}

func NewSettingsHandler(settings SettingsStore, cases CaseLister) (*SettingsHandler, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	return &SettingsHandler{settings: settings, cases: cases}, nil
}

func RegisterSettingsRoutes(router fiber.Router, settings SettingsStore, cases CaseLister) error {
	h, err := NewSettingsHandler(settings, cases)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/settings", h.GetSettings)
	v1.Put("/settings", h.UpdateSettings)
	if cases != nil {
		v1.Get("/cases", h.ListCases)
	}

	return nil
}

type settingsPayload struct {
	IsActive               bool                               `json:"isActive"`
	MinutesBefore          int                                `json:"minutesBefore"`
	GroupingGapMinutes     int                                `json:"groupingGapMinutes"`
	SecondReminderMinutes  int                                `json:"secondReminderMinutes"`
	CriticalMinutes        int                                `json:"criticalMinutes"`
	ResponseTimeoutMinutes int                                `json:"responseTimeoutMinutes"`
	Locale                 string                             `json:"locale"`
	Templates              map[string]domain.MessageTemplates `json:"templates"`
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSettingsPayload(settings))
}

// UpdateSettings replaces the persisted settings. Out-of-range values are
// clamped the same way ticks clamp them, so what is stored is what runs.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req settingsPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	settings := domain.ReminderSettings{
		IsActive:               req.IsActive,
		MinutesBefore:          req.MinutesBefore,
		GroupingGapMinutes:     req.GroupingGapMinutes,
		SecondReminderMinutes:  req.SecondReminderMinutes,
		CriticalMinutes:        req.CriticalMinutes,
		ResponseTimeoutMinutes: req.ResponseTimeoutMinutes,
		Locale:                 req.Locale,
		Templates:              req.Templates,
	}
	settings.Normalize()

	if err := settings.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.settings.Save(c.Context(), settings); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSettingsPayload(settings))
}

type caseItem struct {
	ID          string    `json:"id"`
	DriverPhone string    `json:"driverPhone"`
	OrderIDs    []string  `json:"orderIds"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *SettingsHandler) ListCases(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultCaseLimit)
	if limit < 1 || limit > maxReminderLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxReminderLimit))
	}

	cases, err := h.cases.ListRecent(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]caseItem, 0, len(cases))
	for _, esc := range cases {
		items = append(items, caseItem{
			ID:          esc.ID,
			DriverPhone: esc.DriverPhone,
			OrderIDs:    domain.OrderIDsFromSetKey(esc.OrderSetKey),
			Reason:      esc.Reason,
			CreatedAt:   esc.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": items,
	})
}

func toSettingsPayload(settings domain.ReminderSettings) settingsPayload {
	return settingsPayload{
		IsActive:               settings.IsActive,
		MinutesBefore:          settings.MinutesBefore,
		GroupingGapMinutes:     settings.GroupingGapMinutes,
		SecondReminderMinutes:  settings.SecondReminderMinutes,
		CriticalMinutes:        settings.CriticalMinutes,
		ResponseTimeoutMinutes: settings.ResponseTimeoutMinutes,
		Locale:                 settings.Locale,
		Templates:              settings.Templates,
	}
}
