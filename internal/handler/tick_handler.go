package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/service"
)

// ReminderTicker runs one reminder dispatch pass.
type ReminderTicker interface {
	RunTick(ctx context.Context, now time.Time) (service.ReminderTickReport, error)
}

// EscalationTicker runs one escalation pass.
type EscalationTicker interface {
	RunTick(ctx context.Context, now time.Time) (service.EscalationTickReport, error)
}

// TickHandler exposes manual tick triggers for external schedulers. Both
// endpoints accept an optional RFC3339 "now" override so operators can replay
// a missed window.
type TickHandler struct {
	reminders   ReminderTicker
	escalations EscalationTicker
}

func NewTickHandler(reminders ReminderTicker, escalations EscalationTicker) (*TickHandler, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder ticker is required")
	}
	if escalations == nil {
		return nil, fmt.Errorf("escalation ticker is required")
	}
	return &TickHandler{reminders: reminders, escalations: escalations}, nil
}

func RegisterTickRoutes(router fiber.Router, reminders ReminderTicker, escalations EscalationTicker) error {
	h, err := NewTickHandler(reminders, escalations)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/ticks/reminder", h.TriggerReminderTick)
	v1.Post("/ticks/escalation", h.TriggerEscalationTick)

	return nil
}

type tickRequest struct {
	Now string `json:"now"`
}

func (h *TickHandler) TriggerReminderTick(c *fiber.Ctx) error {
	now, err := tickTime(c)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.reminders.RunTick(c.Context(), now)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *TickHandler) TriggerEscalationTick(c *fiber.Ctx) error {
	now, err := tickTime(c)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.escalations.RunTick(c.Context(), now)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func tickTime(c *fiber.Ctx) (time.Time, error) {
	if len(c.Body()) == 0 {
		return time.Now().UTC(), nil
	}

	var req tickRequest
	if err := c.BodyParser(&req); err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	trimmed := strings.TrimSpace(req.Now)
	if trimmed == "" {
		return time.Now().UTC(), nil
	}

	now, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: now must be RFC3339", domain.ErrValidation)
	}

	return now.UTC(), nil
}
