package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/seferlink/reminder-engine/internal/domain"
	"github.com/seferlink/reminder-engine/internal/queue"
	"github.com/seferlink/reminder-engine/internal/service"
)

const (
	defaultReminderLimit = 50
	maxReminderLimit     = 200
)

// ResponseService applies classified driver replies and lists reminder chains
// with derived status.
type ResponseService interface {
	ApplyReply(ctx context.Context, msg queue.ReplyMessage) error
	ListDriverReminders(ctx context.Context, driverPhone string, now time.Time, limit int) ([]service.ReminderView, error)
}

type ResponseHandler struct {
	service ResponseService
}

func NewResponseHandler(svc ResponseService) (*ResponseHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("response service is required")
	}
	return &ResponseHandler{service: svc}, nil
}

func RegisterResponseRoutes(router fiber.Router, svc ResponseService) error {
	h, err := NewResponseHandler(svc)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/responses", h.SubmitResponse)
	v1.Get("/reminders", h.ListReminders)

	return nil
}

type submitResponseRequest struct {
	DriverPhone  string `json:"driverPhone"`
	Response     string `json:"response"`
	DelayMinutes *int   `json:"delayMinutes,omitempty"`
	ReceivedAt   string `json:"receivedAt,omitempty"`
}

type reminderItem struct {
	ID               string     `json:"id"`
	DriverPhone      string     `json:"driverPhone"`
	OrderIDs         []string   `json:"orderIds"`
	MessageType      string     `json:"messageType"`
	MessageStatus    string     `json:"messageStatus"`
	Status           string     `json:"status"`
	Content          string     `json:"content"`
	SentTime         time.Time  `json:"sentTime"`
	ResponseReceived bool       `json:"responseReceived"`
	ResponseTime     *time.Time `json:"responseTime,omitempty"`
	Escalated        bool       `json:"escalated"`
}

type listRemindersResponse struct {
	Data []reminderItem `json:"data"`
}

// SubmitResponse is the HTTP fallback for the reply pipeline: the same
// classified payload that normally arrives over the broker.
func (h *ResponseHandler) SubmitResponse(c *fiber.Ctx) error {
	var req submitResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	response, err := domain.ParseDriverResponseFromString(req.Response)
	if err != nil {
		return toHTTPError(err)
	}

	receivedAt := time.Now().UTC()
	if trimmed := strings.TrimSpace(req.ReceivedAt); trimmed != "" {
		parsed, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			return toHTTPError(fmt.Errorf("%w: receivedAt must be RFC3339", domain.ErrValidation))
		}
		receivedAt = parsed.UTC()
	}

	msg := queue.ReplyMessage{
		DriverPhone:  strings.TrimSpace(req.DriverPhone),
		Response:     response,
		DelayMinutes: req.DelayMinutes,
		ReceivedAt:   receivedAt,
	}

	if err := h.service.ApplyReply(c.Context(), msg); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"driverPhone": msg.DriverPhone,
		"response":    msg.Response.String(),
	})
}

func (h *ResponseHandler) ListReminders(c *fiber.Ctx) error {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		return toHTTPError(fmt.Errorf("%w: phone is required", domain.ErrValidation))
	}

	limit := c.QueryInt("limit", defaultReminderLimit)
	if limit < 1 || limit > maxReminderLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxReminderLimit))
	}

	views, err := h.service.ListDriverReminders(c.Context(), phone, time.Now().UTC(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]reminderItem, 0, len(views))
	for _, view := range views {
		items = append(items, toReminderItem(view))
	}

	return c.Status(fiber.StatusOK).JSON(listRemindersResponse{Data: items})
}

func toReminderItem(view service.ReminderView) reminderItem {
	record := view.Record
	return reminderItem{
		ID:               record.ID,
		DriverPhone:      record.DriverPhone,
		OrderIDs:         record.OrderIDs(),
		MessageType:      record.MessageType.String(),
		MessageStatus:    record.MessageStatus.String(),
		Status:           view.Status.String(),
		Content:          record.Content,
		SentTime:         record.SentTime,
		ResponseReceived: record.ResponseReceived,
		ResponseTime:     record.ResponseTime,
		Escalated:        record.Escalated,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
