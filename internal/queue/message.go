package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
)

// ReplyMessage is the broker payload for a classified driver reply.
type ReplyMessage struct {
	DriverPhone  string                `json:"driverPhone"`
	Response     domain.DriverResponse `json:"response"`
	DelayMinutes *int                  `json:"delayMinutes,omitempty"`
	ReceivedAt   time.Time             `json:"receivedAt"`
}

func (m ReplyMessage) Validate() error {
	if strings.TrimSpace(m.DriverPhone) == "" {
		return fmt.Errorf("driverPhone is required")
	}
	if !m.Response.IsValid() {
		return fmt.Errorf("invalid response %q", m.Response)
	}
	if m.ReceivedAt.IsZero() {
		return fmt.Errorf("receivedAt is required")
	}
	if m.DelayMinutes != nil && *m.DelayMinutes < 0 {
		return fmt.Errorf("delayMinutes must not be negative")
	}
	return nil
}

// CaseEvent is the broker payload emitted once per critical escalation.
type CaseEvent struct {
	CaseID      string    `json:"caseId"`
	DriverPhone string    `json:"driverPhone"`
	OrderIDs    []string  `json:"orderIds"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e CaseEvent) Validate() error {
	if strings.TrimSpace(e.CaseID) == "" {
		return fmt.Errorf("caseId is required")
	}
	if strings.TrimSpace(e.DriverPhone) == "" {
		return fmt.Errorf("driverPhone is required")
	}
	if len(e.OrderIDs) == 0 {
		return fmt.Errorf("orderIds must not be empty")
	}
	return nil
}
