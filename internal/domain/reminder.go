package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageType distinguishes the first reminder from the second nudge.
type MessageType string

const (
	MessageTypeFirst  MessageType = "FIRST"
	MessageTypeSecond MessageType = "SECOND"
)

func (t MessageType) String() string { return string(t) }

func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeFirst, MessageTypeSecond:
		return true
	}
	return false
}

func ParseMessageTypeFromString(s string) (MessageType, error) {
	t := MessageType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid message type %q", ErrValidation, s)
	}
	return t, nil
}

// MessageStatus records the transport outcome of a dispatched reminder.
type MessageStatus string

const (
	MessageStatusSent   MessageStatus = "SENT"
	MessageStatusFailed MessageStatus = "FAILED"
)

func (s MessageStatus) String() string { return string(s) }

func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageStatusSent, MessageStatusFailed:
		return true
	}
	return false
}

// ReminderStatus is the derived presentation state of a reminder chain.
// It is computed from persisted fields and elapsed time, never stored.
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "PENDING"
	ReminderStatusSent      ReminderStatus = "SENT"
	ReminderStatusWarning   ReminderStatus = "WARNING"
	ReminderStatusCritical  ReminderStatus = "CRITICAL"
	ReminderStatusResponded ReminderStatus = "RESPONDED"
	ReminderStatusFailed    ReminderStatus = "FAILED"
)

func (s ReminderStatus) String() string { return string(s) }

// ReminderRecord is the audit row for one dispatched notification, single or
// grouped. At most one FIRST and one SECOND record may exist per order set;
// the unique (order_set_key, message_type) index enforces it. Records are
// never deleted, even when their order set later loses eligibility.
type ReminderRecord struct {
	ID               string
	DriverPhone      string
	OrderSetKey      string
	MessageType      MessageType
	MessageStatus    MessageStatus
	Content          string
	SentTime         time.Time
	ResponseReceived bool
	ResponseTime     *time.Time
	Escalated        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *ReminderRecord) Validate() error {
	if strings.TrimSpace(r.DriverPhone) == "" {
		return fmt.Errorf("%w: driver phone is required", ErrValidation)
	}
	if strings.TrimSpace(r.OrderSetKey) == "" {
		return fmt.Errorf("%w: order set key is required", ErrValidation)
	}
	if !r.MessageType.IsValid() {
		return fmt.Errorf("%w: invalid message type %q", ErrValidation, r.MessageType)
	}
	if !r.MessageStatus.IsValid() {
		return fmt.Errorf("%w: invalid message status %q", ErrValidation, r.MessageStatus)
	}
	if r.SentTime.IsZero() {
		return fmt.Errorf("%w: sent time is required", ErrValidation)
	}
	return nil
}

// OrderIDs returns the member order IDs covered by this record.
func (r *ReminderRecord) OrderIDs() []string {
	return OrderIDsFromSetKey(r.OrderSetKey)
}

// ElapsedMinutesSince returns whole minutes between the send and now.
func (r *ReminderRecord) ElapsedMinutesSince(now time.Time) int {
	return MinutesBetween(r.SentTime, now)
}

// EscalationCase is the human-actionable alert created exactly once when a
// reminder chain crosses the critical threshold unanswered.
type EscalationCase struct {
	ID          string
	DriverPhone string
	OrderSetKey string
	Reason      string
	CreatedAt   time.Time
}
