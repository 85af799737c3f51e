package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle state of a delivery order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusAssigned         OrderStatus = "ASSIGNED"
	OrderStatusAwaitingApproval OrderStatus = "AWAITING_APPROVAL"
	OrderStatusApproved         OrderStatus = "APPROVED"
	OrderStatusRejected         OrderStatus = "REJECTED"
	OrderStatusInTransit        OrderStatus = "IN_TRANSIT"
	OrderStatusCompleted        OrderStatus = "COMPLETED"
	OrderStatusProblem          OrderStatus = "PROBLEM"
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAssigned, OrderStatusAwaitingApproval,
		OrderStatusApproved, OrderStatusRejected, OrderStatusInTransit,
		OrderStatusCompleted, OrderStatusProblem:
		return true
	}
	return false
}

// IsTerminal reports whether no further notification activity applies.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCompleted, OrderStatusProblem:
		return true
	}
	return false
}

func ParseOrderStatusFromString(s string) (OrderStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	st := OrderStatus(normalized)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid order status %q", ErrValidation, s)
	}
	return st, nil
}

// DriverResponse is the classified reply of a driver to a reminder. The
// classification itself (EVET/HAYIR/delay text) happens upstream.
type DriverResponse string

const (
	DriverResponseYes     DriverResponse = "YES"
	DriverResponseNo      DriverResponse = "NO"
	DriverResponseDelayed DriverResponse = "DELAYED"
)

func (r DriverResponse) String() string { return string(r) }

func (r DriverResponse) IsValid() bool {
	switch r {
	case DriverResponseYes, DriverResponseNo, DriverResponseDelayed:
		return true
	}
	return false
}

func ParseDriverResponseFromString(s string) (DriverResponse, error) {
	r := DriverResponse(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid driver response %q", ErrValidation, s)
	}
	return r, nil
}

// Order is one delivery task assigned to a driver for a calendar day.
type Order struct {
	ID                    string
	OrderDate             time.Time
	DriverID              *string
	DriverName            *string
	DriverPhone           *string
	PickupTime            string
	DropoffTime           string
	PickupAddress         string
	DropoffAddress        string
	Status                OrderStatus
	DriverResponse        *DriverResponse
	EstimatedDelayMinutes *int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: invalid order status %q", ErrValidation, o.Status)
	}
	if o.DriverResponse != nil && !o.DriverResponse.IsValid() {
		return fmt.Errorf("%w: invalid driver response %q", ErrValidation, *o.DriverResponse)
	}
	return nil
}

// IsEligibleForNotification reports whether the order may enter grouping:
// approved, phone-equipped, and carrying a parseable pickup time.
func (o *Order) IsEligibleForNotification() bool {
	if o.Status != OrderStatusApproved {
		return false
	}
	if o.DriverPhone == nil || strings.TrimSpace(*o.DriverPhone) == "" {
		return false
	}
	_, err := ParseClockTime(o.PickupTime)
	return err == nil
}

// PickupMinutes returns the pickup time as minutes since midnight.
func (o *Order) PickupMinutes() (int, error) {
	return ParseClockTime(o.PickupTime)
}
