package domain

import (
	"sort"
	"strings"
	"time"
)

// NotificationGroup bundles a driver's chain-close orders into one outbound
// message. Groups are recomputed from eligible orders on every scheduling pass
// and never persisted on their own; only the ReminderRecord they produce is.
type NotificationGroup struct {
	DriverID            string
	DriverName          string
	DriverPhone         string
	OrderIDs            []string // sorted by pickup time ascending
	Orders              []Order  // same ordering as OrderIDs
	EarliestPickupMins  int      // minutes since midnight
	EarliestPickupLabel string   // original clock-time string of the earliest order
}

// IsMulti reports whether the group covers more than one order.
func (g *NotificationGroup) IsMulti() bool {
	return len(g.OrderIDs) > 1
}

// OrderSetKey returns the immutable idempotency key of the group: the member
// order IDs, sorted and joined. A changed member set yields a new key, so a
// regrouped set is a fresh chain while an unchanged set stays deduplicated.
func (g *NotificationGroup) OrderSetKey() string {
	return OrderSetKey(g.OrderIDs)
}

// EarliestPickupAt anchors the group's earliest pickup onto its calendar day.
func (g *NotificationGroup) EarliestPickupAt(date time.Time) time.Time {
	return ClockTimeOnDate(date, g.EarliestPickupMins)
}

// OrderSetKey canonicalizes a set of order IDs into a stable key.
func OrderSetKey(orderIDs []string) string {
	ids := make([]string, len(orderIDs))
	copy(ids, orderIDs)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// OrderIDsFromSetKey splits a canonical key back into its member IDs.
func OrderIDsFromSetKey(key string) []string {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return strings.Split(key, ",")
}
