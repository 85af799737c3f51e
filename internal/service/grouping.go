package service

import (
	"sort"

	"github.com/seferlink/reminder-engine/internal/domain"
)

// GroupOrders clusters one driver's eligible orders into notification groups
// using chain semantics: each order is compared against its immediate
// predecessor's pickup time, not the group's first member, so a chain of
// orders each within the gap threshold stays together even when the
// first-to-last span exceeds it.
//
// The function is pure: same input always yields the same grouping regardless
// of input order. Orders with unparseable pickup times are excluded.
func GroupOrders(orders []domain.Order, gapThresholdMinutes int) []domain.NotificationGroup {
	type timedOrder struct {
		order   domain.Order
		minutes int
	}

	timed := make([]timedOrder, 0, len(orders))
	for i := range orders {
		minutes, err := orders[i].PickupMinutes()
		if err != nil {
			continue
		}
		timed = append(timed, timedOrder{order: orders[i], minutes: minutes})
	}

	if len(timed) == 0 {
		return nil
	}

	// Tie-break on ID so equal pickup times group deterministically.
	sort.Slice(timed, func(i, j int) bool {
		if timed[i].minutes != timed[j].minutes {
			return timed[i].minutes < timed[j].minutes
		}
		return timed[i].order.ID < timed[j].order.ID
	})

	var groups []domain.NotificationGroup
	current := newGroupFrom(timed[0].order, timed[0].minutes)
	prevMinutes := timed[0].minutes

	for _, entry := range timed[1:] {
		gap := entry.minutes - prevMinutes
		if gap <= gapThresholdMinutes {
			current.OrderIDs = append(current.OrderIDs, entry.order.ID)
			current.Orders = append(current.Orders, entry.order)
		} else {
			groups = append(groups, current)
			current = newGroupFrom(entry.order, entry.minutes)
		}
		prevMinutes = entry.minutes
	}

	return append(groups, current)
}

// GroupOrdersByDriver partitions eligible orders per driver and groups each
// driver's orders independently. Drivers are processed in sorted order so the
// result is stable across scheduling passes.
func GroupOrdersByDriver(orders []domain.Order, gapThresholdMinutes int) []domain.NotificationGroup {
	byDriver := make(map[string][]domain.Order)
	for i := range orders {
		if !orders[i].IsEligibleForNotification() {
			continue
		}
		key := ""
		if orders[i].DriverID != nil {
			key = *orders[i].DriverID
		}
		byDriver[key] = append(byDriver[key], orders[i])
	}

	driverIDs := make([]string, 0, len(byDriver))
	for id := range byDriver {
		driverIDs = append(driverIDs, id)
	}
	sort.Strings(driverIDs)

	var groups []domain.NotificationGroup
	for _, id := range driverIDs {
		groups = append(groups, GroupOrders(byDriver[id], gapThresholdMinutes)...)
	}

	return groups
}

func newGroupFrom(order domain.Order, pickupMinutes int) domain.NotificationGroup {
	group := domain.NotificationGroup{
		OrderIDs:            []string{order.ID},
		Orders:              []domain.Order{order},
		EarliestPickupMins:  pickupMinutes,
		EarliestPickupLabel: order.PickupTime,
	}
	if order.DriverID != nil {
		group.DriverID = *order.DriverID
	}
	if order.DriverName != nil {
		group.DriverName = *order.DriverName
	}
	if order.DriverPhone != nil {
		group.DriverPhone = *order.DriverPhone
	}
	return group
}
