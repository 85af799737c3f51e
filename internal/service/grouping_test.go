package service

import (
	"testing"
	"time"

	"github.com/seferlink/reminder-engine/internal/domain"
)

var groupingDate = time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

func TestGroupOrdersChainSemantics(t *testing.T) {
	t.Parallel()

	// Consecutive gaps of 120 minutes each stay chained even though the
	// first-to-last span is 240 minutes.
	orders := []domain.Order{
		approvedOrder("ord-1", "drv-1", "+905551112233", "09:00", groupingDate),
		approvedOrder("ord-2", "drv-1", "+905551112233", "11:00", groupingDate),
		approvedOrder("ord-3", "drv-1", "+905551112233", "13:00", groupingDate),
	}

	groups := GroupOrders(orders, 150)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].OrderIDs) != 3 {
		t.Fatalf("group size = %d, want 3", len(groups[0].OrderIDs))
	}
	if groups[0].EarliestPickupLabel != "09:00" {
		t.Fatalf("earliest pickup = %q, want 09:00", groups[0].EarliestPickupLabel)
	}
}

func TestGroupOrdersGapBoundary(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		secondTime string
		wantGroups int
	}{
		{name: "gap equal to threshold joins", secondTime: "10:30", wantGroups: 1},
		{name: "gap one over threshold splits", secondTime: "10:31", wantGroups: 2},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			orders := []domain.Order{
				approvedOrder("ord-1", "drv-1", "+905551112233", "08:00", groupingDate),
				approvedOrder("ord-2", "drv-1", "+905551112233", tc.secondTime, groupingDate),
			}

			groups := GroupOrders(orders, 150)
			if len(groups) != tc.wantGroups {
				t.Fatalf("groups = %d, want %d", len(groups), tc.wantGroups)
			}
		})
	}
}

func TestGroupOrdersDeterministicAcrossInputOrder(t *testing.T) {
	t.Parallel()

	forward := []domain.Order{
		approvedOrder("ord-1", "drv-1", "+905551112233", "08:00", groupingDate),
		approvedOrder("ord-2", "drv-1", "+905551112233", "08:30", groupingDate),
		approvedOrder("ord-3", "drv-1", "+905551112233", "15:00", groupingDate),
	}
	reversed := []domain.Order{forward[2], forward[0], forward[1]}

	a := GroupOrders(forward, 150)
	b := GroupOrders(reversed, 150)

	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("groups = %d/%d, want 2/2", len(a), len(b))
	}
	for i := range a {
		if a[i].OrderSetKey() != b[i].OrderSetKey() {
			t.Fatalf("group %d key mismatch: %q vs %q", i, a[i].OrderSetKey(), b[i].OrderSetKey())
		}
	}
}

func TestGroupOrdersEqualPickupTimesTieBreakOnID(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{
		approvedOrder("ord-b", "drv-1", "+905551112233", "09:00", groupingDate),
		approvedOrder("ord-a", "drv-1", "+905551112233", "09:00", groupingDate),
	}

	groups := GroupOrders(orders, 150)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].OrderIDs[0] != "ord-a" || groups[0].OrderIDs[1] != "ord-b" {
		t.Fatalf("order ids = %v, want [ord-a ord-b]", groups[0].OrderIDs)
	}
}

func TestGroupOrdersSkipsUnparseablePickup(t *testing.T) {
	t.Parallel()

	bad := approvedOrder("ord-bad", "drv-1", "+905551112233", "not-a-time", groupingDate)
	good := approvedOrder("ord-1", "drv-1", "+905551112233", "09:00", groupingDate)

	groups := GroupOrders([]domain.Order{bad, good}, 150)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].OrderIDs) != 1 || groups[0].OrderIDs[0] != "ord-1" {
		t.Fatalf("order ids = %v, want [ord-1]", groups[0].OrderIDs)
	}

	if got := GroupOrders([]domain.Order{bad}, 150); got != nil {
		t.Fatalf("groups = %v, want nil", got)
	}
}

func TestGroupOrdersByDriverPartitions(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{
		approvedOrder("ord-1", "drv-a", "+905551110001", "09:00", groupingDate),
		approvedOrder("ord-2", "drv-b", "+905551110002", "09:10", groupingDate),
		approvedOrder("ord-3", "drv-a", "+905551110001", "10:00", groupingDate),
	}

	groups := GroupOrdersByDriver(orders, 150)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	// Drivers iterate in sorted order.
	if groups[0].DriverID != "drv-a" || len(groups[0].OrderIDs) != 2 {
		t.Fatalf("first group = %s/%v, want drv-a with 2 orders", groups[0].DriverID, groups[0].OrderIDs)
	}
	if groups[1].DriverID != "drv-b" || len(groups[1].OrderIDs) != 1 {
		t.Fatalf("second group = %s/%v, want drv-b with 1 order", groups[1].DriverID, groups[1].OrderIDs)
	}
}

func TestGroupOrdersByDriverFiltersIneligible(t *testing.T) {
	t.Parallel()

	pending := approvedOrder("ord-1", "drv-a", "+905551110001", "09:00", groupingDate)
	pending.Status = domain.OrderStatusPending

	noPhone := approvedOrder("ord-2", "drv-a", "", "09:30", groupingDate)
	noPhone.DriverPhone = nil

	eligible := approvedOrder("ord-3", "drv-a", "+905551110001", "10:00", groupingDate)

	groups := GroupOrdersByDriver([]domain.Order{pending, noPhone, eligible}, 150)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].OrderIDs[0] != "ord-3" {
		t.Fatalf("order ids = %v, want [ord-3]", groups[0].OrderIDs)
	}
}
