// Package template fills outbound message templates with group data.
package template

import (
	"strconv"
	"strings"

	"github.com/seferlink/reminder-engine/internal/domain"
)

// Data carries the values substituted into a message template.
type Data struct {
	DriverName    string
	OrderID       string
	Minutes       int
	PickupTime    string
	PickupAddress string
	OrderCount    int
	OrderList     string
}

// Render substitutes the recognized placeholders into the template. Unknown
// placeholders are left untouched so a typo in a stored template surfaces in
// the message instead of vanishing.
func Render(tpl string, data Data) string {
	replacer := strings.NewReplacer(
		"{driver_name}", data.DriverName,
		"{order_id}", data.OrderID,
		"{minutes}", strconv.Itoa(data.Minutes),
		"{pickup_time}", data.PickupTime,
		"{pickup_address}", data.PickupAddress,
		"{order_count}", strconv.Itoa(data.OrderCount),
		"{order_list}", data.OrderList,
	)
	return replacer.Replace(tpl)
}

// DataForGroup assembles template data from a notification group.
func DataForGroup(group *domain.NotificationGroup, minutesUntilPickup int) Data {
	data := Data{
		DriverName: group.DriverName,
		Minutes:    minutesUntilPickup,
		PickupTime: group.EarliestPickupLabel,
		OrderCount: len(group.OrderIDs),
		OrderList:  strings.Join(group.OrderIDs, ", "),
	}

	if len(group.Orders) > 0 {
		data.OrderID = group.Orders[0].ID
		data.PickupAddress = group.Orders[0].PickupAddress
	}

	return data
}
