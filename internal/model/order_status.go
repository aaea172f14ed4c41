package model

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderProcessing,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
	OrderFailed,
}

// adminTransitions holds the targets an admin may move an order to.
// Statuses without an entry are terminal.
var adminTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled, OrderFailed},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(adminTransitions[s]) == 0
}

// ReleasesStock reports whether entering s returns reserved stock to the catalog.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderCancelled || s == OrderFailed
}

// CountsAsRevenue reports whether orders in s contribute to revenue figures.
func (s OrderStatus) CountsAsRevenue() bool {
	return s.Valid() && !s.ReleasesStock()
}

// NextStatuses returns the statuses an admin may move an order in from to.
func NextStatuses(from OrderStatus) []OrderStatus {
	next := adminTransitions[from]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanUpdateOrderStatus reports whether an admin may move an order from one status to another.
func CanUpdateOrderStatus(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	for _, s := range adminTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CustomerCanCancel reports whether the customer may still cancel an order in s.
func CustomerCanCancel(s OrderStatus) bool {
	return s == OrderPending || s == OrderConfirmed
}
