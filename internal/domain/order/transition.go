package order

import "slices"

// transitions lists the statuses reachable from each status. Every status may
// move to any other except that a delivered or cancelled order can no longer
// be cancelled.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusConfirmed:      {StatusPending, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusPreparing:      {StatusPending, StatusConfirmed, StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusOutForDelivery: {StatusPending, StatusConfirmed, StatusPreparing, StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery},
	StatusCancelled:      {StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Cancellable reports whether an order in s can still be cancelled.
func (s Status) Cancellable() bool {
	return CanTransition(s, StatusCancelled)
}

// deliveryStatusFor returns the delivery status that mirrors an order status.
func deliveryStatusFor(s Status) DeliveryStatus {
	switch s {
	case StatusConfirmed, StatusPreparing:
		return DeliveryConfirmed
	case StatusOutForDelivery:
		return DeliveryOutForDelivery
	case StatusDelivered:
		return DeliveryDelivered
	case StatusCancelled:
		return DeliveryCancelled
	default:
		return DeliveryPending
	}
}
