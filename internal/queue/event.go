// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records created bookings.
package queue

// BookingCreatedEvent is published after a payment is materialized into
// booking rows.  It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type BookingCreatedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	PaymentID        string   `json:"payment_id"`
	OrderID          string   `json:"order_id"`
	CustomerID       uint64   `json:"customer_id"`
	Rows             int      `json:"rows"`
	TotalAmountPaise int64    `json:"total_amount_paise"`
	BookingDate      string   `json:"booking_date"`
	Stations         []string `json:"stations"`
	CreatedAt        string   `json:"created_at"`
}
