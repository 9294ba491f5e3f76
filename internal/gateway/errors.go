// Package gateway implements a minimal REST client for the Razorpay-style
// payment gateway: order creation and order/payment fetches, plus the codec
// that embeds a booking intent into order notes.  The gateway is the system
// of record for orders and payments; nothing here is persisted locally.
package gateway

import "fmt"

// MinOrderPaise is the smallest order amount the gateway accepts, in minor
// currency units.
const MinOrderPaise = 100

// InvalidAmountError is returned by CreateOrder when the requested amount
// converts to fewer minor units than the gateway minimum.  It is a caller
// mistake, not a gateway failure; handlers map it to HTTP 400.
type InvalidAmountError struct {
	AmountPaise int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("order amount %d paise is below the gateway minimum of %d", e.AmountPaise, MinOrderPaise)
}

// GatewayError wraps a non-2xx gateway response.  Network errors and 5xx
// responses are generally retryable from the outside (the client or the
// gateway's own webhook redelivery); this service never retries internally.
type GatewayError struct {
	StatusCode  int
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("gateway returned %d", e.StatusCode)
}
