package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aryanpatel/gameden-booking/internal/config"
	"github.com/aryanpatel/gameden-booking/internal/gateway"
	"github.com/aryanpatel/gameden-booking/internal/model"
	"github.com/aryanpatel/gameden-booking/internal/service"
)

// PaymentHandler exposes the order-creation, verification and booking
// materialization endpoints.  All three are stateless and may run
// concurrently, including for the same payment id; the service layer is
// responsible for making that safe.  The gateway client is built per
// request from freshly resolved credentials.
type PaymentHandler struct {
	Materializer *service.Materializer
	Verifier     *service.Verifier
	NewClient    func() (*gateway.Client, error)
}

// NewPaymentHandler constructs a PaymentHandler.  All dependencies must be
// non-nil.
func NewPaymentHandler(m *service.Materializer, v *service.Verifier, newClient func() (*gateway.Client, error)) *PaymentHandler {
	if m == nil || v == nil || newClient == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Materializer: m, Verifier: v, NewClient: newClient}
}

// CreateOrder handles POST /create-order.  The request carries the amount
// in rupees, a receipt label and optional notes; when a booking intent is
// included it is serialized into the order notes (chunked if oversized) so
// the materializer can reconstruct it after payment.  The gateway is the
// system of record for the order; nothing is persisted locally.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var body struct {
		Amount        float64              `json:"amount"`
		Receipt       string               `json:"receipt"`
		Notes         map[string]string    `json:"notes"`
		BookingIntent *model.BookingIntent `json:"booking_intent"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	notes := make(map[string]string, len(body.Notes)+2)
	for k, v := range body.Notes {
		notes[k] = v
	}
	if body.BookingIntent != nil {
		intentNotes, err := gateway.EncodeIntentNotes(body.BookingIntent)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": err.Error()})
		}
		for k, v := range intentNotes {
			notes[k] = v
		}
	}
	client, err := h.NewClient()
	if err != nil {
		return gatewayFailure(c, err)
	}
	order, err := client.CreateOrder(c.Request().Context(), body.Amount, body.Receipt, notes)
	if err != nil {
		return gatewayFailure(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":       true,
		"orderId":  order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
	})
}

// VerifyPayment handles POST /verify-payment.  It is a pure read against
// the gateway: the response reports the observed status and never creates
// a booking.  Safe to call any number of times.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var body struct {
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpaySignature string `json:"razorpay_signature"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	if body.RazorpayPaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "razorpay_payment_id is required"})
	}
	v, err := h.Verifier.VerifyPayment(c.Request().Context(), body.RazorpayPaymentID)
	if err != nil {
		return gatewayFailure(c, err)
	}
	if !v.Success {
		msg := "Payment not successful. Status: " + v.Status
		if v.ErrorDescription != "" {
			msg += " (" + v.ErrorDescription + ")"
		}
		return c.JSON(http.StatusOK, echo.Map{
			"ok":      true,
			"success": false,
			"status":  v.Status,
			"error":   msg,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":        true,
		"success":   true,
		"status":    v.Status,
		"paymentId": v.PaymentID,
		"orderId":   v.OrderID,
		"amount":    v.Amount,
		"currency":  v.Currency,
	})
}

// CreateBookingFromPayment handles POST /create-booking-from-payment, the
// sole path that materializes bookings.  A repeat call for an already
// materialized payment returns the existing booking with alreadyExists
// set; it never writes a second group.
func (h *PaymentHandler) CreateBookingFromPayment(c echo.Context) error {
	var body struct {
		PaymentID string `json:"payment_id"`
		OrderID   string `json:"order_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	if body.PaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "payment_id is required"})
	}
	res, err := h.Materializer.CreateBookingFromPayment(c.Request().Context(), body.PaymentID, body.OrderID)
	if err != nil {
		var notPaid *service.PaymentNotSuccessfulError
		if errors.As(err, &notPaid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": notPaid.Error()})
		}
		if errors.Is(err, service.ErrMissingBookingData) {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"ok":    false,
				"error": err.Error(),
				"note":  "Your payment was received but the booking could not be created. Please contact the venue; you can also pay at the counter.",
			})
		}
		return gatewayFailure(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":            true,
		"success":       true,
		"bookingId":     res.BookingID,
		"alreadyExists": res.AlreadyExists,
	})
}

// gatewayFailure maps service and gateway errors to HTTP responses: 400
// for caller mistakes, 500 for configuration, gateway and store failures.
// No unformatted error ever crosses the boundary.
func gatewayFailure(c echo.Context, err error) error {
	var invalidAmount *gateway.InvalidAmountError
	if errors.As(err, &invalidAmount) {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": invalidAmount.Error()})
	}
	var confErr *config.ConfigurationError
	if errors.As(err, &confErr) {
		log.Printf("handler: %v", confErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": confErr.Error()})
	}
	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		log.Printf("handler: %v", gwErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": gwErr.Error()})
	}
	log.Printf("handler: internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": err.Error()})
}
