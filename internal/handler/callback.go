package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// CallbackHandler translates the gateway's browser redirect back into
// booking-page URLs.  It is a pure boundary adapter: it never verifies the
// payment and never creates bookings, it only forwards the identifiers so
// the booking page can run the verification call itself.
type CallbackHandler struct {
	// BaseURL is the booking front end, e.g. https://gameden.example.
	BaseURL string
}

// HandleCallback handles GET and POST /callback.  The gateway supplies
// razorpay_payment_id, razorpay_order_id and razorpay_signature either in
// the query string or in a form-encoded body.  With both identifiers
// present the browser is sent to the booking-status page; otherwise to the
// failure page with an error message.
func (h *CallbackHandler) HandleCallback(c echo.Context) error {
	paymentID := paramOrForm(c, "razorpay_payment_id")
	orderID := paramOrForm(c, "razorpay_order_id")
	signature := paramOrForm(c, "razorpay_signature")

	if paymentID == "" || orderID == "" {
		target := h.BaseURL + "/booking-failed?error=" + url.QueryEscape("missing payment details")
		return c.Redirect(http.StatusFound, target)
	}

	q := url.Values{}
	q.Set("payment_id", paymentID)
	q.Set("order_id", orderID)
	if signature != "" {
		q.Set("signature", signature)
	}
	return c.Redirect(http.StatusFound, h.BaseURL+"/booking-status?"+q.Encode())
}

// paramOrForm reads a value from the query string first, then the form
// body.  The gateway uses GET with query params or POST with form fields
// depending on the checkout flavour.
func paramOrForm(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}
