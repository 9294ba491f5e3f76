package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// defaultBaseURL is the production REST endpoint.  Tests point BaseURL at an
// httptest server instead.
const defaultBaseURL = "https://api.razorpay.com/v1"

// receiptMaxLen and noteValueMaxLen are gateway-imposed field limits.
const (
	receiptMaxLen   = 40
	noteValueMaxLen = 256
)

// Client talks to the payment gateway over REST with basic auth.  A Client
// is cheap to construct and is built per invocation from freshly resolved
// credentials; it holds no state beyond the key pair and the HTTP client.
type Client struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a gateway client for the given key pair.  The embedded
// http.Client carries a hard 10 second timeout so every gateway call is
// bounded even when the caller's context has no deadline.
func NewClient(keyID, keySecret string) *Client {
	return &Client{
		KeyID:      keyID,
		KeySecret:  keySecret,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Order mirrors the gateway's order entity.  Amount is in paise.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// Payment mirrors the gateway's payment entity.  Amount is in paise.
type Payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

// CreateOrder creates a gateway order for the given amount in rupees.
// The amount is converted to paise by rounding; amounts below the gateway
// minimum return an *InvalidAmountError.  The receipt is truncated to the
// gateway's 40 character limit.  Notes are sanitized: only non-empty string
// values up to 256 characters survive, and the notes field is omitted
// entirely when nothing valid remains.
func (c *Client) CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (*Order, error) {
	paise := int64(math.Round(amount * 100))
	if paise < MinOrderPaise {
		return nil, &InvalidAmountError{AmountPaise: paise}
	}
	if len(receipt) > receiptMaxLen {
		receipt = receipt[:receiptMaxLen]
	}
	body := map[string]interface{}{
		"amount":   paise,
		"currency": "INR",
		"receipt":  receipt,
	}
	if clean := SanitizeNotes(notes); len(clean) > 0 {
		body["notes"] = clean
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder retrieves an order by id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayment retrieves a payment by id.  This is the read the verifier
// and the materializer both rely on; it never mutates gateway state and is
// safe to call any number of times.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SanitizeNotes returns a copy of notes containing only entries the gateway
// will accept: non-empty keys, non-empty values no longer than 256
// characters.  Invalid entries are dropped silently.
func SanitizeNotes(notes map[string]string) map[string]string {
	if len(notes) == 0 {
		return nil
	}
	clean := make(map[string]string, len(notes))
	for k, v := range notes {
		if strings.TrimSpace(k) == "" || v == "" || len(v) > noteValueMaxLen {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

// gatewayErrorBody is the error envelope the gateway wraps failures in.
type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// do issues one request with basic auth and decodes the JSON response into
// out.  Non-2xx responses become a *GatewayError carrying the gateway's own
// error description when one is present.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb gatewayErrorBody
		_ = json.Unmarshal(raw, &eb)
		return &GatewayError{StatusCode: resp.StatusCode, Description: eb.Error.Description}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
