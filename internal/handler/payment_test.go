package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/aryanpatel/gameden-booking/internal/gateway"
	"github.com/aryanpatel/gameden-booking/internal/model"
	"github.com/aryanpatel/gameden-booking/internal/repository"
	"github.com/aryanpatel/gameden-booking/internal/service"
)

// In-memory stores sufficient for driving the handlers end to end.

type memCustomers struct {
	nextID  uint64
	byPhone map[string]*repository.CustomerRecord
}

func (s *memCustomers) GetByID(context.Context, uint64) (*repository.CustomerRecord, error) {
	return nil, sql.ErrNoRows
}
func (s *memCustomers) GetByPhone(_ context.Context, phone string) (*repository.CustomerRecord, error) {
	if rec, ok := s.byPhone[phone]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}
func (s *memCustomers) Create(_ context.Context, rec *repository.CustomerRecord) error {
	if _, ok := s.byPhone[rec.Phone]; ok {
		return repository.ErrDuplicateCustomer
	}
	s.nextID++
	rec.ID = s.nextID
	s.byPhone[rec.Phone] = rec
	return nil
}

type memBookings struct {
	nextID uint64
	claims map[string]uint64
	rows   []repository.BookingRecord
}

func (s *memBookings) GetClaim(_ context.Context, txn string) (uint64, bool, error) {
	id, ok := s.claims[txn]
	return id, ok, nil
}
func (s *memBookings) CreateGroupWithClaim(_ context.Context, rows []repository.BookingRecord, claim repository.PaymentClaim) (uint64, error) {
	if _, ok := s.claims[claim.PaymentTxnID]; ok {
		return 0, repository.ErrDuplicatePayment
	}
	first := s.nextID + 1
	s.nextID += uint64(len(rows))
	s.rows = append(s.rows, rows...)
	s.claims[claim.PaymentTxnID] = first
	return first, nil
}

type stubGateway struct {
	payment *gateway.Payment
	order   *gateway.Order
}

func (g *stubGateway) FetchPayment(context.Context, string) (*gateway.Payment, error) {
	return g.payment, nil
}
func (g *stubGateway) FetchOrder(context.Context, string) (*gateway.Order, error) {
	return g.order, nil
}

func paymentTestHandler(t *testing.T, status string) (*PaymentHandler, *memBookings) {
	t.Helper()
	intent := &model.BookingIntent{
		Customer:         model.IntentCustomer{Name: "Asha", Phone: "9876543210"},
		SelectedStations: []string{"st1", "st2"},
		Slots:            []model.IntentSlot{{Start: "18:00", End: "18:30"}},
		SelectedDate:     "2025-03-14",
		Duration:         30,
		Pricing:          model.IntentPricing{Original: 1000, Final: 1000},
	}
	notes, err := gateway.EncodeIntentNotes(intent)
	if err != nil {
		t.Fatalf("encode intent: %v", err)
	}
	gw := &stubGateway{
		payment: &gateway.Payment{ID: "pay_1", OrderID: "order_1", Status: status, Amount: 100000, Currency: "INR"},
		order:   &gateway.Order{ID: "order_1", Amount: 100000, Currency: "INR", Notes: notes},
	}
	factory := func() (service.PaymentGateway, error) { return gw, nil }
	bookings := &memBookings{claims: map[string]uint64{}}
	m := &service.Materializer{
		Customers:  &memCustomers{byPhone: map[string]*repository.CustomerRecord{}},
		Bookings:   bookings,
		NewGateway: factory,
	}
	v := &service.Verifier{NewGateway: factory}
	newClient := func() (*gateway.Client, error) { return gateway.NewClient("k", "s"), nil }
	return NewPaymentHandler(m, v, newClient), bookings
}

func postJSON(t *testing.T, path, body string, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestCreateBookingFromPaymentEndpoint(t *testing.T) {
	h, bookings := paymentTestHandler(t, "captured")
	rec := postJSON(t, "/create-booking-from-payment", `{"payment_id":"pay_1","order_id":"order_1"}`, h.CreateBookingFromPayment)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK            bool   `json:"ok"`
		Success       bool   `json:"success"`
		BookingID     uint64 `json:"bookingId"`
		AlreadyExists bool   `json:"alreadyExists"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || !resp.Success || resp.AlreadyExists || resp.BookingID == 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(bookings.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(bookings.rows))
	}

	// Repeat call: same booking, no new rows.
	rec = postJSON(t, "/create-booking-from-payment", `{"payment_id":"pay_1","order_id":"order_1"}`, h.CreateBookingFromPayment)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if !resp.AlreadyExists {
		t.Fatalf("second call should report alreadyExists")
	}
	if len(bookings.rows) != 2 {
		t.Fatalf("duplicate call wrote rows: %d", len(bookings.rows))
	}
}

func TestCreateBookingFromPaymentFailedPayment(t *testing.T) {
	h, bookings := paymentTestHandler(t, "failed")
	rec := postJSON(t, "/create-booking-from-payment", `{"payment_id":"pay_1"}`, h.CreateBookingFromPayment)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Payment not successful. Status: failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if len(bookings.rows) != 0 {
		t.Fatalf("rows written for failed payment")
	}
}

func TestCreateBookingFromPaymentRequiresPaymentID(t *testing.T) {
	h, _ := paymentTestHandler(t, "captured")
	rec := postJSON(t, "/create-booking-from-payment", `{"order_id":"order_1"}`, h.CreateBookingFromPayment)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	h, _ := paymentTestHandler(t, "captured")
	rec := postJSON(t, "/verify-payment", `{"razorpay_payment_id":"pay_1"}`, h.VerifyPayment)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		OK       bool    `json:"ok"`
		Success  bool    `json:"success"`
		Status   string  `json:"status"`
		OrderID  string  `json:"orderId"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Status != "captured" || resp.OrderID != "order_1" || resp.Amount != 1000 || resp.Currency != "INR" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestVerifyPaymentFailedStatus(t *testing.T) {
	h, _ := paymentTestHandler(t, "failed")
	rec := postJSON(t, "/verify-payment", `{"razorpay_payment_id":"pay_1"}`, h.VerifyPayment)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"success":false`) || !strings.Contains(body, "failed") {
		t.Fatalf("body = %s", body)
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(gateway.Order{ID: "order_9", Amount: 100000, Currency: "INR", Receipt: "rcpt-9"})
	}))
	defer srv.Close()

	h, _ := paymentTestHandler(t, "captured")
	h.NewClient = func() (*gateway.Client, error) {
		c := gateway.NewClient("k", "s")
		c.BaseURL = srv.URL
		return c, nil
	}
	body := `{"amount":1000,"receipt":"rcpt-9","booking_intent":{"customer":{"name":"Asha","phone":"9876543210"},"selected_stations":["st1"],"slots":[{"start":"18:00","end":"18:30"}],"selected_date":"2025-03-14","duration":30,"pricing":{"original":1000,"discount":0,"final":1000}}}`
	rec := postJSON(t, "/create-order", body, h.CreateOrder)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "order_9") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	notes, _ := received["notes"].(map[string]interface{})
	if len(notes) == 0 {
		t.Fatalf("booking intent was not embedded in order notes")
	}
}

func TestCreateOrderRejectsTinyAmount(t *testing.T) {
	h, _ := paymentTestHandler(t, "captured")
	rec := postJSON(t, "/create-order", `{"amount":0.5,"receipt":"r"}`, h.CreateOrder)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
