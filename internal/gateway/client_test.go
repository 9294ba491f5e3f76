package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient("rzp_test_key", "secret")
	c.BaseURL = srv.URL
	return c
}

func TestCreateOrderConvertsAmountAndSanitizes(t *testing.T) {
	var got map[string]interface{}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("basic auth not set correctly")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Order{ID: "order_1", Amount: 49950, Currency: "INR", Receipt: "rcpt"})
	})

	longReceipt := strings.Repeat("r", 60)
	notes := map[string]string{
		"venue":    "gameden-hsr",
		"empty":    "",
		"oversize": strings.Repeat("z", 300),
	}
	order, err := c.CreateOrder(context.Background(), 499.50, longReceipt, notes)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "order_1" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if amt, _ := got["amount"].(float64); int64(amt) != 49950 {
		t.Fatalf("amount not converted to paise: %v", got["amount"])
	}
	if got["currency"] != "INR" {
		t.Fatalf("currency = %v", got["currency"])
	}
	if rcpt, _ := got["receipt"].(string); len(rcpt) != 40 {
		t.Fatalf("receipt not truncated to 40 chars: %d", len(rcpt))
	}
	sentNotes, _ := got["notes"].(map[string]interface{})
	if len(sentNotes) != 1 || sentNotes["venue"] != "gameden-hsr" {
		t.Fatalf("notes not sanitized: %v", sentNotes)
	}
}

func TestCreateOrderOmitsEmptyNotes(t *testing.T) {
	var got map[string]interface{}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(Order{ID: "order_2", Amount: 10000, Currency: "INR"})
	})
	if _, err := c.CreateOrder(context.Background(), 100, "r", map[string]string{"bad": ""}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, present := got["notes"]; present {
		t.Fatalf("notes field should be omitted when nothing valid remains")
	}
}

func TestCreateOrderBelowMinimum(t *testing.T) {
	called := false
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := c.CreateOrder(context.Background(), 0.50, "r", nil)
	var invalid *InvalidAmountError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidAmountError, got %v", err)
	}
	if invalid.AmountPaise != 50 {
		t.Fatalf("AmountPaise = %d", invalid.AmountPaise)
	}
	if called {
		t.Fatalf("gateway should not be called for an invalid amount")
	}
}

func TestFetchPayment(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Payment{ID: "pay_1", OrderID: "order_1", Status: "captured", Amount: 100000, Currency: "INR"})
	})
	p, err := c.FetchPayment(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("FetchPayment: %v", err)
	}
	if p.Status != "captured" || p.OrderID != "order_1" {
		t.Fatalf("unexpected payment %+v", p)
	}
}

func TestGatewayErrorCarriesDescription(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
	})
	_, err := c.FetchPayment(context.Background(), "pay_missing")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d", gwErr.StatusCode)
	}
	if !strings.Contains(gwErr.Error(), "does not exist") {
		t.Fatalf("description lost: %v", gwErr)
	}
}
