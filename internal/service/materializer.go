// Package service contains the payment reconciliation logic: verifying a
// payment against the gateway and materializing it into booking rows.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aryanpatel/gameden-booking/internal/gateway"
	"github.com/aryanpatel/gameden-booking/internal/model"
	"github.com/aryanpatel/gameden-booking/internal/queue"
	"github.com/aryanpatel/gameden-booking/internal/repository"
)

// PaymentGateway is the read surface of the gateway client the service
// needs.  *gateway.Client satisfies it; tests substitute fakes.
type PaymentGateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	FetchOrder(ctx context.Context, orderID string) (*gateway.Order, error)
}

// GatewayFactory builds a gateway client from freshly resolved credentials.
// It is invoked once per materialization or verification, never cached, so
// credential problems surface on the request that hits them.
type GatewayFactory func() (PaymentGateway, error)

// CustomerStore is the slice of CustomerRepo the materializer uses.
type CustomerStore interface {
	GetByID(ctx context.Context, id uint64) (*repository.CustomerRecord, error)
	GetByPhone(ctx context.Context, phone string) (*repository.CustomerRecord, error)
	Create(ctx context.Context, rec *repository.CustomerRecord) error
}

// BookingStore is the slice of BookingRepo the materializer uses.
type BookingStore interface {
	GetClaim(ctx context.Context, paymentTxnID string) (uint64, bool, error)
	CreateGroupWithClaim(ctx context.Context, rows []repository.BookingRecord, claim repository.PaymentClaim) (uint64, error)
}

// PaymentNotSuccessfulError is returned when the gateway reports a payment
// in any state other than captured or authorized.  It is terminal for this
// attempt only; if the payment settles later, the caller may invoke
// materialization again.
type PaymentNotSuccessfulError struct {
	Status      string
	Description string
}

func (e *PaymentNotSuccessfulError) Error() string {
	return "Payment not successful. Status: " + e.Status
}

// ErrMissingBookingData marks a payment whose order carries no decodable
// booking intent.  The money moved but there is nothing to book against;
// retrying cannot help, so this is logged loudly and surfaced as fatal.
var ErrMissingBookingData = errors.New("booking data missing from order")

// MaterializeResult is the outcome of a successful materialization or of a
// duplicate invocation that found the booking already in place.
type MaterializeResult struct {
	BookingID     uint64
	CustomerID    uint64
	RowsInserted  int
	AlreadyExists bool
}

// Materializer converts a verified payment plus its embedded booking
// intent into persisted booking rows.  It is stateless and safe to invoke
// concurrently and repeatedly for the same payment: idempotency rests on
// the booking store's payment claim, and customer deduplication on the
// unique phone index with duplicate recovery.
type Materializer struct {
	Customers  CustomerStore
	Bookings   BookingStore
	NewGateway GatewayFactory
	// Publish sends the post-materialization event.  Nil disables
	// publishing; errors are logged and never fail the request.
	Publish func(ctx context.Context, ev queue.BookingCreatedEvent) error
}

// CreateBookingFromPayment is the core reconciliation operation:
//
//	idempotency check -> payment re-verification -> order fetch + intent
//	decode -> customer resolution -> row construction -> atomic insert
//
// It never trusts a caller-supplied payment status and never retries
// internally; outside triggers (client retry, webhook redelivery) are the
// only retry drivers.
func (m *Materializer) CreateBookingFromPayment(ctx context.Context, paymentID, orderID string) (*MaterializeResult, error) {
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}

	// Fast-path duplicate check.  The claim row's unique index remains the
	// authoritative guard; this read only short-circuits the common retry.
	if bookingID, found, err := m.Bookings.GetClaim(ctx, paymentID); err != nil {
		return nil, err
	} else if found {
		return &MaterializeResult{BookingID: bookingID, AlreadyExists: true}, nil
	}

	gw, err := m.NewGateway()
	if err != nil {
		return nil, err
	}

	payment, err := gw.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !StatusSuccessful(payment.Status) {
		return nil, &PaymentNotSuccessfulError{Status: payment.Status, Description: payment.ErrorDescription}
	}

	if orderID == "" {
		orderID = payment.OrderID
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: payment %s carries no order id", ErrMissingBookingData, paymentID)
	}
	order, err := gw.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	intent, err := gateway.DecodeIntentNotes(order.Notes)
	if err != nil {
		log.Printf("materializer: FATAL no booking intent for payment=%s order=%s: %v", paymentID, orderID, err)
		return nil, fmt.Errorf("%w: %v", ErrMissingBookingData, err)
	}
	if len(intent.SelectedStations) == 0 || len(intent.Slots) == 0 {
		log.Printf("materializer: FATAL empty stations/slots for payment=%s order=%s", paymentID, orderID)
		return nil, fmt.Errorf("%w: intent has no stations or slots", ErrMissingBookingData)
	}

	customer, err := m.resolveCustomer(ctx, intent)
	if err != nil {
		return nil, err
	}

	rows := buildBookingRows(intent, customer.ID, paymentID, orderID)
	claim := repository.PaymentClaim{
		PaymentTxnID: paymentID,
		OrderID:      orderID,
		AmountPaise:  payment.Amount,
	}
	firstID, err := m.Bookings.CreateGroupWithClaim(ctx, rows, claim)
	if errors.Is(err, repository.ErrDuplicatePayment) {
		// Lost the race: another invocation committed between our pre-check
		// and the insert.  Its booking group stands.
		bookingID, found, readErr := m.Bookings.GetClaim(ctx, paymentID)
		if readErr != nil {
			return nil, readErr
		}
		if !found {
			return nil, err
		}
		return &MaterializeResult{BookingID: bookingID, AlreadyExists: true}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &MaterializeResult{
		BookingID:    firstID,
		CustomerID:   customer.ID,
		RowsInserted: len(rows),
	}
	m.publishCreated(ctx, result, intent, paymentID, orderID, payment.Amount)
	return result, nil
}

// resolveCustomer finds or lazily creates the customer for an intent.  An
// explicit customer id wins when it resolves; otherwise the normalized
// phone is the dedup key.  A duplicate-key failure on insert means a
// concurrent materialization created the customer first, and the recovery
// is to re-read by phone and use that row.
func (m *Materializer) resolveCustomer(ctx context.Context, intent *model.BookingIntent) (*repository.CustomerRecord, error) {
	if intent.Customer.ID != nil {
		rec, err := m.Customers.GetByID(ctx, *intent.Customer.ID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// Stale id from the client; fall through to the phone path.
	}
	phone := NormalizePhone(intent.Customer.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: customer phone missing from intent", ErrMissingBookingData)
	}
	rec, err := m.Customers.GetByPhone(ctx, phone)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	fresh := &repository.CustomerRecord{
		Code:  CustomerCode(phone, time.Now()),
		Name:  intent.Customer.Name,
		Phone: phone,
	}
	if intent.Customer.Email != "" {
		email := intent.Customer.Email
		fresh.Email = &email
	}
	if err := m.Customers.Create(ctx, fresh); err != nil {
		if errors.Is(err, repository.ErrDuplicateCustomer) {
			return m.Customers.GetByPhone(ctx, phone)
		}
		return nil, err
	}
	return fresh, nil
}

// buildBookingRows produces one row per (station, slot) pair.  Totals are
// split evenly across rows in paise, with the integer remainder assigned to
// the first row so the group sums back to the intent total exactly.
func buildBookingRows(intent *model.BookingIntent, customerID uint64, paymentID, orderID string) []repository.BookingRecord {
	n := len(intent.SelectedStations) * len(intent.Slots)
	totalOriginal := toPaise(intent.Pricing.Original)
	totalFinal := toPaise(intent.Pricing.Final)
	baseOriginal := totalOriginal / int64(n)
	baseFinal := totalFinal / int64(n)
	remOriginal := totalOriginal % int64(n)
	remFinal := totalFinal % int64(n)

	var discountPct *float64
	if intent.Pricing.Discount > 0 && intent.Pricing.Original > 0 {
		pct := intent.Pricing.Discount / intent.Pricing.Original * 100
		discountPct = &pct
	}
	var coupon *string
	if len(intent.Pricing.Coupons) > 0 {
		c := strings.Join(intent.Pricing.Coupons, ",")
		coupon = &c
	}
	notes := fmt.Sprintf("Paid online via Razorpay (order %s)", orderID)

	rows := make([]repository.BookingRecord, 0, n)
	for _, station := range intent.SelectedStations {
		for _, slot := range intent.Slots {
			row := repository.BookingRecord{
				StationID:          station,
				CustomerID:         customerID,
				BookingDate:        intent.SelectedDate,
				StartTime:          slot.Start,
				EndTime:            slot.End,
				DurationMinutes:    intent.Duration,
				Status:             model.StatusConfirmed,
				OriginalPricePaise: baseOriginal,
				DiscountPercentage: discountPct,
				FinalPricePaise:    baseFinal,
				CouponCode:         coupon,
				PaymentMode:        model.PaymentModeRazorpay,
				PaymentTxnID:       paymentID,
				Notes:              notes,
			}
			if len(rows) == 0 {
				row.OriginalPricePaise += remOriginal
				row.FinalPricePaise += remFinal
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// publishCreated emits the booking.created event.  Best effort only.
func (m *Materializer) publishCreated(ctx context.Context, res *MaterializeResult, intent *model.BookingIntent, paymentID, orderID string, amountPaise int64) {
	if m.Publish == nil {
		return
	}
	ev := queue.BookingCreatedEvent{
		BookingID:        res.BookingID,
		PaymentID:        paymentID,
		OrderID:          orderID,
		CustomerID:       res.CustomerID,
		Rows:             res.RowsInserted,
		TotalAmountPaise: amountPaise,
		BookingDate:      intent.SelectedDate,
		Stations:         intent.SelectedStations,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.Publish(ctx, ev); err != nil {
		log.Printf("materializer: publish booking.created failed for payment=%s: %v", paymentID, err)
	}
}

// toPaise converts a rupee amount to paise by rounding.
func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// StatusSuccessful reports whether a gateway payment status counts as paid.
func StatusSuccessful(status string) bool {
	return status == "captured" || status == "authorized"
}

// NormalizePhone strips every non-digit rune, leaving the digits-only form
// used as the customer dedup key.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// CustomerCode builds a short human-readable customer code from the last
// four phone digits and a base36 timestamp, e.g. CUST3210-LX2M9QK0.
func CustomerCode(phone string, now time.Time) string {
	last4 := phone
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "CUST" + last4 + "-" + ts
}
