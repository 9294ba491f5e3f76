package repository

import (
	"context"
	"database/sql"
)

// BookingRepo provides writes and idempotency lookups for bookings created
// from gateway payments.  Two tables are involved: bookings holds one row
// per (station, slot) pair, and booking_payments holds exactly one claim
// row per payment_txn_id with a UNIQUE index on it.  The claim row is the
// authoritative duplicate guard; a SELECT against it is only the fast path.
// All rows for one payment are written in a single transaction so a group
// is either fully present or absent.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingRecord mirrors the schema of the bookings table.  Prices are in
// paise.  DiscountPercentage and CouponCode are nullable.
type BookingRecord struct {
	ID                 uint64
	StationID          string
	CustomerID         uint64
	BookingDate        string
	StartTime          string
	EndTime            string
	DurationMinutes    int
	Status             string
	OriginalPricePaise int64
	DiscountPercentage *float64
	FinalPricePaise    int64
	CouponCode         *string
	PaymentMode        string
	PaymentTxnID       string
	Notes              string
}

// PaymentClaim mirrors the booking_payments table: one row per payment,
// keyed by the gateway payment id.  BookingID is the representative first
// booking row of the group.
type PaymentClaim struct {
	PaymentTxnID string
	OrderID      string
	BookingID    uint64
	AmountPaise  int64
}

// GetClaim returns the representative booking id for a payment that has
// already been materialized.  The boolean is false when no claim exists.
func (r *BookingRepo) GetClaim(ctx context.Context, paymentTxnID string) (uint64, bool, error) {
	const q = `SELECT booking_id FROM booking_payments WHERE payment_txn_id = ?`
	var bookingID uint64
	err := r.db.QueryRowContext(ctx, q, paymentTxnID).Scan(&bookingID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return bookingID, true, nil
}

// CreateGroupWithClaim inserts all booking rows for one payment and the
// payment claim row in a single transaction, returning the first booking
// row's generated id.  If the claim insert hits the unique payment_txn_id
// index the whole transaction is rolled back and ErrDuplicatePayment is
// returned: a concurrent invocation for the same payment committed first
// and its rows stand.
func (r *BookingRepo) CreateGroupWithClaim(ctx context.Context, rows []BookingRecord, claim PaymentClaim) (uint64, error) {
	if len(rows) == 0 {
		return 0, sql.ErrNoRows
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	firstID, err := r.createRowsTx(ctx, tx, rows)
	if err != nil {
		return 0, err
	}
	claim.BookingID = firstID
	const claimQ = `INSERT INTO booking_payments (payment_txn_id, order_id, booking_id, amount_paise) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, claimQ, claim.PaymentTxnID, claim.OrderID, claim.BookingID, claim.AmountPaise); err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDuplicatePayment
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return firstID, nil
}

// createRowsTx bulk-inserts all booking rows in one statement.  MySQL
// returns the first generated id for a multi-row insert, which becomes the
// group's representative booking id.
func (r *BookingRepo) createRowsTx(ctx context.Context, tx *sql.Tx, rows []BookingRecord) (uint64, error) {
	query := `INSERT INTO bookings (station_id, customer_id, booking_date, start_time, end_time,
			  duration_minutes, status, original_price_paise, discount_percentage, final_price_paise,
			  coupon_code, payment_mode, payment_txn_id, notes) VALUES `
	args := make([]interface{}, 0, len(rows)*14)
	for i, b := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		var discount interface{}
		if b.DiscountPercentage != nil {
			discount = *b.DiscountPercentage
		}
		var coupon interface{}
		if b.CouponCode != nil {
			coupon = *b.CouponCode
		}
		args = append(args,
			b.StationID, b.CustomerID, b.BookingDate, b.StartTime, b.EndTime,
			b.DurationMinutes, b.Status, b.OriginalPricePaise, discount, b.FinalPricePaise,
			coupon, b.PaymentMode, b.PaymentTxnID, b.Notes,
		)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
