package repository

import (
	"context"
	"database/sql"
	"time"
)

// CustomerRepo provides lookups and inserts for the customers table.
// Phone numbers are stored as digits only and carry a UNIQUE index; that
// index, not any in-process lock, is what makes concurrent customer
// creation safe.  Loyalty counters default to zero on insert and are
// mutated elsewhere.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// CustomerRecord mirrors the schema of the customers table.
type CustomerRecord struct {
	ID               uint64
	Code             string
	Name             string
	Phone            string
	Email            *string
	MembershipPoints int
	TotalBookings    int
	CreatedAt        time.Time
}

const customerColumns = `id, code, name, phone, email, membership_points, total_bookings, created_at`

// GetByID returns the customer with the given id, or sql.ErrNoRows.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*CustomerRecord, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByPhone returns the customer with the given normalized phone number,
// or sql.ErrNoRows.  The caller must normalize the phone (digits only)
// before the lookup; the repository does not second-guess its input.
func (r *CustomerRepo) GetByPhone(ctx context.Context, phone string) (*CustomerRecord, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE phone = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, phone))
}

// Create inserts a new customer and populates the generated ID on the
// record.  Membership and booking counters are left to their zero column
// defaults.  A collision on the unique phone index returns
// ErrDuplicateCustomer so the caller can re-read the winning row.
func (r *CustomerRepo) Create(ctx context.Context, rec *CustomerRecord) error {
	const q = `INSERT INTO customers (code, name, phone, email) VALUES (?, ?, ?, ?)`
	var email interface{}
	if rec.Email != nil {
		email = *rec.Email
	}
	result, err := r.db.ExecContext(ctx, q, rec.Code, rec.Name, rec.Phone, email)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateCustomer
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// scanOne scans a single customer row, translating nullable columns.
func (r *CustomerRepo) scanOne(row *sql.Row) (*CustomerRecord, error) {
	var rec CustomerRecord
	var email sql.NullString
	err := row.Scan(
		&rec.ID, &rec.Code, &rec.Name, &rec.Phone, &email,
		&rec.MembershipPoints, &rec.TotalBookings, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		e := email.String
		rec.Email = &e
	}
	return &rec, nil
}
