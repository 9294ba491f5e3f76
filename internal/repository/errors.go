// Package repository defines error values shared across repositories.
// These sentinels let the service layer react to specific storage
// outcomes without depending on driver error codes: the duplicate-key
// translation from MySQL error 1062 happens here, once.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateCustomer is returned when a customer insert collides with the
// unique phone index.  This is the expected outcome of two concurrent
// materializations racing to create the same customer; the caller recovers
// by re-reading the row by phone.  It is never surfaced to clients.
var ErrDuplicateCustomer = errors.New("customer with this phone already exists")

// ErrDuplicatePayment is returned when the payment claim insert collides
// with the unique payment_txn_id index.  It means another invocation for
// the same payment committed first; the caller re-reads the winner's
// booking and reports alreadyExists instead of failing.
var ErrDuplicatePayment = errors.New("payment already claimed by an existing booking")

// isDuplicateEntry reports whether err is a MySQL duplicate-key violation
// (error 1062, ER_DUP_ENTRY).
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
