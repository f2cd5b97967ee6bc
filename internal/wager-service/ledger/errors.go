package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrInvalidParams   = errors.New("invalid wager params")
	ErrAccountNotFound = errors.New("account not found")
)

// Fault é uma falha de infraestrutura do ledger (store indisponível, abort, pool esgotado).
// Nunca representa rejeição de negócio.
type Fault struct {
	Op        string
	Retryable bool
	Err       error
}

func (f *Fault) Error() string { return fmt.Sprintf("ledger %s: %v", f.Op, f.Err) }

func (f *Fault) Unwrap() error { return f.Err }

// IsRetryable informa se o chamador pode repetir com backoff
func IsRetryable(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Retryable
}

func fault(op string, err error) error {
	return &Fault{Op: op, Retryable: retryable(err), Err: err}
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // serialization failure / deadlock
			"53", // too many connections / out of resources
			"57": // admin shutdown
			return true
		}
	}
	return false
}
