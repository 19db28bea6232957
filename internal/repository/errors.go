package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced to the service layer. Services map these to
// the stable API error codes.
var (
	ErrDuplicateReference  = errors.New("out_trade_no already used by this merchant")
	ErrInsufficientBalance = errors.New("merchant balance plus credit limit cannot cover the withdrawal")
	ErrNoAvailableWallet   = errors.New("no active deposit wallet for this chain and token")
	ErrTerminalStatus      = errors.New("order already reached a terminal status")
)

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation. The idempotency guard relies on this when two creation
// requests with the same reference race past the pre-check.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
