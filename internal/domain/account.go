package domain

import "time"

// Account is an end user's points balance. Accounts are created lazily on
// first reference and never deleted.
type Account struct {
	ID        int64
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DebitResult reports the outcome of a conditional debit. Balance is the
// balance after the debit when OK, otherwise the untouched current balance.
type DebitResult struct {
	OK      bool
	Balance int64
}

// Adjustment captures an administrative balance change.
type Adjustment struct {
	AccountID int64
	Before    int64
	After     int64
}
