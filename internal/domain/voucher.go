package domain

import "time"

// Voucher is a pre-sold, single-use redemption code worth a fixed number of points.
type Voucher struct {
	ID         int64
	Code       string
	Points     int64
	Redeemed   bool
	RedeemedBy *int64
	RedeemedAt *time.Time
	CreatedAt  time.Time
}

// Redemption is the committed result of claiming a voucher.
type Redemption struct {
	Code      string
	AccountID int64
	Points    int64
	Balance   int64
	At        time.Time
}
