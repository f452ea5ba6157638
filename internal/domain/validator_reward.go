package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// ValidatorRewardLog records a single validator's share of the
// ValidatorRewardBPS carve-out paid at market resolution. One row per
// selected validator per market; kept for audit even though the protocol
// itself only needs the aggregate carve-out amount.
type ValidatorRewardLog struct {
	ID        address.ID   `json:"id"         db:"id"`
	Market    address.ID   `json:"market"     db:"market"`
	Validator address.ID   `json:"validator"  db:"validator"`
	Amount    fxmath.Fixed `json:"amount"     db:"amount"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
