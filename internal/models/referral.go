package models

import (
	"time"

	"github.com/google/uuid"
)

type Referral struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	Code            string    `json:"code"`
	Uses            int       `json:"uses"`
	MaxUses         int       `json:"max_uses"`
	DiscountPercent int       `json:"discount_percent"`
	CreatedAt       time.Time `json:"created_at"`
}

// Usable reports whether the code still has uses left.
func (r *Referral) Usable() bool {
	return r.Uses < r.MaxUses
}
