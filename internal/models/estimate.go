package models

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Postal string `json:"postal"`
}

type Estimate struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Address       Address   `json:"address"`
	Budget        string    `json:"budget,omitempty"`
	Description   string    `json:"description"`
	PreferredDate string    `json:"preferred_date,omitempty"`

	ReferralCode           string `json:"referral_code,omitempty"`
	ReferralOwner          string `json:"referral_owner,omitempty"`
	DiscountAppliedPercent int    `json:"discount_applied_percent"`

	Status      string     `json:"status"`
	Processed   bool       `json:"processed"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	EmailSent   bool       `json:"email_sent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
