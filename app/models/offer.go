package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Offer lifecycle statuses. Only approved offers are visible in the
// marketplace and valid booking targets; every other status hides the offer.
const (
	OfferStatusDraft    = "draft"
	OfferStatusReady    = "ready"
	OfferStatusPending  = "pending"
	OfferStatusApproved = "approved"
	OfferStatusRejected = "rejected"
)

// Offer is a sellable unit owned by a partner. SchedulingURL is the booking
// page the scheduling provider advertises for this offer; the reconciler
// matches inbound scheduling events against it by prefix.
type Offer struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PartnerID     uint           `gorm:"not null;index" json:"partner_id"`
	Partner       Partner        `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	Title         string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description   string         `gorm:"type:text" json:"description"`
	Status        string         `gorm:"type:varchar(20);not null;default:'draft';index:idx_offers_partner_status" json:"status" validate:"oneof=draft ready pending approved rejected"`
	SchedulingURL string         `gorm:"type:varchar(255);default:'';index" json:"scheduling_url" validate:"max=255"`
	RejectReason  string         `gorm:"type:text" json:"reject_reason"`
	Variants      []OfferVariant `gorm:"foreignKey:OfferID" json:"variants,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Offer) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// IsBookable reports whether the offer may receive bookings right now.
func (o *Offer) IsBookable() bool {
	return o.Status == OfferStatusApproved
}
