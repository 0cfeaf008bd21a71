package models

import "time"

// OfferVariant is a priced option within an offer. Prices are stored in
// cents. Booking amounts are snapshots of the variant price at booking time;
// editing a variant never touches existing bookings.
type OfferVariant struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OfferID         uint      `gorm:"not null;index" json:"offer_id"`
	Name            string    `gorm:"type:varchar(150);not null" json:"name"`
	PriceCents      int64     `gorm:"not null" json:"price_cents"`
	DiscountedCents *int64    `gorm:"default:null" json:"discounted_cents,omitempty"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectivePriceCents returns the discounted price when one is set and
// valid, otherwise the regular price.
func (v *OfferVariant) EffectivePriceCents() int64 {
	if v.DiscountedCents != nil && *v.DiscountedCents >= 0 && *v.DiscountedCents < v.PriceCents {
		return *v.DiscountedCents
	}
	return v.PriceCents
}
