package models

import "time"

// Booking sources.
const (
	BookingSourceScheduling = "scheduling"
	BookingSourceCheckout   = "checkout"
)

// Booking statuses. A booking is created confirmed and only ever moves to
// refunded or cancelled; its amount is immutable.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusRefunded  = "refunded"
	BookingStatusCancelled = "cancelled"
)

// Booking is one confirmed reservation. ExternalID carries the provider's
// invitee reference and is the sole deduplication key: the unique index
// makes concurrent inserts of the same booking resolve to a single row.
// AmountCents is a price snapshot taken at booking time and is never
// recomputed, even if the source variant is edited later.
type Booking struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ExternalID  string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id"`
	OfferID     uint       `gorm:"not null;index" json:"offer_id"`
	Offer       Offer      `gorm:"foreignKey:OfferID" json:"offer,omitempty"`
	PartnerID   uint       `gorm:"not null;index:idx_bookings_partner_created,priority:1" json:"partner_id"`
	AccountID   uint       `gorm:"not null;index" json:"account_id"`
	Account     Account    `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Source      string     `gorm:"type:varchar(20);not null" json:"source"`
	Status      string     `gorm:"type:varchar(20);not null;default:'confirmed';index" json:"status"`
	EventAt     *time.Time `gorm:"type:timestamp;default:null" json:"event_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index:idx_bookings_partner_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CountsTowardsPayout reports whether the booking participates in partner
// settlement.
func (b *Booking) CountsTowardsPayout() bool {
	return b.Status == BookingStatusConfirmed
}
