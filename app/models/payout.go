package models

import "time"

// Payout statuses. A pending payout may still be recomputed; an issued one
// is frozen and any recomputation for its period creates a new revision.
const (
	PayoutStatusPending = "pending"
	PayoutStatusIssued  = "issued"
)

// Payout is one settlement of one partner for one period. The unique
// (partner, period, revision) index is what prevents two concurrent engine
// runs from producing duplicate settlements for the same bounds.
// PartnerName and CommissionRate are snapshots taken at settle time; the
// statement renders only from these, so later partner edits cannot change
// an already-settled artifact.
type Payout struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	PartnerID           uint         `gorm:"not null;index:ux_payouts_partner_period,unique,priority:1" json:"partner_id"`
	Partner             Partner      `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	PeriodStart         time.Time    `gorm:"type:timestamp;not null;index:ux_payouts_partner_period,unique,priority:2" json:"period_start"`
	PeriodEnd           time.Time    `gorm:"type:timestamp;not null;index:ux_payouts_partner_period,unique,priority:3" json:"period_end"`
	Revision            int          `gorm:"not null;default:1;index:ux_payouts_partner_period,unique,priority:4" json:"revision"`
	PartnerName         string       `gorm:"type:varchar(200);not null;default:''" json:"partner_name"`
	CommissionRate      float64      `gorm:"type:decimal(5,2);not null;default:0" json:"commission_rate"`
	TotalCollectedCents int64        `gorm:"not null" json:"total_collected_cents"`
	CommissionCents     int64        `gorm:"not null" json:"commission_cents"`
	CommissionTaxCents  int64        `gorm:"not null" json:"commission_tax_cents"`
	NetAmountCents      int64        `gorm:"not null" json:"net_amount_cents"`
	Currency            string       `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status              string       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StatementRef        string       `gorm:"type:varchar(255);default:''" json:"statement_ref"`
	Items               []PayoutItem `gorm:"foreignKey:PayoutID" json:"items,omitempty"`
	IssuedAt            *time.Time   `gorm:"type:timestamp;default:null" json:"issued_at,omitempty"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// PayoutItem pins one booking into a payout. The item set records exactly
// which bookings a statement was computed from, so a re-render reproduces
// the artifact byte for byte.
type PayoutItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PayoutID    uint      `gorm:"not null;index:ux_payout_items_payout_booking,unique,priority:1" json:"payout_id"`
	BookingID   uint      `gorm:"not null;index:ux_payout_items_payout_booking,unique,priority:2" json:"booking_id"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	BookedAt    time.Time `gorm:"type:timestamp;not null" json:"booked_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
