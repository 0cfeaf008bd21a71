package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification kinds sent by the core.
const (
	NotificationKindWelcome       = "welcome"
	NotificationKindPaymentFailed = "payment_failed"
	NotificationKindCancelled     = "subscription_cancelled"
	NotificationKindOfferRejected = "offer_rejected"
	NotificationKindPayoutIssued  = "payout_issued"
)

// Notification delivery statuses.
const (
	NotificationStatusQueued = "queued"
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// Notification is one outbound message. Handlers only ever append rows here
// (durable enqueue); actual delivery happens in a background job so that a
// mail failure can never roll back ledger work.
type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Recipient   string     `gorm:"type:varchar(200);not null;index" json:"recipient"`
	Kind        string     `gorm:"type:varchar(50);not null;index" json:"kind"`
	Subject     string     `gorm:"type:varchar(255);not null" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	Status      string     `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	LastError   string     `gorm:"type:text" json:"last_error"`
	ReferenceID uint       `json:"reference_id"`
	SentAt      *time.Time `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarkSent stamps a successful delivery.
func (n *Notification) MarkSent(db *gorm.DB) error {
	now := time.Now()
	n.Status = NotificationStatusSent
	n.SentAt = &now
	return db.Model(n).Updates(map[string]interface{}{"status": n.Status, "sent_at": n.SentAt}).Error
}

// MarkFailed records a delivery failure for later inspection.
func (n *Notification) MarkFailed(db *gorm.DB, reason string) error {
	n.Status = NotificationStatusFailed
	n.LastError = reason
	return db.Model(n).Updates(map[string]interface{}{"status": n.Status, "last_error": reason}).Error
}
