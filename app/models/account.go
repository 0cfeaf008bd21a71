package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
)

// Subscription statuses mirrored from the payment provider.
const (
	SubscriptionStatusNone          = "none"
	SubscriptionStatusActive        = "active"
	SubscriptionStatusPaymentFailed = "payment_failed"
	SubscriptionStatusCancelled     = "cancelled"
)

// Account is an internal customer identity. Accounts are created lazily by
// the identity resolver on the first external event carrying an unknown
// email; the unique email index is the join key to external identity and the
// guard against duplicate creation under concurrent webhooks.
type Account struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	Email                   string     `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,min=5,max=200"`
	Name                    string     `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	ExternalCustomerRef     string     `gorm:"type:varchar(191);default:'';index" json:"external_customer_ref"`
	ExternalSubscriptionRef string     `gorm:"type:varchar(191);default:''" json:"external_subscription_ref"`
	SubscriptionStatus      string     `gorm:"type:varchar(32);not null;default:'none';index" json:"subscription_status" validate:"oneof=none active payment_failed cancelled"`
	SetupToken              string     `gorm:"type:varchar(100);index" json:"-"`
	SetupTokenSentAt        *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// GenerateSetupToken creates the one-time credential-setup token and stamps
// when it was issued.
func (a *Account) GenerateSetupToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	a.SetupToken = hex.EncodeToString(b)
	now := time.Now()
	a.SetupTokenSentAt = &now
	return nil
}

// IsSetupTokenValid checks the token and its 48 hour validity window.
func (a *Account) IsSetupTokenValid(token string) bool {
	if a.SetupToken == "" || a.SetupTokenSentAt == nil {
		return false
	}
	if a.SetupToken != token {
		return false
	}
	return time.Since(*a.SetupTokenSentAt) < 48*time.Hour
}
