package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
)

// Partner is a seller of offers. CommissionRate is a flat percentage of the
// collected booking amounts, 0 <= rate < 100. Scheduling credentials stay
// empty until the partner enables the scheduling integration; the webhook
// route key is what ties an inbound scheduling webhook to this partner.
type Partner struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CompanyName     string    `gorm:"type:varchar(200);not null" json:"company_name" validate:"required,min=2,max=200"`
	ContactEmail    string    `gorm:"type:varchar(200);not null;index" json:"contact_email" validate:"required,email"`
	CommissionRate  float64   `gorm:"type:decimal(5,2);not null;default:0" json:"commission_rate" validate:"gte=0,lt=100"`
	SchedulingToken string    `gorm:"type:text" json:"-"`
	WebhookRouteKey string    `gorm:"type:varchar(64);default:null;uniqueIndex" json:"webhook_route_key"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Partner) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// HasSchedulingCredentials reports whether the scheduling integration is
// usable for this partner.
func (p *Partner) HasSchedulingCredentials() bool {
	return p.SchedulingToken != "" && p.WebhookRouteKey != ""
}

// GenerateWebhookRouteKey assigns a fresh random route key under which the
// partner's scheduling webhooks are received.
func (p *Partner) GenerateWebhookRouteKey() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	p.WebhookRouteKey = hex.EncodeToString(b)
	return nil
}
