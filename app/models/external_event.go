package models

import "time"

// Event providers able to deliver webhooks.
const (
	EventProviderScheduling = "scheduling"
	EventProviderPayment    = "payment"
)

// ExternalEvent processing statuses. Completed and failed rows are never
// deleted; they are the audit trail for every inbound webhook.
const (
	EventStatusReceived   = "received"
	EventStatusProcessing = "processing"
	EventStatusCompleted  = "completed"
	EventStatusFailed     = "failed"
)

// ExternalEvent stores every inbound webhook with deduplication metadata.
// The unique (provider, external_event_id) index is the idempotency
// mechanism: concurrent deliveries of the same event race on the insert and
// exactly one observes a new row.
type ExternalEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Provider        string    `gorm:"type:varchar(20);not null;index:ux_external_events_provider_event,unique,priority:1;index" json:"provider"`
	ExternalEventID string    `gorm:"type:varchar(191);not null;index:ux_external_events_provider_event,unique,priority:2" json:"external_event_id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	Status          string    `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	ProcessingError string    `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsFinal reports whether the event reached a terminal processing status.
func (e *ExternalEvent) IsFinal() bool {
	return e.Status == EventStatusCompleted || e.Status == EventStatusFailed
}
