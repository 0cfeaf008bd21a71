package reconcile

import (
	"strings"
	"time"

	"github.com/bookfox/bookfox/app/models"
)

// Scheduling webhook event names handled by the reconciler.
const (
	EventInviteeCreated   = "invitee.created"
	EventInviteeCancelled = "invitee.cancelled"
)

// Outcomes of a reconciliation attempt. Duplicate and unresolved are both
// acknowledged with success to the sender; only the ledger status differs.
const (
	OutcomeCreated    = "created"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnresolved = "unresolved"
	OutcomeCancelled  = "cancelled"
	OutcomeFailed     = "failed"
)

// Event is the scheduling provider's webhook body.
type Event struct {
	Event   string  `json:"event"`
	Payload Payload `json:"payload"`
}

// Payload carries the booking data. EventTypeURL is the booking-page URL the
// provider advertises for this booking type and is what offers are matched
// against; EventRef points at the scheduled event itself; URI is the
// invitee reference and the sole booking deduplication key. CreatedAt is the
// booking-creation time, not the appointment time.
type Payload struct {
	Email        string    `json:"email"`
	EventTypeURL string    `json:"event_type"`
	EventRef     string    `json:"event"`
	URI          string    `json:"uri"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the fields the reconciler cannot work without.
func (p *Payload) Validate() bool {
	return strings.TrimSpace(p.Email) != "" &&
		strings.TrimSpace(p.EventTypeURL) != "" &&
		strings.TrimSpace(p.URI) != ""
}

// Result is the uniform outcome of handling one scheduling event.
type Result struct {
	Outcome string
	Reason  string
	Booking *models.Booking
}

func resultOf(outcome, reason string) Result {
	return Result{Outcome: outcome, Reason: reason}
}
