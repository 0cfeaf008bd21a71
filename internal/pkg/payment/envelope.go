package payment

import (
	"encoding/json"
	"errors"
	"strings"
)

// Payment provider event types handled by the dispatch table.
const (
	EventCheckoutCompleted     = "checkout_completed"
	EventInvoicePaid           = "invoice_paid"
	EventInvoicePaymentFailed  = "invoice_payment_failed"
	EventSubscriptionCancelled = "subscription_cancelled"
)

// Envelope is the payment provider's signed event envelope.
type Envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Object `json:"object"`
	} `json:"data"`
}

// Object is the payload object inside an envelope. Which fields are set
// depends on the event type; Customer is the stable reference after a
// checkout attached it to an account.
type Object struct {
	Email        string `json:"email"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// ParseEnvelope decodes and minimally validates a payment webhook body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if strings.TrimSpace(env.Type) == "" {
		return nil, errors.New("event envelope is missing type")
	}
	return &env, nil
}
