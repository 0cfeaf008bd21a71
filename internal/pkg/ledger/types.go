package ledger

// EventInput is the normalized input for recording an inbound webhook.
type EventInput struct {
	Provider        string
	ExternalEventID string
	EventType       string
	PayloadJSON     string
}
