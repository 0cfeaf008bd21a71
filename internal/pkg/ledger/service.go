package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
)

// Service is the idempotency ledger: the append-only record of every inbound
// external event and the single place "did we already process this" is
// answered.
type Service struct {
	repo Repository
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Record persists the event unless the provider already delivered it. The
// returned bool is true for a new event, false for a duplicate; duplicates
// must be acknowledged to the sender without side effects. New rows start in
// status processing, before any side effect runs, so a crash mid-handling
// stays observable.
func (s *Service) Record(ctx context.Context, in EventInput) (*models.ExternalEvent, bool, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return nil, false, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ExternalEventID)
	if eventID == "" {
		// Some senders omit a delivery id; fall back to a payload hash so
		// retries of the identical body still deduplicate.
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.ExternalEvent{
		Provider:        provider,
		ExternalEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		Status:          models.EventStatusProcessing,
	}
	created, stored, err := s.repo.CreateEventIfNotExists(event)
	return stored, created, err
}

// MarkCompleted finalizes an event after all side effects are durably
// committed.
func (s *Service) MarkCompleted(ctx context.Context, eventID uint) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	return s.repo.UpdateStatus(eventID, models.EventStatusCompleted, "")
}

// MarkFailed finalizes an event with the reason it could not be processed.
// Unresolved matches land here too: the 200 acknowledgement already went
// out, the reason is for operators.
func (s *Service) MarkFailed(ctx context.Context, eventID uint, processingErr error) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	reason := ""
	if processingErr != nil {
		reason = processingErr.Error()
	}
	return s.repo.UpdateStatus(eventID, models.EventStatusFailed, reason)
}

// ListByStatus returns recent events in the given status for operator
// inspection.
func (s *Service) ListByStatus(ctx context.Context, provider, status string, limit int) ([]models.ExternalEvent, error) {
	_ = ctx
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByStatus(strings.TrimSpace(provider), strings.TrimSpace(status), limit)
}
