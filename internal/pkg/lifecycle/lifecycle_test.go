package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from  string
		to    string
		actor Actor
		want  bool
	}{
		{models.OfferStatusDraft, models.OfferStatusReady, ActorPartner, true},
		{models.OfferStatusDraft, models.OfferStatusReady, ActorAdmin, false},
		{models.OfferStatusReady, models.OfferStatusPending, ActorPartner, true},
		{models.OfferStatusRejected, models.OfferStatusPending, ActorPartner, true},
		{models.OfferStatusPending, models.OfferStatusApproved, ActorAdmin, true},
		{models.OfferStatusPending, models.OfferStatusApproved, ActorPartner, false},
		{models.OfferStatusPending, models.OfferStatusRejected, ActorAdmin, true},
		{models.OfferStatusApproved, models.OfferStatusDraft, ActorAdmin, true},
		{models.OfferStatusApproved, models.OfferStatusDraft, ActorPartner, true},
		// no shortcut into approved
		{models.OfferStatusDraft, models.OfferStatusApproved, ActorAdmin, false},
		{models.OfferStatusReady, models.OfferStatusApproved, ActorAdmin, false},
		{models.OfferStatusRejected, models.OfferStatusApproved, ActorAdmin, false},
		// rejected offers must go through review again
		{models.OfferStatusRejected, models.OfferStatusReady, ActorPartner, false},
		{models.OfferStatusApproved, models.OfferStatusRejected, ActorAdmin, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to, tt.actor); got != tt.want {
			t.Fatalf("CanTransition(%q, %q, %q) = %v, want %v", tt.from, tt.to, tt.actor, got, tt.want)
		}
	}
}

type fakeOffers struct {
	offers   map[uint]*models.Offer
	conflict bool
}

func (f *fakeOffers) Create(offer *models.Offer) error { f.offers[offer.ID] = offer; return nil }

func (f *fakeOffers) GetByID(id uint) (*models.Offer, error) {
	if o, ok := f.offers[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOffers) Update(offer *models.Offer) error { f.offers[offer.ID] = offer; return nil }

func (f *fakeOffers) MatchBookable(uint, string) ([]models.Offer, error) { return nil, nil }

func (f *fakeOffers) CheapestVariant(uint) (*models.OfferVariant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOffers) TransitionStatus(id uint, from, to, rejectReason string) (bool, error) {
	if f.conflict {
		return false, nil
	}
	o, ok := f.offers[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.RejectReason = rejectReason
	return true, nil
}

type fakePartners struct {
	partners map[uint]*models.Partner
}

func (f *fakePartners) Create(p *models.Partner) error { f.partners[p.ID] = p; return nil }

func (f *fakePartners) GetByID(id uint) (*models.Partner, error) {
	if p, ok := f.partners[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePartners) GetByWebhookRouteKey(key string) (*models.Partner, error) {
	for _, p := range f.partners {
		if p.WebhookRouteKey == key {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePartners) Update(p *models.Partner) error { f.partners[p.ID] = p; return nil }

func (f *fakePartners) List(int, int) ([]models.Partner, error) { return nil, nil }

type fakeNotifier struct {
	messages []notify.Message
}

func (f *fakeNotifier) Enqueue(_ context.Context, msg notify.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func newTestMachine(status string) (*Machine, *fakeOffers, *fakeNotifier) {
	offers := &fakeOffers{offers: map[uint]*models.Offer{
		1: {ID: 1, PartnerID: 10, Title: "City Tour", Status: status},
	}}
	partners := &fakePartners{partners: map[uint]*models.Partner{
		10: {ID: 10, CompanyName: "Tours Ltd", ContactEmail: "partner@example.com"},
	}}
	notifier := &fakeNotifier{}
	return NewMachine(offers, partners, notifier), offers, notifier
}

func TestTransition_HappyPath(t *testing.T) {
	m, offers, _ := newTestMachine(models.OfferStatusDraft)

	offer, err := m.Transition(context.Background(), 1, models.OfferStatusReady, ActorPartner, "")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferStatusReady, offer.Status)
	assert.Equal(t, models.OfferStatusReady, offers.offers[1].Status)
}

func TestTransition_Illegal(t *testing.T) {
	m, _, _ := newTestMachine(models.OfferStatusDraft)

	_, err := m.Transition(context.Background(), 1, models.OfferStatusApproved, ActorAdmin, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestTransition_RejectionRequiresReason(t *testing.T) {
	m, _, notifier := newTestMachine(models.OfferStatusPending)

	_, err := m.Transition(context.Background(), 1, models.OfferStatusRejected, ActorAdmin, "  ")
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	assert.Empty(t, notifier.messages)
}

func TestTransition_RejectionNotifiesPartner(t *testing.T) {
	m, offers, notifier := newTestMachine(models.OfferStatusPending)

	offer, err := m.Transition(context.Background(), 1, models.OfferStatusRejected, ActorAdmin, "pricing unclear")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, offer.Status)
	assert.Equal(t, "pricing unclear", offers.offers[1].RejectReason)

	assert.Len(t, notifier.messages, 1)
	assert.Equal(t, models.NotificationKindOfferRejected, notifier.messages[0].Kind)
	assert.Equal(t, "partner@example.com", notifier.messages[0].Recipient)
	assert.Contains(t, notifier.messages[0].Body, "pricing unclear")
}

func TestTransition_Conflict(t *testing.T) {
	m, offers, _ := newTestMachine(models.OfferStatusPending)
	offers.conflict = true

	_, err := m.Transition(context.Background(), 1, models.OfferStatusApproved, ActorAdmin, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTransition_UnknownOffer(t *testing.T) {
	m, _, _ := newTestMachine(models.OfferStatusDraft)

	_, err := m.Transition(context.Background(), 99, models.OfferStatusReady, ActorPartner, "")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
