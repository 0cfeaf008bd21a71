package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/gofiber/fiber/v2/log"
)

// Actor is who requests a transition.
type Actor string

const (
	ActorPartner Actor = "partner"
	ActorAdmin   Actor = "admin"
)

var (
	// ErrIllegalTransition is returned when the requested edge does not
	// exist in the lifecycle table for the given actor.
	ErrIllegalTransition = errors.New("illegal offer status transition")
	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("rejection requires a reason")
	// ErrConflict is returned when the offer status changed between read and
	// write; the caller should re-read and retry.
	ErrConflict = errors.New("offer status changed concurrently")
)

type edge struct {
	from, to string
}

// transitions is the closed set of legal lifecycle edges and the actors
// allowed to walk them. An offer can only become approved through pending.
var transitions = map[edge][]Actor{
	{models.OfferStatusDraft, models.OfferStatusReady}:      {ActorPartner},
	{models.OfferStatusReady, models.OfferStatusPending}:    {ActorPartner},
	{models.OfferStatusRejected, models.OfferStatusPending}: {ActorPartner},
	{models.OfferStatusPending, models.OfferStatusApproved}: {ActorAdmin},
	{models.OfferStatusPending, models.OfferStatusRejected}: {ActorAdmin},
	{models.OfferStatusApproved, models.OfferStatusDraft}:   {ActorAdmin, ActorPartner},
}

// CanTransition reports whether actor may move an offer from one status to
// another.
func CanTransition(from, to string, actor Actor) bool {
	allowed, ok := transitions[edge{from, to}]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == actor {
			return true
		}
	}
	return false
}

// Machine applies lifecycle transitions against storage with optimistic
// concurrency: the status write only succeeds when the offer still is in
// the status the decision was made for.
type Machine struct {
	offers   repository.OfferRepository
	partners repository.PartnerRepository
	notifier notify.Notifier
}

// NewMachine creates an offer lifecycle machine.
func NewMachine(offers repository.OfferRepository, partners repository.PartnerRepository, notifier notify.Notifier) *Machine {
	return &Machine{offers: offers, partners: partners, notifier: notifier}
}

// Transition moves the offer to the requested status on behalf of the actor.
func (m *Machine) Transition(ctx context.Context, offerID uint, to string, actor Actor, reason string) (*models.Offer, error) {
	to = strings.TrimSpace(to)
	offer, err := m.offers.GetByID(offerID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(offer.Status, to, actor) {
		return nil, fmt.Errorf("%w: %s -> %s as %s", ErrIllegalTransition, offer.Status, to, actor)
	}
	if to == models.OfferStatusRejected && strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	changed, err := m.offers.TransitionStatus(offer.ID, offer.Status, to, strings.TrimSpace(reason))
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrConflict
	}

	if to == models.OfferStatusRejected {
		m.notifyRejection(ctx, offer, reason)
	}

	offer.Status = to
	if to == models.OfferStatusRejected {
		offer.RejectReason = strings.TrimSpace(reason)
	}
	return offer, nil
}

func (m *Machine) notifyRejection(ctx context.Context, offer *models.Offer, reason string) {
	partner, err := m.partners.GetByID(offer.PartnerID)
	if err != nil {
		log.Errorf("[Lifecycle] Cannot notify partner %d about rejection of offer %d: %v", offer.PartnerID, offer.ID, err)
		return
	}
	body := fmt.Sprintf("Your offer %q was rejected during review.<br><br>Reason: %s<br><br>"+
		"You can fix the issue and resubmit it for review.", offer.Title, strings.TrimSpace(reason))
	if err := m.notifier.Enqueue(ctx, notify.Message{
		Recipient:   partner.ContactEmail,
		Kind:        models.NotificationKindOfferRejected,
		Subject:     "Your offer was rejected",
		Body:        body,
		ReferenceID: offer.ID,
	}); err != nil {
		log.Errorf("[Lifecycle] Failed to enqueue rejection notification for offer %d: %v", offer.ID, err)
	}
}
