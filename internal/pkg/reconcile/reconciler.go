package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/identity"
	"github.com/bookfox/bookfox/internal/pkg/scheduling"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Reconciler turns raw scheduling events into deduplicated booking records.
// It never fabricates a booking without a confident offer match and never
// writes a zero-amount booking: anything ambiguous comes back unresolved for
// operator inspection.
type Reconciler struct {
	partners repository.PartnerRepository
	offers   repository.OfferRepository
	bookings repository.BookingRepository
	resolver *identity.Resolver
	fetcher  scheduling.EventFetcher

	// requireAccount makes the reconciler refuse to create accounts as a
	// side effect of a booking; unknown invitees are unresolved instead.
	requireAccount bool
}

// NewReconciler creates a booking reconciler.
func NewReconciler(
	partners repository.PartnerRepository,
	offers repository.OfferRepository,
	bookings repository.BookingRepository,
	resolver *identity.Resolver,
	fetcher scheduling.EventFetcher,
	requireAccount bool,
) *Reconciler {
	return &Reconciler{
		partners:       partners,
		offers:         offers,
		bookings:       bookings,
		resolver:       resolver,
		fetcher:        fetcher,
		requireAccount: requireAccount,
	}
}

// Reconcile handles one invitee.created event received on the partner route
// identified by routeKey.
func (r *Reconciler) Reconcile(ctx context.Context, routeKey string, ev Event) Result {
	if !ev.Payload.Validate() {
		return resultOf(OutcomeUnresolved, "payload is missing email, event_type or uri")
	}

	partner, err := r.partners.GetByWebhookRouteKey(routeKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultOf(OutcomeUnresolved, "no partner for webhook route")
		}
		return resultOf(OutcomeFailed, fmt.Sprintf("partner lookup failed: %v", err))
	}
	// Fail closed: without credentials we cannot verify the event against
	// the provider, so no side effects.
	if !partner.HasSchedulingCredentials() {
		return resultOf(OutcomeUnresolved, fmt.Sprintf("partner %d has no scheduling credentials", partner.ID))
	}

	offer, res := r.matchOffer(partner.ID, ev.Payload.EventTypeURL)
	if offer == nil {
		return res
	}

	account, res, ok := r.resolveAccount(ctx, ev.Payload.Email)
	if !ok {
		return res
	}

	// The webhook carries the booking-creation time; the appointment time
	// lives behind the event reference and must be fetched.
	detail, err := r.fetcher.FetchEvent(ctx, partner.SchedulingToken, ev.Payload.EventRef)
	if err != nil {
		return resultOf(OutcomeFailed, fmt.Sprintf("event detail fetch failed: %v", err))
	}

	variant, err := r.offers.CheapestVariant(offer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultOf(OutcomeUnresolved, fmt.Sprintf("offer %d has no priced variant", offer.ID))
		}
		return resultOf(OutcomeFailed, fmt.Sprintf("variant lookup failed: %v", err))
	}

	booking := &models.Booking{
		ExternalID:  strings.TrimSpace(ev.Payload.URI),
		OfferID:     offer.ID,
		PartnerID:   partner.ID,
		AccountID:   account.ID,
		AmountCents: variant.EffectivePriceCents(),
		Currency:    variant.Currency,
		Source:      models.BookingSourceScheduling,
		Status:      models.BookingStatusConfirmed,
		EventAt:     &detail.StartTime,
	}
	created, stored, err := r.bookings.CreateIfNotExists(booking)
	if err != nil {
		return resultOf(OutcomeFailed, fmt.Sprintf("booking insert failed: %v", err))
	}
	if !created {
		log.Infof("[Reconcile] Booking %s already exists (id=%d), treating as duplicate", stored.ExternalID, stored.ID)
		return Result{Outcome: OutcomeDuplicate, Booking: stored}
	}

	log.Infof("[Reconcile] Created booking %d (offer=%d, partner=%d, amount=%d)",
		stored.ID, offer.ID, partner.ID, stored.AmountCents)
	return Result{Outcome: OutcomeCreated, Booking: stored}
}

// Cancel handles one invitee.cancelled event: the route partner's confirmed
// booking moves to cancelled, its amount untouched. Bookings of other
// partners and bookings that already left confirmed (refunded, cancelled)
// are never touched; those cancellations are unresolved, not errors.
func (r *Reconciler) Cancel(ctx context.Context, routeKey string, ev Event) Result {
	_ = ctx
	uri := strings.TrimSpace(ev.Payload.URI)
	if uri == "" {
		return resultOf(OutcomeUnresolved, "cancellation payload is missing uri")
	}
	partner, err := r.partners.GetByWebhookRouteKey(routeKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultOf(OutcomeUnresolved, "no partner for webhook route")
		}
		return resultOf(OutcomeFailed, fmt.Sprintf("partner lookup failed: %v", err))
	}

	changed, err := r.bookings.TransitionStatusByExternalID(partner.ID, uri,
		models.BookingStatusConfirmed, models.BookingStatusCancelled)
	if err != nil {
		return resultOf(OutcomeFailed, fmt.Sprintf("booking status update failed: %v", err))
	}
	if !changed {
		return resultOf(OutcomeUnresolved, fmt.Sprintf("no confirmed booking with external id %s for partner %d", uri, partner.ID))
	}
	return resultOf(OutcomeCancelled, "")
}

// matchOffer returns exactly one bookable offer or the unresolved result
// explaining why there is none. Zero and ambiguous matches are equally
// unresolved; offers that are not approved never match at all.
func (r *Reconciler) matchOffer(partnerID uint, eventTypeURL string) (*models.Offer, Result) {
	offers, err := r.offers.MatchBookable(partnerID, eventTypeURL)
	if err != nil {
		return nil, resultOf(OutcomeFailed, fmt.Sprintf("offer match failed: %v", err))
	}
	switch len(offers) {
	case 0:
		return nil, resultOf(OutcomeUnresolved, fmt.Sprintf("no approved offer matches %s", eventTypeURL))
	case 1:
		return &offers[0], Result{}
	default:
		return nil, resultOf(OutcomeUnresolved, fmt.Sprintf("%d offers match %s, refusing ambiguous booking", len(offers), eventTypeURL))
	}
}

func (r *Reconciler) resolveAccount(ctx context.Context, email string) (*models.Account, Result, bool) {
	if r.requireAccount {
		account, err := r.resolver.Lookup(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, resultOf(OutcomeUnresolved, fmt.Sprintf("no account for %s", email)), false
			}
			return nil, resultOf(OutcomeFailed, fmt.Sprintf("account lookup failed: %v", err)), false
		}
		return account, Result{}, true
	}

	account, _, err := r.resolver.Resolve(ctx, email)
	if err != nil {
		return nil, resultOf(OutcomeFailed, fmt.Sprintf("account resolve failed: %v", err)), false
	}
	return account, Result{}, true
}
