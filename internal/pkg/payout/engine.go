package payout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/bookfox/bookfox/internal/pkg/storage"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const defaultCurrency = "EUR"

// ErrInvalidPeriod is returned for empty or inverted settlement bounds.
var ErrInvalidPeriod = errors.New("invalid settlement period")

// Engine aggregates confirmed bookings into partner settlements. Each run
// produces a new payout revision for its exact period bounds; issued payouts
// are never mutated. Non-overlapping periods are the caller's
// responsibility; the engine does not dedupe bookings across payout rows.
type Engine struct {
	partners repository.PartnerRepository
	bookings repository.BookingRepository
	payouts  repository.PayoutRepository
	store    storage.Store
	notifier notify.Notifier

	// commissionTaxRate is the flat tax percentage applied to the
	// commission (not to the collected total).
	commissionTaxRate float64
}

// NewEngine creates a payout engine.
func NewEngine(
	partners repository.PartnerRepository,
	bookings repository.BookingRepository,
	payouts repository.PayoutRepository,
	store storage.Store,
	notifier notify.Notifier,
	commissionTaxRate float64,
) *Engine {
	return &Engine{
		partners:          partners,
		bookings:          bookings,
		payouts:           payouts,
		store:             store,
		notifier:          notifier,
		commissionTaxRate: commissionTaxRate,
	}
}

// Settle computes and persists the settlement of one partner for one
// period and renders its statement artifact. Concurrent runs for the same
// (partner, period) race on the unique revision index; the loser returns
// the constraint error.
func (e *Engine) Settle(ctx context.Context, partnerID uint, periodStart, periodEnd time.Time) (*models.Payout, error) {
	if !periodStart.Before(periodEnd) {
		return nil, ErrInvalidPeriod
	}

	partner, err := e.partners.GetByID(partnerID)
	if err != nil {
		return nil, err
	}

	bookings, err := e.bookings.ListConfirmedInPeriod(partnerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	var total int64
	currency := defaultCurrency
	items := make([]models.PayoutItem, 0, len(bookings))
	for _, b := range bookings {
		total += b.AmountCents
		if b.Currency != "" {
			currency = b.Currency
		}
		items = append(items, models.PayoutItem{
			BookingID:   b.ID,
			Description: fmt.Sprintf("Booking %s", b.ExternalID),
			AmountCents: b.AmountCents,
			BookedAt:    b.CreatedAt,
		})
	}

	commission := roundPercent(total, partner.CommissionRate)
	commissionTax := roundPercent(commission, e.commissionTaxRate)
	net := total - commission - commissionTax

	revision, err := e.payouts.NextRevision(partnerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	payout := &models.Payout{
		PartnerID:           partnerID,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Revision:            revision,
		PartnerName:         partner.CompanyName,
		CommissionRate:      partner.CommissionRate,
		TotalCollectedCents: total,
		CommissionCents:     commission,
		CommissionTaxCents:  commissionTax,
		NetAmountCents:      net,
		Currency:            currency,
		Status:              models.PayoutStatusPending,
	}
	if err := e.payouts.CreateWithItems(payout, items); err != nil {
		return nil, err
	}

	stored, err := e.payouts.GetByID(payout.ID)
	if err != nil {
		return nil, err
	}
	if err := e.renderAndStoreStatement(ctx, stored); err != nil {
		// The settlement itself is committed; the statement can be
		// re-rendered from the stored booking set at any time.
		log.Errorf("[Payout] Statement rendering for payout %d failed: %v", stored.ID, err)
		return stored, err
	}

	log.Infof("[Payout] Settled partner %d for %s..%s: total=%d commission=%d net=%d (revision %d)",
		partnerID, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"),
		total, commission, net, revision)
	return stored, nil
}

// Issue freezes a pending payout and notifies the partner with the
// statement reference. Issuing twice is a no-op.
func (e *Engine) Issue(ctx context.Context, payoutID uint) (*models.Payout, error) {
	payout, err := e.payouts.GetByID(payoutID)
	if err != nil {
		return nil, err
	}

	changed, err := e.payouts.MarkIssued(payoutID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return payout, nil
	}
	payout.Status = models.PayoutStatusIssued

	body := fmt.Sprintf("Your payout for %s &ndash; %s has been issued.<br>"+
		"Net amount: %s<br>Statement: %s",
		payout.PeriodStart.UTC().Format("2006-01-02"),
		payout.PeriodEnd.UTC().Format("2006-01-02"),
		formatCents(payout.NetAmountCents, payout.Currency),
		payout.StatementRef)
	if err := e.notifier.Enqueue(ctx, notify.Message{
		Recipient:   payout.Partner.ContactEmail,
		Kind:        models.NotificationKindPayoutIssued,
		Subject:     "Your payout statement is ready",
		Body:        body,
		ReferenceID: payout.ID,
	}); err != nil {
		log.Errorf("[Payout] Failed to enqueue payout notification for payout %d: %v", payout.ID, err)
	}
	return payout, nil
}

// Statement re-renders the statement of a stored payout. Because it renders
// from the persisted row and item set only, the output is byte-identical to
// the stored artifact.
func (e *Engine) Statement(ctx context.Context, payoutID uint) ([]byte, error) {
	payout, err := e.payouts.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout.StatementRef != "" {
		if body, err := e.store.Get(ctx, payout.StatementRef); err == nil {
			return body, nil
		}
	}
	return RenderStatement(payout)
}

func (e *Engine) renderAndStoreStatement(ctx context.Context, payout *models.Payout) error {
	body, err := RenderStatement(payout)
	if err != nil {
		return err
	}
	key := statementKey(uuid.New().String())
	if err := e.store.Put(ctx, key, body, "text/html; charset=utf-8"); err != nil {
		return err
	}
	if err := e.payouts.SetStatementRef(payout.ID, key); err != nil {
		return err
	}
	payout.StatementRef = key
	return nil
}

// roundPercent applies a percentage to a cent amount, rounding half away
// from zero.
func roundPercent(cents int64, percent float64) int64 {
	return int64(math.Round(float64(cents) * percent / 100.0))
}
