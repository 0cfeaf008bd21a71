package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/identity"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	// ErrUnhandledEventType marks event types outside the dispatch table.
	// They are acknowledged and recorded, not failed.
	ErrUnhandledEventType = errors.New("unhandled payment event type")
	// ErrNoMatchingAccount marks events referencing a customer the system
	// has never seen; surfaced for operators, acknowledged to the sender.
	ErrNoMatchingAccount = errors.New("no account for payment customer reference")
)

// HandlerFunc processes one parsed payment event.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Handler dispatches payment provider events to per-type handlers. All
// branches are idempotent last-write-wins status updates; replay safety
// comes from the idempotency ledger in front of the dispatch.
type Handler struct {
	accounts repository.AccountRepository
	resolver *identity.Resolver
	notifier notify.Notifier

	handlers map[string]HandlerFunc
}

// NewHandler creates a payment event handler with its dispatch table.
func NewHandler(accounts repository.AccountRepository, resolver *identity.Resolver, notifier notify.Notifier) *Handler {
	h := &Handler{
		accounts: accounts,
		resolver: resolver,
		notifier: notifier,
	}
	h.handlers = map[string]HandlerFunc{
		EventCheckoutCompleted:     h.handleCheckoutCompleted,
		EventInvoicePaid:           h.handleInvoicePaid,
		EventInvoicePaymentFailed:  h.handleInvoicePaymentFailed,
		EventSubscriptionCancelled: h.handleSubscriptionCancelled,
	}
	return h
}

// Handle routes the envelope to its event-type handler.
func (h *Handler) Handle(ctx context.Context, env *Envelope) error {
	fn, ok := h.handlers[strings.ToLower(strings.TrimSpace(env.Type))]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnhandledEventType, env.Type)
	}
	return fn(ctx, env)
}

// handleCheckoutCompleted provisions the account for a completed checkout:
// resolve or create by email, attach the provider's customer and
// subscription references, and activate the subscription. New accounts get
// their credential-setup mail from the resolver.
func (h *Handler) handleCheckoutCompleted(ctx context.Context, env *Envelope) error {
	obj := env.Data.Object
	if strings.TrimSpace(obj.Email) == "" {
		return errors.New("checkout event is missing customer email")
	}

	account, created, err := h.resolver.Resolve(ctx, obj.Email)
	if err != nil {
		return err
	}
	if created {
		log.Infof("[Payment] Provisioned new account %d for %s", account.ID, account.Email)
	}

	if err := h.resolver.AttachCustomerRef(ctx, account.ID, obj.Customer, obj.Subscription); err != nil {
		return err
	}
	return h.accounts.UpdateSubscriptionStatus(account.ID, models.SubscriptionStatusActive)
}

func (h *Handler) handleInvoicePaid(ctx context.Context, env *Envelope) error {
	account, err := h.accountByRef(env)
	if err != nil {
		return err
	}
	return h.accounts.UpdateSubscriptionStatus(account.ID, models.SubscriptionStatusActive)
}

func (h *Handler) handleInvoicePaymentFailed(ctx context.Context, env *Envelope) error {
	account, err := h.accountByRef(env)
	if err != nil {
		return err
	}
	if err := h.accounts.UpdateSubscriptionStatus(account.ID, models.SubscriptionStatusPaymentFailed); err != nil {
		return err
	}

	return h.notifier.Enqueue(ctx, notify.Message{
		Recipient:   account.Email,
		Kind:        models.NotificationKindPaymentFailed,
		Subject:     "Your payment failed",
		Body:        "We could not collect your latest payment. Please update your payment method to keep your subscription active.",
		ReferenceID: account.ID,
	})
}

func (h *Handler) handleSubscriptionCancelled(ctx context.Context, env *Envelope) error {
	account, err := h.accountByRef(env)
	if err != nil {
		return err
	}
	if err := h.accounts.UpdateSubscriptionStatus(account.ID, models.SubscriptionStatusCancelled); err != nil {
		return err
	}

	return h.notifier.Enqueue(ctx, notify.Message{
		Recipient:   account.Email,
		Kind:        models.NotificationKindCancelled,
		Subject:     "Your subscription was cancelled",
		Body:        "Your subscription has been cancelled. You can re-subscribe at any time.",
		ReferenceID: account.ID,
	})
}

func (h *Handler) accountByRef(env *Envelope) (*models.Account, error) {
	ref := strings.TrimSpace(env.Data.Object.Customer)
	if ref == "" {
		return nil, fmt.Errorf("%w: event %s carries no customer reference", ErrNoMatchingAccount, env.ID)
	}
	account, err := h.accounts.GetByCustomerRef(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoMatchingAccount, ref)
		}
		return nil, err
	}
	return account, nil
}
