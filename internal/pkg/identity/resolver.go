package identity

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

// Resolver maps an external actor identity (email) to an internal account,
// creating one lazily on first contact. The unique email constraint is the
// source of truth; concurrent resolves of the same email converge on one
// account.
type Resolver struct {
	accounts repository.AccountRepository
	notifier notify.Notifier
	baseURL  string
}

// NewResolver creates an identity resolver. baseURL is the public base URL
// used in credential-setup links.
func NewResolver(accounts repository.AccountRepository, notifier notify.Notifier, baseURL string) *Resolver {
	return &Resolver{
		accounts: accounts,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Resolve returns the account for the email, creating it when absent. The
// returned bool reports whether the account is new; new accounts get a
// one-time credential-setup link and a welcome notification enqueued.
func (r *Resolver) Resolve(ctx context.Context, email string) (*models.Account, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, false, errors.New("email is required")
	}

	candidate := &models.Account{
		Email:              normalized,
		SubscriptionStatus: models.SubscriptionStatusNone,
	}
	if err := candidate.GenerateSetupToken(); err != nil {
		return nil, false, err
	}

	created, account, err := r.accounts.CreateIfNotExists(candidate)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return account, false, nil
	}

	if err := r.sendWelcome(ctx, account); err != nil {
		// The account exists and is usable; a lost welcome mail is
		// recoverable by operators and must not fail the caller's event.
		log.Errorf("[Identity] Failed to enqueue welcome notification for account %d: %v", account.ID, err)
	}
	return account, true, nil
}

// Lookup returns the account for the email without creating one;
// gorm.ErrRecordNotFound when it does not exist.
func (r *Resolver) Lookup(ctx context.Context, email string) (*models.Account, error) {
	_ = ctx
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, errors.New("email is required")
	}
	return r.accounts.GetByEmail(normalized)
}

// AttachCustomerRef links the payment provider's customer and subscription
// references to the account. Last write wins; replays are harmless.
func (r *Resolver) AttachCustomerRef(ctx context.Context, accountID uint, customerRef, subscriptionRef string) error {
	_ = ctx
	account, err := r.accounts.GetByID(accountID)
	if err != nil {
		return err
	}
	account.ExternalCustomerRef = strings.TrimSpace(customerRef)
	account.ExternalSubscriptionRef = strings.TrimSpace(subscriptionRef)
	return r.accounts.Update(account)
}

func (r *Resolver) sendWelcome(ctx context.Context, account *models.Account) error {
	setupLink := fmt.Sprintf("%s/account/setup?token=%s", r.baseURL, account.SetupToken)
	body := fmt.Sprintf(
		"Welcome! Your account has been created.<br><br>"+
			"Set your credentials here: <a href=\"%s\">%s</a><br>"+
			"The link is valid for 48 hours.", setupLink, setupLink)

	return r.notifier.Enqueue(ctx, notify.Message{
		Recipient:   account.Email,
		Kind:        models.NotificationKindWelcome,
		Subject:     "Welcome – finish setting up your account",
		Body:        body,
		ReferenceID: account.ID,
	})
}
