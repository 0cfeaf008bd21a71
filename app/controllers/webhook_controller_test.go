package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/config"
	"github.com/bookfox/bookfox/internal/pkg/identity"
	"github.com/bookfox/bookfox/internal/pkg/ledger"
	"github.com/bookfox/bookfox/internal/pkg/lifecycle"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/bookfox/bookfox/internal/pkg/payment"
	"github.com/bookfox/bookfox/internal/pkg/reconcile"
	"github.com/bookfox/bookfox/internal/pkg/scheduling"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- in-memory fakes ----

type fakeLedgerRepo struct {
	nextID uint
	events map[string]*models.ExternalEvent
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{nextID: 1, events: map[string]*models.ExternalEvent{}}
}

func (f *fakeLedgerRepo) CreateEventIfNotExists(event *models.ExternalEvent) (bool, *models.ExternalEvent, error) {
	k := event.Provider + "|" + event.ExternalEventID
	if existing, ok := f.events[k]; ok {
		return false, existing, nil
	}
	event.ID = f.nextID
	f.nextID++
	f.events[k] = event
	return true, event, nil
}

func (f *fakeLedgerRepo) UpdateStatus(id uint, status, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			e.Status = status
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) GetByID(id uint) (*models.ExternalEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) ListByStatus(provider, status string, limit int) ([]models.ExternalEvent, error) {
	var out []models.ExternalEvent
	for _, e := range f.events {
		if e.Status == status && (provider == "" || e.Provider == provider) && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) byStatus(status string) []*models.ExternalEvent {
	var out []*models.ExternalEvent
	for _, e := range f.events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeAccounts struct {
	nextID  uint
	byID    map[uint]*models.Account
	byEmail map[string]uint
	byRef   map[string]uint
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{nextID: 1, byID: map[uint]*models.Account{}, byEmail: map[string]uint{}, byRef: map[string]uint{}}
}

func (f *fakeAccounts) CreateIfNotExists(a *models.Account) (bool, *models.Account, error) {
	if id, ok := f.byEmail[a.Email]; ok {
		return false, f.byID[id], nil
	}
	a.ID = f.nextID
	f.nextID++
	f.byID[a.ID] = a
	f.byEmail[a.Email] = a.ID
	return true, a, nil
}

func (f *fakeAccounts) GetByID(id uint) (*models.Account, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccounts) GetByEmail(email string) (*models.Account, error) {
	if id, ok := f.byEmail[email]; ok {
		return f.byID[id], nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccounts) GetByCustomerRef(ref string) (*models.Account, error) {
	if id, ok := f.byRef[ref]; ok {
		return f.byID[id], nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccounts) Update(a *models.Account) error {
	f.byID[a.ID] = a
	if a.ExternalCustomerRef != "" {
		f.byRef[a.ExternalCustomerRef] = a.ID
	}
	return nil
}

func (f *fakeAccounts) UpdateSubscriptionStatus(id uint, status string) error {
	a, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.SubscriptionStatus = status
	return nil
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

type fakeOffers struct {
	offers  map[uint]*models.Offer
	variant *models.OfferVariant
}

func (f *fakeOffers) Create(o *models.Offer) error { f.offers[o.ID] = o; return nil }

func (f *fakeOffers) GetByID(id uint) (*models.Offer, error) {
	if o, ok := f.offers[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOffers) Update(o *models.Offer) error { f.offers[o.ID] = o; return nil }

func (f *fakeOffers) MatchBookable(partnerID uint, eventURL string) ([]models.Offer, error) {
	var out []models.Offer
	for _, o := range f.offers {
		if o.PartnerID == partnerID && o.Status == models.OfferStatusApproved &&
			o.SchedulingURL != "" && len(eventURL) >= len(o.SchedulingURL) &&
			eventURL[:len(o.SchedulingURL)] == o.SchedulingURL {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOffers) CheapestVariant(uint) (*models.OfferVariant, error) {
	if f.variant == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.variant, nil
}

func (f *fakeOffers) TransitionStatus(id uint, from, to, rejectReason string) (bool, error) {
	o, ok := f.offers[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.RejectReason = rejectReason
	return true, nil
}

type fakeBookings struct {
	nextID       uint
	byExternalID map[string]*models.Booking
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{nextID: 1, byExternalID: map[string]*models.Booking{}}
}

func (f *fakeBookings) CreateIfNotExists(b *models.Booking) (bool, *models.Booking, error) {
	if existing, ok := f.byExternalID[b.ExternalID]; ok {
		return false, existing, nil
	}
	b.ID = f.nextID
	f.nextID++
	f.byExternalID[b.ExternalID] = b
	return true, b, nil
}

func (f *fakeBookings) GetByID(uint) (*models.Booking, error) { return nil, gorm.ErrRecordNotFound }

func (f *fakeBookings) GetByExternalID(id string) (*models.Booking, error) {
	if b, ok := f.byExternalID[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookings) TransitionStatusByExternalID(partnerID uint, id, from, to string) (bool, error) {
	b, ok := f.byExternalID[id]
	if !ok || b.PartnerID != partnerID || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f *fakeBookings) ListConfirmedInPeriod(uint, time.Time, time.Time) ([]models.Booking, error) {
	return nil, nil
}

type fakeNotifier struct {
	messages []notify.Message
}

func (f *fakeNotifier) Enqueue(_ context.Context, msg notify.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

type fakeFetcher struct{}

func (fakeFetcher) FetchEvent(context.Context, string, string) (*scheduling.EventDetail, error) {
	return &scheduling.EventDetail{StartTime: time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)}, nil
}

// ---- test app ----

type testEnv struct {
	app        *fiber.App
	ledgerRepo *fakeLedgerRepo
	accounts   *fakeAccounts
	partners   *fakePartners
	offers     *fakeOffers
	bookings   *fakeBookings
	notifier   *fakeNotifier
}

func newTestEnv(webhookSecret string) *testEnv {
	e := &testEnv{
		ledgerRepo: newFakeLedgerRepo(),
		accounts:   newFakeAccounts(),
		partners: &fakePartners{partners: map[uint]*models.Partner{
			10: {ID: 10, CompanyName: "Tours Ltd", ContactEmail: "p@example.com",
				CommissionRate: 15, SchedulingToken: "tok", WebhookRouteKey: "route-1"},
		}},
		offers: &fakeOffers{
			offers: map[uint]*models.Offer{
				5: {ID: 5, PartnerID: 10, Title: "City Tour", Status: models.OfferStatusApproved,
					SchedulingURL: "https://sched.test/tours-ltd/city-tour"},
			},
			variant: &models.OfferVariant{ID: 7, OfferID: 5, PriceCents: 4500, Currency: "EUR"},
		},
		bookings: newFakeBookings(),
		notifier: &fakeNotifier{},
	}

	cfg := config.WebhookConfig{
		PaymentWebhookSecret: webhookSecret,
		PublicBaseURL:        "https://bookfox.test",
	}
	resolver := identity.NewResolver(e.accounts, e.notifier, cfg.PublicBaseURL)
	ledgerSvc := ledger.NewService(e.ledgerRepo)

	Initialize(Deps{
		Ledger:     ledgerSvc,
		Reconciler: reconcile.NewReconciler(e.partners, e.offers, e.bookings, resolver, fakeFetcher{}, false),
		Payments:   payment.NewHandler(e.accounts, resolver, e.notifier),
		Lifecycle:  lifecycle.NewMachine(e.offers, e.partners, e.notifier),
		Repos:      &repository.Repositories{Account: e.accounts, Partner: e.partners, Offer: e.offers, Booking: e.bookings},
		Webhook:    cfg,
	})

	app := fiber.New()
	app.Post("/api/webhooks/scheduling", HandleSchedulingWebhook)
	app.Post("/api/webhooks/payment", HandlePaymentWebhook)
	app.Post("/api/offers/:id/status", HandleOfferStatusTransition)
	app.Put("/api/partners/:id/scheduling", HandlePartnerSchedulingCredentials)
	app.Get("/api/admin/events", HandleAdminListEvents)
	e.app = app
	return e
}

func schedulingBody(uri string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": "invitee.created",
		"payload": map[string]interface{}{
			"email":      "guest@example.com",
			"event_type": "https://sched.test/tours-ltd/city-tour",
			"event":      "https://api.sched.test/scheduled_events/ev-1",
			"uri":        uri,
			"created_at": "2026-09-01T08:00:00Z",
		},
	})
	return body
}

func postJSON(app *fiber.App, url string, body []byte, headers map[string]string) (int, map[string]interface{}) {
	req := httptest.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

// ---- scheduling webhook ----

func TestSchedulingWebhook_CreatesBooking(t *testing.T) {
	e := newTestEnv("")

	status, body := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", schedulingBody("inv-1"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "created", body["message"])
	assert.Len(t, e.bookings.byExternalID, 1)
	assert.Len(t, e.ledgerRepo.byStatus(models.EventStatusCompleted), 1)
}

func TestSchedulingWebhook_DuplicateDelivery(t *testing.T) {
	e := newTestEnv("")

	status, _ := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", schedulingBody("inv-1"), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", schedulingBody("inv-1"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "duplicate", body["message"])
	assert.Len(t, e.bookings.byExternalID, 1)
}

func TestSchedulingWebhook_MalformedJSON(t *testing.T) {
	e := newTestEnv("")

	status, _ := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", []byte("{not json"), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, e.ledgerRepo.events, "malformed payloads never reach the ledger")
}

func TestSchedulingWebhook_UnknownRouteStillAcked(t *testing.T) {
	e := newTestEnv("")

	status, body := postJSON(e.app, "/api/webhooks/scheduling?route=bogus", schedulingBody("inv-1"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "unresolved", body["message"])

	failed := e.ledgerRepo.byStatus(models.EventStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ProcessingError, "no partner")
	assert.Len(t, e.bookings.byExternalID, 0)
}

func TestSchedulingWebhook_WildcardCharsInOfferURLStayLiteral(t *testing.T) {
	e := newTestEnv("")
	e.offers.offers[5].SchedulingURL = "https://sched.test/tours-ltd/city_tour"

	// "_" in the stored URL is a literal character, not a single-char
	// wildcard: an event URL differing at that position must not match.
	body, _ := json.Marshal(map[string]interface{}{
		"event": "invitee.created",
		"payload": map[string]interface{}{
			"email":      "guest@example.com",
			"event_type": "https://sched.test/tours-ltd/cityXtour",
			"event":      "https://api.sched.test/scheduled_events/ev-1",
			"uri":        "inv-1",
			"created_at": "2026-09-01T08:00:00Z",
		},
	})
	status, decoded := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "unresolved", decoded["message"])
	assert.Len(t, e.bookings.byExternalID, 0)
}

func TestSchedulingWebhook_NonApprovedOfferNotBookable(t *testing.T) {
	e := newTestEnv("")
	e.offers.offers[5].Status = models.OfferStatusDraft

	status, body := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", schedulingBody("inv-1"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "unresolved", body["message"])
	assert.Len(t, e.bookings.byExternalID, 0)
	assert.Len(t, e.ledgerRepo.byStatus(models.EventStatusFailed), 1)
}

func TestSchedulingWebhook_IgnoredEventType(t *testing.T) {
	e := newTestEnv("")

	body, _ := json.Marshal(map[string]interface{}{"event": "routing_form.submitted", "payload": map[string]interface{}{}})
	status, decoded := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ignored", decoded["message"])
	assert.Len(t, e.ledgerRepo.byStatus(models.EventStatusCompleted), 1)
}

func TestSchedulingWebhook_Cancellation(t *testing.T) {
	e := newTestEnv("")

	status, _ := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", schedulingBody("inv-1"), nil)
	require.Equal(t, fiber.StatusOK, status)

	body, _ := json.Marshal(map[string]interface{}{
		"event": "invitee.cancelled",
		"payload": map[string]interface{}{
			"email":      "guest@example.com",
			"event_type": "https://sched.test/tours-ltd/city-tour",
			"uri":        "inv-1",
		},
	})
	status, decoded := postJSON(e.app, "/api/webhooks/scheduling?route=route-1", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "cancelled", decoded["message"])
	assert.Equal(t, models.BookingStatusCancelled, e.bookings.byExternalID["inv-1"].Status)
}

// ---- payment webhook ----

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func paymentBody(id, eventType string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"email":        "buyer@example.com",
				"customer":     "cus_9",
				"subscription": "sub_7",
			},
		},
	})
	return body
}

func TestPaymentWebhook_BadSignatureRejectedBeforeLedger(t *testing.T) {
	e := newTestEnv("secret")

	body := paymentBody("evt_1", "checkout_completed")
	status, decoded := postJSON(e.app, "/api/webhooks/payment", body,
		map[string]string{"X-Webhook-Signature": "deadbeef"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_signature", decoded["error"])
	assert.Empty(t, e.ledgerRepo.events)

	status, _ = postJSON(e.app, "/api/webhooks/payment", body, nil)
	assert.Equal(t, fiber.StatusBadRequest, status, "missing signature is rejected when a secret is configured")
}

func TestPaymentWebhook_CheckoutCompleted(t *testing.T) {
	e := newTestEnv("secret")

	body := paymentBody("evt_1", "checkout_completed")
	status, decoded := postJSON(e.app, "/api/webhooks/payment", body,
		map[string]string{"X-Webhook-Signature": signBody(body, "secret")})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "processed", decoded["message"])

	account, err := e.accounts.GetByEmail("buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, account.SubscriptionStatus)
	assert.Equal(t, "cus_9", account.ExternalCustomerRef)

	// replay is deduplicated by the ledger
	status, decoded = postJSON(e.app, "/api/webhooks/payment", body,
		map[string]string{"X-Webhook-Signature": signBody(body, "secret")})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "duplicate", decoded["message"])
}

func TestPaymentWebhook_UnhandledTypeIgnored(t *testing.T) {
	e := newTestEnv("")

	body := paymentBody("evt_2", "charge_refunded")
	status, decoded := postJSON(e.app, "/api/webhooks/payment", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ignored", decoded["message"])
	assert.Len(t, e.ledgerRepo.byStatus(models.EventStatusCompleted), 1)
}

func TestPaymentWebhook_UnknownCustomerAckedAndFailed(t *testing.T) {
	e := newTestEnv("")

	body := paymentBody("evt_3", "invoice_paid")
	status, decoded := postJSON(e.app, "/api/webhooks/payment", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "failed", decoded["message"])
	require.Len(t, e.ledgerRepo.byStatus(models.EventStatusFailed), 1)
}

// ---- offer lifecycle endpoint ----

func TestOfferStatusEndpoint(t *testing.T) {
	e := newTestEnv("")
	e.offers.offers[5].Status = models.OfferStatusPending

	body, _ := json.Marshal(map[string]string{"to": "approved"})

	status, _ := postJSON(e.app, "/api/offers/5/status", body, nil)
	assert.Equal(t, fiber.StatusForbidden, status, "missing actor role is rejected")

	status, _ = postJSON(e.app, "/api/offers/5/status", body, map[string]string{"X-Actor-Role": "partner"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, "partners cannot approve")

	status, _ = postJSON(e.app, "/api/offers/5/status", body, map[string]string{"X-Actor-Role": "admin"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.OfferStatusApproved, e.offers.offers[5].Status)
}

func TestOfferStatusEndpoint_RejectionReason(t *testing.T) {
	e := newTestEnv("")
	e.offers.offers[5].Status = models.OfferStatusPending

	noReason, _ := json.Marshal(map[string]string{"to": "rejected"})
	status, _ := postJSON(e.app, "/api/offers/5/status", noReason, map[string]string{"X-Actor-Role": "admin"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	withReason, _ := json.Marshal(map[string]string{"to": "rejected", "reason": "pricing unclear"})
	status, _ = postJSON(e.app, "/api/offers/5/status", withReason, map[string]string{"X-Actor-Role": "admin"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pricing unclear", e.offers.offers[5].RejectReason)

	// the partner was notified about the rejection
	require.NotEmpty(t, e.notifier.messages)
	assert.Equal(t, models.NotificationKindOfferRejected, e.notifier.messages[len(e.notifier.messages)-1].Kind)
}

// ---- partner credentials ----

func TestPartnerSchedulingCredentials(t *testing.T) {
	e := newTestEnv("")
	e.partners.partners[11] = &models.Partner{ID: 11, CompanyName: "New Co", ContactEmail: "n@example.com"}

	body, _ := json.Marshal(map[string]string{"api_token": "tok-123"})
	req := httptest.NewRequest("PUT", "/api/partners/11/scheduling", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotEmpty(t, decoded["webhook_route_key"])
	assert.Equal(t, decoded["webhook_route_key"], e.partners.partners[11].WebhookRouteKey)
	assert.True(t, e.partners.partners[11].HasSchedulingCredentials())
}
