package repository

import (
	"time"

	"github.com/bookfox/bookfox/app/models"
)

// AccountRepository defines the interface for account-related database
// operations. CreateIfNotExists is the only way accounts come into
// existence: the unique email constraint, not a prior lookup, decides
// whether an account is new.
type AccountRepository interface {
	CreateIfNotExists(account *models.Account) (bool, *models.Account, error)
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByCustomerRef(ref string) (*models.Account, error)
	Update(account *models.Account) error
	UpdateSubscriptionStatus(id uint, status string) error
}

// PartnerRepository defines the interface for partner-related database
// operations.
type PartnerRepository interface {
	Create(partner *models.Partner) error
	GetByID(id uint) (*models.Partner, error)
	GetByWebhookRouteKey(key string) (*models.Partner, error)
	Update(partner *models.Partner) error
	List(offset, limit int) ([]models.Partner, error)
}

// OfferRepository defines the interface for offer-related database
// operations.
type OfferRepository interface {
	Create(offer *models.Offer) error
	GetByID(id uint) (*models.Offer, error)
	Update(offer *models.Offer) error
	// MatchBookable returns the approved offers of a partner whose stored
	// scheduling URL is a prefix of the given event URL.
	MatchBookable(partnerID uint, eventURL string) ([]models.Offer, error)
	// CheapestVariant returns the variant with the lowest effective price.
	CheapestVariant(offerID uint) (*models.OfferVariant, error)
	// TransitionStatus updates the status only when the current status still
	// matches from; it reports whether a row was changed.
	TransitionStatus(id uint, from, to, rejectReason string) (bool, error)
}

// BookingRepository defines the interface for booking-related database
// operations.
type BookingRepository interface {
	CreateIfNotExists(booking *models.Booking) (bool, *models.Booking, error)
	GetByID(id uint) (*models.Booking, error)
	GetByExternalID(externalID string) (*models.Booking, error)
	// TransitionStatusByExternalID moves the partner's booking from one
	// status to another; a booking of another partner or in a different
	// status is never touched.
	TransitionStatusByExternalID(partnerID uint, externalID, from, to string) (bool, error)
	ListConfirmedInPeriod(partnerID uint, start, end time.Time) ([]models.Booking, error)
}

// PayoutRepository defines the interface for payout-related database
// operations.
type PayoutRepository interface {
	NextRevision(partnerID uint, start, end time.Time) (int, error)
	CreateWithItems(payout *models.Payout, items []models.PayoutItem) error
	GetByID(id uint) (*models.Payout, error)
	SetStatementRef(id uint, ref string) error
	MarkIssued(id uint) (bool, error)
	ListByPartner(partnerID uint) ([]models.Payout, error)
}

// Repositories bundles all repository instances.
type Repositories struct {
	Account AccountRepository
	Partner PartnerRepository
	Offer   OfferRepository
	Booking BookingRepository
	Payout  PayoutRepository
}
