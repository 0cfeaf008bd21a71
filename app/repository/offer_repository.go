package repository

import (
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
)

// offerRepository implements the OfferRepository interface
type offerRepository struct {
	db *gorm.DB
}

// NewOfferRepository creates a new offer repository instance
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

// Create creates a new offer in the database
func (r *offerRepository) Create(offer *models.Offer) error {
	return r.db.Create(offer).Error
}

// GetByID retrieves an offer by its ID including variants
func (r *offerRepository) GetByID(id uint) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.Preload("Variants").First(&offer, id).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// Update updates an existing offer in the database
func (r *offerRepository) Update(offer *models.Offer) error {
	return r.db.Save(offer).Error
}

// MatchBookable returns the partner's approved offers whose scheduling URL
// is a prefix of the event URL. The status filter runs inside the query so a
// de-approval between webhook receipt and matching cannot slip through.
// Prefix matching covers query-parameter variants the provider appends; the
// comparison is an exact prefix, so % and _ in a stored URL stay literal.
func (r *offerRepository) MatchBookable(partnerID uint, eventURL string) ([]models.Offer, error) {
	url := strings.TrimSpace(eventURL)
	if url == "" {
		return nil, nil
	}
	var offers []models.Offer
	err := r.db.
		Where("partner_id = ? AND status = ? AND scheduling_url <> ''", partnerID, models.OfferStatusApproved).
		Where("LEFT(?, CHAR_LENGTH(scheduling_url)) = scheduling_url", url).
		Find(&offers).Error
	return offers, err
}

// CheapestVariant returns the variant with the lowest effective price for
// the offer, preferring the discounted price where one is set.
func (r *offerRepository) CheapestVariant(offerID uint) (*models.OfferVariant, error) {
	var variant models.OfferVariant
	err := r.db.
		Where("offer_id = ?", offerID).
		Order("COALESCE(discounted_cents, price_cents) ASC").
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// TransitionStatus performs an optimistic compare-and-set on the offer
// status. RowsAffected tells the caller whether it won the race.
func (r *offerRepository) TransitionStatus(id uint, from, to, rejectReason string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == models.OfferStatusRejected {
		updates["reject_reason"] = rejectReason
	}
	tx := r.db.Model(&models.Offer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
