package repository

import (
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
)

// partnerRepository implements the PartnerRepository interface
type partnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository creates a new partner repository instance
func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

// Create creates a new partner in the database
func (r *partnerRepository) Create(partner *models.Partner) error {
	return r.db.Create(partner).Error
}

// GetByID retrieves a partner by its ID
func (r *partnerRepository) GetByID(id uint) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.First(&partner, id).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// GetByWebhookRouteKey resolves the route key carried on a scheduling
// webhook to the owning partner.
func (r *partnerRepository) GetByWebhookRouteKey(key string) (*models.Partner, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var partner models.Partner
	err := r.db.Where("webhook_route_key = ?", trimmed).First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// Update updates an existing partner in the database
func (r *partnerRepository) Update(partner *models.Partner) error {
	return r.db.Save(partner).Error
}

// List retrieves a paginated list of partners
func (r *partnerRepository) List(offset, limit int) ([]models.Partner, error) {
	var partners []models.Partner
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&partners).Error
	return partners, err
}
