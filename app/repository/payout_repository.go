package repository

import (
	"time"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
)

// payoutRepository implements the PayoutRepository interface
type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a new payout repository instance
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

// NextRevision returns 1 + the highest existing revision for the exact
// period bounds. Two concurrent engine runs compute the same revision and
// the unique index lets only one of them insert it.
func (r *payoutRepository) NextRevision(partnerID uint, start, end time.Time) (int, error) {
	var max int
	err := r.db.Model(&models.Payout{}).
		Where("partner_id = ? AND period_start = ? AND period_end = ?", partnerID, start, end).
		Select("COALESCE(MAX(revision), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateWithItems persists the payout and its booking line items in one
// transaction: a settlement either exists with its full booking set or not
// at all.
func (r *payoutRepository) CreateWithItems(payout *models.Payout, items []models.PayoutItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payout).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].PayoutID = payout.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// GetByID retrieves a payout including its items and partner
func (r *payoutRepository) GetByID(id uint) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("payout_items.booking_id ASC")
	}).Preload("Partner").First(&payout, id).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// SetStatementRef stores the reference of the rendered statement artifact.
func (r *payoutRepository) SetStatementRef(id uint, ref string) error {
	return r.db.Model(&models.Payout{}).Where("id = ?", id).
		Update("statement_ref", ref).Error
}

// MarkIssued freezes a pending payout. It reports false when the payout was
// already issued, so issuing is idempotent.
func (r *payoutRepository) MarkIssued(id uint) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, models.PayoutStatusPending).
		Updates(map[string]interface{}{"status": models.PayoutStatusIssued, "issued_at": &now})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ListByPartner returns all payouts of a partner, newest first
func (r *payoutRepository) ListByPartner(partnerID uint) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.Where("partner_id = ?", partnerID).
		Order("period_start DESC, revision DESC").
		Find(&payouts).Error
	return payouts, err
}
