package repository

import (
	"strings"
	"time"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bookingRepository implements the BookingRepository interface
type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new booking repository instance
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// CreateIfNotExists inserts the booking unless its external ID is already
// taken. A conflict is the dedup mechanism, not an error: the caller gets
// created=false and the row that won.
func (r *bookingRepository) CreateIfNotExists(booking *models.Booking) (bool, *models.Booking, error) {
	booking.ExternalID = strings.TrimSpace(booking.ExternalID)

	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(booking)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Booking
	if err := r.db.Where("external_id = ?", booking.ExternalID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetByID retrieves a booking by its ID
func (r *bookingRepository) GetByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByExternalID retrieves a booking by the provider's invitee reference
func (r *bookingRepository) GetByExternalID(externalID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Where("external_id = ?", strings.TrimSpace(externalID)).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// TransitionStatusByExternalID performs a compare-and-set on the booking
// status, scoped to the partner the webhook route belongs to. The amount
// stays untouched whatever happens to the booking later.
func (r *bookingRepository) TransitionStatusByExternalID(partnerID uint, externalID, from, to string) (bool, error) {
	tx := r.db.Model(&models.Booking{}).
		Where("partner_id = ? AND external_id = ? AND status = ?",
			partnerID, strings.TrimSpace(externalID), from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ListConfirmedInPeriod returns the partner's confirmed bookings created
// inside the settlement period, ordered stably for statement rendering.
func (r *bookingRepository) ListConfirmedInPeriod(partnerID uint, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.
		Where("partner_id = ? AND status = ? AND created_at >= ? AND created_at <= ?",
			partnerID, models.BookingStatusConfirmed, start, end).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}
