package ledger

import (
	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger service.
type Repository interface {
	CreateEventIfNotExists(event *models.ExternalEvent) (bool, *models.ExternalEvent, error)
	UpdateStatus(id uint, status, processingError string) error
	GetByID(id uint) (*models.ExternalEvent, error)
	ListByStatus(provider, status string, limit int) ([]models.ExternalEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(event *models.ExternalEvent) (bool, *models.ExternalEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "external_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.ExternalEvent
	if err := r.db.Where("provider = ? AND external_event_id = ?", event.Provider, event.ExternalEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) UpdateStatus(id uint, status, processingError string) error {
	updates := map[string]interface{}{
		"status":           status,
		"processing_error": processingError,
	}
	return r.db.Model(&models.ExternalEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetByID(id uint) (*models.ExternalEvent, error) {
	var event models.ExternalEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) ListByStatus(provider, status string, limit int) ([]models.ExternalEvent, error) {
	q := r.db.Where("status = ?", status).Order("created_at DESC").Limit(limit)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	var events []models.ExternalEvent
	err := q.Find(&events).Error
	return events, err
}
