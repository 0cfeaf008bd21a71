package repository

import (
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// CreateIfNotExists inserts the account unless one with the same email
// already exists. The unique constraint decides the outcome; a lost insert
// race simply reports created=false with the surviving row.
func (r *accountRepository) CreateIfNotExists(account *models.Account) (bool, *models.Account, error) {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(account)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Account
	if err := r.db.Where("email = ?", account.Email).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail retrieves an account by its email address
func (r *accountRepository) GetByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByCustomerRef resolves the payment provider's customer reference to an
// account.
func (r *accountRepository) GetByCustomerRef(ref string) (*models.Account, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var account models.Account
	err := r.db.Where("external_customer_ref = ?", trimmed).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Update updates an existing account in the database
func (r *accountRepository) Update(account *models.Account) error {
	return r.db.Save(account).Error
}

// UpdateSubscriptionStatus applies a last-write-wins status update.
func (r *accountRepository) UpdateSubscriptionStatus(id uint, status string) error {
	return r.db.Model(&models.Account{}).Where("id = ?", id).
		Update("subscription_status", status).Error
}
