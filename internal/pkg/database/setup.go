package database

import (
	"fmt"
	"log"
	"time"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the global database handle.
var DB *gorm.DB

// GetDB returns the global database handle.
func GetDB() *gorm.DB {
	return DB
}

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			// Unique-index violations surface as gorm.ErrDuplicatedKey so
			// callers can treat lost races as conflicts, not failures.
			TranslateError: true,
		})
		if err == nil {
			DB.AutoMigrate(
				&models.ExternalEvent{},
				&models.Account{},
				&models.Partner{},
				&models.Offer{},
				&models.OfferVariant{},
				&models.Booking{},
				&models.Payout{},
				&models.PayoutItem{},
				&models.Notification{},
			)

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
