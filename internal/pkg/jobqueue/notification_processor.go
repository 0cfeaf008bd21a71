package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/internal/pkg/database"
	"github.com/bookfox/bookfox/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// processNotificationDeliveryJob delivers one queued notification row via
// SMTP. Delivery failures are job failures (retried by the queue); the row
// itself stays queued until a delivery attempt settles its status, so a
// crashed worker never loses a message.
func (q *Queue) processNotificationDeliveryJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := job.ParseNotificationDeliveryPayload()
	if err != nil {
		return fmt.Errorf("invalid notification delivery payload: %w", err)
	}
	if payload.NotificationID == 0 {
		return errors.New("notification_id is required")
	}

	db := database.GetDB()
	var notification models.Notification
	if err := db.First(&notification, payload.NotificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row gone; nothing to deliver.
			log.Warnf("[JobQueue] Notification %d no longer exists, skipping", payload.NotificationID)
			return nil
		}
		return err
	}
	if notification.Status == models.NotificationStatusSent {
		// Duplicate delivery job; the message already went out.
		return nil
	}

	if err := mail.SendMail(notification.Recipient, notification.Subject, notification.Body); err != nil {
		// Record the failure on the row; a successful retry overwrites it.
		_ = notification.MarkFailed(db, err.Error())
		return err
	}

	return notification.MarkSent(db)
}
