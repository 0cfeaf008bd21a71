package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/internal/pkg/jobqueue"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Message is one outbound notification to a customer or partner contact.
type Message struct {
	Recipient   string
	Kind        string
	Subject     string
	Body        string
	ReferenceID uint
}

// Notifier is the outbound notification queue the reconciler and event
// handlers enqueue to. Enqueue must be durable; delivery happens elsewhere.
type Notifier interface {
	Enqueue(ctx context.Context, msg Message) error
}

// QueueNotifier persists notifications as rows and hands delivery to the
// background job queue. The row insert is the durable part; a failed job
// enqueue only delays delivery, it never loses the message.
type QueueNotifier struct {
	db *gorm.DB
}

// NewQueueNotifier creates a notifier backed by the database and job queue.
func NewQueueNotifier(db *gorm.DB) *QueueNotifier {
	return &QueueNotifier{db: db}
}

func (n *QueueNotifier) Enqueue(ctx context.Context, msg Message) error {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return errors.New("notification recipient is required")
	}
	if strings.TrimSpace(msg.Kind) == "" {
		return errors.New("notification kind is required")
	}

	row := &models.Notification{
		Recipient:   recipient,
		Kind:        msg.Kind,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Status:      models.NotificationStatusQueued,
		ReferenceID: msg.ReferenceID,
	}
	if err := n.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}

	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeNotificationDelivery, map[string]interface{}{
		"notification_id": row.ID,
	}); err != nil {
		// The row is already queued; the pending sweeper will pick it up.
		log.Errorf("[Notify] Failed to enqueue delivery job for notification %d: %v", row.ID, err)
	}
	return nil
}
