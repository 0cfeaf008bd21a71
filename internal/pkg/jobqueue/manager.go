package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/bookfox/bookfox/app/models"
	"github.com/bookfox/bookfox/internal/pkg/database"
	"github.com/bookfox/bookfox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	pendingTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Requeue notification rows whose delivery job was lost
	m.pendingTicker = time.NewTicker(5 * time.Minute)
	m.wg.Add(1)
	go m.pendingNotificationWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.pendingTicker != nil {
		m.pendingTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped")
}

// pendingNotificationWorker periodically re-enqueues delivery jobs for
// notification rows that have sat queued for too long. The delivery
// processor skips rows that were sent in the meantime, so double enqueues
// are harmless.
func (m *Manager) pendingNotificationWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.pendingTicker.C:
			m.requeueStaleNotifications(10 * time.Minute)
		}
	}
}

func (m *Manager) requeueStaleNotifications(minAge time.Duration) {
	db := database.GetDB()
	if db == nil {
		return
	}

	cutoff := time.Now().Add(-minAge)
	var rows []models.Notification
	err := db.
		Where("status = ? AND updated_at < ?", models.NotificationStatusQueued, cutoff).
		Limit(100).
		Find(&rows).Error
	if err != nil {
		log.Errorf("[JobQueue Manager] Failed to scan stale notifications: %v", err)
		return
	}

	for _, row := range rows {
		if _, err := m.queue.EnqueueJob(JobTypeNotificationDelivery, map[string]interface{}{
			"notification_id": row.ID,
		}); err != nil {
			log.Errorf("[JobQueue Manager] Failed to requeue notification %d: %v", row.ID, err)
			continue
		}
		// Touch the row so the next sweep does not grab it again right away.
		_ = db.Model(&models.Notification{}).Where("id = ?", row.ID).
			Update("updated_at", time.Now()).Error
	}
	if len(rows) > 0 {
		log.Infof("[JobQueue Manager] Requeued %d stale notifications", len(rows))
	}
}
