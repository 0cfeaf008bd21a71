package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeNotificationDelivery JobType = "notification_delivery"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotificationDeliveryPayload contains the payload for notification
// delivery jobs.
type NotificationDeliveryPayload struct {
	NotificationID uint `json:"notification_id"`
}

// ParseNotificationDeliveryPayload extracts the typed payload of a
// notification delivery job.
func (j *Job) ParseNotificationDeliveryPayload() (*NotificationDeliveryPayload, error) {
	raw, err := json.Marshal(j.Payload)
	if err != nil {
		return nil, err
	}
	var payload NotificationDeliveryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MarkAsProcessing stamps the job as picked up by a worker.
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted stamps the job as successfully finished.
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records the failure reason and bumps the retry counter.
func (j *Job) MarkAsFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying flags the job for another attempt.
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has retry attempts left.
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}
