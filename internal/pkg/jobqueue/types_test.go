package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"Pending", JobStatusPending, "pending"},
		{"Processing", JobStatusProcessing, "processing"},
		{"Completed", JobStatusCompleted, "completed"},
		{"Failed", JobStatusFailed, "failed"},
		{"Retrying", JobStatusRetrying, "retrying"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestJob_IsRetryable(t *testing.T) {
	job := &Job{MaxRetries: 3}
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("smtp unavailable")
	assert.True(t, job.IsRetryable())
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "smtp unavailable", job.ErrorMsg)

	job.MarkAsFailed("smtp unavailable")
	job.MarkAsFailed("smtp unavailable")
	assert.False(t, job.IsRetryable())
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
}

func TestParseNotificationDeliveryPayload(t *testing.T) {
	job := &Job{
		Type:    JobTypeNotificationDelivery,
		Payload: map[string]interface{}{"notification_id": float64(42)},
	}

	payload, err := job.ParseNotificationDeliveryPayload()
	require.NoError(t, err)
	assert.Equal(t, uint(42), payload.NotificationID)
}
