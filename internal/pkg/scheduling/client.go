package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bookfox/bookfox/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.scheduler.example.com"

// EventDetail is the provider's record of one scheduled event. The webhook
// payload only carries the booking-creation time; the actual appointment
// time has to be fetched from here.
type EventDetail struct {
	StartTime time.Time
	EndTime   time.Time
	Status    string
}

// EventFetcher fetches scheduled-event detail from the scheduling provider.
type EventFetcher interface {
	FetchEvent(ctx context.Context, apiToken, eventRef string) (*EventDetail, error)
}

// Client talks to the scheduling provider's REST API with a per-partner
// token.
type Client struct {
	APIBaseURL string
	HTTPClient *http.Client
}

// NewClientFromEnv builds the scheduling API client from environment
// configuration.
func NewClientFromEnv() *Client {
	return &Client{
		APIBaseURL: strings.TrimRight(env.GetEnv("SCHEDULING_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type eventResponse struct {
	Resource struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
		Status    string    `json:"status"`
	} `json:"resource"`
}

// FetchEvent loads the scheduled event behind eventRef. eventRef may be an
// absolute provider URI (the usual webhook form) or a path below the API
// base URL.
func (c *Client) FetchEvent(ctx context.Context, apiToken, eventRef string) (*EventDetail, error) {
	token := strings.TrimSpace(apiToken)
	if token == "" {
		return nil, errors.New("scheduling api token is required")
	}
	ref := strings.TrimSpace(eventRef)
	if ref == "" {
		return nil, errors.New("event reference is required")
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		ref = c.APIBaseURL + "/" + strings.TrimLeft(ref, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheduling event fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scheduling event fetch returned status %d", resp.StatusCode)
	}

	var parsed eventResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid scheduling event response: %w", err)
	}
	if parsed.Resource.StartTime.IsZero() {
		return nil, errors.New("scheduling event response is missing start_time")
	}

	return &EventDetail{
		StartTime: parsed.Resource.StartTime,
		EndTime:   parsed.Resource.EndTime,
		Status:    parsed.Resource.Status,
	}, nil
}
