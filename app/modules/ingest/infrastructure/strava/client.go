package stravaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint labels used for metrics and errors.
const (
	EndpointActivities = "activities"
	EndpointActivity   = "activity"
	EndpointSegment    = "segment"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Metrics records upstream request outcomes.
type Metrics interface {
	RecordExternalRequest(ctx context.Context, endpoint string, status int)
	RecordRateLimited(ctx context.Context, endpoint string)
}

// Client calls the activity provider's REST API with a per-athlete bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    Metrics
}

// NewClient creates a Client. timeout bounds every request end to end.
func NewClient(baseURL string, timeout time.Duration, metrics Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

// ListActivities returns one page of the athlete's activities in the window.
func (c *Client) ListActivities(ctx context.Context, token string, q ActivityQuery) ([]Activity, error) {
	params := url.Values{}
	params.Set("after", strconv.FormatInt(q.After, 10))
	params.Set("before", strconv.FormatInt(q.Before, 10))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	if q.IncludeAllEfforts {
		params.Set("include_all_efforts", "true")
	}

	var activities []Activity
	if err := c.get(ctx, token, EndpointActivities, "/athlete/activities", params, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivity returns the detailed activity including its segment efforts.
func (c *Client) GetActivity(ctx context.Context, token string, activityID int64) (*Activity, error) {
	params := url.Values{}
	params.Set("include_all_efforts", "true")

	var activity Activity
	if err := c.get(ctx, token, EndpointActivity, "/activities/"+strconv.FormatInt(activityID, 10), params, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetSegment returns segment detail.
func (c *Client) GetSegment(ctx context.Context, token string, segmentID int64) (*Segment, error) {
	var segment Segment
	if err := c.get(ctx, token, EndpointSegment, "/segments/"+strconv.FormatInt(segmentID, 10), nil, &segment); err != nil {
		return nil, err
	}
	return &segment, nil
}

func (c *Client) get(ctx context.Context, token, endpoint, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("strava %s: failed to build request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(ctx, endpoint, 0)
		return fmt.Errorf("strava %s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.recordRequest(ctx, endpoint, resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		if c.metrics != nil {
			c.metrics.RecordRateLimited(ctx, endpoint)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("strava %s: %w", endpoint, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("strava %s: failed to decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) recordRequest(ctx context.Context, endpoint string, status int) {
	if c.metrics != nil {
		c.metrics.RecordExternalRequest(ctx, endpoint, status)
	}
}
