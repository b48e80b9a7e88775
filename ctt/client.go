package ctt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Sentinel descriptions for trackings the carrier has nothing useful to say about yet
const (
	StatusNoEvents = "Sin eventos"
	StatusUnknown  = "Estado desconocido"
)

const trackingPlaceholder = "{tracking}"

type Status struct {
	Description string
	EventDate   string
}

type Options struct {
	// Endpoint is a template containing a {tracking} placeholder, e.g.
	// https://wct.cttexpress.com/p_track_redis.php?sc={tracking}
	Endpoint     string
	ExtraHeaders map[string]string
	Timeout      time.Duration
}

type Client struct {
	endpoint     string
	extraHeaders map[string]string
	httpClient   *http.Client
}

func New(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = opts.Timeout

	return &Client{
		endpoint:     strings.TrimSpace(opts.Endpoint),
		extraHeaders: opts.ExtraHeaders,
		httpClient:   rc.StandardClient(),
	}
}

// ParseExtraHeaders parses the "Header1:Value1|Header2:Value2" form carried by
// the CTT_HEADERS_EXTRA environment variable. Malformed segments are dropped.
func ParseExtraHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, "|") {
		k, v, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

type trackResponse struct {
	Data struct {
		ShippingHistory struct {
			Events []trackEvent `json:"events"`
		} `json:"shipping_history"`
	} `json:"data"`
}

type trackEvent struct {
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
}

// Track fetches the latest carrier event for a tracking number. A shipment with
// an empty history yields StatusNoEvents; a last event with a blank description
// yields StatusUnknown.
func (c *Client) Track(ctx context.Context, trackingNumber string) (Status, error) {
	target := strings.ReplaceAll(c.endpoint, trackingPlaceholder, trackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("ctt tracking %s: %w", trackingNumber, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Status{}, fmt.Errorf("ctt tracking %s: status %d", trackingNumber, resp.StatusCode)
	}

	var parsed trackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Status{}, fmt.Errorf("ctt tracking %s: unparseable response: %w", trackingNumber, err)
	}

	events := parsed.Data.ShippingHistory.Events
	if len(events) == 0 {
		return Status{Description: StatusNoEvents}, nil
	}

	last := events[len(events)-1]
	description := strings.TrimSpace(last.Description)
	if description == "" {
		description = StatusUnknown
	}
	return Status{Description: description, EventDate: last.EventDate}, nil
}
