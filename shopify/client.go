package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	applicationJSON  = "application/json"
	defaultPageLimit = 50
	defaultMaxPages  = 5
)

type Options struct {
	StoreDomain string
	AccessToken string
	APIVersion  string

	PageLimit int
	MaxPages  int
	Timeout   time.Duration

	// BaseURL, when set, replaces the https://{domain}/admin/api/{version} prefix
	BaseURL string
}

// Client is a minimal Shopify Admin REST client covering the order/fulfillment-event surface
type Client struct {
	baseURL    string
	token      string
	pageLimit  int
	maxPages   int
	httpClient *http.Client
}

func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s/admin/api/%s", opts.StoreDomain, opts.APIVersion)
	}

	pageLimit := opts.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		token:      opts.AccessToken,
		pageLimit:  pageLimit,
		maxPages:   maxPages,
		httpClient: newRetryingClient(opts.Timeout),
	}
}

// newRetryingClient Backoff honours Retry-After, so Shopify 429s are waited out rather than failed
func newRetryingClient(timeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	return rc.StandardClient()
}

// ListShippedOrders Orders with fulfillment_status 'shipped' - the ones whose fulfillments carry tracking.
// Follows `Link` header cursors, most recent first, up to the configured page cap.
func (c *Client) ListShippedOrders(ctx context.Context) ([]Order, error) {
	params := url.Values{}
	params.Set("status", "any")
	params.Set("fulfillment_status", "shipped")
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("order", "created_at desc")

	var all []Order
	for page := 0; page < c.maxPages; page++ {
		var out ordersResponse
		hdr, err := c.get(ctx, "orders.json", params, &out)
		if err != nil {
			return nil, err
		}
		all = append(all, out.Orders...)

		next := nextPageInfo(hdr.Get("Link"))
		if next == "" || len(out.Orders) == 0 {
			break
		}

		// Cursor pages accept only limit + page_info
		params = url.Values{}
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("page_info", next)
	}
	return all, nil
}

func (c *Client) ListFulfillmentEvents(ctx context.Context, orderID, fulfillmentID int64) ([]FulfillmentEvent, error) {
	var out eventsResponse
	path := fmt.Sprintf("orders/%d/fulfillments/%d/events.json", orderID, fulfillmentID)
	if _, err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.FulfillmentEvents, nil
}

func (c *Client) CreateFulfillmentEvent(ctx context.Context, orderID, fulfillmentID int64, event FulfillmentEvent) error {
	path := fmt.Sprintf("orders/%d/fulfillments/%d/events.json", orderID, fulfillmentID)
	return c.post(ctx, path, eventEnvelope{FulfillmentEvent: event})
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) (http.Header, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("shopify GET %s: unparseable response: %w", path, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	bs, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(bs))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shopify POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", applicationJSON)
	req.Header.Set("Accept", applicationJSON)
}
