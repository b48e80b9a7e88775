package shopify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Fulfillments      []Fulfillment   `json:"fulfillments"`
}

type Fulfillment struct {
	ID              int64    `json:"id"`
	OrderID         int64    `json:"order_id"`
	Status          string   `json:"status"`
	TrackingCompany string   `json:"tracking_company"`
	TrackingNumbers []string `json:"tracking_numbers"`
}

type FulfillmentEvent struct {
	ID         int64      `json:"id,omitempty"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	HappenedAt *time.Time `json:"happened_at,omitempty"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

type eventsResponse struct {
	FulfillmentEvents []FulfillmentEvent `json:"fulfillment_events"`
}

type eventEnvelope struct {
	FulfillmentEvent FulfillmentEvent `json:"fulfillment_event"`
}

// APIError is returned for any non-2xx Shopify Admin API response that survives retries
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API returned status %d: %s", e.Status, e.Body)
}
