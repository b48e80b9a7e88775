package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Herranzzz/estado/ctt"
	"github.com/Herranzzz/estado/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createdEvent struct {
	orderID       int64
	fulfillmentID int64
	event         shopify.FulfillmentEvent
}

type fakeShopify struct {
	orders    []shopify.Order
	events    map[string][]shopify.FulfillmentEvent
	created   []createdEvent
	listErr   error
	createErr error
}

func eventsKey(orderID, fulfillmentID int64) string {
	return fmt.Sprintf("%d/%d", orderID, fulfillmentID)
}

func (f *fakeShopify) ListShippedOrders(_ context.Context) ([]shopify.Order, error) {
	return f.orders, f.listErr
}

func (f *fakeShopify) ListFulfillmentEvents(_ context.Context, orderID, fulfillmentID int64) ([]shopify.FulfillmentEvent, error) {
	return f.events[eventsKey(orderID, fulfillmentID)], nil
}

func (f *fakeShopify) CreateFulfillmentEvent(_ context.Context, orderID, fulfillmentID int64, event shopify.FulfillmentEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, createdEvent{orderID, fulfillmentID, event})
	return nil
}

type fakeTracker struct {
	statuses map[string]ctt.Status
	errs     map[string]error
}

func (f *fakeTracker) Track(_ context.Context, trackingNumber string) (ctt.Status, error) {
	if err := f.errs[trackingNumber]; err != nil {
		return ctt.Status{}, err
	}
	return f.statuses[trackingNumber], nil
}

func singleOrder(trackingNumbers ...string) []shopify.Order {
	return []shopify.Order{{
		ID:   100,
		Name: "#1001",
		Fulfillments: []shopify.Fulfillment{{
			ID:              200,
			OrderID:         100,
			TrackingCompany: "CTT Express",
			TrackingNumbers: trackingNumbers,
		}},
	}}
}

func Test_runCreatesMappedEvent(t *testing.T) {
	shop := &fakeShopify{orders: singleOrder("TRK1")}
	tracker := &fakeTracker{statuses: map[string]ctt.Status{
		"TRK1": {Description: "En reparto", EventDate: "2024-05-02T08:30:00"},
	}}

	s := &Syncer{Shopify: shop, Tracker: tracker}

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.OrdersSeen)
	assert.Equal(t, 1, report.FulfillmentsSeen)
	assert.Equal(t, 1, report.EventsCreated)
	assert.Equal(t, 0, report.Errors)

	require.Len(t, shop.created, 1)
	got := shop.created[0]
	assert.Equal(t, int64(100), got.orderID)
	assert.Equal(t, int64(200), got.fulfillmentID)
	assert.Equal(t, ctt.EventOutForDelivery, got.event.Status)
	assert.Equal(t, "CTT: En reparto", got.event.Message)
	require.NotNil(t, got.event.HappenedAt)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), *got.event.HappenedAt)
}

func Test_runSkipsDeliveredFulfillment(t *testing.T) {
	shop := &fakeShopify{
		orders: singleOrder("TRK1"),
		events: map[string][]shopify.FulfillmentEvent{
			eventsKey(100, 200): {{Status: ctt.EventDelivered}},
		},
	}
	tracker := &fakeTracker{statuses: map[string]ctt.Status{
		"TRK1": {Description: "En reparto"},
	}}

	s := &Syncer{Shopify: shop, Tracker: tracker}

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, shop.created)
	assert.Equal(t, 1, report.Skipped)
}

func Test_runNeverDuplicatesStatus(t *testing.T) {
	shop := &fakeShopify{
		orders: singleOrder("TRK1", "TRK2"),
		events: map[string][]shopify.FulfillmentEvent{
			eventsKey(100, 200): {{Status: ctt.EventConfirmed}},
		},
	}
	tracker := &fakeTracker{statuses: map[string]ctt.Status{
		"TRK1": {Description: "Admitido"},    // confirmed - already present
		"TRK2": {Description: "En tránsito"}, // in_transit - new
	}}

	s := &Syncer{Shopify: shop, Tracker: tracker}

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, shop.created, 1)
	assert.Equal(t, ctt.EventInTransit, shop.created[0].event.Status)
	assert.Equal(t, 1, report.EventsCreated)
	assert.Equal(t, 1, report.Skipped)
}

func Test_runSkipsAmbiguousAndSentinelStatuses(t *testing.T) {
	shop := &fakeShopify{orders: singleOrder("TRK1", "TRK2", "TRK3")}
	tracker := &fakeTracker{statuses: map[string]ctt.Status{
		"TRK1": {Description: "Preaviso"},
		"TRK2": {Description: ctt.StatusNoEvents},
		"TRK3": {Description: ctt.StatusUnknown},
	}}

	s := &Syncer{Shopify: shop, Tracker: tracker}

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, shop.created)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 0, report.Errors)
}

func Test_runTrackingErrorDoesNotAbort(t *testing.T) {
	shop := &fakeShopify{orders: singleOrder("BAD", "TRK2")}
	tracker := &fakeTracker{
		statuses: map[string]ctt.Status{"TRK2": {Description: "En reparto"}},
		errs:     map[string]error{"BAD": errors.New("carrier unavailable")},
	}

	s := &Syncer{Shopify: shop, Tracker: tracker}

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.EventsCreated)
	require.Len(t, shop.created, 1)
}

func Test_runListFailureReportedByReadiness(t *testing.T) {
	shop := &fakeShopify{listErr: errors.New("401 unauthorized")}
	s := &Syncer{Shopify: shop, Tracker: &fakeTracker{}}

	_, err := s.Run(context.Background())
	require.Error(t, err)

	assert.Error(t, s.ReadinessCheck()())
	assert.Nil(t, s.LastReport())

	// Recovery on the next completed run
	shop.listErr = nil
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.ReadinessCheck()())
	assert.NotNil(t, s.LastReport())
}

type blockingTracker struct {
	startOnce sync.Once
	started   chan struct{}
	release   chan struct{}
}

func (b *blockingTracker) Track(_ context.Context, _ string) (ctt.Status, error) {
	b.startOnce.Do(func() { close(b.started) })
	<-b.release
	return ctt.Status{Description: "En reparto"}, nil
}

func Test_runIsSingleFlight(t *testing.T) {
	tracker := &blockingTracker{started: make(chan struct{}), release: make(chan struct{})}
	s := &Syncer{Shopify: &fakeShopify{orders: singleOrder("TRK1")}, Tracker: tracker}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Run(context.Background())
	}()

	<-tracker.started

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(tracker.release)
	<-done

	// Lock released, a new run is accepted again
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)
}
