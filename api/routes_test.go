package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Herranzzz/estado/config"
	"github.com/Herranzzz/estado/ctt"
	"github.com/Herranzzz/estado/logging"
	"github.com/Herranzzz/estado/shopify"
	"github.com/Herranzzz/estado/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubShopify struct {
	orders []shopify.Order
}

func (s *stubShopify) ListShippedOrders(_ context.Context) ([]shopify.Order, error) {
	return s.orders, nil
}

func (s *stubShopify) ListFulfillmentEvents(_ context.Context, _, _ int64) ([]shopify.FulfillmentEvent, error) {
	return nil, nil
}

func (s *stubShopify) CreateFulfillmentEvent(_ context.Context, _, _ int64, _ shopify.FulfillmentEvent) error {
	return nil
}

type stubTracker struct {
	started   chan struct{} // when non-nil, closed once the first Track call begins
	block     chan struct{} // when non-nil, Track blocks until closed
	startOnce sync.Once
}

func (s *stubTracker) Track(_ context.Context, _ string) (ctt.Status, error) {
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.block != nil {
		<-s.block
	}
	return ctt.Status{Description: "En reparto"}, nil
}

func setUpRouter(t *testing.T, sync *syncer.Syncer) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)

	routing := Routing{
		ServerName:   "estado-test",
		ParentRouter: router,

		AppConfig: config.ApplicationConfiguration{},
		Syncer:    sync,
	}

	router.Route("/", func(r chi.Router) {
		err := routing.SetupFunctionalRoutes(r)
		assert.NoError(t, err)
	})
	return router
}

func shippedOrder() []shopify.Order {
	return []shopify.Order{{
		ID:           100,
		Name:         "#1001",
		Fulfillments: []shopify.Fulfillment{{ID: 200, TrackingNumbers: []string{"TRK1"}}},
	}}
}

func Test_manualDispatchRunsSync(t *testing.T) {
	sync := &syncer.Syncer{Shopify: &stubShopify{orders: shippedOrder()}, Tracker: &stubTracker{}}
	router := setUpRouter(t, sync)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/sync", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"ordersSeen":1`)
	assert.Contains(t, rr.Body.String(), `"eventsCreated":1`)
}

func Test_lastReportLifecycle(t *testing.T) {
	sync := &syncer.Syncer{Shopify: &stubShopify{}, Tracker: &stubTracker{}}
	router := setUpRouter(t, sync)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/sync/last", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"message":"no sync has completed yet"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/sync", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/sync/last", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ordersSeen":0`)
}

func Test_concurrentDispatchConflicts(t *testing.T) {
	var logBuffer bytes.Buffer
	logging.Setup(&logBuffer)

	tracker := &stubTracker{started: make(chan struct{}), block: make(chan struct{})}
	sync := &syncer.Syncer{Shopify: &stubShopify{orders: shippedOrder()}, Tracker: tracker}
	router := setUpRouter(t, sync)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("POST", "/sync", nil))
		assert.Equal(t, http.StatusAccepted, rr.Code)
	}()

	// Second dispatch while the first is blocked inside the tracker
	<-tracker.started
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/sync", nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already in progress")
	assert.Contains(t, logBuffer.String(), "already in progress")

	close(tracker.block)
	<-firstDone
}
