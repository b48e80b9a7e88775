package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Herranzzz/estado/ctt"
	gotel "github.com/Herranzzz/estado/otel"
	"github.com/Herranzzz/estado/shopify"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// ErrSyncInProgress One run per trigger: a trigger arriving mid-run is rejected, not queued
var ErrSyncInProgress = errors.New("a sync run is already in progress")

type ShopifyAPI interface {
	ListShippedOrders(ctx context.Context) ([]shopify.Order, error)
	ListFulfillmentEvents(ctx context.Context, orderID, fulfillmentID int64) ([]shopify.FulfillmentEvent, error)
	CreateFulfillmentEvent(ctx context.Context, orderID, fulfillmentID int64, event shopify.FulfillmentEvent) error
}

type Tracker interface {
	Track(ctx context.Context, trackingNumber string) (ctt.Status, error)
}

// Syncer drives one full pass: shipped orders -> fulfillments -> tracking numbers ->
// carrier status -> idempotent Shopify fulfillment events
type Syncer struct {
	Shopify     ShopifyAPI
	Tracker     Tracker
	EnableTrace bool

	runLock sync.Mutex

	lastLock sync.RWMutex
	last     *Report
	lastErr  error
}

type Report struct {
	StartedAt        time.Time `json:"startedAt"`
	DurationMillis   int64     `json:"durationMillis"`
	OrdersSeen       int       `json:"ordersSeen"`
	FulfillmentsSeen int       `json:"fulfillmentsSeen"`
	EventsCreated    int       `json:"eventsCreated"`
	Skipped          int       `json:"skipped"`
	Errors           int       `json:"errors"`
}

func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	if !s.runLock.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runLock.Unlock()

	if s.EnableTrace {
		var span trace.Span
		ctx, span = gotel.GetTracer(ctx).Start(ctx, "sync-run", gotel.ServerOptions)
		defer span.End()
	}

	report := &Report{StartedAt: time.Now().UTC()}

	orders, err := s.Shopify.ListShippedOrders(ctx)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		s.setLast(nil, err)
		return nil, err
	}

	for _, order := range orders {
		report.OrdersSeen++
		for _, fulfillment := range order.Fulfillments {
			report.FulfillmentsSeen++
			s.syncFulfillment(ctx, order, fulfillment, report)
		}
	}

	report.DurationMillis = time.Since(report.StartedAt).Milliseconds()

	runsTotal.WithLabelValues("completed").Inc()
	runDuration.Set(float64(report.DurationMillis) / 1000)
	ordersSeenTotal.Add(float64(report.OrdersSeen))
	eventsCreatedTotal.Add(float64(report.EventsCreated))
	skipsTotal.Add(float64(report.Skipped))
	errorsTotal.Add(float64(report.Errors))

	s.setLast(report, nil)

	log.Info().
		Int("orders", report.OrdersSeen).
		Int("fulfillments", report.FulfillmentsSeen).
		Int("created", report.EventsCreated).
		Int("skipped", report.Skipped).
		Int("errors", report.Errors).
		Msgf("Sync completed in %dms", report.DurationMillis)

	return report, nil
}

func (s *Syncer) syncFulfillment(ctx context.Context, order shopify.Order, fulfillment shopify.Fulfillment, report *Report) {
	if len(fulfillment.TrackingNumbers) == 0 {
		return
	}

	if s.EnableTrace {
		var span trace.Span
		ctx, span = gotel.GetTracer(ctx).Start(ctx, "sync-fulfillment", gotel.ServerOptions)
		defer span.End()
	}

	events, err := s.Shopify.ListFulfillmentEvents(ctx, order.ID, fulfillment.ID)
	if err != nil {
		report.Errors++
		log.Error().Err(err).Msgf("Listing events failed for %d/%d", order.ID, fulfillment.ID)
		return
	}

	emitted := hashset.New()
	for _, event := range events {
		emitted.Add(event.Status)
	}

	// A delivered fulfillment is terminal - never touched again
	if emitted.Contains(ctt.EventDelivered) {
		report.Skipped++
		log.Debug().Msgf("Skipping %d/%d: already delivered", order.ID, fulfillment.ID)
		return
	}

	for _, trackingNumber := range fulfillment.TrackingNumbers {
		status, err := s.Tracker.Track(ctx, trackingNumber)
		if err != nil {
			report.Errors++
			log.Error().Err(err).Msgf("Tracking lookup failed for %s (order %s)", trackingNumber, order.Name)
			continue
		}

		if status.Description == ctt.StatusNoEvents || status.Description == ctt.StatusUnknown {
			report.Skipped++
			continue
		}

		mapped, ok := ctt.MapStatus(status.Description)
		if !ok {
			report.Skipped++
			log.Info().Msgf("Ambiguous CTT status for %d/%d, no event created: %s", order.ID, fulfillment.ID, status.Description)
			continue
		}

		if emitted.Contains(mapped) {
			report.Skipped++
			log.Debug().Msgf("Skipping %d/%d: event '%s' already exists", order.ID, fulfillment.ID, mapped)
			continue
		}

		event := shopify.FulfillmentEvent{
			Status:  mapped,
			Message: "CTT: " + status.Description,
		}
		if happenedAt, ok := parseEventDate(status.EventDate); ok {
			event.HappenedAt = &happenedAt
		}

		if err := s.Shopify.CreateFulfillmentEvent(ctx, order.ID, fulfillment.ID, event); err != nil {
			report.Errors++
			log.Error().Err(err).Msgf("Creating '%s' event failed for %d/%d", mapped, order.ID, fulfillment.ID)
			continue
		}

		emitted.Add(mapped)
		report.EventsCreated++
		log.Info().Msgf("Created '%s' event for %d/%d (%s)", mapped, order.ID, fulfillment.ID, trackingNumber)
	}
}

// LastReport returns the most recent completed run, or nil before the first one
func (s *Syncer) LastReport() *Report {
	s.lastLock.RLock()
	defer s.lastLock.RUnlock()
	return s.last
}

// ReadinessCheck reports the outcome of the most recent run attempt.
// Healthy until a run fails outright; recovers on the next completed run.
func (s *Syncer) ReadinessCheck() func() error {
	return func() error {
		s.lastLock.RLock()
		defer s.lastLock.RUnlock()
		return s.lastErr
	}
}

func (s *Syncer) setLast(report *Report, err error) {
	s.lastLock.Lock()
	defer s.lastLock.Unlock()
	if report != nil {
		s.last = report
	}
	s.lastErr = err
}
