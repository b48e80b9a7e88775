package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"codnect.io/chrono"
	"github.com/Herranzzz/estado/api"
	"github.com/Herranzzz/estado/config"
	"github.com/Herranzzz/estado/ctt"
	"github.com/Herranzzz/estado/health"
	"github.com/Herranzzz/estado/logging"
	"github.com/Herranzzz/estado/shopify"
	"github.com/Herranzzz/estado/syncer"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"
)

const serviceName = "estado"

var envConfig = config.Configuration{}

func main() {
	if err := env.Parse(&envConfig); err != nil {
		log.Fatal().Msgf("Configuration loading failed: %+v", err)
	}

	appConfig := config.ApplicationConfiguration{}
	readConfig(envConfig.ApplicationConfigFileYmlPath, &appConfig)

	logging.Setup(os.Stdout)

	if err := envConfig.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	////////////////////////////////////////////

	traceShutdown, e := setupTracing(ctx, appConfig)
	if e != nil {
		log.Fatal().Stack().Err(e).Msg("Trace setup failed")
	}
	defer traceShutdown()

	////////////////////////////////////////////

	shopifyClient := shopify.New(shopify.Options{
		StoreDomain: envConfig.ShopifyStoreDomain,
		AccessToken: envConfig.ShopifyAccessToken,
		APIVersion:  envConfig.ShopifyApiVersion,
		PageLimit:   envConfig.OrdersLimit,
		MaxPages:    appConfig.Sync.MaxPages,
		Timeout:     envConfig.RequestTimeout(),
	})

	tracker := ctt.New(ctt.Options{
		Endpoint:     envConfig.CttTrackingEndpoint,
		ExtraHeaders: ctt.ParseExtraHeaders(envConfig.CttHeadersExtra),
		Timeout:      envConfig.RequestTimeout(),
	})

	sync := &syncer.Syncer{
		Shopify:     shopifyClient,
		Tracker:     tracker,
		EnableTrace: appConfig.Tracing.Enabled,
	}

	if err := scheduleSync(ctx, appConfig, sync); err != nil {
		log.Fatal().Stack().Err(err).Msg("Scheduler setup failed")
	}

	router := setupRouter(appConfig, sync)
	setupHealthCheck(router, sync)

	////////////////////////////////////////////

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if appConfig.Server.Port == 0 {
			appConfig.Server.Port = 80
		}
		port := fmt.Sprintf(":%d", appConfig.Server.Port)
		log.Info().Msgf("Listening on %s", port)
		if err := http.ListenAndServe(port, router); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("startup failed")
	}
}

func readConfig(filePath string, config *config.ApplicationConfiguration) {
	yamlFile, err := os.ReadFile(filePath)
	if err == nil {
		log.Debug().Msgf("Loading YAML config from %s", filePath)
		err = yaml.Unmarshal(yamlFile, config)
		if err != nil {
			log.Fatal().Stack().Err(err).Msg("Unmarshal")
		}
	} else {
		log.Printf("No config file found: %s", filePath)
	}
}

func scheduleSync(ctx context.Context, appConfig config.ApplicationConfiguration, sync *syncer.Syncer) error {
	if appConfig.Sync.RunOnStart {
		if _, err := sync.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Initial sync failed")
		}
	}

	scheduler := chrono.NewDefaultTaskScheduler()

	period := appConfig.Sync.Interval()
	log.Info().Msgf("Scheduling sync every %v", period)

	_, err := scheduler.ScheduleAtFixedRate(func(taskCtx context.Context) {
		if _, err := sync.Run(taskCtx); err != nil {
			if errors.Is(err, syncer.ErrSyncInProgress) {
				log.Warn().Msg("Previous sync still running, tick skipped")
			} else {
				log.Error().Err(err).Msg("Sync failed")
			}
		}
	}, period)

	return err
}

var emptyShutdown = func() {}

func setupTracing(ctx context.Context, config config.ApplicationConfiguration) (func(), error) {
	if !config.Tracing.Enabled {
		return emptyShutdown, nil
	}

	if config.Tracing.Endpoint == "" {
		return emptyShutdown, fmt.Errorf("missing tracing endpoint")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("failed to create resource")
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpoint(config.Tracing.Endpoint),
	)
	if err != nil {
		return emptyShutdown, fmt.Errorf("failed to create trace exporter %v", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.Tracing.SamplerFraction)),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info().Msgf("OpenTelemetry export is enabled, to: %s", config.Tracing.Endpoint)

	return func() {
		if err = tracerProvider.Shutdown(ctx); err != nil {
			log.Fatal().Stack().Err(err).Msg("failed to shutdown TracerProvider")
		}
	}, nil
}

func setupRouter(config config.ApplicationConfiguration, sync *syncer.Syncer) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(httplog.RequestLogger(httplog.NewLogger(serviceName, httplog.Options{JSON: true, Concise: true})))

	routing := api.Routing{
		ServerName:   serviceName,
		ParentRouter: router,

		AppConfig: config,
		Syncer:    sync,
	}

	router.Route("/", func(r chi.Router) {
		if e := routing.SetupFunctionalRoutes(r); e != nil {
			log.Fatal().Stack().Err(e).Msg("route setup failed")
		}
	})

	if len(config.Prometheus.Path) > 0 {
		log.Info().Msgf("Registering metrics endpoint at: %s", config.Prometheus.Path)
		router.Handle(config.Prometheus.Path, promhttp.Handler())
	}

	return router
}

func setupHealthCheck(router *chi.Mux, sync *syncer.Syncer) {
	healthChk := health.New(health.WithChiMux(router))
	healthChk.AddReadinessCheck("shopify-sync", sync.ReadinessCheck())
	healthChk.StartListening()
}
