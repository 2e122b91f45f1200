// Package app wires configuration into a ready-to-open intake service.
package app

import (
	"context"
	"errors"
	"log/slog"

	kafkaadapter "github.com/couchcryptid/case-intake/internal/adapter/kafka"
	"github.com/couchcryptid/case-intake/internal/adapter/jsonfile"
	"github.com/couchcryptid/case-intake/internal/adapter/mapbox"
	"github.com/couchcryptid/case-intake/internal/config"
	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/intake"
	"github.com/couchcryptid/case-intake/internal/observability"
	"github.com/couchcryptid/case-intake/internal/store"
)

// App holds the intake service and the adapters it owns.
type App struct {
	Service *intake.Service
	File    *jsonfile.File

	publisher *kafkaadapter.Publisher
	logger    *slog.Logger
}

// New builds the service for cfg. Geocoding and case events are wired only
// when enabled in cfg. The returned service is not yet opened.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *App {
	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	a := &App{
		File:   jsonfile.New(cfg.CasesFile),
		logger: logger,
	}

	// A nil *Publisher must not reach the service as a non-nil interface.
	var publisher intake.Publisher
	if cfg.KafkaEnabled {
		a.publisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = a.publisher
		logger.Info("case events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaCaseTopic)
	}

	a.Service = intake.New(store.New(), a.File, publisher, geocoder, logger, metrics)
	return a
}

// Close saves the store a final time and releases the publisher.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Service.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
