package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/config"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

// ThingFetcher lists Things from a SensorThings server.
type ThingFetcher interface {
	FetchThings(ctx context.Context, limit int) ([]models.Thing, error)
}

// ThingCounter reports how many Things the server holds. Fetchers that
// implement it get the total logged next to each run.
type ThingCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ThingTranslator returns a translated deep copy of a Thing.
type ThingTranslator interface {
	TranslateThing(ctx context.Context, thing *models.Thing) (*models.Thing, error)
}

// ThingStore persists harvest records.
type ThingStore interface {
	SaveThing(ctx context.Context, rec *models.HarvestRecord) error
}

// RunCounter reports how many stored rows a run owns. Stores that implement
// it get the number checked after each run.
type RunCounter interface {
	CountByRun(ctx context.Context, runID string) (int, error)
}

// ThingSink receives every harvest record, e.g. a Redis stream or MQTT.
type ThingSink interface {
	Name() string
	Publish(ctx context.Context, rec *models.HarvestRecord) error
}

// ThingExporter receives all records of a run at once.
type ThingExporter interface {
	Export(ctx context.Context, records []models.HarvestRecord) error
}

// HarvestDeps are the collaborators of a HarvestService. Only Fetcher is
// required; a nil Translator, Store or Exporter disables that step.
type HarvestDeps struct {
	Fetcher    ThingFetcher
	Translator ThingTranslator
	Store      ThingStore
	Sinks      []ThingSink
	Exporter   ThingExporter

	// Closers run on Stop, in reverse order.
	Closers []func() error
}

// HarvestResult summarizes one run.
type HarvestResult struct {
	RunID         string
	ServerTotal   int64 // -1 when the fetcher cannot count
	Fetched       int
	Translated    int
	Stored        int
	Published     int
	PublishErrors int
	StoredRows    int // -1 without a counting store
	Duration      time.Duration
}

// HarvestService fetches Things, optionally translates them and hands the
// records to the configured store, sinks and exporter.
type HarvestService struct {
	config *config.Config
	deps   HarvestDeps
	logger *zap.Logger
	source string
	now    func() time.Time
}

// NewHarvestService creates a service around deps.
func NewHarvestService(cfg *config.Config, deps HarvestDeps, logger *zap.Logger) (*HarvestService, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("harvest service needs a fetcher")
	}
	return &HarvestService{
		config: cfg,
		deps:   deps,
		logger: logger,
		source: strings.TrimRight(cfg.Frost.BaseURL, "/"),
		now:    time.Now,
	}, nil
}

// Start runs a harvest. With a zero interval it runs once and returns the
// run's error; otherwise it harvests immediately and then on every tick
// until ctx is done, logging failed runs.
func (s *HarvestService) Start(ctx context.Context) error {
	interval := s.config.Harvest.Interval

	s.logger.Info("Starting harvest service",
		zap.String("source", s.source),
		zap.Int("fetch_limit", s.config.Frost.FetchLimit),
		zap.Bool("translation_enabled", s.deps.Translator != nil),
		zap.Bool("store_enabled", s.deps.Store != nil),
		zap.Int("sinks", len(s.deps.Sinks)),
		zap.Duration("interval", interval),
	)

	if interval <= 0 {
		_, err := s.RunOnce(ctx)
		return err
	}
	return s.startPollingMode(ctx, interval)
}

func (s *HarvestService) startPollingMode(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Harvest run failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Harvest run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single harvest run.
//
// Fetch, translation, store and export errors abort the run. Sink errors are
// logged and counted in PublishErrors.
func (s *HarvestService) RunOnce(ctx context.Context) (*HarvestResult, error) {
	started := s.now()
	result := &HarvestResult{
		RunID:       uuid.NewString(),
		ServerTotal: -1,
		StoredRows:  -1,
	}
	logger := s.logger.With(zap.String("run_id", result.RunID))

	logger.Info("Harvest run started")

	if counter, ok := s.deps.Fetcher.(ThingCounter); ok {
		total, err := counter.Count(ctx)
		if err != nil {
			logger.Warn("Failed to count Things on server", zap.Error(err))
		} else {
			result.ServerTotal = total
		}
	}

	things, err := s.deps.Fetcher.FetchThings(ctx, s.config.Frost.FetchLimit)
	if err != nil {
		return result, fmt.Errorf("fetch things: %w", err)
	}
	result.Fetched = len(things)

	var exported []models.HarvestRecord
	harvestedAt := started.UTC()

	for i := range things {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records := []models.HarvestRecord{{
			RunID:     result.RunID,
			Source:    s.source,
			Lang:      s.config.Translation.Source,
			HarvestAt: harvestedAt,
			Thing:     things[i],
		}}

		if s.deps.Translator != nil {
			translated, err := s.deps.Translator.TranslateThing(ctx, &things[i])
			if err != nil {
				return result, fmt.Errorf("translate: %w", err)
			}
			result.Translated++
			records = append(records, models.HarvestRecord{
				RunID:      result.RunID,
				Source:     s.source,
				Lang:       s.config.Translation.Target,
				Translated: true,
				HarvestAt:  harvestedAt,
				Thing:      *translated,
			})
		}

		for j := range records {
			rec := &records[j]
			if s.deps.Store != nil {
				if err := s.deps.Store.SaveThing(ctx, rec); err != nil {
					return result, fmt.Errorf("store: %w", err)
				}
				result.Stored++
			}
			s.publish(ctx, logger, rec, result)
		}

		if s.deps.Exporter != nil {
			exported = append(exported, records...)
		}
	}

	if s.deps.Exporter != nil {
		if err := s.deps.Exporter.Export(ctx, exported); err != nil {
			return result, fmt.Errorf("export: %w", err)
		}
	}

	if counter, ok := s.deps.Store.(RunCounter); ok {
		rows, err := counter.CountByRun(ctx, result.RunID)
		if err != nil {
			logger.Warn("Failed to count stored rows", zap.Error(err))
		} else {
			result.StoredRows = rows
			if rows != result.Stored {
				logger.Warn("Stored row count differs from saved records",
					zap.Int("stored", result.Stored),
					zap.Int("stored_rows", rows),
				)
			}
		}
	}

	result.Duration = s.now().Sub(started)
	logger.Info("Harvest run completed",
		zap.Int64("server_total", result.ServerTotal),
		zap.Int("fetched", result.Fetched),
		zap.Int("translated", result.Translated),
		zap.Int("stored", result.Stored),
		zap.Int("published", result.Published),
		zap.Int("publish_errors", result.PublishErrors),
		zap.Int("stored_rows", result.StoredRows),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *HarvestService) publish(ctx context.Context, logger *zap.Logger, rec *models.HarvestRecord, result *HarvestResult) {
	for _, sink := range s.deps.Sinks {
		if err := sink.Publish(ctx, rec); err != nil {
			logger.Warn("Failed to publish thing",
				zap.String("sink", sink.Name()),
				zap.Int64("iot_id", rec.Thing.ID),
				zap.String("lang", rec.Lang),
				zap.Error(err),
			)
			result.PublishErrors++
			continue
		}
		result.Published++
	}
}

// Stop releases the connections opened for the service.
func (s *HarvestService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping harvest service")

	var firstErr error
	for i := len(s.deps.Closers) - 1; i >= 0; i-- {
		if err := s.deps.Closers[i](); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	s.deps.Closers = nil
	return firstErr
}
