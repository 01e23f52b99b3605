package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/common/database"
	mqttcommon "github.com/semantic-meta-enrichment/frost-harvester/common/mqtt"
	rediscommon "github.com/semantic-meta-enrichment/frost-harvester/common/redis"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/config"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/export"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/publisher"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/repository"
)

var (
	_ ThingCounter = (*FrostClient)(nil)
	_ RunCounter   = (*repository.ThingRepository)(nil)
)

// BuildHarvestDeps creates the collaborators cfg enables and connects to the
// backing services. On error everything opened so far is closed again.
func BuildHarvestDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (deps HarvestDeps, err error) {
	defer func() {
		if err != nil {
			for i := len(deps.Closers) - 1; i >= 0; i-- {
				_ = deps.Closers[i]()
			}
			deps = HarvestDeps{}
		}
	}()

	deps.Fetcher = NewFrostClient(cfg.Frost.BaseURL, FrostOptions{
		PageDelay:              cfg.Frost.PageDelay,
		Timeout:                cfg.Frost.Timeout,
		ExpandObservedProperty: cfg.Frost.ExpandObservedProperty,
	}, logger)

	if cfg.Translation.Enabled {
		deps.Translator = NewTranslationClient(cfg.Translation.Endpoint, TranslationOptions{
			Source:  cfg.Translation.Source,
			Target:  cfg.Translation.Target,
			APIKey:  cfg.Translation.APIKey,
			Timeout: cfg.Translation.Timeout,
		}, logger)
	}

	if cfg.Harvest.StoreEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return deps, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.Closers = append(deps.Closers, func() error { return database.Close(db) })

		repo := repository.NewThingRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return deps, err
		}
		deps.Store = repo
	}

	if cfg.Harvest.Stream != "" {
		client := rediscommon.NewRedisClient(&cfg.Redis)
		deps.Closers = append(deps.Closers, func() error { return rediscommon.Close(client) })
		if err := rediscommon.Ping(ctx, client); err != nil {
			return deps, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Sinks = append(deps.Sinks,
			publisher.NewStreamPublisher(client, cfg.Harvest.Stream, cfg.Harvest.StreamMaxLen, logger))
	}

	if cfg.Harvest.MQTTTopic != "" {
		client, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			return deps, err
		}
		deps.Closers = append(deps.Closers, func() error {
			client.Disconnect()
			return nil
		})
		deps.Sinks = append(deps.Sinks,
			publisher.NewMQTTPublisher(client, cfg.Harvest.MQTTTopic, logger))
	}

	if cfg.Harvest.ExportPath != "" {
		deps.Exporter = export.NewExcelExporter(cfg.Harvest.ExportPath, logger)
	}

	return deps, nil
}
