package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

const createThingsTable = `
	CREATE TABLE IF NOT EXISTS frost_things (
		source       TEXT        NOT NULL,
		iot_id       BIGINT      NOT NULL,
		lang         TEXT        NOT NULL,
		translated   BOOLEAN     NOT NULL DEFAULT FALSE,
		run_id       UUID        NOT NULL,
		name         TEXT        NOT NULL,
		payload      JSONB       NOT NULL,
		harvested_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (source, iot_id, lang)
	)
`

// ThingRepository stores harvested Things as JSONB, one row per
// (source, @iot.id, language). The latest harvest wins.
type ThingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThingRepository creates a repository on db.
func NewThingRepository(db *sql.DB, logger *zap.Logger) *ThingRepository {
	return &ThingRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the frost_things table if needed.
func (r *ThingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createThingsTable); err != nil {
		return fmt.Errorf("failed to create frost_things: %w", err)
	}
	return nil
}

// SaveThing upserts rec. The payload is the wire JSON of the Thing.
func (r *ThingRepository) SaveThing(ctx context.Context, rec *models.HarvestRecord) error {
	payload, err := json.Marshal(rec.Thing)
	if err != nil {
		return fmt.Errorf("failed to encode thing %d: %w", rec.Thing.ID, err)
	}

	query := `
		INSERT INTO frost_things (
			source, iot_id, lang, translated, run_id, name, payload, harvested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source, iot_id, lang) DO UPDATE SET
			translated   = EXCLUDED.translated,
			run_id       = EXCLUDED.run_id,
			name         = EXCLUDED.name,
			payload      = EXCLUDED.payload,
			harvested_at = EXCLUDED.harvested_at
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.Source,
		rec.Thing.ID,
		rec.Lang,
		rec.Translated,
		rec.RunID,
		rec.Thing.Name,
		string(payload),
		rec.HarvestAt,
	)
	if err != nil {
		r.logger.Error("Failed to save thing",
			zap.Int64("iot_id", rec.Thing.ID),
			zap.String("lang", rec.Lang),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save thing %d: %w", rec.Thing.ID, err)
	}
	return nil
}

// CountByRun returns how many rows the given run wrote and still owns.
func (r *ThingRepository) CountByRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM frost_things WHERE run_id = $1`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count run %s: %w", runID, err)
	}
	return n, nil
}
