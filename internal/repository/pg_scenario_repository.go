package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"simulation-server/internal/models"
	"simulation-server/internal/scenario"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ scenario.Source = (*PgScenarioRepository)(nil)

const (
	getScenarioContentQuery = `SELECT content FROM scenarios WHERE id = $1`
	listScenariosQuery      = `SELECT id, version, COALESCE(content->'meta', '{}'::jsonb) AS meta FROM scenarios ORDER BY id`
	upsertScenarioQuery     = `
        INSERT INTO scenarios (id, version, content)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET
            version = EXCLUDED.version,
            content = EXCLUDED.content,
            updated_at = NOW()
    `
)

// PgScenarioRepository читает и сохраняет сценарии в таблице scenarios.
type PgScenarioRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgScenarioRepository создает репозиторий сценариев.
func NewPgScenarioRepository(db DBTX, logger *zap.Logger) *PgScenarioRepository {
	return &PgScenarioRepository{
		db:     db,
		logger: logger.Named("PgScenarioRepo"),
	}
}

// Load загружает и проверяет сценарий по идентификатору.
func (r *PgScenarioRepository) Load(ctx context.Context, id string) (*models.Scenario, error) {
	if scenario.ValidateID(id) != nil {
		return nil, fmt.Errorf("%w: '%s'", models.ErrScenarioNotFound, id)
	}
	var content []byte
	err := r.db.QueryRow(ctx, getScenarioContentQuery, id).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: '%s'", models.ErrScenarioNotFound, id)
		}
		r.logger.Error("Failed to load scenario", zap.String("scenario_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load scenario %s: %w", id, err)
	}
	sc, err := scenario.Parse(id, content, scenario.FormatJSON)
	if err != nil {
		r.logger.Warn("Malformed scenario in database", zap.String("scenario_id", id), zap.Error(err))
		return nil, err
	}
	return sc, nil
}

// List возвращает краткие описания всех сценариев.
func (r *PgScenarioRepository) List(ctx context.Context) ([]models.ScenarioSummary, error) {
	var summaries []models.ScenarioSummary
	if err := pgxscan.Select(ctx, r.db, &summaries, listScenariosQuery); err != nil {
		r.logger.Error("Failed to list scenarios", zap.Error(err))
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if summaries == nil {
		summaries = []models.ScenarioSummary{}
	}
	return summaries, nil
}

// Upsert проверяет и сохраняет сценарий, заменяя предыдущую версию с тем же id.
func (r *PgScenarioRepository) Upsert(ctx context.Context, sc *models.Scenario) error {
	if err := scenario.ValidateID(sc.ID); err != nil {
		return err
	}
	if err := scenario.Validate(sc); err != nil {
		return err
	}
	content, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario %s: %w", sc.ID, err)
	}
	if _, err := r.db.Exec(ctx, upsertScenarioQuery, sc.ID, sc.Version, content); err != nil {
		r.logger.Error("Failed to upsert scenario", zap.String("scenario_id", sc.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert scenario %s: %w", sc.ID, err)
	}
	r.logger.Info("Scenario stored", zap.String("scenario_id", sc.ID), zap.Int("version", sc.Version))
	return nil
}
