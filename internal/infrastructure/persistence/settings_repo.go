package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"auction_engine/internal/domain/entity"
)

type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) LoadSettings(ctx context.Context) (entity.AuctionSettings, bool, error) {
	const query = `
		SELECT auto_extend_threshold_minutes, auto_extend_duration_minutes
		FROM auction_settings WHERE id = 1`

	var s settingsSchema
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.AuctionSettings{}, false, nil
		}
		return entity.AuctionSettings{}, false, mapError(err, "failed to load settings")
	}

	return entity.AuctionSettings{
		AutoExtendThresholdMinutes: s.ThresholdMinutes,
		AutoExtendDurationMinutes:  s.DurationMinutes,
	}, true, nil
}

func (r *SettingsRepository) SaveSettings(ctx context.Context, s entity.AuctionSettings) error {
	const query = `
		INSERT INTO auction_settings (id, auto_extend_threshold_minutes, auto_extend_duration_minutes)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET auto_extend_threshold_minutes = EXCLUDED.auto_extend_threshold_minutes,
			auto_extend_duration_minutes = EXCLUDED.auto_extend_duration_minutes,
			updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, s.AutoExtendThresholdMinutes, s.AutoExtendDurationMinutes); err != nil {
		return mapError(err, "failed to save settings")
	}

	return nil
}
