package store

import (
	"context"

	"campuscoin/internal/models"
)

type SettingsStore struct {
	db DB
}

func NewSettingsStore(db DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `
		SELECT setting_value
		FROM system_settings
		WHERE setting_key = $1
	`, key)
	return value, err
}

func (s *SettingsStore) List(ctx context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	err := s.db.SelectContext(ctx, &rows, `
		SELECT setting_key, setting_value, updated_at
		FROM system_settings
		ORDER BY setting_key
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SettingsStore) Upsert(ctx context.Context, tx Execer, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO system_settings (setting_key, setting_value)
		VALUES ($1, $2)
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()
	`, key, value)
	return err
}
