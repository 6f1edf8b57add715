package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/dyno.report/internal/config"
)

// TuningProfile is a named, saved pipeline tuning configuration. The config
// column stores the same sparse JSON the tuning file uses, so a profile can
// override any subset of values.
type TuningProfile struct {
	ID        int                  `json:"id"`
	Name      string               `json:"name"`
	Config    *config.TuningConfig `json:"config"`
	CreatedAt int64                `json:"created_at"`
	UpdatedAt int64                `json:"updated_at"`
}

// ListTuningProfiles returns all saved tuning profiles ordered by name.
func (db *DB) ListTuningProfiles() ([]TuningProfile, error) {
	rows, err := db.Query(`SELECT id, name, config, created_at, updated_at FROM tuning_profile ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tuning profiles: %w", err)
	}
	defer rows.Close()

	var profiles []TuningProfile
	for rows.Next() {
		p, err := scanTuningProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	return profiles, rows.Err()
}

// GetTuningProfile returns a profile by name, or nil if it does not exist.
func (db *DB) GetTuningProfile(name string) (*TuningProfile, error) {
	row := db.QueryRow(`SELECT id, name, config, created_at, updated_at FROM tuning_profile WHERE name = ?`, name)
	p, err := scanTuningProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SaveTuningProfile inserts or replaces the profile with the given name.
// The config is validated before it is stored so a saved profile can always
// be applied.
func (db *DB) SaveTuningProfile(name string, cfg *config.TuningConfig) error {
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	if cfg == nil {
		return fmt.Errorf("profile config is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid tuning profile %q: %w", name, err)
	}

	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal tuning profile: %w", err)
	}

	_, err = db.Exec(`INSERT INTO tuning_profile (name, config) VALUES (?, ?)
	                  ON CONFLICT(name) DO UPDATE SET config = excluded.config, updated_at = unixepoch()`,
		name, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save tuning profile: %w", err)
	}

	return nil
}

// DeleteTuningProfile removes a profile by name.
func (db *DB) DeleteTuningProfile(name string) error {
	result, err := db.Exec(`DELETE FROM tuning_profile WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete tuning profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tuning profile %q not found", name)
	}
	return nil
}

func scanTuningProfile(row interface{ Scan(...any) error }) (*TuningProfile, error) {
	var p TuningProfile
	var blob string
	if err := row.Scan(&p.ID, &p.Name, &blob, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tuning profile: %w", err)
	}

	cfg := config.EmptyTuningConfig()
	if err := json.Unmarshal([]byte(blob), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stored tuning profile %q: %w", p.Name, err)
	}
	p.Config = cfg
	return &p, nil
}
