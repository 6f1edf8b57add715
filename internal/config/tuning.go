package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/dyno.report/internal/fsutil"
	"github.com/banshee-data/dyno.report/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the signal pipeline.
// The schema matches the /api/config endpoint so the same JSON can be used
// for both startup configuration and runtime updates. All fields are
// pointers so a partial config only overrides what it names.
type TuningConfig struct {
	// Roller geometry. An explicit circumference overrides the value
	// derived from the diameter.
	RollerDiameterMM     *float64 `json:"roller_diameter_mm,omitempty"`
	RollerCircumferenceM *float64 `json:"roller_circumference_m,omitempty"`

	// Rotational inertia of the roller assembly in kg·m².
	RotationalInertia *float64 `json:"rotational_inertia,omitempty"`

	// Acceleration estimation params
	AccelWindow *string `json:"accel_window,omitempty"` // duration string like "5s"

	// Stall detection params
	StopTimeout *string `json:"stop_timeout,omitempty"` // duration string like "1s"

	// Zero floor params
	ZeroSpeedThreshKMH *float64 `json:"zero_speed_thresh_kmh,omitempty"`
	ZeroDuration       *string  `json:"zero_duration,omitempty"` // duration string like "2s"
	ZeroVariationKMH   *float64 `json:"zero_variation_kmh,omitempty"`

	// Outlier filter params
	MaxTorqueNM   *float64 `json:"max_torque_nm,omitempty"`
	MaxPowerW     *float64 `json:"max_power_w,omitempty"`
	OutlierFactor *float64 `json:"outlier_factor,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file on the OS filesystem.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS loads a TuningConfig from a JSON file on the given
// filesystem. The file must have a .json extension and be under the max
// file size. Fields omitted from the JSON retain their defaults, so
// partial configs are safe.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.RollerDiameterMM != nil && *c.RollerDiameterMM <= 0 {
		return fmt.Errorf("roller_diameter_mm must be positive, got %f", *c.RollerDiameterMM)
	}
	if c.RollerCircumferenceM != nil && *c.RollerCircumferenceM <= 0 {
		return fmt.Errorf("roller_circumference_m must be positive, got %f", *c.RollerCircumferenceM)
	}
	if c.RotationalInertia != nil && *c.RotationalInertia <= 0 {
		return fmt.Errorf("rotational_inertia must be positive, got %f", *c.RotationalInertia)
	}
	if c.ZeroSpeedThreshKMH != nil && *c.ZeroSpeedThreshKMH < 0 {
		return fmt.Errorf("zero_speed_thresh_kmh must be non-negative, got %f", *c.ZeroSpeedThreshKMH)
	}
	if c.ZeroVariationKMH != nil && *c.ZeroVariationKMH < 0 {
		return fmt.Errorf("zero_variation_kmh must be non-negative, got %f", *c.ZeroVariationKMH)
	}
	if c.MaxTorqueNM != nil && *c.MaxTorqueNM <= 0 {
		return fmt.Errorf("max_torque_nm must be positive, got %f", *c.MaxTorqueNM)
	}
	if c.MaxPowerW != nil && *c.MaxPowerW <= 0 {
		return fmt.Errorf("max_power_w must be positive, got %f", *c.MaxPowerW)
	}
	if c.OutlierFactor != nil && *c.OutlierFactor <= 0 {
		return fmt.Errorf("outlier_factor must be positive, got %f", *c.OutlierFactor)
	}

	// Validate duration strings can be parsed if set
	for name, v := range map[string]*string{
		"accel_window":  c.AccelWindow,
		"stop_timeout":  c.StopTimeout,
		"zero_duration": c.ZeroDuration,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	return nil
}

// GetRollerDiameterMM returns the roller_diameter_mm value or the default.
func (c *TuningConfig) GetRollerDiameterMM() float64 {
	if c.RollerDiameterMM == nil {
		return 60.0 // default
	}
	return *c.RollerDiameterMM
}

// GetRollerCircumferenceM returns the roller circumference in metres. An
// explicit roller_circumference_m wins; otherwise it is derived from the
// diameter.
func (c *TuningConfig) GetRollerCircumferenceM() float64 {
	if c.RollerCircumferenceM != nil {
		return *c.RollerCircumferenceM
	}
	return units.CircumferenceFromDiameterMM(c.GetRollerDiameterMM())
}

// GetRotationalInertia returns the rotational_inertia value or the default.
func (c *TuningConfig) GetRotationalInertia() float64 {
	if c.RotationalInertia == nil {
		return 0.002572 // default, measured for the stock roller assembly
	}
	return *c.RotationalInertia
}

// GetAccelWindow parses and returns the AccelWindow as a time.Duration.
func (c *TuningConfig) GetAccelWindow() time.Duration {
	if c.AccelWindow == nil || *c.AccelWindow == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.AccelWindow)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetStopTimeout parses and returns the StopTimeout as a time.Duration.
func (c *TuningConfig) GetStopTimeout() time.Duration {
	if c.StopTimeout == nil || *c.StopTimeout == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.StopTimeout)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetZeroSpeedThreshKMH returns the zero_speed_thresh_kmh value or the default.
func (c *TuningConfig) GetZeroSpeedThreshKMH() float64 {
	if c.ZeroSpeedThreshKMH == nil {
		return 5.0 // default
	}
	return *c.ZeroSpeedThreshKMH
}

// GetZeroDuration parses and returns the ZeroDuration as a time.Duration.
func (c *TuningConfig) GetZeroDuration() time.Duration {
	if c.ZeroDuration == nil || *c.ZeroDuration == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ZeroDuration)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetZeroVariationKMH returns the zero_variation_kmh value or the default.
func (c *TuningConfig) GetZeroVariationKMH() float64 {
	if c.ZeroVariationKMH == nil {
		return 0.2 // default
	}
	return *c.ZeroVariationKMH
}

// GetMaxTorqueNM returns the max_torque_nm value or the default.
func (c *TuningConfig) GetMaxTorqueNM() float64 {
	if c.MaxTorqueNM == nil {
		return 2.0 // default
	}
	return *c.MaxTorqueNM
}

// GetMaxPowerW returns the max_power_w value or the default.
func (c *TuningConfig) GetMaxPowerW() float64 {
	if c.MaxPowerW == nil {
		return 50.0 // default
	}
	return *c.MaxPowerW
}

// GetOutlierFactor returns the outlier_factor value or the default.
func (c *TuningConfig) GetOutlierFactor() float64 {
	if c.OutlierFactor == nil {
		return 0.8 // default
	}
	return *c.OutlierFactor
}

// Resolved returns a copy with every field populated, defaults filled in.
// The /api/config endpoint serves this so clients see effective values
// rather than a sparse override set.
func (c *TuningConfig) Resolved() *TuningConfig {
	return &TuningConfig{
		RollerDiameterMM:     ptrFloat64(c.GetRollerDiameterMM()),
		RollerCircumferenceM: ptrFloat64(c.GetRollerCircumferenceM()),
		RotationalInertia:    ptrFloat64(c.GetRotationalInertia()),
		AccelWindow:          ptrString(c.GetAccelWindow().String()),
		StopTimeout:          ptrString(c.GetStopTimeout().String()),
		ZeroSpeedThreshKMH:   ptrFloat64(c.GetZeroSpeedThreshKMH()),
		ZeroDuration:         ptrString(c.GetZeroDuration().String()),
		ZeroVariationKMH:     ptrFloat64(c.GetZeroVariationKMH()),
		MaxTorqueNM:          ptrFloat64(c.GetMaxTorqueNM()),
		MaxPowerW:            ptrFloat64(c.GetMaxPowerW()),
		OutlierFactor:        ptrFloat64(c.GetOutlierFactor()),
	}
}

// Merge overlays non-nil fields from other onto a copy of c. Used by the
// runtime config endpoint to apply partial updates.
func (c *TuningConfig) Merge(other *TuningConfig) *TuningConfig {
	merged := *c
	if other == nil {
		return &merged
	}
	if other.RollerDiameterMM != nil {
		merged.RollerDiameterMM = other.RollerDiameterMM
	}
	if other.RollerCircumferenceM != nil {
		merged.RollerCircumferenceM = other.RollerCircumferenceM
	}
	if other.RotationalInertia != nil {
		merged.RotationalInertia = other.RotationalInertia
	}
	if other.AccelWindow != nil {
		merged.AccelWindow = other.AccelWindow
	}
	if other.StopTimeout != nil {
		merged.StopTimeout = other.StopTimeout
	}
	if other.ZeroSpeedThreshKMH != nil {
		merged.ZeroSpeedThreshKMH = other.ZeroSpeedThreshKMH
	}
	if other.ZeroDuration != nil {
		merged.ZeroDuration = other.ZeroDuration
	}
	if other.ZeroVariationKMH != nil {
		merged.ZeroVariationKMH = other.ZeroVariationKMH
	}
	if other.MaxTorqueNM != nil {
		merged.MaxTorqueNM = other.MaxTorqueNM
	}
	if other.MaxPowerW != nil {
		merged.MaxPowerW = other.MaxPowerW
	}
	if other.OutlierFactor != nil {
		merged.OutlierFactor = other.OutlierFactor
	}
	return &merged
}
