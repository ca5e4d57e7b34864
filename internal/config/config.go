// Package config loads the warehouse CLI configuration from JSONC files,
// the environment and command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/warehouse/internal/snapshot"
	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrMaxIdxInvalid      = errors.New("max-idx must be a positive number")
	ErrUnknownPolicy      = errors.New("unknown policy")
	ErrUnknownDriver      = errors.New("unknown snapshot driver")
	ErrLogLevelInvalid    = errors.New("invalid log level")
	ErrSnapshotKeyEmpty   = errors.New("snapshot key cannot be empty")
	ErrS3KeysIncomplete   = errors.New("s3 access key id and secret access key must be set together")
)

// FileName is the project config file looked up in the work dir.
const FileName = ".warehouse.json"

// Secrets are read from the environment only, never from config files.
const (
	// EnvSnapshotDSN overrides snapshot.dsn.
	EnvSnapshotDSN = "WAREHOUSE_SNAPSHOT_DSN"

	// EnvS3AccessKeyID and EnvS3SecretAccessKey give the s3 driver static
	// keys. Without them the default AWS credential chain applies.
	EnvS3AccessKeyID     = "WAREHOUSE_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "WAREHOUSE_S3_SECRET_ACCESS_KEY"
)

// Snapshot configures where the warehouse is persisted between runs.
type Snapshot struct {
	Driver    string `json:"driver,omitempty"`
	Path      string `json:"path,omitempty"`
	DSN       string `json:"dsn,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle *bool  `json:"path_style,omitempty"`
	Key       string `json:"key,omitempty"`

	AccessKeyID     string `json:"-"`
	SecretAccessKey string `json:"-"`
}

// Filters selects the admission filters installed on the store.
type Filters struct {
	RejectExpired *bool  `json:"reject_expired,omitempty"`
	UniqueIDs     *bool  `json:"unique_ids,omitempty"`
	MaxAmount     uint64 `json:"max_amount,omitempty"` // 0 = no limit
}

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	MaxIdx          int      `json:"max_idx,omitempty"`
	Policy          string   `json:"policy,omitempty"`
	OversizedSearch string   `json:"oversized_search,omitempty"`
	LogLevel        string   `json:"log_level,omitempty"`
	Snapshot        Snapshot `json:"snapshot"`
	Filters         Filters  `json:"filters"`

	// Resolved (computed, not serialized)
	EffectiveCwd    string `json:"-"`
	SnapshotPathAbs string `json:"-"` // fs directory or sqlite file; empty for other drivers

	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
	Env     []string // environment variables that overrode file values
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxIdx:          20,
		Policy:          warehouse.PolicyClosestFree,
		OversizedSearch: warehouse.OversizedFirstFit.String(),
		LogLevel:        zerolog.WarnLevel.String(),
		Snapshot: Snapshot{
			Driver: string(snapshot.DriverFS),
			Key:    "warehouse",
		},
	}
}

// Overrides are values set by CLI flags. Zero values mean "not set".
type Overrides struct {
	MaxIdx          int
	Policy          string
	OversizedSearch string
	LogLevel        string
	SnapshotDriver  string
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config
	Overrides       Overrides         // flag values
	Env             map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/warehouse/config.json or ~/.config/warehouse/config.json)
// 3. Project config (.warehouse.json in the work dir, if present)
// 4. Explicit config file via ConfigPath
// 5. Environment (WAREHOUSE_SNAPSHOT_DSN, WAREHOUSE_S3_*)
// 6. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	globalPath := globalConfigPath(input.Env)
	if globalPath != "" {
		fileCfg, loaded, loadErr := loadFile(globalPath, false)
		if loadErr != nil {
			return Config{}, loadErr
		}

		if loaded {
			cfg = merge(cfg, fileCfg)
			cfg.Sources.Global = globalPath
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		_, statErr := os.Stat(projectPath)
		if statErr != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}
	}

	fileCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, fileCfg)
		cfg.Sources.Project = projectPath
	}

	if dsn := input.Env[EnvSnapshotDSN]; dsn != "" {
		cfg.Snapshot.DSN = dsn
		cfg.Sources.Env = append(cfg.Sources.Env, EnvSnapshotDSN)
	}

	if id := input.Env[EnvS3AccessKeyID]; id != "" {
		cfg.Snapshot.AccessKeyID = id
		cfg.Sources.Env = append(cfg.Sources.Env, EnvS3AccessKeyID)
	}

	if secret := input.Env[EnvS3SecretAccessKey]; secret != "" {
		cfg.Snapshot.SecretAccessKey = secret
		cfg.Sources.Env = append(cfg.Sources.Env, EnvS3SecretAccessKey)
	}

	cfg = applyOverrides(cfg, input.Overrides)

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.SnapshotPathAbs = resolveSnapshotPath(workDir, cfg.Snapshot)

	return cfg, nil
}

// SnapshotConfig converts the snapshot section for [snapshot.Open].
func (c Config) SnapshotConfig(now func() time.Time) snapshot.Config {
	return snapshot.Config{
		Driver:    snapshot.Driver(c.Snapshot.Driver),
		Path:      c.SnapshotPathAbs,
		DSN:       c.Snapshot.DSN,
		Bucket:    c.Snapshot.Bucket,
		Region:    c.Snapshot.Region,
		Endpoint:  c.Snapshot.Endpoint,
		PathStyle: c.Snapshot.PathStyle != nil && *c.Snapshot.PathStyle,
		Now:       now,

		AccessKeyID:     c.Snapshot.AccessKeyID,
		SecretAccessKey: c.Snapshot.SecretAccessKey,
	}
}

// Level returns the parsed log level. Load has already validated it.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}

	return level
}

// Search returns the parsed oversized search mode.
func (c Config) Search() warehouse.OversizedSearch {
	search, err := warehouse.ParseOversizedSearch(c.OversizedSearch)
	if err != nil {
		return warehouse.OversizedFirstFit
	}

	return search
}

// globalConfigPath uses $XDG_CONFIG_HOME/warehouse/config.json if set,
// otherwise ~/.config/warehouse/config.json. Empty if neither is known.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "warehouse", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "warehouse", "config.json")
	}

	return ""
}

// loadFile reads one config file. A missing optional file is not an error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Zero values mean "inherit", so an explicit zero would be silently
	// ignored. Reject the ones that can never be valid.
	var raw struct {
		MaxIdx   *int `json:"max_idx"`
		Snapshot struct {
			Key *string `json:"key"`
		} `json:"snapshot"`
	}

	_ = json.Unmarshal(standardized, &raw)

	if raw.MaxIdx != nil && *raw.MaxIdx <= 0 {
		return Config{}, ErrMaxIdxInvalid
	}

	if raw.Snapshot.Key != nil && *raw.Snapshot.Key == "" {
		return Config{}, ErrSnapshotKeyEmpty
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.MaxIdx != 0 {
		base.MaxIdx = overlay.MaxIdx
	}

	base.Policy = pick(base.Policy, overlay.Policy)
	base.OversizedSearch = pick(base.OversizedSearch, overlay.OversizedSearch)
	base.LogLevel = pick(base.LogLevel, overlay.LogLevel)

	s, o := base.Snapshot, overlay.Snapshot
	s.Driver = pick(s.Driver, o.Driver)
	s.Path = pick(s.Path, o.Path)
	s.DSN = pick(s.DSN, o.DSN)
	s.Bucket = pick(s.Bucket, o.Bucket)
	s.Region = pick(s.Region, o.Region)
	s.Endpoint = pick(s.Endpoint, o.Endpoint)
	s.Key = pick(s.Key, o.Key)

	if o.PathStyle != nil {
		s.PathStyle = o.PathStyle
	}

	base.Snapshot = s

	if overlay.Filters.RejectExpired != nil {
		base.Filters.RejectExpired = overlay.Filters.RejectExpired
	}

	if overlay.Filters.UniqueIDs != nil {
		base.Filters.UniqueIDs = overlay.Filters.UniqueIDs
	}

	if overlay.Filters.MaxAmount != 0 {
		base.Filters.MaxAmount = overlay.Filters.MaxAmount
	}

	return base
}

func applyOverrides(cfg Config, o Overrides) Config {
	if o.MaxIdx != 0 {
		cfg.MaxIdx = o.MaxIdx
	}

	cfg.Policy = pick(cfg.Policy, o.Policy)
	cfg.OversizedSearch = pick(cfg.OversizedSearch, o.OversizedSearch)
	cfg.LogLevel = pick(cfg.LogLevel, o.LogLevel)
	cfg.Snapshot.Driver = pick(cfg.Snapshot.Driver, o.SnapshotDriver)

	return cfg
}

func pick(base, overlay string) string {
	if overlay != "" {
		return overlay
	}

	return base
}

func validate(cfg Config) error {
	if cfg.MaxIdx <= 0 {
		return ErrMaxIdxInvalid
	}

	if !slices.Contains(warehouse.PolicyNames(), cfg.Policy) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrUnknownPolicy, cfg.Policy, warehouse.PolicyNames())
	}

	_, err := warehouse.ParseOversizedSearch(cfg.OversizedSearch)
	if err != nil {
		return err
	}

	_, err = zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevelInvalid, cfg.LogLevel)
	}

	if !slices.Contains(snapshot.Drivers(), snapshot.Driver(cfg.Snapshot.Driver)) {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Snapshot.Driver)
	}

	if cfg.Snapshot.Key == "" {
		return ErrSnapshotKeyEmpty
	}

	if (cfg.Snapshot.AccessKeyID == "") != (cfg.Snapshot.SecretAccessKey == "") {
		return ErrS3KeysIncomplete
	}

	return nil
}

func resolveSnapshotPath(workDir string, s Snapshot) string {
	path := s.Path

	switch snapshot.Driver(s.Driver) {
	case snapshot.DriverFS:
		if path == "" {
			path = ".warehouse"
		}
	case snapshot.DriverSQLite:
		if path == "" {
			path = filepath.Join(".warehouse", "warehouse.db")
		}
	default:
		return ""
	}

	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}
