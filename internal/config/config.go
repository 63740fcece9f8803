package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/cptspacemanspiff/battmon/internal/collector"
	"github.com/cptspacemanspiff/battmon/internal/history"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "/etc/battmon/config.toml"

// Time frames selectable in the history window.
const (
	RangeDay   = "day"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeAll   = "all"
)

type Config struct {
	Paths   PathsConfig   `toml:"paths" json:"paths"`
	Log     LogConfig     `toml:"log" json:"log"`
	Display DisplayConfig `toml:"display" json:"display"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

type PathsConfig struct {
	PowerSupplyRoot string `toml:"power_supply_root" json:"power_supply_root" validate:"required"`
	LogDirectory    string `toml:"log_directory" json:"log_directory" validate:"required"`
}

type LogConfig struct {
	// Fields is the ordered column layout of every log row.
	Fields   []string `toml:"fields" json:"fields" validate:"min=1,unique,dive,oneof=time status capacity energy_now voltage_now"`
	Required []string `toml:"required" json:"required" validate:"unique,dive,oneof=capacity status technology energy_now energy_full_design voltage_now"`
}

type DisplayConfig struct {
	RefreshIntervalMs int    `toml:"refresh_interval_ms" json:"refresh_interval_ms" validate:"min=100,max=3600000"`
	DefaultRange      string `toml:"default_range" json:"default_range" validate:"oneof=day week month all"`
}

type MetricsConfig struct {
	// TextfilePath, when set, receives Prometheus gauges after every log run.
	TextfilePath string `toml:"textfile_path" json:"textfile_path"`
}

func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			PowerSupplyRoot: collector.DefaultPowerSupplyRoot,
			LogDirectory:    history.DefaultLogDirectory,
		},
		Log: LogConfig{
			Fields:   append([]string(nil), history.DefaultFields...),
			Required: append([]string(nil), history.DefaultRequired...),
		},
		Display: DisplayConfig{
			RefreshIntervalMs: 5000,
			DefaultRange:      RangeWeek,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

// LoadOrDefault is Load, except that a missing file yields DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return NormalizeAndValidate(DefaultConfig())
	}
	return cfg, err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg
	sanitized.Log.Fields = trimAll(cfg.Log.Fields)
	sanitized.Log.Required = trimAll(cfg.Log.Required)
	sanitized.Display.DefaultRange = strings.ToLower(strings.TrimSpace(cfg.Display.DefaultRange))

	var err error
	sanitized.Paths.PowerSupplyRoot, err = sanitizePath("paths.power_supply_root", sanitized.Paths.PowerSupplyRoot)
	if err != nil {
		return nil, err
	}
	sanitized.Paths.LogDirectory, err = sanitizePath("paths.log_directory", sanitized.Paths.LogDirectory)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sanitized.Metrics.TextfilePath) != "" {
		sanitized.Metrics.TextfilePath, err = sanitizePath("metrics.textfile_path", sanitized.Metrics.TextfilePath)
		if err != nil {
			return nil, err
		}
	} else {
		sanitized.Metrics.TextfilePath = ""
	}

	if err := validate.Struct(&sanitized); err != nil {
		return nil, describe(err)
	}
	if !contains(sanitized.Log.Fields, history.FieldTime) {
		return nil, fmt.Errorf("log.fields must contain %q", history.FieldTime)
	}

	return &sanitized, nil
}

// Save validates cfg and writes it to path, replacing any existing file in
// one rename. Missing parent directories are created.
func Save(path string, cfg *Config) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config path must not be empty")
	}
	clean, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return replaceFile(path, data)
}

// replaceFile writes data next to path and renames it into place, so readers
// never see a half-written config.
func replaceFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err == nil {
		err = f.Chmod(0o644)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	return os.Rename(f.Name(), path)
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

// describe turns the first validator failure into a "<section>.<key> must ..."
// message using the TOML key names.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := tomlName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s must not be empty", name)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Errorf("%s must have at least %s entries", name, fe.Param())
		}
		return fmt.Errorf("%s must be at least %s, got %v", name, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s must be at most %s, got %v", name, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "unique":
		return fmt.Errorf("%s must not contain duplicates", name)
	}
	return fmt.Errorf("%s is invalid (%s)", name, fe.Tag())
}

// tomlName strips the root type from a namespace built from toml tags:
// "Config.display.refresh_interval_ms" -> "display.refresh_interval_ms".
func tomlName(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
