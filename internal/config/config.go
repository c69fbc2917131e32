// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/dateutil"
)

// Calendar provider names.
const (
	ProviderSQLite = "sqlite"
	ProviderICS    = "ics"
	ProviderMemory = "memory"
)

// Calendar access values.
const (
	AccessGranted = "granted"
	AccessDenied  = "denied"
)

// Config holds the application configuration.
type Config struct {
	Search   SearchConfig   `toml:"search"`
	Calendar CalendarConfig `toml:"calendar"`
	Storage  StorageConfig  `toml:"storage"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
}

// SearchConfig holds availability search settings.
type SearchConfig struct {
	PreferStartHour   int      `toml:"prefer_start_hour"`   // e.g., 9
	PreferEndHour     int      `toml:"prefer_end_hour"`     // exclusive, e.g., 18
	RangeDays         int      `toml:"range_days"`          // default deadline offset
	PadDays           int      `toml:"pad_days"`            // reconciler window either side of a booking
	MaxRangeDays      int      `toml:"max_range_days"`      // upper bound for a single grid
	CountPartialHours bool     `toml:"count_partial_hours"` // a 10:30 end keeps hour 10 busy
	Workdays          []string `toml:"workdays"`            // e.g., ["monday", "tuesday", ...]
}

// CalendarConfig selects and configures the calendar provider.
type CalendarConfig struct {
	Provider        string `toml:"provider"`         // "sqlite", "ics" or "memory"
	ICSDir          string `toml:"ics_dir"`          // directory of .ics files
	DefaultCalendar string `toml:"default_calendar"` // calendar new events go to
	Access          string `toml:"access"`           // "granted" or "denied"
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Color bool `toml:"color"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			PreferStartHour: 9,
			PreferEndHour:   18,
			RangeDays:       7,
			PadDays:         7,
			MaxRangeDays:    availability.MaxRangeDays,
			Workdays:        []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		},
		Calendar: CalendarConfig{
			Provider:        ProviderSQLite,
			ICSDir:          defaultDataPath("calendars"),
			DefaultCalendar: "personal",
			Access:          AccessGranted,
		},
		Storage: StorageConfig{
			DBPath: defaultDataPath("freeslot.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Color: true,
		},
	}
}

// defaultDataPath returns a path under the user's data directory.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "share", "freeslot", name)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "freeslot", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Calendar.ICSDir = expandPath(cfg.Calendar.ICSDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"FREESLOT_PREFER_START_HOUR", &cfg.Search.PreferStartHour},
		{"FREESLOT_PREFER_END_HOUR", &cfg.Search.PreferEndHour},
		{"FREESLOT_RANGE_DAYS", &cfg.Search.RangeDays},
		{"FREESLOT_PAD_DAYS", &cfg.Search.PadDays},
	}
	for _, o := range ints {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", o.name, err)
		}
		*o.dst = n
	}

	if v := os.Getenv("FREESLOT_WORKDAYS"); v != "" {
		cfg.Search.Workdays = strings.Split(v, ",")
	}
	if v := os.Getenv("FREESLOT_COUNT_PARTIAL_HOURS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing FREESLOT_COUNT_PARTIAL_HOURS: %w", err)
		}
		cfg.Search.CountPartialHours = b
	}

	// Calendar overrides
	if v := os.Getenv("FREESLOT_PROVIDER"); v != "" {
		cfg.Calendar.Provider = v
	}
	if v := os.Getenv("FREESLOT_ICS_DIR"); v != "" {
		cfg.Calendar.ICSDir = v
	}
	if v := os.Getenv("FREESLOT_DEFAULT_CALENDAR"); v != "" {
		cfg.Calendar.DefaultCalendar = v
	}
	if v := os.Getenv("FREESLOT_CALENDAR_ACCESS"); v != "" {
		cfg.Calendar.Access = v
	}

	if v := os.Getenv("FREESLOT_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("FREESLOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.UI.Color = false
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	s := c.Search
	if err := availability.ValidateWindow(s.PreferStartHour, s.PreferEndHour); err != nil {
		return err
	}
	if s.RangeDays < 0 {
		return fmt.Errorf("range_days must not be negative, got %d", s.RangeDays)
	}
	if s.PadDays < 0 {
		return fmt.Errorf("pad_days must not be negative, got %d", s.PadDays)
	}
	if s.MaxRangeDays < 1 || s.MaxRangeDays > availability.MaxRangeDays {
		return fmt.Errorf("max_range_days must be between 1 and %d, got %d", availability.MaxRangeDays, s.MaxRangeDays)
	}
	if s.RangeDays >= s.MaxRangeDays {
		return fmt.Errorf("range_days (%d) must be below max_range_days (%d)", s.RangeDays, s.MaxRangeDays)
	}

	if len(s.Workdays) == 0 {
		return errors.New("at least one workday must be configured")
	}
	if _, err := dateutil.ParseWeekdays(s.Workdays); err != nil {
		return err
	}

	switch c.Calendar.Provider {
	case ProviderSQLite, ProviderMemory:
	case ProviderICS:
		if c.Calendar.ICSDir == "" {
			return errors.New("ics_dir must be set for the ics provider")
		}
	default:
		return fmt.Errorf("invalid calendar provider: %s", c.Calendar.Provider)
	}
	if c.Calendar.DefaultCalendar == "" {
		return errors.New("default_calendar must be set")
	}
	if c.Calendar.Access != AccessGranted && c.Calendar.Access != AccessDenied {
		return fmt.Errorf("calendar access must be %q or %q, got %q", AccessGranted, AccessDenied, c.Calendar.Access)
	}

	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// Weekdays returns the configured workdays.
func (c *Config) Weekdays() []time.Weekday {
	days, err := dateutil.ParseWeekdays(c.Search.Workdays)
	if err != nil {
		return nil
	}
	return days
}

// Pad returns the reconciler safety window.
func (c *Config) Pad() time.Duration {
	return time.Duration(c.Search.PadDays) * 24 * time.Hour
}

// AccessGranted reports whether calendar access is granted.
func (c *Config) AccessGranted() bool {
	return c.Calendar.Access == AccessGranted
}

// BuildOptions returns the grid options implied by the search settings.
func (c *Config) BuildOptions() []availability.BuildOption {
	if c.Search.CountPartialHours {
		return []availability.BuildOption{availability.WithPartialHours()}
	}
	return nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
