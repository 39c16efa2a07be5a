// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load(ctx, path) layers .env, YAML and BOARD_* environment variables.
// - Validation errors wrap ErrInvalidConfig and name the offending key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/fantasyboard/internal/adapters/source"
	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/schedule"
)

// Config contains process configuration.
type Config struct {
	// EntityIDs is the fixed set of tracked entities. Order is the ranking
	// tie-break.
	EntityIDs []string `koanf:"entity_ids"`

	// ActiveHourStart and ActiveHourEnd bound the active window as HH:MM.
	ActiveHourStart string `koanf:"active_hour_start"`
	ActiveHourEnd   string `koanf:"active_hour_end"`

	// DailyCheckTime is when tomorrow's day flag is computed.
	DailyCheckTime string `koanf:"daily_check_time"`

	RefreshIntervalMinutes  int `koanf:"refresh_interval_minutes"`
	IdlePollIntervalMinutes int `koanf:"idle_poll_interval_minutes"`

	// ActiveDayRule selects the day predicate: weekend, even_ordinal,
	// weekdays, always or never.
	ActiveDayRule  string   `koanf:"active_day_rule"`
	ActiveWeekdays []string `koanf:"active_weekdays"`

	// Timezone is an IANA name; empty means the process local zone.
	Timezone string `koanf:"timezone"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	SourceBaseURL        string        `koanf:"source_base_url"`
	SourceRequestTimeout time.Duration `koanf:"source_request_timeout"`
	SourceRatePerSecond  float64       `koanf:"source_rate_per_second"`
	SourceBurst          int           `koanf:"source_burst"`

	BreakerFailureThreshold int           `koanf:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `koanf:"breaker_open_timeout"`

	FetchConcurrency int           `koanf:"fetch_concurrency"`
	RefreshTimeout   time.Duration `koanf:"refresh_timeout"`

	// MaxLeaderboardLimit caps GET /api/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// TracingEndpoint is an OTLP gRPC collector address; empty disables
	// export.
	TracingEndpoint string `koanf:"tracing_endpoint"`
	ServiceName     string `koanf:"service_name"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		ActiveHourStart:         "11:00",
		ActiveHourEnd:           "23:00",
		DailyCheckTime:          "23:50",
		RefreshIntervalMinutes:  5,
		IdlePollIntervalMinutes: 60,
		ActiveDayRule:           schedule.RuleWeekend,
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		SourceBaseURL:           source.DefaultBaseURL,
		SourceRequestTimeout:    10 * time.Second,
		SourceRatePerSecond:     10,
		SourceBurst:             5,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      30 * time.Second,
		FetchConcurrency:        8,
		RefreshTimeout:          2 * time.Minute,
		MaxLeaderboardLimit:     100,
		ServiceName:             "fantasyboard",
	}
}

// Validate checks every value that has a constrained shape.
func (c *Config) Validate() error {
	if len(c.Entities()) == 0 {
		return invalid("entity_ids", "at least one entity id is required")
	}
	if c.Addr == "" {
		return invalid("addr", "must not be empty")
	}
	if _, err := c.Window(); err != nil {
		return err
	}
	if _, err := schedule.ParseTimeOfDay(c.DailyCheckTime); err != nil {
		return invalid("daily_check_time", err.Error())
	}
	if c.RefreshIntervalMinutes <= 0 {
		return invalid("refresh_interval_minutes", "must be positive")
	}
	if c.IdlePollIntervalMinutes < 0 {
		return invalid("idle_poll_interval_minutes", "must not be negative")
	}
	if _, err := c.Predicate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log_level", fmt.Sprintf("unknown level %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return invalid("log_format", fmt.Sprintf("unknown format %q", c.LogFormat))
	}
	if c.FetchConcurrency <= 0 {
		return invalid("fetch_concurrency", "must be positive")
	}
	if c.BreakerFailureThreshold <= 0 {
		return invalid("breaker_failure_threshold", "must be positive")
	}
	if c.MaxLeaderboardLimit <= 0 {
		return invalid("max_leaderboard_limit", "must be positive")
	}
	return nil
}

// Entities returns the configured ids trimmed, with blanks dropped and
// duplicates collapsed to their first occurrence.
func (c *Config) Entities() []model.EntityID {
	seen := make(map[string]struct{}, len(c.EntityIDs))
	out := make([]model.EntityID, 0, len(c.EntityIDs))
	for _, raw := range c.EntityIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, model.EntityID(id))
	}
	return out
}

// Window parses the active-hours bounds.
func (c *Config) Window() (schedule.Window, error) {
	start, err := schedule.ParseTimeOfDay(c.ActiveHourStart)
	if err != nil {
		return schedule.Window{}, invalid("active_hour_start", err.Error())
	}
	end, err := schedule.ParseTimeOfDay(c.ActiveHourEnd)
	if err != nil {
		return schedule.Window{}, invalid("active_hour_end", err.Error())
	}
	return schedule.Window{Start: start, End: end}, nil
}

// DailyCheck parses the daily check time.
func (c *Config) DailyCheck() (schedule.TimeOfDay, error) {
	t, err := schedule.ParseTimeOfDay(c.DailyCheckTime)
	if err != nil {
		return schedule.TimeOfDay{}, invalid("daily_check_time", err.Error())
	}
	return t, nil
}

// Predicate builds the active-day rule.
func (c *Config) Predicate() (schedule.DayPredicate, error) {
	p, err := schedule.ParseRule(c.ActiveDayRule, c.ActiveWeekdays)
	if err != nil {
		return nil, invalid("active_day_rule", err.Error())
	}
	return p, nil
}

// Location resolves the schedule time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, invalid("timezone", err.Error())
	}
	return loc, nil
}

// RefreshInterval is the active cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// IdlePollInterval is the cadence on flagged days outside the window.
func (c *Config) IdlePollInterval() time.Duration {
	return time.Duration(c.IdlePollIntervalMinutes) * time.Minute
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, reason)
}
