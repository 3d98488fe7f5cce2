package hours

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	occupancy "cragwatch/internal/occupancy/domain"
)

// DayHours is one day's opening window in whole hours.
type DayHours struct {
	Start  int  `yaml:"start"`
	End    int  `yaml:"end"`
	Closed bool `yaml:"closed"`
}

// Config defines the gym's operating hours: a default window plus
// date-keyed exceptions (holiday hours, closures).
type Config struct {
	Default    DayHours            `yaml:"default"`
	Exceptions map[string]DayHours `yaml:"exceptions"`
}

// LoadConfig loads operating hours from yaml or env.
// GYM_HOURS_CONFIG points at a yaml file; GYM_OPEN_HOUR / GYM_CLOSE_HOUR
// override the defaults when no file is given.
func LoadConfig() (Config, error) {
	cfg := Config{
		Default: DayHours{
			Start: getenvIntDefault("GYM_OPEN_HOUR", 9),
			End:   getenvIntDefault("GYM_CLOSE_HOUR", 22),
		},
	}

	if path := os.Getenv("GYM_HOURS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if err := validateDay(c.Default); err != nil {
		return fmt.Errorf("hours: default window: %w", err)
	}
	for key, day := range c.Exceptions {
		if _, err := occupancy.ParseDayKey(key); err != nil {
			return fmt.Errorf("hours: exception key %q: %w", key, err)
		}
		if day.Closed {
			continue
		}
		if err := validateDay(day); err != nil {
			return fmt.Errorf("hours: exception %s: %w", key, err)
		}
	}
	return nil
}

func validateDay(day DayHours) error {
	if day.Start < 0 || day.Start > 23 || day.End < 1 || day.End > 24 {
		return errors.New("hour out of range")
	}
	if day.End <= day.Start {
		return errors.New("end must be after start")
	}
	return nil
}

// Window returns the open and close instants for a calendar day.
// closed is true when the gym does not open at all on that day.
func (c Config) Window(day occupancy.DayKey, loc *time.Location) (openAt, closeAt time.Time, closed bool) {
	window := c.Default
	if override, ok := c.Exceptions[day.String()]; ok {
		window = override
	}
	if window.Closed {
		return time.Time{}, time.Time{}, true
	}
	return day.At(window.Start, 0, loc), day.At(window.End, 0, loc), false
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
