// Package config loads analysis settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshdurbin/strava-trends/internal/analytics"
)

// Environment variables that override file values
const (
	EnvUnits      = "STRAVA_TRENDS_UNITS"
	EnvMilestones = "STRAVA_TRENDS_MILESTONES"
)

// Config holds the settings the analysis engine runs with
type Config struct {
	Units                   string  `yaml:"units"`
	Milestones              []int   `yaml:"milestones"`
	ReferenceDistanceMeters float64 `yaml:"reference_distance_meters"`
	MaxRangeDays            int     `yaml:"max_range_days"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Units:                   string(analytics.Miles),
		Milestones:              append([]int(nil), analytics.DefaultMilestones...),
		ReferenceDistanceMeters: analytics.DefaultReferenceMeters,
		MaxRangeDays:            analytics.DefaultMaxIndexDays,
	}
}

// Load reads path, falling back to defaults when path is empty or missing,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if units := os.Getenv(EnvUnits); units != "" {
		cfg.Units = units
	}
	if raw := os.Getenv(EnvMilestones); raw != "" {
		milestones, err := parseMilestones(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvMilestones, err)
		}
		cfg.Milestones = milestones
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if _, err := analytics.ParseUnit(c.Units); err != nil {
		return fmt.Errorf("invalid units: %w", err)
	}
	for _, m := range c.Milestones {
		if m <= 0 {
			return fmt.Errorf("invalid milestone %d: must be positive", m)
		}
	}
	if c.ReferenceDistanceMeters < 0 {
		return fmt.Errorf("invalid reference_distance_meters %v: must not be negative", c.ReferenceDistanceMeters)
	}
	if c.MaxRangeDays < 0 {
		return fmt.Errorf("invalid max_range_days %d: must not be negative", c.MaxRangeDays)
	}
	return nil
}

// Unit returns the configured distance unit
func (c *Config) Unit() analytics.Unit {
	u, err := analytics.ParseUnit(c.Units)
	if err != nil {
		return analytics.Miles
	}
	return u
}

// Options converts the config into builder options for rng
func (c *Config) Options(rng *analytics.DateRange) analytics.Options {
	opts := analytics.DefaultOptions()
	opts.Unit = c.Unit()
	opts.Range = rng
	if len(c.Milestones) > 0 {
		opts.Milestones = c.Milestones
	}
	if c.ReferenceDistanceMeters > 0 {
		opts.ReferenceDistanceMeters = c.ReferenceDistanceMeters
	}
	if c.MaxRangeDays > 0 {
		opts.MaxIndexDays = c.MaxRangeDays
	}
	return opts
}

func parseMilestones(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("milestone %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
