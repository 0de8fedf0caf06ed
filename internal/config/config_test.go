package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/strava-trends/internal/analytics"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trends.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, analytics.Miles, cfg.Unit())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
units: km
milestones: [5, 10, 50]
reference_distance_meters: 21097.5
max_range_days: 3650
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, analytics.Kilometers, cfg.Unit())
	assert.Equal(t, []int{5, 10, 50}, cfg.Milestones)
	assert.Equal(t, 21097.5, cfg.ReferenceDistanceMeters)
	assert.Equal(t, 3650, cfg.MaxRangeDays)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "units: kilometers\n"))
	require.NoError(t, err)
	assert.Equal(t, analytics.Kilometers, cfg.Unit())
	assert.Equal(t, analytics.DefaultMilestones, cfg.Milestones)
	assert.Equal(t, analytics.DefaultReferenceMeters, cfg.ReferenceDistanceMeters)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvUnits, "km")
	t.Setenv(EnvMilestones, "3, 9,27")

	cfg, err := Load(writeConfig(t, "units: mi\nmilestones: [7]\n"))
	require.NoError(t, err)
	assert.Equal(t, analytics.Kilometers, cfg.Unit())
	assert.Equal(t, []int{3, 9, 27}, cfg.Milestones)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad units", "units: leagues\n"},
		{"negative milestone", "milestones: [7, -1]\n"},
		{"negative reference", "reference_distance_meters: -5\n"},
		{"malformed yaml", "units: [mi\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvMilestones(t *testing.T) {
	t.Setenv(EnvMilestones, "7,two")
	_, err := Load("")
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := &Config{Units: "km", Milestones: []int{10}, MaxRangeDays: 400}
	rng := &analytics.DateRange{Start: analytics.NewDate(2024, 1, 1), End: analytics.NewDate(2024, 1, 31)}

	opts := cfg.Options(rng)
	assert.Equal(t, analytics.Kilometers, opts.Unit)
	assert.Equal(t, []int{10}, opts.Milestones)
	assert.Equal(t, 400, opts.MaxIndexDays)
	assert.Equal(t, analytics.DefaultReferenceMeters, opts.ReferenceDistanceMeters)
	assert.Same(t, rng, opts.Range)
	assert.True(t, opts.IncludeTrends)
}
