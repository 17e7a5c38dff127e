package dpslam

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveParticleNumber(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ParticleFilter.ParticleNumber = 0
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestValidateRejectsNonPositiveResolution(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Grid.Resolution = 0
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestValidateRejectsNonPositiveSpans(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Grid.SpanX = 0
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)

	cfg = DefaultConfig()
	cfg.Grid.SpanY = -1
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestValidateRejectsOutOfRangeEssThreshold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ParticleFilter.EssThreshold = 0
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)

	cfg = DefaultConfig()
	cfg.ParticleFilter.EssThreshold = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
random_seed: 42
grid:
  center_x: 1
  center_y: 2
  span_x: 50
  span_y: 50
  resolution: 0.5
particle_filter:
  particle_number: 500
  ess_threshold: 0.75
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.RandomSeed)
	assert.Equal(t, 1.0, cfg.Grid.CenterX)
	assert.Equal(t, 2.0, cfg.Grid.CenterY)
	assert.Equal(t, 0.5, cfg.Grid.Resolution)
	assert.Equal(t, 500, cfg.ParticleFilter.ParticleNumber)
	assert.Equal(t, 0.75, cfg.ParticleFilter.EssThreshold)

	// Fields the override didn't touch keep DefaultConfig's values.
	assert.Equal(t, DefaultConfig().Observation, cfg.Observation)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
