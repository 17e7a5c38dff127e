package dpslam

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/observation"
	"github.com/deepfathom/dpslam/particlefilter"
)

// GridConfig describes the physical extent of the DP map (§3 "World and
// grid"): a centre position, spans (Lx, Ly) and a resolution in metres per
// cell.
type GridConfig struct {
	CenterX    float64 `yaml:"center_x"`
	CenterY    float64 `yaml:"center_y"`
	SpanX      float64 `yaml:"span_x"`
	SpanY      float64 `yaml:"span_y"`
	Resolution float64 `yaml:"resolution"`
}

// Config is the complete, data-only engine configuration (§6 Configuration),
// loaded from YAML the way the pack's simulation configs are (see
// pthm-soup/config). It has no behaviour of its own beyond Validate.
type Config struct {
	RandomSeed     uint64                 `yaml:"random_seed"`
	Grid           GridConfig             `yaml:"grid"`
	Feature        featuremap.Config      `yaml:"feature"`
	Observation    observation.Config     `yaml:"observation"`
	ParticleFilter particlefilter.Config  `yaml:"particle_filter"`
}

// DefaultConfig returns the engine's built-in tuning defaults, primarily
// useful for tests and as a base that LoadConfig's YAML overrides.
func DefaultConfig() Config {
	return Config{
		RandomSeed: 1,
		Grid: GridConfig{
			SpanX:      100,
			SpanY:      100,
			Resolution: 1,
		},
		Feature: featuremap.DefaultConfig(),
		Observation: observation.Config{
			SonarMinimumDistance:             0.3,
			SonarMaximumDistance:             50,
			SonarVerticalAngle:               0.3,
			SonarCovariance:                  0.25,
			EchosounderVariance:              0.1,
			FeatureObservationMinimumRange:   0.3,
			FeatureObservationRange:          30,
			FeatureConfidence:                0.1,
			FeatureEmptyCellConfidence:       0.1,
			FeatureConfidenceThreshold:       0.2,
			FeatureObservationCountThreshold: 2,
			FeatureOutputConfidenceThreshold: 0.5,
		},
		ParticleFilter: particlefilter.Config{
			ParticleNumber:         200,
			InitVariance:           [3]float64{1, 1, 0},
			EssThreshold:           0.5,
			HoughInterspersalRatio: 0.1,
			ZeroWeightThreshold:    0,
			MaxAngularSum:          0, // defaults to pi inside the engine
		},
	}
}

// LoadConfig reads a YAML file at path and merges it over DefaultConfig,
// mirroring the pack's "embedded defaults, then override" config idiom
// (pthm-soup/config.Load) without the embed, since this engine ships no
// single canonical defaults file of its own.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dpslam: reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("dpslam: parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the only fatal conditions of §7 (ConfigInvalid): a
// non-positive particle count, a non-positive grid resolution/span, or an
// ess_threshold outside (0, 1].
func (c Config) Validate() error {
	if c.ParticleFilter.ParticleNumber <= 0 {
		return fmt.Errorf("%w: particle_filter.particle_number must be positive", ErrConfigInvalid)
	}
	if c.Grid.Resolution <= 0 {
		return fmt.Errorf("%w: grid.resolution must be positive", ErrConfigInvalid)
	}
	if c.Grid.SpanX <= 0 || c.Grid.SpanY <= 0 {
		return fmt.Errorf("%w: grid.span_x and grid.span_y must be positive", ErrConfigInvalid)
	}
	if c.ParticleFilter.EssThreshold <= 0 || c.ParticleFilter.EssThreshold > 1 {
		return fmt.Errorf("%w: particle_filter.ess_threshold must be in (0, 1]", ErrConfigInvalid)
	}
	return nil
}
