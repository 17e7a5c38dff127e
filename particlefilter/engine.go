package particlefilter

import (
	"math"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/randm"
)

// Config carries the particle-filter tuning parameters of §6.
type Config struct {
	ParticleNumber int        `yaml:"particle_number"`
	InitPosition   [3]float64 `yaml:"init_position"`
	InitVariance   [3]float64 `yaml:"init_variance"`

	// UseStaticMotionCovariance forces Dynamic to always sample velocity
	// noise from StaticMotionCovariance rather than a per-control
	// covariance (§4.E.2: "configurable").
	UseStaticMotionCovariance bool `yaml:"use_static_motion_covariance"`
	// StaticMotionCovariance is a flattened row-major 3x3 covariance,
	// pre-sampled once at construction (§4.E.1: "a static-noise
	// covariance pre-sampled for motion").
	StaticMotionCovariance [9]float64 `yaml:"static_motion_covariance"`
	// PureRandomMotion replaces the v_prev/v_noisy average of §4.E.2 with
	// v_noisy alone, a diagnostic pure-random-walk mode carried over from
	// the original's debug tooling.
	PureRandomMotion bool    `yaml:"pure_random_motion"`
	YawOffset        float64 `yaml:"yaw_offset"`

	// Importance blends likelihood into weight per §4.E.3:
	// w_i <- w_i * (importance*likelihood_i + (1-importance)). A zero
	// value defaults to 1 (pure likelihood weighting).
	Importance float64 `yaml:"importance"`

	EssThreshold           float64 `yaml:"ess_threshold"`
	HoughInterspersalRatio float64 `yaml:"hough_interspersal_ratio"`
	UseMappingOnly         bool    `yaml:"use_mapping_only"`

	// ZeroWeightThreshold is the count of zero-weighted particles in one
	// perception tick beyond which the step is flagged
	// measurement_incomplete and resampling is skipped (§4.E.7).
	ZeroWeightThreshold int `yaml:"zero_weight_threshold"`

	// MaxAngularSum is the angular-coverage trigger threshold (§4.E.4,
	// default pi).
	MaxAngularSum float64 `yaml:"max_angular_sum"`
}

// BestMeasurement records the single highest-confidence perception seen
// since the last ResetBestMeasurement, mirroring the original's observeAndDebug/debug() bookkeeping
// (SPEC_FULL supplemented feature 1).
type BestMeasurement struct {
	Distance   float64
	Location   [3]float64
	Confidence float64
	Status     string
}

// Engine is the particle filter core (§4.E.1).
type Engine struct {
	Config Config

	Particles  []Particle
	Generation int

	Diagnostics []Diagnostic

	vehicleYaw   float64
	vehicleSpeed [3]float64
	zSample      float64

	lastAngle    float64
	haveLastAng  bool
	sumAngle     float64

	zeroWeightCount int

	best     BestMeasurement
	haveBest bool

	rng            *randm.Source
	staticNoiseCov *mat.SymDense

	nowFn func() time.Time
}

// NewEngine builds and initializes a particle filter with Config.
// ParticleNumber particles drawn uniformly from a box around InitPosition
// (§3 Lifecycle).
func NewEngine(config Config, rng *randm.Source, nowFn func() time.Time) (*Engine, error) {
	if config.ParticleNumber <= 0 {
		return nil, ErrInvalidParticleNumber
	}
	if config.EssThreshold <= 0 || config.EssThreshold > 1 {
		return nil, ErrInvalidEssThreshold
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	e := &Engine{
		Config:         config,
		rng:            rng,
		nowFn:          nowFn,
		staticNoiseCov: randm.CovarianceMatrix3(config.StaticMotionCovariance),
	}
	e.Initialize(config.ParticleNumber, config.InitPosition, config.InitVariance)

	return e, nil
}

func (e *Engine) now() time.Time {
	return e.nowFn()
}

// Initialize (re)draws the particle set (§3 Lifecycle, §4.E.1).
func (e *Engine) Initialize(numbers int, pos, variance [3]float64) {
	particles := make([]Particle, numbers)
	weight := 1.0 / float64(numbers)

	for i := range particles {
		draw := e.rng.UniformBox(pos, variance)
		particles[i] = newParticle(draw, weight)
	}

	e.Particles = particles
	e.Generation++
}

// SetOrientation sets the vehicle's current yaw (with the configured
// YawOffset applied once, per the original's setCurrentOrientation) and the
// depth sample that Dynamic uses to overwrite a particle's z coordinate
// (SPEC_FULL supplemented feature 3).
func (e *Engine) SetOrientation(yaw, depthSample float64) {
	e.vehicleYaw = yaw + e.Config.YawOffset
	e.zSample = depthSample
}

// SetSpeed records the vehicle's own current speed estimate, available to
// perception/debug bookkeeping (SPEC_FULL supplemented feature 3).
func (e *Engine) SetSpeed(v [3]float64) {
	e.vehicleSpeed = v
}

// VehicleYaw returns the yaw most recently set via SetOrientation.
func (e *Engine) VehicleYaw() float64 {
	return e.vehicleYaw
}

// Teleport collapses every particle onto pose with uniform weight,
// bypassing interspersal's "keep the best" logic (SPEC_FULL supplemented
// feature 2). Feature-tree associations are dropped since they'd be
// grounded on an unrelated pose history. The dropped associations are not
// released: their nodes keep the refcounts these particles held, and
// Map.ReduceFeatures, which only prunes nodes with a zero refcount, does
// not reclaim them.
func (e *Engine) Teleport(pose [3]float64) {
	weight := 1.0 / float64(len(e.Particles))
	for i := range e.Particles {
		e.Particles[i].Position = pose
		e.Particles[i].Confidence = weight
		e.Particles[i].DepthCells = make(map[grid.Cell]featuremap.Association)
		e.Particles[i].ObstacleCells = make(map[grid.Cell]featuremap.Association)
	}
}

// NormalizeWeights scales all particle weights so they sum to 1 (§4.E.3).
// It reports false (DegenerateFilter, §7) when the weight sum is zero,
// leaving weights untouched.
func (e *Engine) NormalizeWeights() bool {
	sum := lo.SumBy(e.Particles, func(p Particle) float64 { return p.Confidence })
	if sum <= 0 {
		e.emit(DiagDegenerateFilter, "sum of weights is zero; preserving previous weights")
		return false
	}
	for i := range e.Particles {
		e.Particles[i].Confidence /= sum
	}
	return true
}

// ESS computes the effective sample size 1/sum(w_i^2) (§4.E.3, §8
// invariant/Glossary).
func (e *Engine) ESS() float64 {
	sumSq := lo.SumBy(e.Particles, func(p Particle) float64 { return p.Confidence * p.Confidence })
	if sumSq == 0 {
		return 0
	}
	return 1.0 / sumSq
}

// LastBestMeasurement returns the highest-confidence perception recorded
// since the last call to ResetBestMeasurement (SPEC_FULL supplemented
// feature 1).
func (e *Engine) LastBestMeasurement() (BestMeasurement, bool) {
	return e.best, e.haveBest
}

// ResetBestMeasurement clears the best-measurement tracker. Neither this
// package, the observation models nor the dpslam facade call it, so the
// tracker is only cleared when a caller does.
func (e *Engine) ResetBestMeasurement() {
	e.best = BestMeasurement{}
	e.haveBest = false
}

// RecordMeasurement feeds a candidate observation into the best-measurement
// tracker, keeping the highest-confidence one seen since the last reset.
func (e *Engine) RecordMeasurement(distance float64, location [3]float64, confidence float64, status string) {
	if !e.haveBest || confidence > e.best.Confidence {
		e.best = BestMeasurement{Distance: distance, Location: location, Confidence: confidence, Status: status}
		e.haveBest = true
	}
}

// TrackAngularCoverage implements §4.E.4: it accumulates the absolute
// difference between successive absolute beam angles, reduced modulo pi
// (Open Question (a): the absolute value is taken before the modulo-pi
// reduction and again after it; the second has no effect, since the
// reduction never takes the difference below zero). It reports true exactly once the running sum first exceeds
// MaxAngularSum, resetting the accumulator, and seeds lastAngle on the
// first observation without reporting.
func (e *Engine) TrackAngularCoverage(absoluteAngle float64) bool {
	if !e.haveLastAng {
		e.lastAngle = absoluteAngle
		e.haveLastAng = true
		return false
	}

	if e.lastAngle == absoluteAngle {
		return false
	}

	diff := math.Abs(e.lastAngle - absoluteAngle)
	for diff > math.Pi {
		diff -= math.Pi
	}
	diff = math.Abs(diff)

	e.sumAngle += diff
	e.lastAngle = absoluteAngle

	maxSum := e.Config.MaxAngularSum
	if maxSum == 0 {
		maxSum = math.Pi
	}

	if e.sumAngle > maxSum {
		e.sumAngle = 0
		return true
	}
	return false
}
