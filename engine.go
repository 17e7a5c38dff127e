package dpslam

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/nodemap"
	"github.com/deepfathom/dpslam/observation"
	"github.com/deepfathom/dpslam/particlefilter"
	"github.com/deepfathom/dpslam/randm"
)

// Engine is the engine facade of §4.F: it wires the grid (B), the DP map
// (C), the observation models (D) and the particle filter core (E) behind
// a small set of entry points a control-loop caller drives once per tick.
// Like the particle filter core it wraps, Engine is single-threaded
// cooperative (§5): callers must not invoke it re-entrantly.
type Engine struct {
	Config Config

	Grid *grid.Grid
	Map  *featuremap.Map
	PF   *particlefilter.Engine

	nodeMap nodemap.NodeMap
	rng     *randm.Source

	// RunID is a random id drawn once per engine (SPEC_FULL.md domain
	// stack: google/uuid); nothing in this module writes it into
	// diagnostics or persisted output.
	RunID uuid.UUID
}

// Init builds a new Engine over a grid of the given centre/spans/resolution
// and the supplied configuration (§4.F "init(center, span, res, config)").
// It validates config and returns ErrConfigInvalid (fatal, §7) before doing
// anything else.
func Init(config Config, now time.Time) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g, err := grid.New(
		grid.Point{X: config.Grid.CenterX, Y: config.Grid.CenterY},
		config.Grid.SpanX, config.Grid.SpanY, config.Grid.Resolution,
	)
	if err != nil {
		return nil, errors.Join(ErrConfigInvalid, err)
	}

	rng := randm.NewSource(config.RandomSeed)

	pf, err := particlefilter.NewEngine(config.ParticleFilter, rng, func() time.Time { return now })
	if err != nil {
		return nil, errors.Join(ErrConfigInvalid, err)
	}

	return &Engine{
		Config: config,
		Grid:   g,
		Map:    featuremap.New(g, config.Feature),
		PF:     pf,
		rng:    rng,
		RunID:  uuid.New(),
	}, nil
}

// InitializeStatics wires the static node map collaborator of §6
// ("initializeStatics(nodeMap)"). It must be called before
// ObserveSonarSweep, RateLaser or RatePerception (GPS, depth, pipeline and
// buoy alike), which return ErrNoMap without it.
func (e *Engine) InitializeStatics(nm nodemap.NodeMap) {
	e.nodeMap = nm
}

// NodeMap returns the static node map collaborator previously wired via
// InitializeStatics, or nil if none has been set yet.
func (e *Engine) NodeMap() nodemap.NodeMap {
	return e.nodeMap
}

// SetOrientation and SetSpeed forward to the particle filter core's
// externally driven vehicle-pose tracking (SPEC_FULL supplemented feature
// 3), used by Dynamic's rotation and by ObserveSonarSweep's absolute beam
// angle.
func (e *Engine) SetOrientation(yaw, depthSample float64) {
	e.PF.SetOrientation(yaw, depthSample)
}

func (e *Engine) SetSpeed(v [3]float64) {
	e.PF.SetSpeed(v)
}

// Dynamic propagates every particle under control (§4.E.2).
func (e *Engine) Dynamic(control particlefilter.Control) {
	e.PF.Dynamic(control, e.rng)
}

// DynamicFromActuator propagates every particle from raw actuator status
// via fn (SPEC_FULL supplemented feature 4).
func (e *Engine) DynamicFromActuator(status particlefilter.ActuatorStatus, fn particlefilter.TransitionFunc) error {
	return e.PF.DynamicFromActuator(status, fn, e.rng)
}

// ObserveStaticDepth implements §4.F's "observeDepth(pos, cov, depth)": a
// high-certainty ground-truth depth fix from a collaborator other than the
// particle filter (e.g. a multibeam echosounder's own attitude-corrected
// solution), fused directly into the map's static depth rather than into
// any particle's feature tree (§4.C.1).
func (e *Engine) ObserveStaticDepth(x, y, depth, variance float64) {
	e.Map.SetStaticDepth(x, y, depth, variance)
}

// Observe implements §4.F's "observe(particle, depth)": an echosounder
// sample fused into every particle's depth association (§4.D.1).
func (e *Engine) Observe(depth float64, now time.Time) {
	observation.ApplyEchosounder(e.PF, e.Map, e.Grid, e.Config.Observation, depth, e.Config.Observation.EchosounderVariance, now)
}

// ObserveSonarSweep implements §4.F's "observe(particle, sonarFeatures, yaw,
// depth)": one ping's worth of sonar features against the DP map (§4.D.2).
// The engine's current orientation/depth must already be set via
// SetOrientation for this tick.
func (e *Engine) ObserveSonarSweep(sweep observation.SonarSweep, now time.Time) error {
	if e.nodeMap == nil {
		return ErrNoMap
	}
	observation.ApplySonarSweep(e.PF, e.Map, e.Grid, e.nodeMap, e.Config.Observation, sweep, now)
	return nil
}

// RateLaser implements §4.F's "rate(particle, …)" for §4.D.3: a
// single-range laser/sonar beam against the static node map.
func (e *Engine) RateLaser(beamYawRad, rangeM float64) error {
	if e.nodeMap == nil {
		return ErrNoMap
	}
	observation.ApplyLaser(e.PF, e.nodeMap, e.Config.Observation, beamYawRad, rangeM)
	return nil
}

// RatePerception applies any Perception implementation (GPS, depth,
// pipeline, buoy — §4.D.4) against every particle's pose.
func (e *Engine) RatePerception(p observation.Perception) error {
	if e.nodeMap == nil {
		return ErrNoMap
	}
	observation.ApplyPerception(e.PF, p, e.nodeMap)
	return nil
}

// StepResult summarises one perception tick's housekeeping for the caller,
// bundling the particle filter's ESS/resample outcome with the engine's own
// diagnostics drain.
type StepResult struct {
	ESS             float64
	SkippedResample bool
	Resampled       bool
	Diagnostics     []particlefilter.Diagnostic
}

// Step finishes one perception tick (§4.E.3, §4.E.5, §4.E.7): normalize and
// count zero-weighted particles, resample if ESS has fallen below
// threshold, and drain accumulated diagnostics.
func (e *Engine) Step() StepResult {
	ess, skipped := e.PF.Step()

	resampled := false
	if !skipped {
		resampled = e.PF.Resample(e.Map, e.rng)
	}

	return StepResult{
		ESS:             ess,
		SkippedResample: skipped,
		Resampled:       resampled,
		Diagnostics:     e.PF.DrainDiagnostics(),
	}
}

// Intersperse implements §4.F's exposure of §4.E.6: replace the lowest-
// weight particles with draws from an externally supplied pose hint.
// Replaced particles' map associations must be released by the caller
// first if a tight refcount accounting across the swap is required (see
// particlefilter.Engine.Intersperse's doc comment).
func (e *Engine) Intersperse(mean [3]float64, cov *mat.SymDense) int {
	return e.PF.Intersperse(mean, cov, e.rng)
}

// Teleport collapses the whole particle set onto pose (SPEC_FULL
// supplemented feature 2).
func (e *Engine) Teleport(pose [3]float64) {
	e.PF.Teleport(pose)
}

// GetCloud implements §4.F's "getCloud(particle)": the confident,
// sufficiently observed depth/obstacle features held by particle idx,
// projected into world-frame points (§4.C.6).
func (e *Engine) GetCloud(idx int) ([]featuremap.CloudPoint, error) {
	if idx < 0 || idx >= len(e.PF.Particles) {
		return nil, ErrParticleIndex
	}
	p := e.PF.Particles[idx]
	cfg := e.Config.Observation
	return e.Map.GetCloud(p.DepthCells, p.ObstacleCells, cfg.FeatureOutputConfidenceThreshold, cfg.FeatureObservationCountThreshold), nil
}

// GetSimpleGrid implements §4.F's "getSimpleGrid(particle, out)": a dense
// projection of particle idx's obstacle view into out (§4.C.6).
func (e *Engine) GetSimpleGrid(idx int, out *featuremap.SimpleGrid) error {
	if idx < 0 || idx >= len(e.PF.Particles) {
		return ErrParticleIndex
	}
	p := e.PF.Particles[idx]
	cfg := e.Config.Observation
	e.Map.GetSimpleGrid(p.ObstacleCells, cfg.FeatureOutputConfidenceThreshold, cfg.FeatureObservationCountThreshold, out)
	return nil
}
