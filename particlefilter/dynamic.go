package particlefilter

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/deepfathom/dpslam/randm"
)

// Control is one dead-reckoning input sample (§4.E.2): a commanded/measured
// body-frame velocity mean and the noise covariance around it. A nil
// Covariance (or Config.UseStaticMotionCovariance) falls back to the
// engine's pre-sampled static motion covariance (§4.E.1).
type Control struct {
	Velocity   [3]float64
	Covariance *mat.SymDense
	Timestamp  time.Time
}

// ActuatorStatus is the supplemented two-argument dead-reckoning input
// (SPEC_FULL supplemented feature 4): the commanded thrust/rudder state
// alongside the nominal Control, used when the vehicle reports actuator
// targets rather than an estimated body-frame velocity. DynamicFromActuator
// converts it to a Control via a configured TransitionFunc before calling
// Dynamic.
type ActuatorStatus struct {
	ThrustFraction float64
	RudderAngle    float64
	Timestamp      time.Time
}

// TransitionFunc maps an ActuatorStatus to the Control it implies. Engines
// configured for actuator-status dead reckoning must supply one;
// DynamicFromActuator returns ErrNoMotionModel otherwise.
type TransitionFunc func(ActuatorStatus) Control

// Dynamic propagates every particle forward under control (§4.E.2):
//   - sample a velocity noise vector from control's covariance, or the
//     engine's static motion noise if control has none or
//     UseStaticMotionCovariance is set;
//   - average with the particle's previous velocity (v̄ = (v_prev+v_noisy)/2),
//     unless PureRandomMotion is configured, in which case v̄ = v_noisy;
//   - advance the pose by R_world_from_body · v̄ · Δt, where Δt is clamped
//     to 0 on the particle's first step (no prior timestamp) or on a
//     control that arrives before the particle's timestamp (§5 Ordering
//     guarantees);
//   - overwrite z with the last depth sample set via SetOrientation, since
//     depth is observed directly rather than dead-reckoned;
//   - store the freshly sampled v_noisy (not v̄) as the particle's velocity,
//     so the v_prev/v_noisy average never double-smooths across steps;
//   - update the particle's timestamp.
func (e *Engine) Dynamic(control Control, rng *randm.Source) {
	cov := control.Covariance
	if e.Config.UseStaticMotionCovariance || cov == nil {
		cov = e.staticNoiseCov
	}

	for i := range e.Particles {
		p := &e.Particles[i]

		dt := 0.0
		if p.HasTimestamp {
			d := control.Timestamp.Sub(p.Timestamp).Seconds()
			if d > 0 {
				dt = d
			}
		}

		vNoisy := sampleVelocity(control.Velocity, cov, rng)

		var vAvg [3]float64
		if e.Config.PureRandomMotion {
			vAvg = vNoisy
		} else {
			vAvg = [3]float64{
				(p.Velocity[0] + vNoisy[0]) / 2,
				(p.Velocity[1] + vNoisy[1]) / 2,
				(p.Velocity[2] + vNoisy[2]) / 2,
			}
		}

		step := rotateWorldFromBody(e.vehicleYaw, vAvg)
		p.Position[0] += step[0] * dt
		p.Position[1] += step[1] * dt
		p.Position[2] = e.zSample

		p.Velocity = vNoisy
		p.Timestamp = control.Timestamp
		p.HasTimestamp = true
	}
}

func sampleVelocity(mean [3]float64, cov *mat.SymDense, rng *randm.Source) [3]float64 {
	if cov == nil || rng == nil {
		return mean
	}
	dist, ok := rng.MultiGaussian3(mean, cov)
	if !ok {
		return mean
	}
	sample := dist.Rand(nil)
	return [3]float64{sample[0], sample[1], sample[2]}
}

// rotateWorldFromBody applies the planar body-to-world rotation
// R_world_from_body for the vehicle's current yaw (§4.E.2). The vertical
// component passes through unchanged since z is overwritten separately.
func rotateWorldFromBody(yaw float64, v [3]float64) [3]float64 {
	cos, sin := math.Cos(yaw), math.Sin(yaw)
	return [3]float64{
		v[0]*cos - v[1]*sin,
		v[0]*sin + v[1]*cos,
		v[2],
	}
}

// DynamicFromActuator implements the supplemented two-argument dead
// reckoning path (SPEC_FULL supplemented feature 4): it converts status
// through fn into a Control and calls Dynamic.
func (e *Engine) DynamicFromActuator(status ActuatorStatus, fn TransitionFunc, rng *randm.Source) error {
	if fn == nil {
		return ErrNoMotionModel
	}
	control := fn(status)
	e.Dynamic(control, rng)
	return nil
}
