package particlefilter

import "time"

// DiagnosticKind enumerates the non-fatal conditions of §7, which are not
// returned as errors, since the engine never throws across step() (§7
// Propagation). Only DiagDegenerateFilter (NormalizeWeights) and
// DiagMeasurementIncomplete (Step) are emitted onto the diagnostics
// channel; nothing emits DiagOutOfWorld, DiagOutOfRange or
// DiagStaleAssociation.
type DiagnosticKind int

const (
	DiagOutOfWorld DiagnosticKind = iota
	DiagOutOfRange
	DiagStaleAssociation
	DiagDegenerateFilter
	DiagMeasurementIncomplete
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagOutOfWorld:
		return "out_of_world"
	case DiagOutOfRange:
		return "out_of_range"
	case DiagStaleAssociation:
		return "stale_association"
	case DiagDegenerateFilter:
		return "degenerate_filter"
	case DiagMeasurementIncomplete:
		return "measurement_incomplete"
	default:
		return "unknown"
	}
}

// Diagnostic is one entry emitted onto the engine's diagnostics channel.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Time    time.Time
}

func (e *Engine) emit(kind DiagnosticKind, message string) {
	e.Diagnostics = append(e.Diagnostics, Diagnostic{Kind: kind, Message: message, Time: e.now()})
}

// DrainDiagnostics returns and clears accumulated diagnostics, so the
// facade (or a caller polling at its own cadence) doesn't have to track an
// offset into a growing slice.
func (e *Engine) DrainDiagnostics() []Diagnostic {
	out := e.Diagnostics
	e.Diagnostics = nil
	return out
}
