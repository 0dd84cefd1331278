package domain

// GenerationState is the chart-generation latch for one session, modeled as
// an explicit state machine instead of a boolean flag plus timer handle.
// Only Idle and Failed accept a trigger, which makes re-entry from a second
// code path (auto-trigger vs. manual confirmation) structurally impossible.
type GenerationState int

const (
	// GenIdle means no generation has been requested this session.
	GenIdle GenerationState = iota
	// GenRequested means a trigger has been accepted and is pending the
	// auto-trigger debounce.
	GenRequested
	// GenInFlight means remote calls are outstanding.
	GenInFlight
	// GenDone means the chart message has been appended; terminal.
	GenDone
	// GenFailed means a remote call failed; a manual re-confirmation may
	// trigger again.
	GenFailed
)

func (g GenerationState) String() string {
	switch g {
	case GenIdle:
		return "idle"
	case GenRequested:
		return "requested"
	case GenInFlight:
		return "in_flight"
	case GenDone:
		return "done"
	case GenFailed:
		return "failed"
	}
	return "unknown"
}

// CanTrigger reports whether a new generation may start from this state.
func (g GenerationState) CanTrigger() bool {
	return g == GenIdle || g == GenFailed
}
