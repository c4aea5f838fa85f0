package session

// WarmupGate suppresses the first W qualifying events of a session.
// A qualifying event is an accel or gyro reading that arrives once both
// sensors have reported, i.e. one that would otherwise produce a sample.
// There is no reset.
type WarmupGate struct {
	remaining int
}

func NewWarmupGate(warmup int) *WarmupGate {
	if warmup < 0 {
		warmup = 0
	}
	return &WarmupGate{remaining: warmup}
}

// Admit consumes one unit of budget and reports whether the event may be emitted.
func (g *WarmupGate) Admit() bool {
	if g.remaining > 0 {
		g.remaining--
		return false
	}
	return true
}

// Remaining is the number of qualifying events still to be suppressed.
func (g *WarmupGate) Remaining() int {
	return g.remaining
}
