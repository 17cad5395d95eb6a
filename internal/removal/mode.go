package removal

// Mode controls whether reconciliation may propose removals.
type Mode int

const (
	Additive Mode = iota
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "additive"
}

// ModeGate holds the operation mode for one session. Entering Strict needs a
// confirmation once; after that it is remembered until the gate is dropped.
type ModeGate struct {
	mode      Mode
	confirmed bool
}

func (g *ModeGate) Mode() Mode { return g.mode }

// EnableStrict switches to Strict. confirm is called only when the session
// has not confirmed yet; a false answer leaves the mode unchanged.
func (g *ModeGate) EnableStrict(confirm func() bool) bool {
	if g.mode == Strict {
		return true
	}
	if !g.confirmed {
		if confirm == nil || !confirm() {
			return false
		}
		g.confirmed = true
	}
	g.mode = Strict
	return true
}

// Disable returns to Additive.
func (g *ModeGate) Disable() {
	g.mode = Additive
}
