package domain

// ConnectionSnapshot maps every known provider to whether the user has a
// token record for it. It is derived on read and never persisted.
type ConnectionSnapshot map[Provider]bool

// NewConnectionSnapshot builds a snapshot with every known provider set to
// false, then marks each provider in present as connected. Unknown provider
// keys are ignored.
func NewConnectionSnapshot(present []Provider) ConnectionSnapshot {
	snap := make(ConnectionSnapshot, len(AllProviders()))
	for _, p := range AllProviders() {
		snap[p] = false
	}
	for _, p := range present {
		if p.IsValid() {
			snap[p] = true
		}
	}
	return snap
}

// Connected returns the connected providers in AllProviders order
func (s ConnectionSnapshot) Connected() []Provider {
	var out []Provider
	for _, p := range AllProviders() {
		if s[p] {
			out = append(out, p)
		}
	}
	return out
}
