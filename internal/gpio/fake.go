package gpio

// FakeIndicator is a test double that records every light it is asked to show.
type FakeIndicator struct {
	// Lights contains every value passed to Set, in order.
	Lights []Light

	// Allow and Deny hold the current simulated line levels.
	Allow int
	Deny  int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set() without changing the lines.
	SetError error
}

// NewFakeIndicator creates a FakeIndicator with both lines low.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the light and updates the simulated lines.
func (f *FakeIndicator) Set(light Light) error {
	f.Lights = append(f.Lights, light)
	if f.SetError != nil {
		return f.SetError
	}
	f.Allow, f.Deny = levels(light)
	return nil
}

// Current returns the light shown by the simulated lines.
func (f *FakeIndicator) Current() Light {
	switch {
	case f.Allow == 1:
		return LightAllow
	case f.Deny == 1:
		return LightDeny
	}
	return LightOff
}

// Close switches the lines off and marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Allow, f.Deny = 0, 0
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeIndicator) Reset() {
	f.Lights = nil
	f.Allow, f.Deny = 0, 0
	f.Closed = false
	f.SetError = nil
}
