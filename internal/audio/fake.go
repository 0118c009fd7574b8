package audio

// FakePlayer records played clips for test assertions.
type FakePlayer struct {
	// Played contains every clip passed to Play, in order.
	Played []Clip

	// PlayError, if set, will be returned by Play.
	PlayError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePlayer creates a FakePlayer for testing.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{}
}

// Play records the clip.
func (f *FakePlayer) Play(clip Clip) error {
	if f.PlayError != nil {
		return f.PlayError
	}
	f.Played = append(f.Played, clip)
	return nil
}

// Close marks the player as closed.
func (f *FakePlayer) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded clips.
func (f *FakePlayer) Reset() {
	f.Played = nil
	f.PlayError = nil
	f.Closed = false
}
