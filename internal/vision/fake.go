package vision

import (
	"io"

	"github.com/sweeney/mask-gate/internal/logic"
)

// FakeFrame is a frame with a size and a sequence number.
type FakeFrame struct {
	Seq int
	W   int
	H   int
}

// Width implements Frame.
func (f FakeFrame) Width() int { return f.W }

// Height implements Frame.
func (f FakeFrame) Height() int { return f.H }

// FakeSource yields N frames then io.EOF.
type FakeSource struct {
	// N is the number of frames to yield.
	N int

	// ReadError, if set, is returned once the frames run out instead of io.EOF.
	ReadError error

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a source with n 640x480 frames.
func NewFakeSource(n int) *FakeSource {
	return &FakeSource{N: n}
}

// Read returns the next frame.
func (s *FakeSource) Read() (Frame, error) {
	s.Reads++
	if s.Reads > s.N {
		if s.ReadError != nil {
			return nil, s.ReadError
		}
		return nil, io.EOF
	}
	return FakeFrame{Seq: s.Reads - 1, W: 640, H: 480}, nil
}

// Close marks the source as closed.
func (s *FakeSource) Close() error {
	s.Closed = true
	return nil
}

// FakeDetector returns scripted results per frame. Once the script runs out
// it returns an empty result.
type FakeDetector struct {
	Results []logic.RawResult

	// Errors, if non-nil at the frame's index, is returned instead of a result.
	Errors []error

	// Calls counts calls to Detect.
	Calls int

	Closed bool
}

// NewFakeDetector creates a detector with the given script.
func NewFakeDetector(results ...logic.RawResult) *FakeDetector {
	return &FakeDetector{Results: results}
}

// Detect returns the scripted result for this call.
func (d *FakeDetector) Detect(Frame) (logic.RawResult, error) {
	i := d.Calls
	d.Calls++
	if i < len(d.Errors) && d.Errors[i] != nil {
		return logic.RawResult{}, d.Errors[i]
	}
	if i < len(d.Results) {
		return d.Results[i], nil
	}
	return logic.RawResult{}, nil
}

// Close marks the detector as closed.
func (d *FakeDetector) Close() error {
	d.Closed = true
	return nil
}

// FakeRenderer records overlays and can ask to quit after a number of frames.
type FakeRenderer struct {
	Overlays []Overlay

	// QuitAfter, if > 0, makes Render report quit on that call.
	QuitAfter int

	Closed bool
}

// Render records the overlay.
func (r *FakeRenderer) Render(_ Frame, o Overlay) (bool, error) {
	r.Overlays = append(r.Overlays, o)
	return r.QuitAfter > 0 && len(r.Overlays) >= r.QuitAfter, nil
}

// Close marks the renderer as closed.
func (r *FakeRenderer) Close() error {
	r.Closed = true
	return nil
}
