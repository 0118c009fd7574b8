// Package vision defines the camera, detector and display boundaries of the
// frame loop. The gocv implementations live in vision/cv; this package stays
// free of cgo so the loop can be tested with fakes.
package vision

import (
	"github.com/sweeney/mask-gate/internal/logic"
)

// Frame is one captured image. It is only valid until the next Source.Read.
type Frame interface {
	Width() int
	Height() int
}

// Source yields frames. Read returns io.EOF at end of stream; any other
// error is a device failure, which the loop also treats as end of stream.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Detector runs inference on a frame and returns its candidates sorted by
// descending score.
type Detector interface {
	Detect(frame Frame) (logic.RawResult, error)
	Close() error
}

// Overlay is everything the renderer draws on top of a frame.
type Overlay struct {
	FPS            float64
	Classification logic.Classification
	State          logic.State
}

// Renderer displays an annotated frame. Quit reports that the operator asked
// to exit.
type Renderer interface {
	Render(frame Frame, overlay Overlay) (quit bool, err error)
	Close() error
}

// Headless is a Renderer that draws nothing and never quits.
type Headless struct{}

// Render does nothing.
func (Headless) Render(Frame, Overlay) (bool, error) { return false, nil }

// Close does nothing.
func (Headless) Close() error { return nil }
