// Package cv implements the vision boundaries with OpenCV through gocv.
package cv

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"github.com/sweeney/mask-gate/internal/vision"
)

// Frame wraps the Mat most recently read from a Camera.
type Frame struct {
	Mat gocv.Mat
}

// Width implements vision.Frame.
func (f *Frame) Width() int { return f.Mat.Cols() }

// Height implements vision.Frame.
func (f *Frame) Height() int { return f.Mat.Rows() }

// Camera reads frames from a capture device, file or stream URL.
// A single Mat is reused for every frame.
type Camera struct {
	capture *gocv.VideoCapture
	frame   Frame
}

// OpenCamera opens device. A numeric string selects a local camera index.
func OpenCamera(device string) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video capture %q: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video capture %q not opened", device)
	}
	return &Camera{
		capture: capture,
		frame:   Frame{Mat: gocv.NewMat()},
	}, nil
}

// Size returns the capture resolution reported by the device.
func (c *Camera) Size() (width, height int) {
	return int(c.capture.Get(gocv.VideoCaptureFrameWidth)), int(c.capture.Get(gocv.VideoCaptureFrameHeight))
}

// Read grabs the next frame. A failed grab or an empty frame is end of stream.
func (c *Camera) Read() (vision.Frame, error) {
	if !c.capture.Read(&c.frame.Mat) || c.frame.Mat.Empty() {
		return nil, io.EOF
	}
	return &c.frame, nil
}

// Close releases the device and the frame buffer.
func (c *Camera) Close() error {
	c.frame.Mat.Close()
	return c.capture.Close()
}
