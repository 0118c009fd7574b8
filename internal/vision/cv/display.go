package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/vision"
)

// Keys that close the window.
const (
	keyQuit   = 'q'
	keyEscape = 27
)

const (
	hudThickness = 4
	font         = gocv.FontHersheySimplex
)

// Display shows annotated frames in a desktop window.
type Display struct {
	window *gocv.Window
}

// NewDisplay opens a window with the given title.
func NewDisplay(title string) *Display {
	return &Display{window: gocv.NewWindow(title)}
}

// Render draws the HUD onto the frame, shows it and polls the keyboard.
func (d *Display) Render(frame vision.Frame, o vision.Overlay) (bool, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return false, fmt.Errorf("unsupported frame type %T", frame)
	}
	img := &f.Mat
	w, h := f.Width(), f.Height()

	gocv.PutText(img, vision.FPSText(o.FPS), image.Pt(30, 50), font, 1, vision.ColorBlueGreen, 2)

	gocv.Rectangle(img, image.Rect(0, 0, w-1, h-1), vision.HUDColor(o.Classification.Kind), hudThickness)
	gocv.PutText(img, "ACCESS: "+string(o.State), image.Pt(30, h-30), font, 0.8, vision.HUDColor(kindOf(o.State)), 2)

	if c := o.Classification; c.Kind != logic.KindNone && c.Box != nil {
		drawLabel(img, c, vision.PixelBox(*c.Box, w, h))
	}

	d.window.IMShow(*img)
	key := d.window.WaitKey(1)
	return key == keyQuit || key == keyEscape, nil
}

// drawLabel draws the box with a filled caption bar along its top edge.
func drawLabel(img *gocv.Mat, c logic.Classification, box image.Rectangle) {
	col := vision.HUDColor(c.Kind)
	text := vision.Caption(c)

	gocv.Rectangle(img, box, col, 2)

	size := gocv.GetTextSize(text, font, 0.7, 2)
	bar := image.Rect(box.Min.X, box.Min.Y, box.Min.X+size.X+10, box.Min.Y+size.Y+14)
	gocv.Rectangle(img, bar, col, -1)
	gocv.PutText(img, text, image.Pt(box.Min.X+5, box.Min.Y+size.Y+7), font, 0.7, vision.ColorWhite, 2)
}

func kindOf(s logic.State) logic.Kind {
	switch s {
	case logic.StatePositive:
		return logic.KindPositive
	case logic.StateNegative:
		return logic.KindNegative
	}
	return logic.KindNone
}

// Close destroys the window.
func (d *Display) Close() error {
	return d.window.Close()
}
