package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sweeney/mask-gate/internal/logic"
)

// HUD colors.
var (
	ColorWhite     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorGreen     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	ColorRed       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorBlueGreen = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// Caption margins around the box: the top edge is lifted to fit the label.
const (
	captionLift = 40
	captionDrop = 10
)

// HUDColor returns the frame-border color for a classification.
func HUDColor(k logic.Kind) color.RGBA {
	switch k {
	case logic.KindPositive:
		return ColorGreen
	case logic.KindNegative:
		return ColorRed
	}
	return ColorWhite
}

// Caption is the box label, e.g. "mask: 72%".
func Caption(c logic.Classification) string {
	return fmt.Sprintf("%s: %d%%", c.Label, int(c.Confidence*100))
}

// FPSText is the frame-rate readout.
func FPSText(fps float64) string {
	return fmt.Sprintf("FPS: %.2f", fps)
}

// PixelBox converts a normalized box to pixel coordinates clamped to the
// frame, with room above for the caption. The detector may return
// coordinates outside the image.
func PixelBox(b logic.Box, width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	ymin := int(math.Max(1, b.YMin*h)) - captionLift
	xmin := int(math.Max(1, b.XMin*w))
	ymax := int(math.Min(h, b.YMax*h)) + captionDrop
	xmax := int(math.Min(w, b.XMax*w))
	return image.Rect(xmin, ymin, xmax, ymax)
}
