// Package gpio drives the access indicator lights with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Light is the visual state of the indicator.
// The two outputs are mutually exclusive; both off is neutral.
type Light string

const (
	LightOff   Light = "OFF"
	LightAllow Light = "ALLOW"
	LightDeny  Light = "DENY"
)

// Indicator sets the allow/deny outputs.
type Indicator interface {
	// Set drives the outputs for the given light.
	Set(light Light) error

	// Close switches both outputs off and releases GPIO resources.
	Close() error
}

// levels returns the (allow, deny) line values for a light.
func levels(l Light) (allow, deny int) {
	switch l {
	case LightAllow:
		return 1, 0
	case LightDeny:
		return 0, 1
	}
	return 0, 0
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinAllow = 18 // green
	DefaultPinDeny  = 23 // red
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
