// Package actuator maps confirmed state transitions to light and sound.
package actuator

import (
	"errors"
	"fmt"

	"github.com/sweeney/mask-gate/internal/audio"
	"github.com/sweeney/mask-gate/internal/gpio"
	"github.com/sweeney/mask-gate/internal/logic"
)

// Gateway applies a confirmed state to the physical fixture. It owns neither
// the indicator nor the player; the caller opens and closes them.
type Gateway struct {
	indicator gpio.Indicator
	player    audio.Player
}

// New creates a Gateway over the given collaborators.
func New(indicator gpio.Indicator, player audio.Player) *Gateway {
	return &Gateway{indicator: indicator, player: player}
}

// Apply sets the light and starts the matching cue. Both are attempted even
// if the first fails. Audio plays in the background.
// StateUnknown switches the indicator to neutral and plays nothing.
func (g *Gateway) Apply(s logic.State) error {
	var light gpio.Light
	var clip audio.Clip
	switch s {
	case logic.StatePositive:
		light, clip = gpio.LightAllow, audio.ClipGranted
	case logic.StateNegative:
		light, clip = gpio.LightDeny, audio.ClipDenied
	default:
		return g.Neutral()
	}

	var errs []error
	if err := g.indicator.Set(light); err != nil {
		errs = append(errs, fmt.Errorf("set light %s: %w", light, err))
	}
	if err := g.player.Play(clip); err != nil {
		errs = append(errs, fmt.Errorf("play %s: %w", clip, err))
	}
	return errors.Join(errs...)
}

// Neutral switches both lights off.
func (g *Gateway) Neutral() error {
	if err := g.indicator.Set(gpio.LightOff); err != nil {
		return fmt.Errorf("set light %s: %w", gpio.LightOff, err)
	}
	return nil
}
