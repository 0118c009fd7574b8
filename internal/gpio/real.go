//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives actual hardware using the Linux GPIO character device.
type RealIndicator struct {
	chip  *gpiocdev.Chip
	allow *gpiocdev.Line
	deny  *gpiocdev.Line
}

// NewRealIndicator requests both pins as outputs, initially low.
func NewRealIndicator(chipName string, pinAllow, pinDeny int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	allow, err := chip.RequestLine(pinAllow, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request allow pin %d: %w", pinAllow, err)
	}

	deny, err := chip.RequestLine(pinDeny, gpiocdev.AsOutput(0))
	if err != nil {
		allow.Close()
		chip.Close()
		return nil, fmt.Errorf("request deny pin %d: %w", pinDeny, err)
	}

	return &RealIndicator{
		chip:  chip,
		allow: allow,
		deny:  deny,
	}, nil
}

// Set drives the outputs. The line being switched off goes first so both
// lights are never lit together.
func (r *RealIndicator) Set(light Light) error {
	a, d := levels(light)

	if a == 0 {
		if err := r.allow.SetValue(a); err != nil {
			return fmt.Errorf("set allow pin: %w", err)
		}
		if err := r.deny.SetValue(d); err != nil {
			return fmt.Errorf("set deny pin: %w", err)
		}
		return nil
	}

	if err := r.deny.SetValue(d); err != nil {
		return fmt.Errorf("set deny pin: %w", err)
	}
	if err := r.allow.SetValue(a); err != nil {
		return fmt.Errorf("set allow pin: %w", err)
	}
	return nil
}

// Close switches both lights off, then reconfigures pins to input with
// pull-down (matching Pi boot defaults) before releasing them.
func (r *RealIndicator) Close() error {
	var errs []error

	for name, line := range map[string]*gpiocdev.Line{"allow": r.allow, "deny": r.deny} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
