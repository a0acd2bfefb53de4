// Package actuator describes the motor-controller primitives that the swerve
// modules drive.  Backends (CAN, simulation) live elsewhere and only need to
// satisfy these interfaces.
package actuator

import "math"

// Actuator is one motor plus the rotary sensor on its shaft.  Implementations
// must tolerate every method being called on every control cycle (>= 50Hz)
// and must not block: reads return the most recent cached value.
type Actuator interface {
	// SetSpeed sets a normalised output in [-1, 1].
	SetSpeed(speed float64) error
	// Position returns the raw accumulated sensor count.
	Position() (int64, error)
	OutputCurrent() (float64, error)
	OutputVoltage() (float64, error)
	// ZeroPosition makes the current position read as zero.
	ZeroPosition() error
}

// PositionControllable is implemented by actuators whose firmware can run a
// position loop itself.
type PositionControllable interface {
	SetPositionTarget(counts int64) error
}

// GainConfigurable is implemented by actuators whose position loop gains can
// be changed at runtime.
type GainConfigurable interface {
	SetGains(p, i, d float64) error
}

// Clamp limits a normalised output to [-1, 1].
func Clamp(v float64) float64 {
	return ClampTo(v, 1)
}

// ClampTo limits v to [-|limit|, |limit|].  NaN becomes 0.
func ClampTo(v, limit float64) float64 {
	if v != v {
		return 0
	}
	limit = math.Abs(limit)
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
