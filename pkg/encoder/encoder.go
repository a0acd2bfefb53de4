// Package encoder converts raw rotary sensor counts into physical units.
//
// Counts are unbounded and accumulate from the last zero.  Angles derived from
// them are always folded into [0, 360) with a true modulo, so a module that
// was zeroed at an arbitrary orientation and has since turned backwards still
// reports a positive angle.
package encoder

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
)

const (
	InchesToCm = 2.54
)

// ConfigurationError reports a calibration constant that would make the
// conversions meaningless (e.g. a division by zero).  It is fatal: a module
// built from a bad calibration must not be used.
type ConfigurationError struct {
	Field string
	Value float64
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s out of range, got %v", e.Field, e.Value)
}

// RawToDegrees maps a raw turn count onto [0, 360).  The count is reduced to
// a single revolution in integers first, so raw and raw+k*countsPerRev give
// bit-identical results however far the sensor has wound.
func RawToDegrees(raw int64, countsPerRev int) float64 {
	rem := raw - Revolutions(raw, countsPerRev)*int64(countsPerRev)
	return angle.Wrap360(float64(rem) / float64(countsPerRev) * 360)
}

// DegreesToRaw converts an angle (of any magnitude) into the nearest number of
// counts.  No wrapping is applied.
func DegreesToRaw(deg float64, countsPerRev int) int64 {
	c := deg * float64(countsPerRev) / 360
	if c < 0 {
		return int64(c - 0.5)
	}
	return int64(c + 0.5)
}

// Revolutions returns the number of whole revolutions in raw, rounding toward
// negative infinity so that raw == rev*countsPerRev + r with 0 <= r < countsPerRev.
// This agrees with the true modulo used by RawToDegrees.
func Revolutions(raw int64, countsPerRev int) int64 {
	c := int64(countsPerRev)
	rev := raw / c
	if raw%c != 0 && raw < 0 {
		rev--
	}
	return rev
}

// RawToLinear converts a raw drive count into distance travelled, in whatever
// unit circumference is expressed in.
func RawToLinear(raw float64, countsPerRev int, gearRatio, circumference float64) float64 {
	return raw / (float64(countsPerRev) * gearRatio) * circumference
}

// Calibration holds the constants for one module's sensors.
type Calibration struct {
	// Counts reported by the sensors for one revolution of the sensor shaft.
	CountsPerRev int `yaml:"counts_per_rev"`
	// Sensor revolutions per wheel revolution on the drive side.
	GearRatio float64 `yaml:"gear_ratio"`
	// Wheel circumference in inches.
	WheelCircumIn float64 `yaml:"wheel_circumference_in"`
}

// Validate returns a *ConfigurationError if any constant is zero or negative.
func (c Calibration) Validate() error {
	if c.CountsPerRev <= 0 {
		return &ConfigurationError{Field: "counts_per_rev", Value: float64(c.CountsPerRev)}
	}
	if c.GearRatio <= 0 {
		return &ConfigurationError{Field: "gear_ratio", Value: c.GearRatio}
	}
	if c.WheelCircumIn <= 0 {
		return &ConfigurationError{Field: "wheel_circumference_in", Value: c.WheelCircumIn}
	}
	return nil
}

func (c Calibration) Degrees(raw int64) float64 {
	return RawToDegrees(raw, c.CountsPerRev)
}

func (c Calibration) Counts(deg float64) int64 {
	return DegreesToRaw(deg, c.CountsPerRev)
}

func (c Calibration) Revolutions(raw int64) int64 {
	return Revolutions(raw, c.CountsPerRev)
}

func (c Calibration) Inches(raw float64) float64 {
	return RawToLinear(raw, c.CountsPerRev, c.GearRatio, c.WheelCircumIn)
}

func (c Calibration) Centimetres(raw float64) float64 {
	return RawToLinear(raw, c.CountsPerRev, c.GearRatio, c.WheelCircumIn*InchesToCm)
}

// InchesToRaw is the inverse of Inches.
func (c Calibration) InchesToRaw(in float64) float64 {
	return in / c.WheelCircumIn * float64(c.CountsPerRev) * c.GearRatio
}
