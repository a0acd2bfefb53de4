// Package angle holds the circular arithmetic shared by the steering and
// heading code.  Sensors hand us unbounded values; everything here folds them
// back onto the circle with a true modulo so negative inputs never leak a
// negative result.
package angle

import "math"

// Mod returns x modulo m with the sign of m, i.e. a value in [0, m) for m > 0.
// math.Mod keeps the sign of the dividend, which is not what we want for
// angles.
func Mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	// -0 and values that round up to m both belong at 0.
	if r == 0 || r >= m {
		return 0
	}
	return r
}

// Wrap360 reduces an angle in degrees into [0, 360).
func Wrap360(deg float64) float64 {
	return Mod(deg, 360)
}

// PlusMinus180 is an angle in degrees, stored as a value in range (-180, 180].
// All operations clamp their output into range.
type PlusMinus180 struct {
	float64
}

func (a PlusMinus180) Add(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 + b.float64)
}

func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 - b.float64)
}

func (a PlusMinus180) AddFloat(f float64) PlusMinus180 {
	return FromFloat(a.float64 + f)
}

// Float returns the angle in degrees, range (-180, 180].
func (a PlusMinus180) Float() float64 {
	return a.float64
}

// Wrap360 returns the same direction expressed in [0, 360).
func (a PlusMinus180) Wrap360() float64 {
	return Wrap360(a.float64)
}

// FromFloat converts a float of any magnitude to a PlusMinus180 by calculating
// f mod 360 and shifting into range.
func FromFloat(f float64) PlusMinus180 {
	d := Mod(f, 360)
	if d > 180 {
		d -= 360
	}
	return PlusMinus180{d}
}

// ShortestDelta is the signed rotation, in (-180, 180], that takes from onto
// to.  Positive is the direction of increasing angle.
func ShortestDelta(from, to float64) float64 {
	return FromFloat(to - from).Float()
}

// Degrees converts radians to degrees in [0, 360).
func Degrees(rad float64) float64 {
	return Wrap360(rad * 180 / math.Pi)
}

// Radians converts degrees to radians without any wrapping.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
