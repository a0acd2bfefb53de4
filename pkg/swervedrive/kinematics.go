package swervedrive

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
)

// Below this a wheel is treated as stopped and keeps whatever angle it has.
const minSteerSpeed = 1e-3

// WheelState is the target for one module: an angle in [0, 360) and a
// normalised drive speed.
type WheelState struct {
	Angle float64
	Speed float64
}

// Stopped reports whether the wheel has no meaningful speed, in which case
// Angle is not meaningful either.
func (w WheelState) Stopped() bool {
	return math.Abs(w.Speed) < minSteerSpeed
}

// Crab returns the single wheel state shared by all modules when the chassis
// translates without rotating.  headingDeg is subtracted from the direction
// of travel for field-oriented driving; pass 0 for robot-oriented.
func Crab(x, y, headingDeg float64) WheelState {
	x, y = actuator.Clamp(x), actuator.Clamp(y)
	v := r3.Vector{X: x, Y: y}
	speed := math.Min(v.Norm(), 1)
	if speed < minSteerSpeed {
		return WheelState{}
	}
	return WheelState{
		Angle: angle.Wrap360(angle.Degrees(math.Atan2(y, x)) - headingDeg),
		Speed: speed,
	}
}

// Solve returns per-module targets for translation (x, y) plus rotation z.
//
// Each wheel's velocity is the translation plus the tangential velocity due
// to rotating about the chassis centre: for a pivot at (rx, ry) and a
// counter-clockwise rate z that is (-z*ry, z*rx), scaled by the pivot radius
// so that z = 1 spins the outer wheels at full speed.  The translation is
// rotated by -headingDeg first, so passing the gyro heading gives
// field-oriented control.  If any wheel would exceed full speed all of them
// are scaled down together, preserving the motion's shape.
func Solve(g chassis.Geometry, x, y, z, headingDeg float64) [4]WheelState {
	x, y, z = actuator.Clamp(x), actuator.Clamp(y), actuator.Clamp(z)

	translation := rotate(r3.Vector{X: x, Y: y}, -headingDeg)
	radius := g.Radius()

	var vectors [4]r3.Vector
	maxNorm := 1.0
	for _, role := range chassis.AllRoles {
		rx, ry := g.Offset(role)
		v := translation
		if radius > 0 {
			tangential := r3.Vector{X: -ry / radius, Y: rx / radius}
			v = v.Add(tangential.Mul(z))
		}
		vectors[role] = v
		maxNorm = math.Max(maxNorm, v.Norm())
	}

	var states [4]WheelState
	for role, v := range vectors {
		v = v.Mul(1 / maxNorm)
		speed := v.Norm()
		if speed < minSteerSpeed {
			continue
		}
		states[role] = WheelState{
			Angle: angle.Degrees(math.Atan2(v.Y, v.X)),
			Speed: speed,
		}
	}
	return states
}

// keepForward expresses a wheel state so that its angle points into the
// front half of the circle, reversing the drive instead.  Used when drive
// encoder counts need to track the direction of travel.
func keepForward(w WheelState) WheelState {
	if w.Angle > 180 {
		return WheelState{Angle: w.Angle - 180, Speed: -w.Speed}
	}
	return w
}

func rotate(v r3.Vector, deg float64) r3.Vector {
	if deg == 0 {
		return v
	}
	s, c := math.Sincos(angle.Radians(deg))
	return r3.Vector{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}
