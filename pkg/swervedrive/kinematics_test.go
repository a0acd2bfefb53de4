package swervedrive

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
)

func shortest(a, b float64) float64 {
	return angle.ShortestDelta(a, b)
}

func TestCrab(t *testing.T) {
	w := Crab(1, 0, 0)
	test.That(t, w.Angle, test.ShouldEqual, 0.0)
	test.That(t, w.Speed, test.ShouldEqual, 1.0)

	w = Crab(1, 0, 90)
	test.That(t, w.Angle, test.ShouldEqual, 270.0)

	w = Crab(0, -0.5, 0)
	test.That(t, w.Angle, test.ShouldAlmostEqual, 270.0)
	test.That(t, w.Speed, test.ShouldAlmostEqual, 0.5)

	test.That(t, Crab(0, 0, 45).Stopped(), test.ShouldBeTrue)
	test.That(t, Crab(math.NaN(), 0, 0).Stopped(), test.ShouldBeTrue)
}

func TestSolveTranslationMatchesCrab(t *testing.T) {
	g := chassis.DefaultGeometry()
	for _, heading := range []float64{0, 30, 90, 200} {
		want := Crab(0.3, 0.6, heading)
		for _, w := range Solve(g, 0.3, 0.6, 0, heading) {
			test.That(t, math.Abs(shortest(want.Angle, w.Angle)), test.ShouldBeLessThan, 1e-9)
			test.That(t, w.Speed, test.ShouldAlmostEqual, want.Speed)
		}
	}
}

func TestSolvePureRotationIsTangential(t *testing.T) {
	g := chassis.DefaultGeometry()
	states := Solve(g, 0, 0, 1, 0)
	for _, role := range chassis.AllRoles {
		w := states[role]
		test.That(t, w.Speed, test.ShouldAlmostEqual, 1.0)
		rx, ry := g.Offset(role)
		a := angle.Radians(w.Angle)
		// Perpendicular to the radius.
		test.That(t, math.Abs(rx*math.Cos(a)+ry*math.Sin(a)), test.ShouldBeLessThan, 1e-9)
	}
	// Counter-clockwise at the front right means heading back and left.
	fr := states[chassis.FrontRight]
	test.That(t, fr.Angle, test.ShouldBeGreaterThan, 90.0)
	test.That(t, fr.Angle, test.ShouldBeLessThan, 180.0)
}

func TestSolveNormalises(t *testing.T) {
	g := chassis.DefaultGeometry()
	states := Solve(g, 0, 1, 1, 0)
	maxSpeed := 0.0
	for _, w := range states {
		test.That(t, w.Speed, test.ShouldBeLessThanOrEqualTo, 1.0+1e-12)
		maxSpeed = math.Max(maxSpeed, w.Speed)
	}
	test.That(t, maxSpeed, test.ShouldAlmostEqual, 1.0)
	// Turning left while driving forward: the right side goes faster.
	test.That(t, states[chassis.BackLeft].Speed, test.ShouldBeLessThan, states[chassis.BackRight].Speed)
}

func TestSolveStopped(t *testing.T) {
	for _, w := range Solve(chassis.DefaultGeometry(), 0, 0, 0, 123) {
		test.That(t, w.Stopped(), test.ShouldBeTrue)
	}
}

func TestKeepForward(t *testing.T) {
	w := keepForward(WheelState{Angle: 270, Speed: 0.5})
	test.That(t, w.Angle, test.ShouldEqual, 90.0)
	test.That(t, w.Speed, test.ShouldEqual, -0.5)
	w = keepForward(WheelState{Angle: 90, Speed: 0.5})
	test.That(t, w.Speed, test.ShouldEqual, 0.5)
}
