package swervedrive

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervemodule"
)

var testCal = encoder.Calibration{CountsPerRev: 4096, GearRatio: 1, WheelCircumIn: 10}

type rig struct {
	drive  *Drive
	drives [4]*actuator.Sim
	turns  [4]*actuator.Sim
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	logger := golog.NewTestLogger(t)
	r := &rig{}
	var modules []*swervemodule.Module
	for _, role := range chassis.AllRoles {
		r.drives[role], r.turns[role] = actuator.NewSim(), actuator.NewSim()
		m, err := swervemodule.New(role, r.drives[role], r.turns[role], testCal, logger)
		test.That(t, err, test.ShouldBeNil)
		modules = append(modules, m)
	}
	d, err := New(modules, chassis.DefaultGeometry(), opts, logger)
	test.That(t, err, test.ShouldBeNil)
	r.drive = d
	return r
}

func (r *rig) setDistance(raw int64) {
	for _, s := range r.drives {
		s.SetRawPosition(raw)
	}
}

func TestNewNeedsEveryRoleOnce(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mk := func(role chassis.Role) *swervemodule.Module {
		m, err := swervemodule.New(role, actuator.NewSim(), actuator.NewSim(), testCal, logger)
		test.That(t, err, test.ShouldBeNil)
		return m
	}

	_, err := New([]*swervemodule.Module{mk(chassis.FrontLeft), mk(chassis.FrontRight), mk(chassis.BackLeft)},
		chassis.DefaultGeometry(), DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing")

	_, err = New([]*swervemodule.Module{mk(chassis.FrontLeft), mk(chassis.FrontLeft), mk(chassis.BackLeft), mk(chassis.BackRight)},
		chassis.DefaultGeometry(), DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	_, err = New([]*swervemodule.Module{mk(chassis.FrontLeft), mk(chassis.FrontRight), mk(chassis.BackLeft), mk(chassis.BackRight)},
		chassis.Geometry{}, DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCrabDriveRight(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.CrabDrive(1, 0, 0)
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Angle, test.ShouldEqual, 0.0)
		test.That(t, w.Speed, test.ShouldEqual, 1.0)
		test.That(t, r.drives[role].Speed(), test.ShouldEqual, 1.0)
		// Already at 0 degrees so steering stays still.
		test.That(t, r.turns[role].Speed(), test.ShouldEqual, 0.0)
	}
}

func TestCrabDriveIgnoresRotation(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.CrabDrive(0, 1, 1)
	for _, w := range r.drive.LastCommands() {
		test.That(t, w.Angle, test.ShouldAlmostEqual, 90.0)
		test.That(t, w.Speed, test.ShouldAlmostEqual, 1.0)
	}
}

func TestCrabGyroFieldOriented(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.CrabGyro(1, 0, 0, 90)
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Angle, test.ShouldEqual, 270.0)
		test.That(t, w.Speed, test.ShouldEqual, 1.0)
		// 0 -> 270 is shorter going negative.
		test.That(t, r.turns[role].Speed(), test.ShouldEqual, -swervemodule.OpenLoopTurnSpeed)
	}
}

func TestZeroInputHoldsAngle(t *testing.T) {
	r := newRig(t, DefaultOptions())
	for _, s := range r.turns {
		s.SetRawPosition(1024)
	}
	r.drive.CrabDrive(0, 0, 0)
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Speed, test.ShouldEqual, 0.0)
		test.That(t, w.Angle, test.ShouldEqual, 90.0)
		test.That(t, r.drives[role].Speed(), test.ShouldEqual, 0.0)
		test.That(t, r.turns[role].Speed(), test.ShouldEqual, 0.0)
	}
}

func TestInputsAreClamped(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.CrabDrive(5, 0, 0)
	for _, w := range r.drive.LastCommands() {
		test.That(t, w.Speed, test.ShouldEqual, 1.0)
	}
	r.drive.CrabDrive(1, 1, 0)
	for _, w := range r.drive.LastCommands() {
		test.That(t, w.Speed, test.ShouldEqual, 1.0)
		test.That(t, w.Angle, test.ShouldAlmostEqual, 45.0)
	}
}

func TestPositionModeSteering(t *testing.T) {
	opts := DefaultOptions()
	opts.SteerMode = SteerPosition
	r := newRig(t, opts)
	// One full turn plus 350 degrees.
	for _, s := range r.turns {
		s.SetRawPosition(4096 + encoder.DegreesToRaw(350, 4096))
	}
	r.drive.CrabDrive(0, 1, 0)
	for _, s := range r.turns {
		target, ok := s.Target()
		test.That(t, ok, test.ShouldBeTrue)
		// 90 degrees is 100 degrees away via the next revolution.
		test.That(t, target, test.ShouldEqual, int64(2*4096+1024))
	}

	r = newRig(t, DefaultOptions())
	r.drive.CrabDrivePosition(0, 1, 0)
	for _, s := range r.turns {
		target, ok := s.Target()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, target, test.ShouldEqual, int64(1024))
	}
}

func TestSetRobotAngleTurnsShortWay(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.SetRobotAngle(10, 350)
	geom := chassis.DefaultGeometry()
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Speed, test.ShouldAlmostEqual, 0.2)
		// Counter-clockwise: wheel heads 90 degrees ahead of its radius.
		rx, ry := geom.Offset(role)
		radial := math.Atan2(ry, rx) * 180 / math.Pi
		test.That(t, math.Abs(shortest(radial+90, w.Angle)), test.ShouldBeLessThan, 1e-9)
	}

	r.drive.SetRobotAngle(0, 90)
	for _, w := range r.drive.LastCommands() {
		// Clamped to MaxRotate.
		test.That(t, w.Speed, test.ShouldAlmostEqual, 0.5)
	}
}

func TestRotateIsTangential(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.Rotate(-0.4)
	geom := chassis.DefaultGeometry()
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Speed, test.ShouldAlmostEqual, 0.4)
		// Clockwise: wheel heads 90 degrees behind its radius.
		rx, ry := geom.Offset(role)
		radial := math.Atan2(ry, rx) * 180 / math.Pi
		test.That(t, math.Abs(shortest(radial-90, w.Angle)), test.ShouldBeLessThan, 1e-9)
	}
	test.That(t, r.drive.Integral(), test.ShouldEqual, 0.0)
}

func TestAngleLockResetsOnNewTarget(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.AngleLock(0, 1, 90, 80, false)
	r.drive.AngleLock(0, 1, 90, 80, false)
	test.That(t, r.drive.Integral(), test.ShouldAlmostEqual, 2*10*0.02)

	r.drive.AngleLock(0, 1, 180, 80, false)
	test.That(t, r.drive.Integral(), test.ShouldAlmostEqual, 100*0.02)

	r.drive.CrabDrive(0, 1, 0)
	test.That(t, r.drive.Integral(), test.ShouldEqual, 0.0)
}

func TestAngleLockFieldOriented(t *testing.T) {
	r := newRig(t, DefaultOptions())
	// On target, so no rotation: pure translation corrected for heading.
	r.drive.AngleLock(1, 0, 90, 90, true)
	for _, w := range r.drive.LastCommands() {
		test.That(t, w.Angle, test.ShouldAlmostEqual, 270.0)
		test.That(t, w.Speed, test.ShouldAlmostEqual, 1.0)
	}
}

func TestDriveDistanceRaw(t *testing.T) {
	r := newRig(t, DefaultOptions())

	done := r.drive.DriveDistanceRaw(10000, 0)
	test.That(t, done, test.ShouldBeFalse)
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		test.That(t, w.Angle, test.ShouldAlmostEqual, 90.0)
		test.That(t, r.drives[role].Speed(), test.ShouldAlmostEqual, 0.5)
	}

	// Drifted off heading; the correction winds up.
	test.That(t, r.drive.DriveDistanceRaw(10000, 10), test.ShouldBeFalse)
	test.That(t, r.drive.Integral(), test.ShouldNotEqual, 0.0)

	r.setDistance(9950)
	test.That(t, r.drive.DriveDistanceRaw(10000, 10), test.ShouldBeTrue)
	test.That(t, r.drive.Integral(), test.ShouldEqual, 0.0)
	for _, s := range r.drives {
		test.That(t, s.Speed(), test.ShouldEqual, 0.0)
	}
}

func TestDriveDistanceRawFreshTargetStartsClean(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.DriveDistanceRaw(10000, 0)
	r.drive.DriveDistanceRaw(10000, 10)
	test.That(t, r.drive.Integral(), test.ShouldNotEqual, 0.0)

	// New target holds the heading it starts at.
	r.drive.DriveDistanceRaw(20000, 10)
	test.That(t, r.drive.Integral(), test.ShouldEqual, 0.0)
}

func TestDriveDistanceRawExactArrival(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.setDistance(4096)
	test.That(t, r.drive.DriveDistanceRaw(4096, 0), test.ShouldBeTrue)
	test.That(t, r.drive.Integral(), test.ShouldEqual, 0.0)
}

func TestDriveDistanceRawBackwards(t *testing.T) {
	r := newRig(t, DefaultOptions())
	test.That(t, r.drive.DriveDistanceRaw(-10000, 0), test.ShouldBeFalse)
	for _, role := range chassis.AllRoles {
		w := r.drive.LastCommands()[role]
		// Wheels stay pointing forwards and drive in reverse.
		test.That(t, w.Angle, test.ShouldAlmostEqual, 90.0)
		test.That(t, r.drives[role].Speed(), test.ShouldAlmostEqual, -0.5)
	}
}

func TestXForCenter(t *testing.T) {
	r := newRig(t, DefaultOptions())
	test.That(t, r.drive.XForCenter(0), test.ShouldAlmostEqual, chassis.TrackWidthIn/2)
	// One wheel revolution is 10 inches with the test calibration.
	test.That(t, r.drive.XForCenter(4096), test.ShouldAlmostEqual, chassis.TrackWidthIn/2-10)
}

func TestStopAndRawOutputs(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.drive.UpdateRaw(0.4, -0.2)
	for role := range r.drives {
		test.That(t, r.drives[role].Speed(), test.ShouldAlmostEqual, 0.4)
		test.That(t, r.turns[role].Speed(), test.ShouldAlmostEqual, -0.2)
	}
	r.drive.Stop()
	for role := range r.drives {
		test.That(t, r.drives[role].Speed(), test.ShouldEqual, 0.0)
		test.That(t, r.turns[role].Speed(), test.ShouldEqual, 0.0)
	}
}

func TestZeroEncoders(t *testing.T) {
	r := newRig(t, DefaultOptions())
	r.setDistance(1234)
	for _, s := range r.turns {
		s.SetRawPosition(777)
	}
	r.drive.ZeroEncoders()
	test.That(t, r.drive.AverageDistanceRaw(), test.ShouldEqual, 0.0)
	for _, role := range chassis.AllRoles {
		test.That(t, r.drive.Module(role).Angle(), test.ShouldEqual, 0.0)
	}
}

func TestSetTurnGains(t *testing.T) {
	r := newRig(t, DefaultOptions())
	test.That(t, r.drive.SetTurnGains(1, 0.5, 0.1), test.ShouldBeNil)
	for _, s := range r.turns {
		p, i, d := s.Gains()
		test.That(t, p, test.ShouldEqual, 1.0)
		test.That(t, i, test.ShouldEqual, 0.5)
		test.That(t, d, test.ShouldEqual, 0.1)
	}
}

func TestParseSteerMode(t *testing.T) {
	m, err := ParseSteerMode("position")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, SteerPosition)
	m, err = ParseSteerMode("open-loop")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, SteerOpenLoop)
	_, err = ParseSteerMode("sideways")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, SteerPosition.String(), test.ShouldEqual, "position")
}
