// Package swervedrive turns chassis motion commands into per-module steering
// and drive commands.
//
// Every method is one control cycle: it reads what it needs, writes the four
// modules and returns.  Nothing blocks and out-of-range inputs are clamped.
// The only state carried between cycles is the pid.Session of the maneuver in
// progress (heading lock or distance drive); issuing a different kind of
// command, or a new target, throws it away.
package swervedrive

import (
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/pid"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervemodule"
)

type SteerMode int

const (
	// SteerOpenLoop nudges each steering motor toward its target at a fixed
	// speed and stops it within AngleTolerance.
	SteerOpenLoop SteerMode = iota
	// SteerPosition hands an absolute count target to the motor controller.
	SteerPosition
)

func (s SteerMode) String() string {
	switch s {
	case SteerOpenLoop:
		return "open-loop"
	case SteerPosition:
		return "position"
	}
	return "unknown"
}

func ParseSteerMode(s string) (SteerMode, error) {
	switch s {
	case "open-loop", "openloop", "":
		return SteerOpenLoop, nil
	case "position":
		return SteerPosition, nil
	}
	return 0, errors.Errorf("unknown steer mode %q", s)
}

type Options struct {
	SteerMode SteerMode
	// Degrees within which open-loop steering stops turning.
	AngleTolerance float64
	// Scheduler period; used as dt for the heading controllers.
	CyclePeriod time.Duration

	// Heading hold, error in degrees -> rotation command.
	Heading pid.Gains

	// SetRobotAngle: rotation command per degree of error, and its limit.
	RotateKp  float64
	MaxRotate float64

	// DriveDistanceRaw: speed per raw count remaining, speed limit, and the
	// raw-count window that counts as arrived.
	DistanceKp        float64
	DistanceMaxSpeed  float64
	DistanceTolerance float64
}

func DefaultOptions() Options {
	return Options{
		SteerMode:      SteerOpenLoop,
		AngleTolerance: 2,
		CyclePeriod:    20 * time.Millisecond,
		Heading: pid.Gains{
			Kp:            0.02,
			Ki:            0.03,
			IntegralLimit: 10,
			MaxOutput:     0.5,
		},
		RotateKp:          0.01,
		MaxRotate:         0.5,
		DistanceKp:        0.0005,
		DistanceMaxSpeed:  0.5,
		DistanceTolerance: 100,
	}
}

type distanceManeuver struct {
	target      float64
	holdHeading float64
	session     *pid.Session
}

type Drive struct {
	modules [4]*swervemodule.Module
	geom    chassis.Geometry
	opts    Options
	logger  golog.Logger

	heading  *pid.Session
	distance *distanceManeuver

	last [4]WheelState
}

// New builds a drive from exactly one module per role.
func New(modules []*swervemodule.Module, geom chassis.Geometry, opts Options, logger golog.Logger) (*Drive, error) {
	d := &Drive{
		geom:   geom,
		opts:   opts,
		logger: logger,
	}
	for _, m := range modules {
		if m == nil {
			return nil, errors.New("nil module")
		}
		if d.modules[m.Role()] != nil {
			return nil, errors.Errorf("duplicate module for %v", m.Role())
		}
		d.modules[m.Role()] = m
	}
	for _, r := range chassis.AllRoles {
		if d.modules[r] == nil {
			return nil, errors.Errorf("missing module for %v", r)
		}
	}
	if geom.Radius() <= 0 {
		return nil, &encoder.ConfigurationError{Field: "chassis geometry radius", Value: geom.Radius()}
	}
	return d, nil
}

func (d *Drive) Module(r chassis.Role) *swervemodule.Module {
	return d.modules[r]
}

func (d *Drive) Options() Options {
	return d.opts
}

// SetOptions replaces the tuning.  Any maneuver in progress is ended so that
// its integral isn't reinterpreted with new gains.
func (d *Drive) SetOptions(opts Options) {
	d.EndManeuver()
	d.opts = opts
}

// LastCommands returns the wheel states sent on the most recent cycle.
func (d *Drive) LastCommands() [4]WheelState {
	return d.last
}

// Integral returns the accumulator of the maneuver in progress, 0 if none.
func (d *Drive) Integral() float64 {
	if d.distance != nil {
		return d.distance.session.Integral()
	}
	return d.heading.Integral()
}

// EndManeuver discards any heading-lock or distance session.
func (d *Drive) EndManeuver() {
	d.heading = nil
	d.distance = nil
}

// CrabDrive points every wheel the same way.  z is accepted for symmetry with
// the other drive calls but ignored: the chassis does not rotate.
func (d *Drive) CrabDrive(x, y, z float64) {
	d.EndManeuver()
	d.crab(Crab(x, y, 0), d.opts.SteerMode)
}

// CrabDrivePosition is CrabDrive using the motor controllers' position loop
// for steering regardless of the configured mode.
func (d *Drive) CrabDrivePosition(x, y, z float64) {
	d.EndManeuver()
	d.crab(Crab(x, y, 0), SteerPosition)
}

// CrabGyro is field-oriented CrabDrive: the direction of travel is corrected
// by the gyro heading.
func (d *Drive) CrabGyro(x, y, z, gyroHeading float64) {
	d.EndManeuver()
	d.crab(Crab(x, y, gyroHeading), d.opts.SteerMode)
}

func (d *Drive) crab(w WheelState, mode SteerMode) {
	d.dispatch([4]WheelState{w, w, w, w}, mode)
}

// SwerveRobotOriented is full swerve kinematics in the chassis frame.
func (d *Drive) SwerveRobotOriented(x, y, z float64) {
	d.EndManeuver()
	d.swerve(x, y, z, 0)
}

// SwerveDriveUpdate is full swerve kinematics with (x, y) in the field frame.
func (d *Drive) SwerveDriveUpdate(x, y, z, gyroHeading float64) {
	d.EndManeuver()
	d.swerve(x, y, z, gyroHeading)
}

// Rotate spins in place at rate z.
func (d *Drive) Rotate(z float64) {
	d.SwerveRobotOriented(0, 0, z)
}

func (d *Drive) swerve(x, y, z, heading float64) {
	d.dispatch(Solve(d.geom, x, y, z, heading), d.opts.SteerMode)
}

// SetRobotAngle rotates in place toward target (degrees) along the shorter
// way round, given the current heading.
func (d *Drive) SetRobotAngle(target, current float64) {
	d.EndManeuver()
	delta := angle.ShortestDelta(current, target)
	z := actuator.ClampTo(d.opts.RotateKp*delta, d.opts.MaxRotate)
	d.swerve(0, 0, z, 0)
}

// AngleLock translates while holding the chassis at target heading.  The
// heading controller's integral is reset whenever target changes.
func (d *Drive) AngleLock(x, y, target, gyroHeading float64, fieldOriented bool) {
	d.distance = nil
	target = angle.Wrap360(target)
	if d.heading == nil || d.heading.Target() != target {
		d.logger.Debugw("new heading lock", "target", target, "heading", gyroHeading)
		d.heading = pid.NewSession(d.opts.Heading, target)
	}
	z := d.heading.Update(angle.ShortestDelta(gyroHeading, target), d.opts.CyclePeriod.Seconds())
	if !fieldOriented {
		gyroHeading = 0
	}
	d.swerve(x, y, actuator.Clamp(z), gyroHeading)
}

// DriveDistanceRaw drives forwards (or backwards, for a target behind) until
// the mean drive count of the four modules is within DistanceTolerance of
// target, holding the heading the chassis had when the target was issued.
// Returns true, with the drive stopped and the maneuver ended, on arrival.
// Call once per cycle.
func (d *Drive) DriveDistanceRaw(target, gyroHeading float64) bool {
	d.heading = nil
	if d.distance == nil || d.distance.target != target {
		d.logger.Infow("new distance target", "target", target, "heading", gyroHeading)
		d.distance = &distanceManeuver{
			target:      target,
			holdHeading: angle.Wrap360(gyroHeading),
			session:     pid.NewSession(d.opts.Heading, angle.Wrap360(gyroHeading)),
		}
	}

	remaining := target - d.AverageDistanceRaw()
	if math.Abs(remaining) <= d.opts.DistanceTolerance {
		d.logger.Infow("distance target reached", "target", target, "remaining", remaining)
		d.stopDrive()
		d.distance = nil
		return true
	}

	speed := actuator.ClampTo(d.opts.DistanceKp*remaining, d.opts.DistanceMaxSpeed)
	headingErr := angle.ShortestDelta(gyroHeading, d.distance.holdHeading)
	z := actuator.Clamp(d.distance.session.Update(headingErr, d.opts.CyclePeriod.Seconds()))

	states := Solve(d.geom, 0, speed, z, 0)
	for i := range states {
		states[i] = keepForward(states[i])
	}
	d.dispatch(states, d.opts.SteerMode)
	return false
}

// AverageDistanceRaw is the mean drive count across the modules.
func (d *Drive) AverageDistanceRaw() float64 {
	var sum float64
	for _, m := range d.modules {
		sum += m.DistanceRaw()
	}
	return sum / float64(len(d.modules))
}

// XForCenter converts a raw drive count into the lateral offset of a pivot
// from the chassis centre after it has moved that far inwards.  Used when
// working out turning radii; has no side effects.
func (d *Drive) XForCenter(current float64) float64 {
	cal := d.modules[chassis.FrontLeft].Calibration()
	return d.geom.TrackWidth/2 - cal.Inches(current)
}

// UpdateRaw passes raw outputs to every module.  Bench use only.
func (d *Drive) UpdateRaw(driveSpeed, turnSpeed float64) {
	d.EndManeuver()
	for _, m := range d.modules {
		m.SetRawOutputs(driveSpeed, turnSpeed)
	}
}

// Stop zeroes every drive and steering output.
func (d *Drive) Stop() {
	d.EndManeuver()
	for _, m := range d.modules {
		m.SetDriveSpeed(0)
		m.StopTurn()
	}
	d.last = [4]WheelState{}
}

// ZeroEncoders zeroes every module's sensors.  Chassis must be stationary.
func (d *Drive) ZeroEncoders() {
	d.EndManeuver()
	for _, m := range d.modules {
		m.ZeroEncoders()
	}
}

// SetTurnGains forwards steering loop gains to every module.
func (d *Drive) SetTurnGains(p, i, dGain float64) error {
	for _, m := range d.modules {
		if err := m.SetTurnGains(p, i, dGain); err != nil {
			return err
		}
	}
	return nil
}

func (d *Drive) stopDrive() {
	for i, m := range d.modules {
		m.SetDriveSpeed(0)
		if d.opts.SteerMode == SteerOpenLoop {
			m.StopTurn()
		}
		d.last[i].Speed = 0
	}
}

func (d *Drive) dispatch(states [4]WheelState, mode SteerMode) {
	for role, m := range d.modules {
		w := states[role]
		if w.Stopped() {
			// Hold the current steering angle rather than snapping to 0.
			m.SetDriveSpeed(0)
			if mode == SteerOpenLoop {
				m.StopTurn()
			}
			d.last[role] = WheelState{Angle: m.Angle()}
			continue
		}
		d.steer(m, w.Angle, mode)
		m.SetDriveSpeed(w.Speed)
		d.last[role] = w
	}
}

func (d *Drive) steer(m *swervemodule.Module, target float64, mode SteerMode) {
	if mode == SteerPosition {
		m.DriveToAnglePositionMode(target)
		return
	}
	if math.Abs(m.AngleError(target)) <= d.opts.AngleTolerance {
		m.StopTurn()
		return
	}
	m.DriveToAngleOpenLoop(target)
}
