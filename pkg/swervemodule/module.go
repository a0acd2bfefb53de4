// Package swervemodule controls one swerve corner: a drive motor and a
// steering motor with a rotary sensor.
//
// The steering angle is never stored.  Every query re-reads the raw count and
// folds it onto [0, 360), so there is nothing to go stale.  When a sensor read
// fails the module logs it and carries on with the last value it saw; a
// chassis that stops dead because one CAN frame was late is worse than one
// that steers on slightly old data for a cycle.
package swervemodule

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/encoder"
)

const (
	// Speed used by the open-loop steering step.  Positive increases the
	// angle reading.
	OpenLoopTurnSpeed = 0.30

	// Applied to SetRawOutputs, which is only used on the bench.
	RawOutputScalar = 1.0

	// A dead bus fails every read on every cycle; log at most this often.
	faultWarnInterval = time.Second
)

type Channel int

const (
	ChannelDrive Channel = iota
	ChannelTurn
)

type Module struct {
	role  chassis.Role
	cal   encoder.Calibration
	drive actuator.Actuator
	turn  actuator.Actuator
	// nil if the steering controller can't run its own position loop.
	turnPosition actuator.PositionControllable

	logger golog.Logger

	lastTurnRaw  int64
	lastDriveRaw int64
	lastCurrent  [2]float64
	lastVoltage  [2]float64

	warnedNoPositionMode bool

	now              func() time.Time
	lastFaultWarning time.Time
	suppressedFaults int
	faultWarnings    int
}

// New binds a module to its actuators.  An invalid calibration is returned as
// an *encoder.ConfigurationError and no module is created.
func New(role chassis.Role, drive, turn actuator.Actuator, cal encoder.Calibration, logger golog.Logger) (*Module, error) {
	if !role.Valid() {
		return nil, errors.Errorf("invalid module role %v", role)
	}
	if drive == nil || turn == nil {
		return nil, errors.Errorf("%v: both drive and turn actuators are required", role)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	m := &Module{
		role:   role,
		cal:    cal,
		drive:  drive,
		turn:   turn,
		logger: logger.Named(role.Short()),
		now:    time.Now,
	}
	if pc, ok := turn.(actuator.PositionControllable); ok {
		m.turnPosition = pc
	}
	return m, nil
}

func (m *Module) Role() chassis.Role {
	return m.role
}

func (m *Module) Calibration() encoder.Calibration {
	return m.cal
}

// SetRawOutputs drives both motors directly, bypassing angle control.
func (m *Module) SetRawOutputs(driveSpeed, turnSpeed float64) {
	m.setSpeed(ChannelDrive, RawOutputScalar*actuator.Clamp(driveSpeed))
	m.setSpeed(ChannelTurn, RawOutputScalar*actuator.Clamp(turnSpeed))
}

func (m *Module) SetDriveSpeed(speed float64) {
	m.setSpeed(ChannelDrive, actuator.Clamp(speed))
}

func (m *Module) StopTurn() {
	m.setSpeed(ChannelTurn, 0)
}

// DriveToAngleOpenLoop issues one fixed-speed steering step toward desired
// along the shorter way round.  It has no notion of arrival: call it every
// cycle and stop calling it (see AngleError, StopTurn) once close enough.
func (m *Module) DriveToAngleOpenLoop(desiredDeg float64) {
	m.setSpeed(ChannelTurn, OpenLoopDirection(m.Angle(), angle.Wrap360(desiredDeg))*OpenLoopTurnSpeed)
}

// OpenLoopDirection returns +1, -1 or 0: the direction to turn from current
// to reach desired without passing through more than 180 degrees.  Both
// angles are in [0, 360).  Exactly opposite angles always resolve to +1 so the
// choice can't flip-flop between cycles.
func OpenLoopDirection(current, desired float64) float64 {
	diff := current - desired
	switch {
	case current < desired && diff > -180:
		return 1
	case current < desired && diff < -180:
		return -1
	case current > desired && diff > 180:
		return 1
	case current > desired && diff < 180:
		return -1
	case diff == 180 || diff == -180:
		return 1
	}
	return 0
}

// DriveToAnglePositionMode hands the steering motor an absolute count target
// that is never more than half a turn from where it is now.
func (m *Module) DriveToAnglePositionMode(desiredDeg float64) {
	if m.turnPosition == nil {
		if !m.warnedNoPositionMode {
			m.logger.Warnw("turn actuator has no position mode; using open loop steering")
			m.warnedNoPositionMode = true
		}
		m.DriveToAngleOpenLoop(desiredDeg)
		return
	}
	target := m.PositionTarget(desiredDeg)
	if err := m.turnPosition.SetPositionTarget(target); err != nil {
		m.warnFault("failed to set turn position target", "target", target, "error", err)
	}
}

// PositionTarget computes the raw count DriveToAnglePositionMode would
// command for desiredDeg, given the current sensor reading.
func (m *Module) PositionTarget(desiredDeg float64) int64 {
	raw := m.AngleRaw()
	current := m.cal.Degrees(raw)
	desired := RemapShortest(current, angle.Wrap360(desiredDeg))
	return m.cal.Revolutions(raw)*int64(m.cal.CountsPerRev) + m.cal.Counts(desired)
}

// RemapShortest shifts desired by a whole turn when that brings it within
// 180 degrees of current.  The result may be outside [0, 360).
func RemapShortest(current, desired float64) float64 {
	delta := desired - current
	if delta > 180 || delta < -180 {
		if current > 180 {
			desired += 360
		} else {
			desired -= 360
		}
	}
	return desired
}

// AngleError is the signed shortest rotation from the current angle to
// desired, in (-180, 180].
func (m *Module) AngleError(desiredDeg float64) float64 {
	return angle.ShortestDelta(m.Angle(), desiredDeg)
}

// SetTurnGains updates the steering position loop, if the controller
// supports it.
func (m *Module) SetTurnGains(p, i, d float64) error {
	gc, ok := m.turn.(actuator.GainConfigurable)
	if !ok {
		return errors.Errorf("%v: turn actuator does not support gain configuration", m.role)
	}
	return errors.Wrapf(gc.SetGains(p, i, d), "%v: failed to set turn gains", m.role)
}

// ZeroEncoders makes the current orientation read as 0 degrees and the drive
// distance read as zero.  Only call with the motors stopped.
func (m *Module) ZeroEncoders() {
	if err := m.drive.ZeroPosition(); err != nil {
		m.logger.Errorw("failed to zero drive encoder", "error", err)
	} else {
		m.lastDriveRaw = 0
	}
	if err := m.turn.ZeroPosition(); err != nil {
		m.logger.Errorw("failed to zero turn encoder", "error", err)
	} else {
		m.lastTurnRaw = 0
	}
}

// Angle is the steering angle in [0, 360).
func (m *Module) Angle() float64 {
	return m.cal.Degrees(m.AngleRaw())
}

func (m *Module) AngleRaw() int64 {
	raw, err := m.turn.Position()
	if err != nil {
		m.warnFault("turn sensor read failed; using last known value", "last", m.lastTurnRaw, "error", err)
		return m.lastTurnRaw
	}
	m.lastTurnRaw = raw
	return raw
}

func (m *Module) DistanceRaw() float64 {
	raw, err := m.drive.Position()
	if err != nil {
		m.warnFault("drive sensor read failed; using last known value", "last", m.lastDriveRaw, "error", err)
		return float64(m.lastDriveRaw)
	}
	m.lastDriveRaw = raw
	return float64(raw)
}

func (m *Module) DistanceIn() float64 {
	return m.cal.Inches(m.DistanceRaw())
}

func (m *Module) DistanceCm() float64 {
	return m.cal.Centimetres(m.DistanceRaw())
}

// OutputCurrent returns the motor current in amps, or 0 for an unknown
// channel.
func (m *Module) OutputCurrent(ch Channel) float64 {
	a := m.actuator(ch)
	if a == nil {
		return 0
	}
	v, err := a.OutputCurrent()
	if err != nil {
		m.warnFault("current read failed; using last known value", "channel", ch, "error", err)
		return m.lastCurrent[ch]
	}
	m.lastCurrent[ch] = v
	return v
}

// OutputVoltage returns the motor output voltage, or 0 for an unknown
// channel.
func (m *Module) OutputVoltage(ch Channel) float64 {
	a := m.actuator(ch)
	if a == nil {
		return 0
	}
	v, err := a.OutputVoltage()
	if err != nil {
		m.warnFault("voltage read failed; using last known value", "channel", ch, "error", err)
		return m.lastVoltage[ch]
	}
	m.lastVoltage[ch] = v
	return v
}

func (m *Module) actuator(ch Channel) actuator.Actuator {
	switch ch {
	case ChannelDrive:
		return m.drive
	case ChannelTurn:
		return m.turn
	}
	return nil
}

func (m *Module) setSpeed(ch Channel, speed float64) {
	if err := m.actuator(ch).SetSpeed(speed); err != nil {
		m.warnFault("failed to set speed", "channel", ch, "speed", speed, "error", err)
	}
}

// warnFault logs a read or command failure, dropping repeats that arrive
// within faultWarnInterval of the last one logged.
func (m *Module) warnFault(msg string, keysAndValues ...interface{}) {
	now := m.now()
	if !m.lastFaultWarning.IsZero() && now.Sub(m.lastFaultWarning) < faultWarnInterval {
		m.suppressedFaults++
		return
	}
	if m.suppressedFaults > 0 {
		keysAndValues = append(keysAndValues, "suppressed", m.suppressedFaults)
	}
	m.lastFaultWarning = now
	m.suppressedFaults = 0
	m.faultWarnings++
	m.logger.Warnw(msg, keysAndValues...)
}

func (c Channel) String() string {
	switch c {
	case ChannelDrive:
		return "drive"
	case ChannelTurn:
		return "turn"
	}
	return "unknown"
}
