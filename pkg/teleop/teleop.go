// Package teleop is the driver-controlled mode: joystick events are queued to
// a single goroutine that runs the drive once per cycle.
package teleop

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/tunable"
)

// Minimum time between repeated "no heading" warnings.
const headingWarnInterval = 5 * time.Second

type Mode struct {
	hw      hardware.Interface
	shaping joystick.Shaping
	logger  golog.Logger

	tunables                                      *tunable.Tunables
	headingKp, headingKi, rotateKp, angleTolerance *tunable.Tunable

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event

	lastHeadingWarning time.Time
}

func New(hw hardware.Interface, shaping joystick.Shaping, logger golog.Logger) *Mode {
	m := &Mode{
		hw:             hw,
		shaping:        shaping,
		logger:         logger,
		tunables:       tunable.New(logger),
		joystickEvents: make(chan *joystick.Event),
	}
	opts := hw.Drive().Options()
	m.headingKp = m.tunables.Create("heading-kp", opts.Heading.Kp, 0.001)
	m.headingKi = m.tunables.Create("heading-ki", opts.Heading.Ki, 0.001)
	m.rotateKp = m.tunables.Create("rotate-kp", opts.RotateKp, 0.001)
	m.angleTolerance = m.tunables.Create("angle-tolerance", opts.AngleTolerance, 0.5)
	return m
}

func (m *Mode) Name() string {
	return "Teleop"
}

func (m *Mode) StartupSound() string {
	return "teleop.wav"
}

func (m *Mode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *Mode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *Mode) OnJoystickEvent(event *joystick.Event) {
	m.joystickEvents <- event
}

func (m *Mode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	drive := m.hw.Drive()
	defer drive.Stop()

	ticker := time.NewTicker(drive.Options().CyclePeriod)
	defer ticker.Stop()

	c := &controls{shaping: m.shaping}
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.joystickEvents:
			m.apply(c.handle(event), c)
		case <-ticker.C:
			m.tick(c)
		}
	}
}

func (m *Mode) apply(a action, c *controls) {
	switch a {
	case actionZero:
		m.logger.Info("zeroing encoders and heading")
		drive := m.hw.Drive()
		drive.Stop()
		drive.ZeroEncoders()
		m.hw.ZeroHeading()
		m.hw.PlaySound("zero.wav")
	case actionToggled:
		m.logger.Infow("controls changed", "crab", c.crab, "fieldOriented", c.fieldOriented,
			"cruise", c.cruising, "cruiseX", c.cruiseX, "cruiseY", c.cruiseY)
	case actionSelectNextTunable:
		m.tunables.SelectNext()
	case actionSelectPrevTunable:
		m.tunables.SelectPrev()
	case actionIncreaseTunable:
		m.tunables.AdjustCurrent(1)
		m.applyTunables()
	case actionDecreaseTunable:
		m.tunables.AdjustCurrent(-1)
		m.applyTunables()
	}
}

func (m *Mode) applyTunables() {
	drive := m.hw.Drive()
	opts := drive.Options()
	opts.Heading.Kp = m.headingKp.Float()
	opts.Heading.Ki = m.headingKi.Float()
	opts.RotateKp = m.rotateKp.Float()
	opts.AngleTolerance = m.angleTolerance.Float()
	drive.SetOptions(opts)
}

// tick runs one control cycle.
func (m *Mode) tick(c *controls) {
	drive := m.hw.Drive()
	x, y, z := c.command()

	heading, err := m.hw.Heading()
	haveHeading := err == nil
	if !haveHeading && (c.fieldOriented || c.lockHeld) {
		m.warnNoHeading(err)
	}
	field := c.fieldOriented && haveHeading

	switch {
	case c.lockHeld && haveHeading:
		if !c.lockActive {
			c.lockActive = true
			c.lockTarget = heading
			m.logger.Debugw("heading lock", "target", heading)
		}
		drive.AngleLock(x, y, c.lockTarget, heading, field)
	case c.crab && field:
		drive.CrabGyro(x, y, z, heading)
	case c.crab:
		drive.CrabDrive(x, y, z)
	case x == 0 && y == 0 && z != 0:
		// Spinning in place looks the same in either frame.
		drive.Rotate(z)
	case field:
		drive.SwerveDriveUpdate(x, y, z, heading)
	default:
		drive.SwerveRobotOriented(x, y, z)
	}
}

func (m *Mode) warnNoHeading(err error) {
	now := time.Now()
	if now.Sub(m.lastHeadingWarning) < headingWarnInterval {
		return
	}
	m.lastHeadingWarning = now
	m.logger.Warnw("no heading; driving robot-oriented", "error", err)
}
