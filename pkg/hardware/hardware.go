package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/canmotor"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/sound"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervedrive"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervemodule"
)

type Hardware struct {
	cfg    config.Config
	logger golog.Logger

	drive *swervedrive.Drive
	bus   *canmotor.Bus
	sim   *simBackend

	gyro     Gyro
	gyroLoop func(ctx context.Context, wg *sync.WaitGroup)
	power    powerMonitor
	sound    sound.Interface

	cancel context.CancelFunc
	loops  sync.WaitGroup
}

var _ Interface = (*Hardware)(nil)

// New opens everything cfg describes.  Only the motor backend is fatal; a
// missing gyro, power sensor or speaker is logged and worked around.
func New(cfg config.Config, logger golog.Logger) (*Hardware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hardware{
		cfg:    cfg,
		logger: logger,
		gyro:   noGyro{},
		sound:  &sound.Silent{},
	}

	var err error
	var drives, turns [4]actuator.Actuator
	switch cfg.Backend {
	case config.BackendCAN:
		drives, turns, err = h.openCAN()
	case config.BackendSim:
		h.sim = newSimBackend(logger.Named("sim"))
		drives, turns = h.sim.actuators()
	}
	if err != nil {
		return nil, err
	}

	if err := h.buildDrive(drives, turns); err != nil {
		h.closeBus()
		return nil, err
	}

	h.openGyro()
	h.openPower()
	if cfg.Sounds.Enabled {
		h.sound = sound.NewPlayer(logger.Named("sound"))
	}
	return h, nil
}

func (h *Hardware) openCAN() (drives, turns [4]actuator.Actuator, err error) {
	ids, err := h.cfg.ModuleIDs()
	if err != nil {
		return drives, turns, err
	}
	h.bus, err = canmotor.Open(h.cfg.CAN.Interface, h.logger.Named("can"))
	if err != nil {
		return drives, turns, err
	}
	for _, r := range chassis.AllRoles {
		drives[r] = h.bus.Motor(ids[r].DriveID)
		turns[r] = h.bus.Motor(ids[r].TurnID)
	}
	return drives, turns, nil
}

func (h *Hardware) buildDrive(drives, turns [4]actuator.Actuator) error {
	var modules []*swervemodule.Module
	for _, r := range chassis.AllRoles {
		m, err := swervemodule.New(r, drives[r], turns[r], h.cfg.Calibration, h.logger.Named("module"))
		if err != nil {
			return err
		}
		modules = append(modules, m)
	}
	opts, err := h.cfg.DriveOptions()
	if err != nil {
		return err
	}
	h.drive, err = swervedrive.New(modules, h.cfg.Geometry, opts, h.logger.Named("drive"))
	if err != nil {
		return err
	}
	if h.cfg.TurnGains.Apply {
		g := h.cfg.TurnGains
		if err := h.drive.SetTurnGains(g.P, g.I, g.D); err != nil {
			return errors.Wrap(err, "failed to apply turn gains")
		}
	}
	return nil
}

func (h *Hardware) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	if h.bus != nil {
		h.loops.Add(1)
		go h.bus.Loop(ctx, &h.loops)
	}
	if h.sim != nil {
		h.loops.Add(1)
		go h.sim.loop(ctx, &h.loops)
	}
	if h.gyroLoop != nil {
		h.loops.Add(1)
		go h.gyroLoop(ctx, &h.loops)
	}
	if h.power != nil {
		h.loops.Add(1)
		go h.power.Loop(ctx, &h.loops)
	}
	h.logger.Infow("hardware started", "backend", h.cfg.Backend, "gyro", h.cfg.Gyro.Backend)
}

func (h *Hardware) Drive() *swervedrive.Drive {
	return h.drive
}

func (h *Hardware) Heading() (float64, error) {
	return h.gyro.Heading()
}

func (h *Hardware) ZeroHeading() {
	h.gyro.Zero()
}

func (h *Hardware) PlaySound(name string) {
	h.sound.Play(h.cfg.SoundPath(name))
}

// Shutdown stops the motors and every background loop.
func (h *Hardware) Shutdown() {
	h.logger.Info("zeroing motors for shut down")
	h.drive.Stop()
	// Give the last commands time to go out before the bus closes.
	time.Sleep(30 * time.Millisecond)
	if h.cancel != nil {
		h.cancel()
	}
	h.closeBus()
	h.loops.Wait()
	h.sound.Close()
}

func (h *Hardware) closeBus() {
	if h.bus == nil {
		return
	}
	if err := h.bus.Close(); err != nil {
		h.logger.Warnw("failed to close CAN bus", "error", err)
	}
}
