package hardware

import (
	"context"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/sound"
)

func simConfig() config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendSim
	cfg.Gyro.Backend = config.GyroNone
	cfg.Sounds.Enabled = false
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := simConfig()
	cfg.Calibration.CountsPerRev = -1
	_, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSimBackendDrives(t *testing.T) {
	cfg := simConfig()
	cfg.TurnGains.Apply = true
	h, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.power, test.ShouldBeNil)

	_, err = h.Heading()
	test.That(t, err, test.ShouldEqual, ErrNoGyro)

	h.Start(context.Background())
	defer h.Shutdown()

	h.Drive().CrabDrive(0, 1, 0)
	test.That(t, h.sim.drives[chassis.FrontLeft].Speed(), test.ShouldEqual, 1.0)
	p, _, _ := h.sim.turns[chassis.BackRight].Gains()
	test.That(t, p, test.ShouldEqual, cfg.TurnGains.P)

	// The sim loop integrates speed into position.
	deadline := time.Now().Add(time.Second)
	for h.Drive().Module(chassis.FrontLeft).DistanceRaw() == 0 && time.Now().Before(deadline) {
		time.Sleep(simStep)
	}
	test.That(t, h.Drive().Module(chassis.FrontLeft).DistanceRaw(), test.ShouldBeGreaterThan, 0.0)
}

func TestSimStepSteers(t *testing.T) {
	s := newSimBackend(golog.NewTestLogger(t))
	test.That(t, s.turns[chassis.FrontLeft].SetPositionTarget(1024), test.ShouldBeNil)
	for i := 0; i < 100; i++ {
		s.step(simStep)
	}
	pos, err := s.turns[chassis.FrontLeft].Position()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, int64(1024))
}

func TestPlaySoundUsesSoundsDir(t *testing.T) {
	h, err := New(simConfig(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	silent := &sound.Silent{}
	h.sound = silent
	h.PlaySound("start.wav")
	test.That(t, silent.History(), test.ShouldResemble, []string{"/sounds/start.wav"})
}
