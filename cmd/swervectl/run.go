package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/edaniels/golog"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/pausemode"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/teleop"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/testmode"
)

type Mode interface {
	Name() string
	StartupSound() string
	Start(ctx context.Context)
	Stop()
}

type JoystickUser interface {
	OnJoystickEvent(event *joystick.Event)
}

type RunCommand struct{}

func (c *RunCommand) Execute(args []string) error {
	logger := newLogger()
	logger.Infow("starting", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.WriteInUse(opts.Config); err != nil {
		logger.Warnw("failed to write in-use config", "error", err)
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel, logger)

	hw, err := hardware.New(cfg, logger.Named("hw"))
	if err != nil {
		return err
	}
	defer hw.Shutdown()
	hw.Start(ctx)

	joystickEvents, err := initJoystick(ctx, cancel, cfg, logger)
	if err != nil {
		return err
	}
	hw.PlaySound("start.wav")

	shaping := joystick.Shaping{Deadband: cfg.Joystick.Deadband, Expo: cfg.Joystick.Expo}
	allModes := []Mode{
		teleop.New(hw, shaping, logger.Named("teleop")),
		pausemode.New(hw),
		testmode.New(hw, logger.Named("testmode")),
	}
	return runModes(ctx, allModes, hw, joystickEvents, logger)
}

// runModes feeds joystick events to the active mode until ctx is done or the
// joystick goes away.  Options and Share cycle through the modes.
func runModes(ctx context.Context, allModes []Mode, hw hardware.Interface, joystickEvents <-chan *joystick.Event, logger golog.Logger) error {
	activeModeIdx := 0
	activeMode := allModes[activeModeIdx]
	logger.Infow("mode", "name", activeMode.Name())
	activeMode.Start(ctx)

	switchMode := func(delta int) {
		activeMode.Stop()
		hw.Drive().Stop()
		activeModeIdx = (activeModeIdx + delta + len(allModes)) % len(allModes)
		activeMode = allModes[activeModeIdx]
		logger.Infow("mode", "name", activeMode.Name())
		hw.PlaySound(activeMode.StartupSound())
		activeMode.Start(ctx)
	}

	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("context done, stopping active mode and shutting down")
			activeMode.Stop()
			return nil
		case event, ok := <-joystickEvents:
			if !ok {
				logger.Error("joystick events channel closed")
				activeMode.Stop()
				return nil
			}
			if event.ButtonDown(joystick.ButtonOptions) {
				switchMode(1)
				continue
			}
			if event.ButtonDown(joystick.ButtonShare) {
				switchMode(-1)
				continue
			}
			ju, ok := activeMode.(JoystickUser)
			if !ok {
				continue
			}
			done := make(chan struct{})
			go func() {
				defer close(done)
				ju.OnJoystickEvent(event)
			}()
			timeout := time.NewTimer(time.Second)
			select {
			case <-done:
				timeout.Stop()
			case <-timeout.C:
				// Modes only queue events to their own loop; blocking this
				// long means that loop is stuck.
				panic("deadlock? active mode blocked OnJoystickEvent for >1s")
			}
		case <-watchdog.C:
			logger.Debug("main loop still running")
		}
	}
}

// initJoystick waits for the joystick to appear then starts a goroutine that
// forwards its events.
func initJoystick(ctx context.Context, cancel context.CancelFunc, cfg config.Config, logger golog.Logger) (<-chan *joystick.Event, error) {
	events := make(chan *joystick.Event, 1)
	firstLog := true
	for {
		j, err := joystick.NewJoystick(cfg.Joystick.Device)
		if err == nil {
			logger.Infow("opened joystick", "device", cfg.Joystick.Device)
			go func() {
				defer cancel()
				err := loopReadingJoystickEvents(ctx, j, events, logger)
				logger.Errorw("joystick failed", "error", err)
			}()
			return events, nil
		}
		if firstLog {
			logger.Infow("waiting for joystick", "error", err)
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func loopReadingJoystickEvents(ctx context.Context, j *joystick.Joystick, events chan<- *joystick.Event, logger golog.Logger) error {
	defer close(events)
	defer j.Close()
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		logger.Debugw("joystick", "event", event.String())
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

func registerSignalHandlers(cancel context.CancelFunc, logger golog.Logger) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		logger.Infow("signal", "signal", s.String())
		cancel()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
