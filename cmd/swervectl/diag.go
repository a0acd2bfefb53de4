package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/joystick"
)

// JoyTestCommand prints raw joystick events until interrupted.
type JoyTestCommand struct{}

func (c *JoyTestCommand) Execute(args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel, logger)

	events, err := initJoystick(ctx, cancel, cfg, logger)
	if err != nil {
		return err
	}
	shaping := joystick.Shaping{Deadband: cfg.Joystick.Deadband, Expo: cfg.Joystick.Expo}
	for e := range events {
		if e.Type == joystick.EventTypeAxis {
			fmt.Printf("%s shaped=%.3f\n", e, shaping.Apply(e.Value))
			continue
		}
		fmt.Println(e)
	}
	return nil
}

// PowerCommand samples the supply rail sensors.
type PowerCommand struct {
	Count    int           `long:"count" short:"n" default:"10" description:"Number of samples; 0 runs forever"`
	Interval time.Duration `long:"interval" default:"1s" description:"Time between samples"`
}

func (c *PowerCommand) Execute(args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := cfg.Power
	mon, err := hardware.OpenPowerMonitor(p, c.Interval, logger.Named("power"))
	if err != nil {
		return err
	}
	if mon.NumSensors() == 0 {
		return errors.Errorf("no power sensors found on %s", p.I2CDevice)
	}
	for i := 0; c.Count == 0 || i < c.Count; i++ {
		if i > 0 {
			time.Sleep(c.Interval)
		}
		for _, r := range mon.Sample() {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "bus %d: %v\n", r.Bus, r.Err)
				continue
			}
			fmt.Printf("bus %d: %.2fV %.3fA %.2fW\n", r.Bus, r.Volts, r.Amps, r.Watts)
		}
	}
	return nil
}

// HeadingCommand zeroes the gyro and prints the heading while the robot is
// turned by hand.
type HeadingCommand struct {
	Duration time.Duration `long:"duration" short:"d" default:"10s" description:"How long to print for"`
}

func (c *HeadingCommand) Execute(args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Duration)
	defer cancel()

	hw, err := hardware.New(cfg, logger.Named("hw"))
	if err != nil {
		return err
	}
	defer hw.Shutdown()
	hw.Start(ctx)
	hw.Drive().Stop()

	// Give the gyro a moment to produce its first reading.
	time.Sleep(500 * time.Millisecond)
	hw.ZeroHeading()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		h, err := hw.Heading()
		if errors.Is(err, hardware.ErrNoGyro) {
			return err
		}
		if err != nil {
			fmt.Printf("heading unavailable: %v\n", err)
			continue
		}
		fmt.Printf("heading %.1f\n", h)
	}
}
