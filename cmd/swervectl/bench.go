package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
)

type ZeroCommand struct{}

func (c *ZeroCommand) Execute(args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hw, err := hardware.New(cfg, logger.Named("hw"))
	if err != nil {
		return err
	}
	hw.Start(context.Background())
	defer hw.Shutdown()

	hw.Drive().Stop()
	hw.Drive().ZeroEncoders()
	for _, r := range chassis.AllRoles {
		m := hw.Drive().Module(r)
		logger.Infow("zeroed", "module", r.String(), "angle", m.Angle(), "distance", m.DistanceRaw())
	}
	return nil
}

type SteerCommand struct {
	Module   string        `long:"module" short:"m" required:"true" description:"fl, fr, bl or br"`
	Angle    float64       `long:"angle" short:"a" required:"true" description:"Target angle in degrees"`
	Position bool          `long:"position" description:"Use the controller's position loop instead of open loop"`
	Timeout  time.Duration `long:"timeout" default:"5s" description:"Give up after this long"`
}

func (c *SteerCommand) Execute(args []string) error {
	role, err := chassis.ParseRole(c.Module)
	if err != nil {
		return err
	}
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hw, err := hardware.New(cfg, logger.Named("hw"))
	if err != nil {
		return err
	}
	hw.Start(context.Background())
	defer hw.Shutdown()

	drive := hw.Drive()
	m := drive.Module(role)
	tolerance := drive.Options().AngleTolerance
	if c.Position {
		logger.Infow("position target", "counts", m.PositionTarget(c.Angle))
	}

	ticker := time.NewTicker(drive.Options().CyclePeriod)
	defer ticker.Stop()
	deadline := time.Now().Add(c.Timeout)
	for time.Now().Before(deadline) {
		<-ticker.C
		errDeg := m.AngleError(c.Angle)
		if math.Abs(errDeg) <= tolerance {
			m.StopTurn()
			fmt.Fprintf(os.Stdout, "%v at %.1f degrees (target %.1f)\n", role, m.Angle(), c.Angle)
			return nil
		}
		if c.Position {
			m.DriveToAnglePositionMode(c.Angle)
		} else {
			m.DriveToAngleOpenLoop(c.Angle)
		}
	}
	m.StopTurn()
	return errors.Errorf("%v did not reach %.1f degrees within %v; at %.1f", role, c.Angle, c.Timeout, m.Angle())
}

type DumpConfigCommand struct{}

func (c *DumpConfigCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	raw, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(raw)
	return err
}
