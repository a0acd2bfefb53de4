package main

import (
	"os"

	"github.com/edaniels/golog"
	"github.com/jessevdk/go-flags"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/config"
)

type Options struct {
	Config     string `long:"config" short:"c" default:"/cfg/swerve.yaml" description:"YAML config file; missing means defaults"`
	Production bool   `long:"production" description:"JSON logs at info level"`
	Sim        bool   `long:"sim" description:"Use simulated motors regardless of the config"`

	Run        RunCommand        `command:"run" description:"Drive from the joystick"`
	Zero       ZeroCommand       `command:"zero" description:"Zero every drive and steering encoder"`
	Steer      SteerCommand      `command:"steer" description:"Steer one module to an angle (bench)"`
	DumpConfig DumpConfigCommand `command:"dump-config" description:"Print the effective config"`
	JoyTest    JoyTestCommand    `command:"joytest" description:"Print joystick events"`
	Power      PowerCommand      `command:"power" description:"Sample the supply rail sensors"`
	Heading    HeadingCommand    `command:"heading" description:"Print the gyro heading"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "swervectl - swerve drive chassis controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func newLogger() golog.Logger {
	if opts.Production {
		return golog.NewLogger("swervectl")
	}
	return golog.NewDevelopmentLogger("swervectl")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, err
	}
	if opts.Sim {
		cfg.Backend = config.BackendSim
	}
	return cfg, nil
}
