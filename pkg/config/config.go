// Package config loads the controller's YAML configuration.
//
// Defaults are built in; a file only needs to mention what differs.  The
// effective configuration is written back out next to the source file so that
// what the robot actually ran with can be inspected after the fact.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/pid"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervedrive"
)

const (
	DefaultPath = "/cfg/swerve.yaml"

	BackendCAN = "can"
	BackendSim = "sim"

	GyroBNO08X = "bno08x"
	GyroIMUSPI = "imu-spi"
	GyroIMUI2C = "imu-i2c"
	GyroNone   = "none"

	JoystickEnv = "JOYSTICK_DEVICE"
)

type Config struct {
	// "can" for real motor controllers, "sim" for in-memory actuators.
	Backend string `yaml:"backend"`

	Calibration encoder.Calibration `yaml:"calibration"`
	Geometry    chassis.Geometry    `yaml:"geometry"`
	CAN         CAN                 `yaml:"can"`
	Modules     []Module            `yaml:"modules"`
	Drive       Drive               `yaml:"drive"`
	TurnGains   TurnGains           `yaml:"turn_gains"`
	Gyro        Gyro                `yaml:"gyro"`
	Power       Power               `yaml:"power"`
	Joystick    Joystick            `yaml:"joystick"`
	Sounds      Sounds              `yaml:"sounds"`
}

type CAN struct {
	Interface string `yaml:"interface"`
}

// Module maps a chassis corner to its two motor controllers.
type Module struct {
	Role    string `yaml:"role"`
	DriveID uint8  `yaml:"drive_id"`
	TurnID  uint8  `yaml:"turn_id"`
}

type Drive struct {
	// "open-loop" or "position".
	SteerMode         string    `yaml:"steer_mode"`
	AngleTolerance    float64   `yaml:"angle_tolerance_deg"`
	CyclePeriodMS     int       `yaml:"cycle_period_ms"`
	Heading           pid.Gains `yaml:"heading"`
	RotateKp          float64   `yaml:"rotate_kp"`
	MaxRotate         float64   `yaml:"max_rotate"`
	DistanceKp        float64   `yaml:"distance_kp"`
	DistanceMaxSpeed  float64   `yaml:"distance_max_speed"`
	DistanceTolerance float64   `yaml:"distance_tolerance"`
}

// TurnGains are sent to the steering controllers at start-up when Apply is
// set; otherwise whatever the controllers have stored is used.
type TurnGains struct {
	Apply bool    `yaml:"apply"`
	P     float64 `yaml:"p"`
	I     float64 `yaml:"i"`
	D     float64 `yaml:"d"`
}

type Gyro struct {
	Backend string `yaml:"backend"`
	// Serial port for the BNO08x, SPI port or I2C bus for the rate gyro.
	Device string `yaml:"device"`
}

type Power struct {
	Enabled     bool    `yaml:"enabled"`
	I2CDevice   string  `yaml:"i2c_device"`
	Addresses   []int   `yaml:"addresses"`
	ShuntOhms   float64 `yaml:"shunt_ohms"`
	MaxCurrent  float64 `yaml:"max_current"`
	IntervalSec int     `yaml:"interval_sec"`

	// Multiplexer port the sensors sit behind; -1 if they are on the bus
	// directly.
	MuxPort    int `yaml:"mux_port"`
	MuxAddress int `yaml:"mux_address"`
}

type Joystick struct {
	Device   string  `yaml:"device"`
	Deadband float64 `yaml:"deadband"`
	Expo     float64 `yaml:"expo"`
}

type Sounds struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func Default() Config {
	d := swervedrive.DefaultOptions()
	return Config{
		Backend:     BackendCAN,
		Calibration: encoder.Calibration{CountsPerRev: chassis.CountsPerRev, GearRatio: chassis.DriveGearRatio, WheelCircumIn: chassis.WheelCircumIn},
		Geometry:    chassis.DefaultGeometry(),
		CAN:         CAN{Interface: "can0"},
		Modules: []Module{
			{Role: chassis.FrontLeft.Short(), DriveID: 1, TurnID: 2},
			{Role: chassis.FrontRight.Short(), DriveID: 3, TurnID: 4},
			{Role: chassis.BackLeft.Short(), DriveID: 5, TurnID: 6},
			{Role: chassis.BackRight.Short(), DriveID: 7, TurnID: 8},
		},
		Drive: Drive{
			SteerMode:         d.SteerMode.String(),
			AngleTolerance:    d.AngleTolerance,
			CyclePeriodMS:     int(d.CyclePeriod / time.Millisecond),
			Heading:           d.Heading,
			RotateKp:          d.RotateKp,
			MaxRotate:         d.MaxRotate,
			DistanceKp:        d.DistanceKp,
			DistanceMaxSpeed:  d.DistanceMaxSpeed,
			DistanceTolerance: d.DistanceTolerance,
		},
		TurnGains: TurnGains{P: 1, I: 0, D: 0},
		Gyro:      Gyro{Backend: GyroBNO08X, Device: "/dev/ttyAMA0"},
		Power: Power{
			Enabled:     true,
			I2CDevice:   "/dev/i2c-1",
			Addresses:   []int{0x41, 0x44},
			ShuntOhms:   0.1,
			MaxCurrent:  10,
			IntervalSec: 10,
			MuxPort:     -1,
			MuxAddress:  0x70,
		},
		Joystick: Joystick{Device: "/dev/input/js0", Deadband: 0.05, Expo: 1.6},
		Sounds:   Sounds{Enabled: true, Dir: "/sounds"},
	}
}

// Load reads path over the defaults and validates the result.  A missing file
// is not an error: the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, errors.Wrapf(err, "failed to read %s", path)
	default:
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse %s", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse overlays YAML onto cfg.  Unknown keys are rejected so that typos
// don't silently fall back to defaults.
func Parse(raw []byte, cfg *Config) error {
	return yaml.UnmarshalStrict(raw, cfg)
}

func (c *Config) applyEnv() {
	if dev := os.Getenv(JoystickEnv); dev != "" {
		c.Joystick.Device = dev
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendCAN, BackendSim:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	if c.Geometry.TrackWidth <= 0 {
		return &encoder.ConfigurationError{Field: "track_width_in", Value: c.Geometry.TrackWidth}
	}
	if c.Geometry.Wheelbase <= 0 {
		return &encoder.ConfigurationError{Field: "wheelbase_in", Value: c.Geometry.Wheelbase}
	}
	if _, err := c.ModuleIDs(); err != nil {
		return err
	}
	if _, err := c.DriveOptions(); err != nil {
		return err
	}
	switch c.Gyro.Backend {
	case GyroBNO08X, GyroIMUSPI, GyroIMUI2C, GyroNone:
	default:
		return errors.Errorf("unknown gyro backend %q", c.Gyro.Backend)
	}
	if c.Power.Enabled && c.Power.IntervalSec <= 0 {
		return &encoder.ConfigurationError{Field: "power.interval_sec", Value: float64(c.Power.IntervalSec)}
	}
	if c.Power.MuxPort < -1 || c.Power.MuxPort > 7 {
		return errors.Errorf("power.mux_port must be -1 or 0-7, got %d", c.Power.MuxPort)
	}
	return nil
}

// ModuleIDs returns the drive and turn CAN ids indexed by role.  Every role
// must be configured exactly once and no id may be shared.
func (c Config) ModuleIDs() ([4]Module, error) {
	var byRole [4]Module
	var seen [4]bool
	ids := map[uint8]string{}
	for _, m := range c.Modules {
		role, err := chassis.ParseRole(m.Role)
		if err != nil {
			return byRole, err
		}
		if seen[role] {
			return byRole, errors.Errorf("module %v configured twice", role)
		}
		seen[role] = true
		for _, id := range []uint8{m.DriveID, m.TurnID} {
			if other, ok := ids[id]; ok {
				return byRole, errors.Errorf("CAN id %d used by both %s and %s", id, other, m.Role)
			}
			ids[id] = m.Role
		}
		byRole[role] = m
	}
	for _, r := range chassis.AllRoles {
		if !seen[r] {
			return byRole, errors.Errorf("no module configured for %v", r)
		}
	}
	return byRole, nil
}

func (c Config) DriveOptions() (swervedrive.Options, error) {
	mode, err := swervedrive.ParseSteerMode(c.Drive.SteerMode)
	if err != nil {
		return swervedrive.Options{}, err
	}
	if c.Drive.CyclePeriodMS <= 0 {
		return swervedrive.Options{}, &encoder.ConfigurationError{Field: "drive.cycle_period_ms", Value: float64(c.Drive.CyclePeriodMS)}
	}
	// A negative limit or tolerance would invert a clamp or make steering
	// chase an unreachable target.
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"drive.angle_tolerance_deg", c.Drive.AngleTolerance},
		{"drive.max_rotate", c.Drive.MaxRotate},
		{"drive.distance_max_speed", c.Drive.DistanceMaxSpeed},
		{"drive.distance_tolerance", c.Drive.DistanceTolerance},
		{"drive.heading.max_output", c.Drive.Heading.MaxOutput},
		{"drive.heading.integral_limit", c.Drive.Heading.IntegralLimit},
	} {
		if f.value < 0 || f.value != f.value {
			return swervedrive.Options{}, &encoder.ConfigurationError{Field: f.name, Value: f.value}
		}
	}
	return swervedrive.Options{
		SteerMode:         mode,
		AngleTolerance:    c.Drive.AngleTolerance,
		CyclePeriod:       time.Duration(c.Drive.CyclePeriodMS) * time.Millisecond,
		Heading:           c.Drive.Heading,
		RotateKp:          c.Drive.RotateKp,
		MaxRotate:         c.Drive.MaxRotate,
		DistanceKp:        c.Drive.DistanceKp,
		DistanceMaxSpeed:  c.Drive.DistanceMaxSpeed,
		DistanceTolerance: c.Drive.DistanceTolerance,
	}, nil
}

func (c Config) SoundPath(name string) string {
	return filepath.Join(c.Sounds.Dir, name)
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(&c)
}

// InUsePath maps foo.yaml to foo-in-use.yaml.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use" + ext
}

// WriteInUse writes the effective configuration to InUsePath(path).
func (c Config) WriteInUse(path string) error {
	raw, err := c.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	out := InUsePath(path)
	return errors.Wrapf(ioutil.WriteFile(out, raw, 0666), "failed to write %s", out)
}
