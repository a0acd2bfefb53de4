package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/bno08x"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/imu"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/ina219"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/mux"
)

type powerMonitor interface {
	Loop(ctx context.Context, wg *sync.WaitGroup)
}

func (h *Hardware) openGyro() {
	logger := h.logger.Named("gyro")
	switch h.cfg.Gyro.Backend {
	case config.GyroBNO08X:
		b := bno08x.New(h.cfg.Gyro.Device, logger)
		h.gyro = b
		h.gyroLoop = b.LoopReadingReports
	case config.GyroIMUSPI, config.GyroIMUI2C:
		var m *imu.IMU
		var err error
		if h.cfg.Gyro.Backend == config.GyroIMUSPI {
			m, err = imu.NewSPI(h.cfg.Gyro.Device, logger)
		} else {
			m, err = imu.NewI2C(h.cfg.Gyro.Device, logger)
		}
		if err != nil {
			logger.Errorw("failed to open gyro; field-oriented driving disabled", "error", err)
			return
		}
		g := imu.NewIntegrator(m, logger)
		h.gyro = g
		h.gyroLoop = g.Loop
	case config.GyroNone:
		logger.Info("no gyro configured; field-oriented driving disabled")
	}
}

func (h *Hardware) openPower() {
	p := h.cfg.Power
	if !p.Enabled || h.cfg.Backend == config.BackendSim {
		return
	}
	m, err := OpenPowerMonitor(p, time.Duration(p.IntervalSec)*time.Second, h.logger.Named("power"))
	if err != nil {
		h.logger.Warnw("power logging disabled", "error", err)
		return
	}
	h.power = m
}

// OpenPowerMonitor selects the sensors' mux port, if any, and opens every
// sensor that answers.
func OpenPowerMonitor(p config.Power, interval time.Duration, logger golog.Logger) (*ina219.Monitor, error) {
	if p.MuxPort >= 0 {
		mx, err := mux.New(p.I2CDevice, p.MuxAddress, logger)
		if err != nil {
			return nil, err
		}
		// The port stays selected after the handle is closed.
		defer mx.Close()
		if err := mx.SelectPort(p.MuxPort); err != nil {
			return nil, err
		}
	}
	return ina219.OpenMonitor(p.I2CDevice, p.Addresses, p.ShuntOhms, p.MaxCurrent, interval, logger), nil
}
