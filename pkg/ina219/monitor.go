package ina219

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
)

type Reading struct {
	Bus   int
	Volts float64
	Amps  float64
	Watts float64
	Err   error
}

// Monitor logs the supply rails periodically.
type Monitor struct {
	sensors  []Interface
	interval time.Duration
	logger   golog.Logger
}

func NewMonitor(sensors []Interface, interval time.Duration, logger golog.Logger) *Monitor {
	return &Monitor{
		sensors:  sensors,
		interval: interval,
		logger:   logger,
	}
}

// OpenMonitor opens and configures a sensor at each address.  Sensors that
// fail to open are skipped; power logging is never worth failing start-up.
func OpenMonitor(deviceFile string, addrs []int, shuntOhms, maxCurrent float64, interval time.Duration, logger golog.Logger) *Monitor {
	var sensors []Interface
	for _, addr := range addrs {
		s, err := NewI2C(deviceFile, addr, logger)
		if err == nil {
			err = s.Configure(shuntOhms, maxCurrent)
		}
		if err != nil {
			logger.Warnw("failed to open power sensor; ignoring", "addr", addr, "error", err)
			continue
		}
		sensors = append(sensors, s)
	}
	return NewMonitor(sensors, interval, logger)
}

func (m *Monitor) NumSensors() int {
	return len(m.sensors)
}

func (m *Monitor) Sample() []Reading {
	readings := make([]Reading, len(m.sensors))
	for i, s := range m.sensors {
		v, errV := s.ReadBusVoltage()
		a, errA := s.ReadCurrent()
		w, errW := s.ReadPower()
		readings[i] = Reading{
			Bus:   i,
			Volts: v,
			Amps:  a,
			Watts: w,
			Err:   multierr.Combine(errV, errA, errW),
		}
	}
	return readings
}

func (m *Monitor) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if len(m.sensors) == 0 {
		m.logger.Info("no power sensors; power logging disabled")
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, r := range m.Sample() {
			if r.Err != nil {
				m.logger.Debugw("power read failed", "bus", r.Bus, "error", r.Err)
				continue
			}
			m.logger.Infow("power", "bus", r.Bus, "volts", r.Volts, "amps", r.Amps, "watts", r.Watts)
		}
	}
}
