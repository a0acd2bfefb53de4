package actuator

import (
	"math"
	"sync"
	"time"
)

// Sim is an in-memory actuator used by the dummy hardware and by tests.  Speed
// is integrated into position by Step; a position target, if set, is tracked
// by Step as well.
type Sim struct {
	lock sync.Mutex

	// Counts per second at full speed.
	FullSpeedCountsPerSec float64
	BusVoltage            float64
	StallCurrent          float64

	speed     float64
	position  float64
	target    int64
	hasTarget bool
	p, i, d   float64
	readErr   error
	writeErr  error

	writes int
}

func NewSim() *Sim {
	return &Sim{
		FullSpeedCountsPerSec: 4096 * 5,
		BusVoltage:            12,
		StallCurrent:          40,
	}
}

var (
	_ Actuator             = (*Sim)(nil)
	_ PositionControllable = (*Sim)(nil)
	_ GainConfigurable     = (*Sim)(nil)
)

func (s *Sim) SetSpeed(speed float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.speed = Clamp(speed)
	s.hasTarget = false
	s.writes++
	return nil
}

func (s *Sim) SetPositionTarget(counts int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.target = counts
	s.hasTarget = true
	s.writes++
	return nil
}

func (s *Sim) SetGains(p, i, d float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.p, s.i, s.d = p, i, d
	return nil
}

func (s *Sim) Position() (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	return int64(math.Round(s.position)), nil
}

func (s *Sim) OutputCurrent() (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	return math.Abs(s.speed) * s.StallCurrent, nil
}

func (s *Sim) OutputVoltage() (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	return s.speed * s.BusVoltage, nil
}

func (s *Sim) ZeroPosition() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.position = 0
	s.hasTarget = false
	return nil
}

// Step advances the simulation by dt.
func (s *Sim) Step(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	maxMove := s.FullSpeedCountsPerSec * dt.Seconds()
	if s.hasTarget {
		err := float64(s.target) - s.position
		s.position += ClampTo(err, maxMove)
		return
	}
	s.position += s.speed * maxMove
}

// SetRawPosition forces the sensor reading, e.g. to start a test at a known
// angle.
func (s *Sim) SetRawPosition(counts int64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.position = float64(counts)
}

// Speed returns the last commanded speed.
func (s *Sim) Speed() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.speed
}

// Target returns the last position target, if position mode is active.
func (s *Sim) Target() (int64, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.target, s.hasTarget
}

func (s *Sim) Gains() (p, i, d float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.p, s.i, s.d
}

// Writes counts the commands received, for tests.
func (s *Sim) Writes() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writes
}

// FailReads makes every read return err until called again with nil.
func (s *Sim) FailReads(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.readErr = err
}

// FailWrites makes every command return err until called again with nil.
func (s *Sim) FailWrites(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.writeErr = err
}
