// Package pid holds the per-maneuver controller state used for heading hold.
//
// A Session is created when a maneuver starts and thrown away when it ends.
// Nothing is ever carried from one target to the next, so an integral that
// wound up during the last maneuver can't kick the next one.
package pid

type Gains struct {
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	IntegralLimit float64 `yaml:"integral_limit"`
	// Output is clamped to +/- this; 0 means no limit.
	MaxOutput float64 `yaml:"max_output"`
}

type Session struct {
	gains  Gains
	target float64

	integral  float64
	lastError float64
	started   bool
}

// NewSession starts a maneuver toward target with an empty integral.
func NewSession(gains Gains, target float64) *Session {
	return &Session{
		gains:  gains,
		target: target,
	}
}

func (s *Session) Target() float64 {
	return s.target
}

// Integral returns the accumulated error*time.  A nil session has none.
func (s *Session) Integral() float64 {
	if s == nil {
		return 0
	}
	return s.integral
}

// Update feeds one error sample taken dt seconds after the last and returns
// the correction.
func (s *Session) Update(err, dt float64) float64 {
	if dt > 0 {
		s.integral += err * dt
	}
	if lim := s.gains.IntegralLimit; lim > 0 {
		if s.integral > lim {
			s.integral = lim
		} else if s.integral < -lim {
			s.integral = -lim
		}
	}

	var derivative float64
	if s.started && dt > 0 {
		derivative = (err - s.lastError) / dt
	}
	s.lastError = err
	s.started = true

	out := s.gains.Kp*err + s.gains.Ki*s.integral + s.gains.Kd*derivative
	if lim := s.gains.MaxOutput; lim > 0 {
		if out > lim {
			out = lim
		} else if out < -lim {
			out = -lim
		}
	}
	return out
}
