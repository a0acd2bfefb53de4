package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
)

const simStep = 10 * time.Millisecond

// simBackend stands in for the motor controllers so the whole stack can run
// on a laptop.
type simBackend struct {
	logger golog.Logger
	drives [4]*actuator.Sim
	turns  [4]*actuator.Sim
}

func newSimBackend(logger golog.Logger) *simBackend {
	s := &simBackend{logger: logger}
	for _, r := range chassis.AllRoles {
		s.drives[r] = actuator.NewSim()
		s.turns[r] = actuator.NewSim()
	}
	return s
}

func (s *simBackend) actuators() (drives, turns [4]actuator.Actuator) {
	for i := range s.drives {
		drives[i] = s.drives[i]
		turns[i] = s.turns[i]
	}
	return drives, turns
}

func (s *simBackend) step(dt time.Duration) {
	for i := range s.drives {
		s.drives[i].Step(dt)
		s.turns[i].Step(dt)
	}
}

func (s *simBackend) loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	s.logger.Info("simulated motors running")
	ticker := time.NewTicker(simStep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step(simStep)
		}
	}
}
