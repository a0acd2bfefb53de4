// Package testmode exercises each module's motors in turn at a low raw
// output, logging what the sensors report, so wiring and encoder direction
// can be checked on the bench.
package testmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervemodule"
)

const (
	DefaultOutput   = 0.2
	DefaultStepTime = time.Second
)

type step struct {
	role        chassis.Role
	drive, turn float64
}

func (s step) String() string {
	return fmt.Sprintf("%v drive=%.2f turn=%.2f", s.role, s.drive, s.turn)
}

// sweep is the sequence run for every module: drive forwards and back, steer
// both ways, then rest.
func sweep(output float64) []step {
	var steps []step
	for _, r := range chassis.AllRoles {
		steps = append(steps,
			step{r, output, 0},
			step{r, -output, 0},
			step{r, 0, output},
			step{r, 0, -output},
			step{r, 0, 0},
		)
	}
	return steps
}

type TestMode struct {
	hw     hardware.Interface
	logger golog.Logger

	Output   float64
	StepTime time.Duration

	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func New(hw hardware.Interface, logger golog.Logger) *TestMode {
	return &TestMode{
		hw:       hw,
		logger:   logger,
		Output:   DefaultOutput,
		StepTime: DefaultStepTime,
	}
}

func (t *TestMode) Name() string {
	return "Test mode"
}

func (t *TestMode) StartupSound() string {
	return "testmode.wav"
}

func (t *TestMode) Start(ctx context.Context) {
	t.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, t.cancel = context.WithCancel(ctx)
	go t.loop(loopCtx)
}

func (t *TestMode) Stop() {
	t.cancel()
	t.stopWG.Wait()
}

func (t *TestMode) loop(ctx context.Context) {
	defer t.stopWG.Done()
	drive := t.hw.Drive()
	defer drive.Stop()

	steps := sweep(t.Output)
	for i := 0; ctx.Err() == nil; i = (i + 1) % len(steps) {
		s := steps[i]
		drive.Stop()
		m := drive.Module(s.role)
		m.SetRawOutputs(s.drive, s.turn)

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.StepTime):
		}
		t.report(s, m)
	}
}

func (t *TestMode) report(s step, m *swervemodule.Module) {
	t.logger.Infow("test step",
		"step", s.String(),
		"angle", m.Angle(),
		"distanceIn", m.DistanceIn(),
		"driveAmps", m.OutputCurrent(swervemodule.ChannelDrive),
		"turnAmps", m.OutputCurrent(swervemodule.ChannelTurn),
		"driveVolts", m.OutputVoltage(swervemodule.ChannelDrive),
	)
}
