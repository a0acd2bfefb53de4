package imu

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
)

const (
	PollInterval = 20 * time.Millisecond
	StaleAfter   = 250 * time.Millisecond
)

var (
	ErrNoSamples = errors.New("gyro has not been read yet")
	ErrStale     = errors.New("gyro heading is stale")
)

// Integrator turns the rate gyro's samples into a heading, counter-clockwise
// positive, relative to where the robot pointed when it started or was last
// zeroed.
type Integrator struct {
	imu    Interface
	logger golog.Logger
	now    func() time.Time

	lock     sync.Mutex
	heading  angle.PlusMinus180
	lastPoll time.Time
}

func NewIntegrator(imu Interface, logger golog.Logger) *Integrator {
	return &Integrator{
		imu:    imu,
		logger: logger,
		now:    time.Now,
	}
}

// Loop configures and calibrates the gyro then polls it until ctx is done.
func (g *Integrator) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if err := g.imu.Configure(); err != nil {
		g.logger.Errorw("failed to configure gyro", "error", err)
		return
	}
	if err := g.imu.Calibrate(); err != nil {
		g.logger.Errorw("failed to calibrate gyro", "error", err)
		return
	}
	if err := g.imu.ResetFIFO(); err != nil {
		g.logger.Errorw("failed to reset gyro FIFO", "error", err)
		return
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := g.poll(); err != nil {
			g.logger.Warnw("gyro read failed", "error", err)
			if errors.Is(err, ErrFIFOOverflow) {
				_ = g.imu.ResetFIFO()
			}
		}
	}
}

func (g *Integrator) poll() error {
	samples, err := g.imu.ReadFIFO()
	if err != nil {
		return err
	}
	var delta float64
	scale := g.imu.DegreesPerLSB() * SamplePeriodSecs
	for _, s := range samples {
		delta += float64(s) * scale
	}

	g.lock.Lock()
	defer g.lock.Unlock()
	g.heading = g.heading.AddFloat(delta)
	g.lastPoll = g.now()
	return nil
}

// Heading returns the integrated heading in [0, 360).
func (g *Integrator) Heading() (float64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.lastPoll.IsZero() {
		return 0, ErrNoSamples
	}
	if age := g.now().Sub(g.lastPoll); age > StaleAfter {
		return 0, errors.Wrapf(ErrStale, "last read %v ago", age)
	}
	return g.heading.Wrap360(), nil
}

func (g *Integrator) Zero() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.heading = angle.PlusMinus180{}
	g.logger.Info("heading zeroed")
}
