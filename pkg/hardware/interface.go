package hardware

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/swervedrive"
)

var ErrNoGyro = errors.New("no gyro configured")

type Interface interface {
	Start(ctx context.Context)
	Shutdown()

	// Drive is only to be called from one goroutine at a time: the active
	// mode's control loop.
	Drive() *swervedrive.Drive

	// Heading in [0, 360), counter-clockwise positive, relative to where the
	// robot pointed when the gyro was last zeroed.
	Heading() (float64, error)
	ZeroHeading()

	// PlaySound plays a file from the sounds directory without blocking.
	PlaySound(name string)
}

// Gyro is a heading source.
type Gyro interface {
	Heading() (float64, error)
	Zero()
}

type noGyro struct{}

func (noGyro) Heading() (float64, error) { return 0, ErrNoGyro }
func (noGyro) Zero()                      {}
