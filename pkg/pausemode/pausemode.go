// Package pausemode holds the robot still until another mode is selected.
package pausemode

import (
	"context"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/hardware"
)

type PauseMode struct {
	hw hardware.Interface
}

func New(hw hardware.Interface) *PauseMode {
	return &PauseMode{hw: hw}
}

func (p *PauseMode) Name() string {
	return "Pause mode"
}

func (p *PauseMode) StartupSound() string {
	return "pausemode.wav"
}

func (p *PauseMode) Start(ctx context.Context) {
	p.hw.Drive().Stop()
}

func (p *PauseMode) Stop() {
}
