// Package tunable holds values that can be nudged from the controller while
// the robot is running, for tuning gains without a redeploy.
package tunable

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
)

// Tunable is an integer setting.  Scale converts it to the float the
// consumer wants, so a gain of 0.02 can be stepped as 20 with Scale 0.001.
// Everything tuned from the pad is a gain or a tolerance, so values never go
// below zero.
type Tunable struct {
	Name  string
	Scale float64

	lock  sync.Mutex
	value int
}

func (t *Tunable) Add(delta int) int {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.value += delta
	if t.value < 0 {
		t.value = 0
	}
	return t.value
}

func (t *Tunable) Get() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.value
}

func (t *Tunable) Float() float64 {
	return float64(t.Get()) * t.Scale
}

type Tunables struct {
	All      []*Tunable
	selected int
	logger   golog.Logger
}

func New(logger golog.Logger) *Tunables {
	return &Tunables{logger: logger}
}

// Create registers a tunable starting at the nearest step to initial.
func (t *Tunables) Create(name string, initial, scale float64) *Tunable {
	if scale == 0 {
		scale = 1
	}
	newTunable := &Tunable{
		Name:  name,
		Scale: scale,
		value: int(math.Max(0, math.Round(initial/scale))),
	}
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	if len(t.All) == 0 {
		return
	}
	t.selected = (t.selected + 1) % len(t.All)
	t.logSelected()
}

func (t *Tunables) SelectPrev() {
	if len(t.All) == 0 {
		return
	}
	t.selected = (t.selected + len(t.All) - 1) % len(t.All)
	t.logSelected()
}

// AdjustCurrent steps the selected tunable and returns it, or nil if there
// are none.
func (t *Tunables) AdjustCurrent(delta int) *Tunable {
	c := t.Current()
	if c == nil {
		return nil
	}
	c.Add(delta)
	t.logger.Infow("tunable changed", "name", c.Name, "value", c.Float())
	return c
}

func (t *Tunables) Current() *Tunable {
	if len(t.All) == 0 {
		return nil
	}
	return t.All[t.selected]
}

func (t *Tunables) logSelected() {
	c := t.Current()
	t.logger.Infow("tunable selected", "name", c.Name, "value", c.Float())
}
