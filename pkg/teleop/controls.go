package teleop

import (
	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/joystick"
)

// Button map:
//
//	Left stick     translate
//	Right stick X  rotate
//	Triangle       toggle crab (all wheels parallel, no rotation)
//	Circle         toggle field-oriented driving
//	Square         toggle cruise control (latch the current translation)
//	L1 (held)      hold the heading the robot had when pressed
//	Cross          stop and zero encoders and gyro
//	D-pad L/R      select tunable; U/D adjust it
type controls struct {
	shaping joystick.Shaping

	lStickX, lStickY, rStickX int16

	crab          bool
	fieldOriented bool

	cruising         bool
	cruiseX, cruiseY float64

	lockHeld   bool
	lockActive bool
	lockTarget float64
}

type action int

const (
	actionNone action = iota
	actionZero
	actionToggled
	actionSelectNextTunable
	actionSelectPrevTunable
	actionIncreaseTunable
	actionDecreaseTunable
)

// handle updates the control state from one event and reports anything the
// mode has to act on beyond the next tick.
func (c *controls) handle(e *joystick.Event) action {
	switch e.Type {
	case joystick.EventTypeAxis:
		switch e.Number {
		case joystick.AxisLStickX:
			c.lStickX = e.Value
		case joystick.AxisLStickY:
			c.lStickY = e.Value
		case joystick.AxisRStickX:
			c.rStickX = e.Value
		case joystick.AxisDPadX:
			if e.Value > 0 {
				return actionSelectNextTunable
			} else if e.Value < 0 {
				return actionSelectPrevTunable
			}
		case joystick.AxisDPadY:
			// Up is negative.
			if e.Value < 0 {
				return actionIncreaseTunable
			} else if e.Value > 0 {
				return actionDecreaseTunable
			}
		}
	case joystick.EventTypeButton:
		down := e.Value == 1
		switch e.Number {
		case joystick.ButtonL1:
			c.lockHeld = down
			if !down {
				c.lockActive = false
			}
		case joystick.ButtonTriangle:
			if down {
				c.crab = !c.crab
				return actionToggled
			}
		case joystick.ButtonCircle:
			if down {
				c.fieldOriented = !c.fieldOriented
				return actionToggled
			}
		case joystick.ButtonSquare:
			if down {
				c.toggleCruise()
				return actionToggled
			}
		case joystick.ButtonCross:
			if down {
				c.cruising = false
				c.lockActive = false
				return actionZero
			}
		}
	}
	return actionNone
}

func (c *controls) toggleCruise() {
	if c.cruising {
		c.cruising = false
		return
	}
	x, y := c.translation()
	if x == 0 && y == 0 {
		return
	}
	c.cruising = true
	c.cruiseX, c.cruiseY = x, y
}

func (c *controls) translation() (x, y float64) {
	return c.shaping.Apply(c.lStickX), -c.shaping.Apply(c.lStickY)
}

// command returns the chassis command: +y forwards, +x right, +z
// counter-clockwise.
func (c *controls) command() (x, y, z float64) {
	if c.cruising {
		x, y = c.cruiseX, c.cruiseY
	} else {
		x, y = c.translation()
	}
	// Stick right means turn right, which is clockwise.
	z = -c.shaping.Apply(c.rStickX)
	return x, y, z
}
