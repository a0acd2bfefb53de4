package canmotor

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
)

const (
	// Command frames are addressed to CommandBaseID | device.
	CommandBaseID uint32 = 0x02040000
	// Status frames arrive from StatusBaseID | device.
	StatusBaseID uint32 = 0x02041400

	DeviceIDMask = 0x3f

	// Full forward speed on the wire.
	SpeedScale = 1023
	GainScale  = 1000

	CurrentLSB = 0.01 // A
	VoltageLSB = 0.01 // V

	frameLen = 8
)

type Mode byte

const (
	ModeSpeed Mode = iota
	ModePosition
	ModeZero
	ModeGains
)

func (m Mode) String() string {
	switch m {
	case ModeSpeed:
		return "speed"
	case ModePosition:
		return "position"
	case ModeZero:
		return "zero"
	case ModeGains:
		return "gains"
	}
	return "unknown"
}

// command is one control frame for one motor controller.
type command struct {
	mode    Mode
	value   int32
	p, i, d uint16
}

func speedCommand(speed float64) command {
	if speed != speed {
		speed = 0
	}
	speed = math.Max(-1, math.Min(1, speed))
	return command{mode: ModeSpeed, value: int32(math.Round(speed * SpeedScale))}
}

func positionCommand(counts int64) command {
	if counts > math.MaxInt32 {
		counts = math.MaxInt32
	} else if counts < math.MinInt32 {
		counts = math.MinInt32
	}
	return command{mode: ModePosition, value: int32(counts)}
}

func gainsCommand(p, i, d float64) command {
	scale := func(g float64) uint16 {
		v := math.Round(g * GainScale)
		if v < 0 {
			return 0
		}
		if v > math.MaxUint16 {
			return math.MaxUint16
		}
		return uint16(v)
	}
	return command{mode: ModeGains, p: scale(p), i: scale(i), d: scale(d)}
}

func (c command) toFrame(deviceID uint8) canbus.Frame {
	frame := canbus.Frame{
		ID:   CommandBaseID | uint32(deviceID&DeviceIDMask),
		Data: make([]byte, frameLen),
		Kind: canbus.EFF,
	}
	frame.Data[0] = byte(c.mode)
	if c.mode == ModeGains {
		binary.LittleEndian.PutUint16(frame.Data[1:3], c.p)
		binary.LittleEndian.PutUint16(frame.Data[3:5], c.i)
		binary.LittleEndian.PutUint16(frame.Data[5:7], c.d)
		return frame
	}
	binary.LittleEndian.PutUint32(frame.Data[1:5], uint32(c.value))
	return frame
}

// Status is the latest telemetry a controller has reported.
type Status struct {
	Time     time.Time
	Position int32
	Current  float64
	Voltage  float64
}

var errNotStatus = errors.New("not a status frame")

func parseStatus(frame canbus.Frame, now time.Time) (uint8, Status, error) {
	if frame.Kind != canbus.EFF || frame.ID&^DeviceIDMask != StatusBaseID {
		return 0, Status{}, errNotStatus
	}
	if len(frame.Data) < frameLen {
		return 0, Status{}, errors.Errorf("short status frame from %#x: %d bytes", frame.ID, len(frame.Data))
	}
	d := frame.Data
	return uint8(frame.ID & DeviceIDMask), Status{
		Time:     now,
		Position: int32(binary.LittleEndian.Uint32(d[0:4])),
		Current:  float64(binary.LittleEndian.Uint16(d[4:6])) * CurrentLSB,
		Voltage:  float64(int16(binary.LittleEndian.Uint16(d[6:8]))) * VoltageLSB,
	}, nil
}
