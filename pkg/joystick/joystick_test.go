package joystick

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func encode(events ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		_ = binary.Write(&buf, binary.LittleEndian, e)
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := newJoystick(encode(
		rawEvent{Time: 1000, Value: 1, Type: EventTypeButton, Number: ButtonCross},
		// Init events have 0x80 set in the type.
		rawEvent{Time: 1250, Value: -32767, Type: 0x80 | EventTypeAxis, Number: AxisLStickY},
	))

	e, err := j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.ButtonDown(ButtonCross), test.ShouldBeTrue)
	test.That(t, e.ButtonUp(ButtonCross), test.ShouldBeFalse)
	first := e.Time

	e, err = j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Type, test.ShouldEqual, EventType(EventTypeAxis))
	test.That(t, e.Number, test.ShouldEqual, uint8(AxisLStickY))
	test.That(t, e.Value, test.ShouldEqual, int16(-32767))
	test.That(t, e.Time.Sub(first), test.ShouldEqual, 250*time.Millisecond)

	_, err = j.ReadEvent()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, j.Close(), test.ShouldBeNil)
}

func TestNormalise(t *testing.T) {
	test.That(t, Normalise(0), test.ShouldEqual, 0.0)
	test.That(t, Normalise(math.MaxInt16), test.ShouldEqual, 1.0)
	test.That(t, Normalise(-math.MaxInt16), test.ShouldEqual, -1.0)
	test.That(t, Normalise(math.MinInt16), test.ShouldEqual, -1.0)
}

func TestShaping(t *testing.T) {
	s := Shaping{Deadband: 0.1, Expo: 2}
	test.That(t, s.Apply(1000), test.ShouldEqual, 0.0)
	test.That(t, s.Apply(-3000), test.ShouldEqual, 0.0)
	test.That(t, s.Apply(math.MaxInt16), test.ShouldAlmostEqual, 1.0)
	test.That(t, s.Apply(-math.MaxInt16), test.ShouldAlmostEqual, -1.0)
	// Halfway through the live range, squared.
	frac := 0.55
	half := int16(frac * AxisMax)
	test.That(t, s.Apply(half), test.ShouldAlmostEqual, 0.25, 1e-3)

	linear := Shaping{}
	test.That(t, linear.Apply(16384), test.ShouldAlmostEqual, 16384.0/AxisMax)
}
