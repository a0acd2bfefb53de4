package imu

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

// fakePort is a register file.  Reads of RegFIFORW consume fifo.
type fakePort struct {
	regs   map[byte][]byte
	fifo   []byte
	writes map[byte][]byte
	err    error
}

func newFakePort() *fakePort {
	return &fakePort{regs: map[byte][]byte{}, writes: map[byte][]byte{}}
}

func (p *fakePort) ReadReg(reg byte, buf []byte) error {
	if p.err != nil {
		return p.err
	}
	switch reg {
	case RegFIFOCount:
		buf[0], buf[1] = byte(len(p.fifo)>>8), byte(len(p.fifo))
	case RegFIFORW:
		n := copy(buf, p.fifo)
		p.fifo = p.fifo[n:]
	default:
		copy(buf, p.regs[reg])
	}
	return nil
}

func (p *fakePort) WriteReg(reg byte, buf []byte) error {
	if p.err != nil {
		return p.err
	}
	p.writes[reg] = append([]byte(nil), buf...)
	return nil
}

func (p *fakePort) queue(samples ...int16) {
	for _, s := range samples {
		p.fifo = append(p.fifo, byte(uint16(s)>>8), byte(s))
	}
}

func newTestIMU(t *testing.T) (*IMU, *fakePort) {
	p := newFakePort()
	return &IMU{dev: p, logger: golog.NewTestLogger(t)}, p
}

func TestReadRate(t *testing.T) {
	m, p := newTestIMU(t)
	p.regs[RegGyroY] = []byte{0xff, 0xfe}
	v, err := m.ReadRate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, int16(-2))

	p.err = errors.New("bus gone")
	_, err = m.ReadRate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadFIFO(t *testing.T) {
	m, p := newTestIMU(t)
	samples, err := m.ReadFIFO()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, samples, test.ShouldBeEmpty)

	p.queue(100, -100, 32767)
	samples, err = m.ReadFIFO()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, samples, test.ShouldResemble, []int16{100, -100, 32767})

	p.fifo = make([]byte, maxFIFOBytes+2)
	_, err = m.ReadFIFO()
	test.That(t, err, test.ShouldEqual, ErrFIFOOverflow)
}

func TestConfigureDisablesI2COnSPI(t *testing.T) {
	m, p := newTestIMU(t)
	m.disableI2C = true
	test.That(t, m.Configure(), test.ShouldBeNil)
	test.That(t, p.writes[RegUserCtl], test.ShouldResemble, []byte{0x10})
	test.That(t, p.writes[RegGyroConf], test.ShouldResemble, []byte{GyroRange << 3})
	test.That(t, p.writes[RegSampleRateDiv], test.ShouldResemble, []byte{SampleRateDivider})
}

func TestCalibrateWritesNegatedOffset(t *testing.T) {
	m, p := newTestIMU(t)
	p.regs[RegGyroY] = []byte{0x00, 0x08} // Constant drift of 8 LSB.
	test.That(t, m.Calibrate(), test.ShouldBeNil)
	// -8 / 4 * 2^2 = -8
	test.That(t, p.writes[RegGyroYOffset], test.ShouldResemble, []byte{0xff, 0xf8})
}

func TestIntegrator(t *testing.T) {
	m, p := newTestIMU(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewIntegrator(m, golog.NewTestLogger(t))
	g.now = func() time.Time { return now }

	_, err := g.Heading()
	test.That(t, err, test.ShouldEqual, ErrNoSamples)

	// A tenth of a second at 90 dps.
	lsb := int16(90 / m.DegreesPerLSB())
	for i := 0; i < 10; i++ {
		p.queue(lsb)
	}
	test.That(t, g.poll(), test.ShouldBeNil)
	h, err := g.Heading()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldAlmostEqual, 9.0, 0.01)

	// Clockwise past zero wraps.
	for i := 0; i < 20; i++ {
		p.queue(-lsb)
	}
	test.That(t, g.poll(), test.ShouldBeNil)
	h, _ = g.Heading()
	test.That(t, h, test.ShouldAlmostEqual, 351.0, 0.01)

	g.Zero()
	h, _ = g.Heading()
	test.That(t, h, test.ShouldEqual, 0.0)

	g.now = func() time.Time { return now.Add(time.Second) }
	_, err = g.Heading()
	test.That(t, errors.Is(err, ErrStale), test.ShouldBeTrue)
}
