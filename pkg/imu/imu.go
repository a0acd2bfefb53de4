// Package imu drives an MPU-6000/6050 style rate gyro over SPI or I2C.  Only
// the yaw axis is used: samples are queued in the chip's FIFO and integrated
// into a heading by Integrator.
package imu

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	IMUAddr = 0x68

	RegSampleRateDiv = 25
	RegConfig        = 26
	RegGyroConf      = 27
	RegGyroYOffset   = 21
	RegFIFOEnable    = 35
	RegGyroY         = 69 // 16 bits
	RegUserCtl       = 106
	RegFIFOCount     = 114 // 16 bits
	RegFIFORW        = 116 // n-bytes

	GyroRange = 2 // 1000 dps

	// 1kHz internal rate divided by (1 + 9).
	SampleRateDivider = 9
	SamplePeriodSecs  = (1 + SampleRateDivider) / 1000.0

	maxFIFOBytes = 512
)

var ErrFIFOOverflow = errors.New("gyro FIFO overflowed")

type Interface interface {
	Configure() error
	Calibrate() error
	ReadRate() (int16, error)
	ReadFIFO() ([]int16, error)
	ResetFIFO() error
	DegreesPerLSB() float64
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) (err error)
}

type IMU struct {
	dev        port
	disableI2C bool
	logger     golog.Logger
}

var _ Interface = (*IMU)(nil)

func NewI2C(deviceFile string, logger golog.Logger) (*IMU, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, IMUAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open gyro on %s", deviceFile)
	}
	return &IMU{
		dev:    dev,
		logger: logger,
	}, nil
}

func NewSPI(portName string, logger golog.Logger) (*IMU, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	p, err := spireg.Open(portName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %q", portName)
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to SPI port")
	}
	return &IMU{
		dev:        &SPIAdapter{c: c},
		disableI2C: true,
		logger:     logger,
	}, nil
}

// SPIAdapter gives an SPI connection the register interface of an I2C
// device.
type SPIAdapter struct {
	c spi.Conn

	r, w []byte
}

const (
	W = 0x00
	R = 0x80
)

func (s *SPIAdapter) ReadReg(reg byte, buf []byte) error {
	// Whole transaction: address byte then the response.
	n := 1 + len(buf)
	s.ensureBuf(n)
	s.w[0] = R | reg
	if err := s.c.Tx(s.w[:n], s.r[:n]); err != nil {
		return err
	}
	copy(buf, s.r[1:n])
	return nil
}

func (s *SPIAdapter) WriteReg(reg byte, buf []byte) error {
	n := 1 + len(buf)
	s.ensureBuf(n)
	s.w[0] = W | reg
	copy(s.w[1:], buf)
	return s.c.Tx(s.w[:n], s.r[:n])
}

func (s *SPIAdapter) ensureBuf(l int) {
	if len(s.r) < l {
		s.w = make([]byte, l)
		s.r = make([]byte, l)
		return
	}
	for i := 0; i < l; i++ {
		s.w[i] = 0
		s.r[i] = 0
	}
}

func (m *IMU) Configure() error {
	if m.disableI2C {
		if err := m.dev.WriteReg(RegUserCtl, []byte{0x10}); err != nil {
			return errors.Wrap(err, "failed to disable I2C")
		}
	}
	writes := []struct {
		what string
		reg  byte
		val  byte
	}{
		{"gyro range", RegGyroConf, GyroRange << 3},
		{"DLPF", RegConfig, 1},
		{"sample rate", RegSampleRateDiv, SampleRateDivider},
		{"FIFO enable", RegFIFOEnable, 1 << 5},
	}
	for _, w := range writes {
		if err := m.dev.WriteReg(w.reg, []byte{w.val}); err != nil {
			return errors.Wrapf(err, "failed to set %s", w.what)
		}
	}
	return nil
}

func (m *IMU) DegreesPerLSB() float64 {
	return 1000.0 / math.MaxInt16
}

// Calibrate averages the stationary output and loads the negated mean into
// the offset register.  The robot must be still.
func (m *IMU) Calibrate() error {
	if err := m.dev.WriteReg(RegGyroYOffset, []byte{0, 0}); err != nil {
		return errors.Wrap(err, "failed to clear gyro offset")
	}
	for i := 0; i < 100; i++ {
		if _, err := m.ReadRate(); err != nil {
			return err
		}
	}
	var sum float64
	const n = 1000
	for i := 0; i < n; i++ {
		x, err := m.ReadRate()
		if err != nil {
			return err
		}
		sum -= float64(x)
	}
	offset := sum / n
	// Offset register is in +/-1000dps units at 4x the resolution.
	scaled := int16(offset / 4 * math.Pow(2, GyroRange))
	m.logger.Infow("gyro calibrated", "offset", offset, "register", scaled)
	return errors.Wrap(m.dev.WriteReg(RegGyroYOffset, []byte{byte(scaled >> 8), byte(scaled)}), "failed to set gyro offset")
}

func (m *IMU) ReadRate() (int16, error) {
	return m.Read16(RegGyroY)
}

func (m *IMU) ResetFIFO() error {
	return errors.Wrap(m.dev.WriteReg(RegUserCtl, []byte{1<<6 | 1<<2}), "failed to reset FIFO")
}

// ReadFIFO drains the queued samples, possibly none.
func (m *IMU) ReadFIFO() ([]int16, error) {
	count, err := m.Read16(RegFIFOCount)
	if err != nil {
		return nil, err
	}
	n := int(count) & 0xfff
	if n > maxFIFOBytes {
		return nil, ErrFIFOOverflow
	}
	n &^= 1
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := m.dev.ReadReg(RegFIFORW, buf); err != nil {
		return nil, errors.Wrap(err, "failed to read FIFO")
	}
	result := make([]int16, n/2)
	for i := range result {
		result[i] = int16(buf[i*2])<<8 | int16(buf[i*2+1])
	}
	return result, nil
}

func (m *IMU) Read16(reg byte) (int16, error) {
	var buf [2]byte
	if err := m.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "failed to read register %d", reg)
	}
	return int16(buf[0])<<8 | int16(buf[1]), nil
}
