// Package ina219 reads bus voltage, current and power from INA219 sensors on
// the motor supply rails.
package ina219

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	Addr1 = 0x41
	Addr2 = 0x44

	RegConfig      = 0
	RegShuntV      = 1
	RegBusV        = 2
	RegPower       = 3
	RegCurrent     = 4
	RegCalibration = 5

	BusVoltageLSB = 0.004
)

type Interface interface {
	Configure(shuntOhms float64, maxCurrent float64) error
	ReadBusVoltage() (float64, error)
	ReadCurrent() (float64, error)
	ReadPower() (float64, error)
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) (err error)
}

type INA219 struct {
	currentLSB float64
	dev        port
	logger     golog.Logger
}

var _ Interface = (*INA219)(nil)

func NewI2C(deviceFile string, addr int, logger golog.Logger) (*INA219, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open INA219 at %#x", addr)
	}
	return &INA219{
		dev:    dev,
		logger: logger,
	}, nil
}

func (m *INA219) Configure(shuntOhms float64, maxCurrent float64) error {
	if shuntOhms <= 0 || maxCurrent <= 0 {
		return errors.Errorf("invalid INA219 configuration: shunt %v ohm, max %v A", shuntOhms, maxCurrent)
	}
	m.currentLSB = maxCurrent / (1 << 15)
	cval := CalculateCalibrationValue(m.currentLSB, shuntOhms)
	m.logger.Debugw("INA219 calibration", "value", cval)
	return errors.Wrap(m.dev.WriteReg(RegCalibration, []byte{byte(cval >> 8), byte(cval)}), "failed to write INA219 calibration")
}

func (m *INA219) ReadBusVoltage() (float64, error) {
	raw, err := m.Read16(RegBusV)
	return float64(raw>>3) * BusVoltageLSB, err
}

func (m *INA219) ReadCurrent() (float64, error) {
	raw, err := m.Read16(RegCurrent)
	return float64(int16(raw)) * m.currentLSB, err
}

func (m *INA219) ReadPower() (float64, error) {
	raw, err := m.Read16(RegPower)
	return float64(raw) * m.currentLSB * 20, err
}

func (m *INA219) Read16(reg byte) (uint16, error) {
	var buf [2]byte
	if err := m.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "failed to read INA219 register %d", reg)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func CalculateCalibrationValue(currentLSB float64, shuntOhms float64) uint16 {
	return uint16(math.Round(0.04096 / (currentLSB * shuntOhms)))
}
