// Package mux drives a TCA9548A-style I2C multiplexer.  Sensors that share an
// address (or that sit on a noisy branch) are placed on their own port and the
// port is selected before they are opened.
package mux

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x70
	NumPorts    = 8
)

type Interface interface {
	SelectPort(port int) error
	DisableAll() error
	Close() error
}

type device interface {
	Write(buf []byte) error
	Close() error
}

type Mux struct {
	dev    device
	logger golog.Logger
}

var _ Interface = (*Mux)(nil)

func New(deviceFile string, addr int, logger golog.Logger) (*Mux, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mux at %#x on %s", addr, deviceFile)
	}
	return newMux(dev, logger), nil
}

func newMux(dev device, logger golog.Logger) *Mux {
	return &Mux{dev: dev, logger: logger}
}

// SelectPort routes the bus to port alone.
func (m *Mux) SelectPort(port int) error {
	if port < 0 || port >= NumPorts {
		return errors.Errorf("mux port %d out of range [0, %d)", port, NumPorts)
	}
	m.logger.Debugw("selecting mux port", "port", port)
	return errors.Wrap(m.dev.Write([]byte{1 << uint(port)}), "failed to select mux port")
}

func (m *Mux) DisableAll() error {
	return errors.Wrap(m.dev.Write([]byte{0}), "failed to disable mux ports")
}

func (m *Mux) Close() error {
	return m.dev.Close()
}
