// Package canmotor talks to the drive and steering motor controllers over
// SocketCAN.  Commands are sent immediately; status frames are read by a
// background loop and cached so that reads never block the control cycle.
package canmotor

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/go-daq/canbus"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/actuator"
)

// StaleAfter is how old the newest status frame may be before reads report
// ErrStaleStatus.
const StaleAfter = 250 * time.Millisecond

var (
	ErrNoStatus    = errors.New("no status received from motor controller")
	ErrStaleStatus = errors.New("motor controller status is stale")
)

type sender interface {
	Send(msg canbus.Frame) (int, error)
}

type receiver interface {
	Recv() (canbus.Frame, error)
}

type Bus struct {
	logger golog.Logger
	tx     sender
	rx     receiver
	close  func() error

	lock   sync.Mutex
	status map[uint8]Status
	now    func() time.Time
}

// Open binds a send and a receive socket to the named interface (e.g. "can0").
func Open(iface string, logger golog.Logger) (*Bus, error) {
	socketSend, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CAN send socket")
	}
	if err := socketSend.Bind(iface); err != nil {
		_ = socketSend.Close()
		return nil, errors.Wrapf(err, "failed to bind CAN send socket to %s", iface)
	}

	socketRecv, err := canbus.New()
	if err != nil {
		_ = socketSend.Close()
		return nil, errors.Wrap(err, "failed to create CAN receive socket")
	}
	if err := socketRecv.Bind(iface); err != nil {
		_ = socketSend.Close()
		_ = socketRecv.Close()
		return nil, errors.Wrapf(err, "failed to bind CAN receive socket to %s", iface)
	}

	b := newBus(socketSend, socketRecv, logger)
	b.close = func() error {
		return multierr.Combine(socketSend.Close(), socketRecv.Close())
	}
	return b, nil
}

func newBus(tx sender, rx receiver, logger golog.Logger) *Bus {
	return &Bus{
		logger: logger,
		tx:     tx,
		rx:     rx,
		close:  func() error { return nil },
		status: map[uint8]Status{},
		now:    time.Now,
	}
}

// Loop reads status frames until ctx is done or the socket is closed.
func (b *Bus) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer b.logger.Debug("CAN receive loop exited")
	for ctx.Err() == nil {
		frame, err := b.rx.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warnw("CAN receive failed; will retry", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		b.handleFrame(frame)
	}
}

func (b *Bus) handleFrame(frame canbus.Frame) {
	id, st, err := parseStatus(frame, b.now())
	if err == errNotStatus {
		return
	}
	if err != nil {
		b.logger.Debugw("dropping CAN frame", "error", err)
		return
	}
	b.lock.Lock()
	b.status[id] = st
	b.lock.Unlock()
}

func (b *Bus) send(deviceID uint8, c command) error {
	frame := c.toFrame(deviceID)
	if _, err := b.tx.Send(frame); err != nil {
		return errors.Wrapf(err, "failed to send %v command to device %d", c.mode, deviceID)
	}
	return nil
}

func (b *Bus) latest(deviceID uint8) (Status, error) {
	b.lock.Lock()
	st, ok := b.status[deviceID]
	b.lock.Unlock()
	if !ok {
		return Status{}, ErrNoStatus
	}
	if b.now().Sub(st.Time) > StaleAfter {
		return st, ErrStaleStatus
	}
	return st, nil
}

func (b *Bus) Close() error {
	return b.close()
}

// Motor returns a handle for one controller on the bus.
func (b *Bus) Motor(deviceID uint8) *Motor {
	return &Motor{bus: b, id: deviceID & DeviceIDMask}
}

// Motor is one motor controller addressed by its CAN device id.
type Motor struct {
	bus *Bus
	id  uint8
}

var (
	_ actuator.Actuator             = (*Motor)(nil)
	_ actuator.PositionControllable = (*Motor)(nil)
	_ actuator.GainConfigurable     = (*Motor)(nil)
)

func (m *Motor) ID() uint8 {
	return m.id
}

func (m *Motor) SetSpeed(speed float64) error {
	return m.bus.send(m.id, speedCommand(speed))
}

func (m *Motor) SetPositionTarget(counts int64) error {
	return m.bus.send(m.id, positionCommand(counts))
}

func (m *Motor) SetGains(p, i, d float64) error {
	return m.bus.send(m.id, gainsCommand(p, i, d))
}

func (m *Motor) ZeroPosition() error {
	if err := m.bus.send(m.id, command{mode: ModeZero}); err != nil {
		return err
	}
	// The next status frame will confirm; until then don't report the old count.
	m.bus.lock.Lock()
	if st, ok := m.bus.status[m.id]; ok {
		st.Position = 0
		m.bus.status[m.id] = st
	}
	m.bus.lock.Unlock()
	return nil
}

func (m *Motor) Position() (int64, error) {
	st, err := m.bus.latest(m.id)
	if err != nil {
		return 0, err
	}
	return int64(st.Position), nil
}

func (m *Motor) OutputCurrent() (float64, error) {
	st, err := m.bus.latest(m.id)
	if err != nil {
		return 0, err
	}
	return st.Current, nil
}

func (m *Motor) OutputVoltage() (float64, error) {
	st, err := m.bus.latest(m.id)
	if err != nil {
		return 0, err
	}
	return st.Voltage, nil
}
