// Package bno08x reads yaw reports from a BNO08x IMU running in UART-RVC
// mode and serves them as a chassis heading.
package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/tigerbot-team/tigerbot/swerve-controller/pkg/angle"
)

const DefaultDevice = "/dev/ttyAMA0"

const (
	ReportFrequency = 100
	ReportInterval  = time.Second / ReportFrequency

	// Reports older than this are not trusted for heading.
	StaleAfter = 250 * time.Millisecond

	packetLen = 19
)

var (
	ErrNoReport    = errors.New("no report received from IMU yet")
	ErrStaleReport = errors.New("IMU report is stale")

	errBadChecksum = errors.New("bad checksum")
	errLostSync    = errors.New("lost sync with packet stream")
)

var header = []byte{0xaa, 0xaa}

type Report struct {
	Time   time.Time
	Index  uint8
	Yaw    int16
	Pitch  int16
	Roll   int16
	XAccel int16
	YAccel int16
	ZAccel int16
}

func (r Report) String() string {
	return fmt.Sprintf("[%02x] Y:%7.2f P:%7.2f R:%7.2f X:%7.2f Y:%7.2f Z:%7.2f",
		r.Index, float64(r.Yaw)/100.0, float64(r.Pitch)/100.0, float64(r.Roll)/100.0,
		float64(r.XAccel)/100.0, float64(r.YAccel)/100.0, float64(r.ZAccel)/100.0)
}

// YawDegrees is the raw yaw in [-180, 180], counter-clockwise positive.
func (r Report) YawDegrees() float64 {
	return float64(r.Yaw) / 100.0
}

type BNO08X struct {
	device string
	logger golog.Logger
	now    func() time.Time

	lock       sync.Mutex
	cond       *sync.Cond
	lastReport Report
	zeroYaw    float64
}

func New(device string, logger golog.Logger) *BNO08X {
	if device == "" {
		device = DefaultDevice
	}
	b := &BNO08X{
		device: device,
		logger: logger,
		now:    time.Now,
	}
	b.cond = sync.NewCond(&b.lock)
	return b
}

func (b *BNO08X) CurrentReport() Report {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastReport
}

// Heading returns the yaw relative to the last Zero call, in [0, 360).
func (b *BNO08X) Heading() (float64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.lastReport.Time.IsZero() {
		return 0, ErrNoReport
	}
	if age := b.now().Sub(b.lastReport.Time); age > StaleAfter {
		return 0, errors.Wrapf(ErrStaleReport, "last report %v ago", age)
	}
	return angle.Wrap360(b.lastReport.YawDegrees() - b.zeroYaw), nil
}

// Zero makes the current orientation read as heading 0.
func (b *BNO08X) Zero() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.zeroYaw = b.lastReport.YawDegrees()
	b.logger.Infow("heading zeroed", "yaw", b.zeroYaw)
}

// WaitForReportAfter blocks until a report newer than t arrives, ctx is done
// or timeout passes.
func (b *BNO08X) WaitForReportAfter(ctx context.Context, t time.Time, timeout time.Duration) (Report, error) {
	wake := func() {
		b.lock.Lock()
		b.cond.Broadcast()
		b.lock.Unlock()
	}
	deadline := time.AfterFunc(timeout, wake)
	defer deadline.Stop()
	stopWake := context.AfterFunc(ctx, wake)
	defer stopWake()
	start := time.Now()

	b.lock.Lock()
	defer b.lock.Unlock()
	for !b.lastReport.Time.After(t) {
		if ctx.Err() != nil {
			return b.lastReport, ctx.Err()
		}
		if time.Since(start) >= timeout {
			return b.lastReport, errors.Errorf("IMU hasn't responded for %v", timeout)
		}
		b.cond.Wait()
	}
	return b.lastReport, nil
}

// LoopReadingReports keeps the serial port open and the latest report cached
// until ctx is done, reopening the port after any failure.
func (b *BNO08X) LoopReadingReports(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer b.cond.Broadcast()
	for ctx.Err() == nil {
		err := b.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		b.logger.Warnw("IMU loop stopped; will retry", "device", b.device, "error", err)
		time.Sleep(100 * time.Millisecond)
		b.cond.Broadcast()
	}
}

func (b *BNO08X) openAndLoop(ctx context.Context) error {
	s, err := serial.Open(b.device, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", b.device)
	}
	defer s.Close()
	go func() {
		// Unblock the read below on shutdown.
		<-ctx.Done()
		_ = s.Close()
	}()
	return b.readReports(ctx, s)
}

// readReports decodes packets from r until it fails or ctx is done.
func (b *BNO08X) readReports(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	buf := make([]byte, packetLen)
	for {
		if err := resync(ctx, br); err != nil {
			return err
		}
		b.logger.Debug("in sync with packet stream")
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := io.ReadFull(br, buf); err != nil {
				return errors.Wrap(err, "failed to read from serial")
			}
			report, err := parsePacket(buf)
			if err != nil {
				b.logger.Warnw("dropping packet", "packet", fmt.Sprintf("%x", buf), "error", err)
				break
			}
			report.Time = b.now()
			b.setReport(report)
		}
	}
}

// resync discards bytes until the next packet header.
func resync(ctx context.Context, br *bufio.Reader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		peek, err := br.Peek(len(header))
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		if bytes.Equal(peek, header) {
			return nil
		}
		if _, err := br.Discard(1); err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
	}
}

func parsePacket(buf []byte) (Report, error) {
	if len(buf) != packetLen || !bytes.Equal(buf[:2], header) {
		return Report{}, errLostSync
	}
	var checksum uint8
	for _, c := range buf[2 : packetLen-1] {
		checksum += c
	}
	if buf[packetLen-1] != checksum {
		return Report{}, errors.Wrapf(errBadChecksum, "%x != %x", buf[packetLen-1], checksum)
	}
	le := binary.LittleEndian
	return Report{
		Index:  buf[2],
		Yaw:    int16(le.Uint16(buf[3:5])),
		Pitch:  int16(le.Uint16(buf[5:7])),
		Roll:   int16(le.Uint16(buf[7:9])),
		XAccel: int16(le.Uint16(buf[9:11])),
		YAccel: int16(le.Uint16(buf[11:13])),
		ZAccel: int16(le.Uint16(buf[13:15])),
	}, nil
}

func (b *BNO08X) setReport(report Report) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lastReport = report
	b.cond.Broadcast()
}
