// Package sound plays short WAV chimes through the speaker without blocking
// the caller.
package sound

import (
	"os"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"
)

// Queueing a sound gives up after this long rather than stall a control loop.
const EnqueueTimeout = 10 * time.Millisecond

type Interface interface {
	Play(path string)
	Close()
}

type Player struct {
	logger golog.Logger
	queue  chan string
	done   chan struct{}

	closeOnce sync.Once
}

var _ Interface = (*Player)(nil)

// NewPlayer starts the playback goroutine.  Each new sound cuts off the one
// before it.
func NewPlayer(logger golog.Logger) *Player {
	p := &Player{
		logger: logger,
		queue:  make(chan string),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Player) Play(path string) {
	select {
	case p.queue <- path:
	case <-p.done:
	case <-time.After(EnqueueTimeout):
		p.logger.Debugw("timed out queueing sound", "path", path)
	}
}

func (p *Player) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Player) loop() {
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.logger.Warnw("failed to open speaker; sounds disabled", "error", err)
		p.drain()
		return
	}

	var ctrl *beep.Ctrl
	var stream beep.StreamSeekCloser
	stop := func() {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if stream != nil {
			_ = stream.Close()
			stream = nil
		}
	}
	defer stop()

	for {
		select {
		case <-p.done:
			return
		case path := <-p.queue:
			stop()
			s, err := open(path)
			if err != nil {
				p.logger.Warnw("failed to play sound", "path", path, "error", err)
				continue
			}
			stream = s
			ctrl = &beep.Ctrl{Streamer: s}
			speaker.Play(ctrl)
		}
	}
}

func (p *Player) drain() {
	for {
		select {
		case <-p.done:
			return
		case path := <-p.queue:
			p.logger.Debugw("unable to play sound", "path", path)
		}
	}
}

func open(path string) (beep.StreamSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sound")
	}
	s, _, err := wav.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to decode sound")
	}
	return s, nil
}

// Silent discards every sound.  Used when sounds are disabled and in tests.
type Silent struct {
	lock   sync.Mutex
	played []string
}

var _ Interface = (*Silent)(nil)

func (s *Silent) Play(path string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.played = append(s.played, path)
}

func (s *Silent) Close() {}

func (s *Silent) History() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.played...)
}
