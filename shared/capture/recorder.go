// Package capture records audio clips from an input device and plays them
// back on a virtual transport.
//
// A Recorder moves through Idle -> Recording -> Stopped and, once a clip
// exists, between Stopped, Playing and Paused. Discard is the only way back
// to Idle. At most one clip exists at a time.
package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/validation"
)

const (
	DefaultMaxDuration  = 120 * time.Second
	DefaultPlaybackTick = 100 * time.Millisecond

	// ClipMimeType is the container agreed with the gateway for voice
	// messages. Clips whose content sniffs as another accepted audio type
	// are labelled with that type instead.
	ClipMimeType = "audio/mpeg"

	recordTick = time.Second
	readChunk  = 4096
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("not recording")
	ErrClipExists       = errors.New("a clip already exists, discard it first")
	ErrNoClip           = errors.New("no recorded clip")
	ErrClosed           = errors.New("recorder is closed")
)

type State int

const (
	Idle State = iota
	Recording
	Stopped
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// HasClip reports whether a finalized clip exists in this state.
func (s State) HasClip() bool {
	return s == Stopped || s == Playing || s == Paused
}

type Config struct {
	MaxDuration  time.Duration
	PlaybackTick time.Duration
	// MaxBytes caps a clip. Recording finalizes once it is reached.
	// Defaults to the audio upload limit.
	MaxBytes int64
	Clock    Clock
}

// Recorder is safe for concurrent use. Observers registered with OnChange
// are called outside the lock.
type Recorder struct {
	device Device
	cfg    Config
	log    *slog.Logger

	mu        sync.Mutex
	state     State
	starting  bool
	closed    bool
	elapsed   time.Duration
	session   *session
	clip      *domain.Clip
	position  time.Duration
	playback  *playback
	observers []func(State)
}

// session is one Recording period. Its buffer is owned by the read loop
// until done is closed.
type session struct {
	stream   io.ReadCloser
	ticker   Ticker
	data     bytes.Buffer
	done     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
	endOnce  sync.Once
	ended    chan struct{}
	clip     *domain.Clip
}

func (s *session) release() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.ticker.Stop()
		_ = s.stream.Close()
	})
}

type playback struct {
	ticker Ticker
	quit   chan struct{}
	once   sync.Once
}

func (p *playback) stop() {
	p.once.Do(func() {
		close(p.quit)
		p.ticker.Stop()
	})
}

func NewRecorder(device Device, cfg Config) *Recorder {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.PlaybackTick <= 0 {
		cfg.PlaybackTick = DefaultPlaybackTick
	}
	if cfg.MaxBytes <= 0 {
		rule, _ := validation.RuleFor(validation.ContextAudio)
		cfg.MaxBytes = rule.MaxSize
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Recorder{
		device: device,
		cfg:    cfg,
		log:    logger.Component("recorder"),
	}
}

// OnChange registers fn to be called after every state transition.
func (r *Recorder) OnChange(fn func(State)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *Recorder) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

func (r *Recorder) MaxDuration() time.Duration {
	return r.cfg.MaxDuration
}

// Clip returns the finalized clip, or nil when none exists.
func (r *Recorder) Clip() *domain.Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// Start acquires the device and begins recording. On failure the recorder
// stays Idle and the error is ErrPermissionDenied or ErrDeviceUnavailable.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case r.state == Recording || r.starting:
		r.mu.Unlock()
		return ErrAlreadyRecording
	case r.state.HasClip():
		r.mu.Unlock()
		return ErrClipExists
	}
	r.starting = true
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)

	r.mu.Lock()
	r.starting = false
	if err != nil {
		r.mu.Unlock()
		err = classifyOpenError(err)
		r.log.Warn("failed to acquire audio device", "error", err)
		return err
	}
	if r.closed {
		r.mu.Unlock()
		_ = stream.Close()
		return ErrClosed
	}
	s := &session{
		stream: stream,
		ticker: r.cfg.Clock.NewTicker(recordTick),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		ended:  make(chan struct{}),
	}
	r.session = s
	r.elapsed = 0
	r.position = 0
	r.state = Recording
	observers := r.observers
	r.mu.Unlock()

	go r.readLoop(s)
	go r.timerLoop(s)
	r.log.Debug("recording started", "max_duration", r.cfg.MaxDuration)
	notify(observers, Recording)
	return nil
}

// Stop ends the recording and returns the finalized clip.
func (r *Recorder) Stop() (*domain.Clip, error) {
	r.mu.Lock()
	s := r.session
	if r.state != Recording || s == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.mu.Unlock()
	return r.finish(s), nil
}

func (r *Recorder) readLoop(s *session) {
	buf := make([]byte, readChunk)
	for {
		n, err := s.stream.Read(buf)
		room := r.cfg.MaxBytes - int64(s.data.Len())
		if int64(n) >= room {
			s.data.Write(buf[:room])
			r.log.Debug("max clip size reached", "max_bytes", r.cfg.MaxBytes)
			break
		}
		if n > 0 {
			s.data.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	close(s.done)
	// A stream that ends on its own (EOF, device unplugged) finalizes too.
	r.finish(s)
}

func (r *Recorder) timerLoop(s *session) {
	for {
		select {
		case <-s.quit:
			return
		case <-s.ticker.C():
			r.mu.Lock()
			if r.session != s {
				r.mu.Unlock()
				return
			}
			r.elapsed += recordTick
			if r.elapsed > r.cfg.MaxDuration {
				r.elapsed = r.cfg.MaxDuration
			}
			reached := r.elapsed >= r.cfg.MaxDuration
			r.mu.Unlock()
			if reached {
				r.log.Debug("max recording duration reached")
				r.finish(s)
				return
			}
		}
	}
}

// finish finalizes s exactly once, releasing the device before the clip is
// assembled. Concurrent callers block until the clip exists.
func (r *Recorder) finish(s *session) *domain.Clip {
	s.endOnce.Do(func() {
		s.release()
		<-s.done

		r.mu.Lock()
		if r.session != s {
			// torn down by Close
			r.mu.Unlock()
			close(s.ended)
			return
		}
		data := bytes.Clone(s.data.Bytes())
		s.clip = &domain.Clip{
			Data:     data,
			MimeType: r.clipMimeType(data),
			Duration: r.elapsed,
		}
		r.session = nil
		r.clip = s.clip
		r.position = 0
		r.state = Stopped
		observers := r.observers
		r.mu.Unlock()

		close(s.ended)
		r.log.Debug("recording finalized", "bytes", len(s.clip.Data), "duration", s.clip.Duration)
		notify(observers, Stopped)
	})
	<-s.ended
	return s.clip
}

// clipMimeType labels data by its content when it sniffs as an accepted
// audio type and falls back to ClipMimeType otherwise.
func (r *Recorder) clipMimeType(data []byte) string {
	if len(data) == 0 {
		return ClipMimeType
	}
	detected := mimetype.Detect(data)
	if detected.Is(ClipMimeType) {
		return ClipMimeType
	}
	rule, _ := validation.RuleFor(validation.ContextAudio)
	for _, m := range rule.AllowedMimes {
		if detected.Is(m) {
			return m
		}
	}
	r.log.Warn("recorded clip is not recognized audio", "detected", detected.String(), "label", ClipMimeType)
	return ClipMimeType
}

// TogglePlayback switches between Playing and Paused. From Stopped it starts
// playing from the current position.
func (r *Recorder) TogglePlayback() error {
	r.mu.Lock()
	if !r.state.HasClip() {
		r.mu.Unlock()
		return ErrNoClip
	}
	var next State
	if r.state == Playing {
		r.stopPlaybackLocked()
		next = Paused
	} else {
		p := &playback{
			ticker: r.cfg.Clock.NewTicker(r.cfg.PlaybackTick),
			quit:   make(chan struct{}),
		}
		r.playback = p
		go r.playLoop(p)
		next = Playing
	}
	r.state = next
	observers := r.observers
	r.mu.Unlock()
	notify(observers, next)
	return nil
}

func (r *Recorder) playLoop(p *playback) {
	for {
		select {
		case <-p.quit:
			return
		case <-p.ticker.C():
			r.mu.Lock()
			if r.playback != p {
				r.mu.Unlock()
				return
			}
			r.position += r.cfg.PlaybackTick
			if r.position < r.clip.Duration {
				r.mu.Unlock()
				continue
			}
			// end of clip: rewind and stay replay-ready
			r.stopPlaybackLocked()
			r.position = 0
			r.state = Paused
			observers := r.observers
			r.mu.Unlock()
			notify(observers, Paused)
			return
		}
	}
}

func (r *Recorder) stopPlaybackLocked() {
	if r.playback != nil {
		r.playback.stop()
		r.playback = nil
	}
}

// Seek moves the playback position, clamped to [0, clip duration].
func (r *Recorder) Seek(pos time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.HasClip() {
		return ErrNoClip
	}
	switch {
	case pos < 0:
		pos = 0
	case pos > r.clip.Duration:
		pos = r.clip.Duration
	}
	r.position = pos
	return nil
}

// Discard drops the clip and returns to Idle.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	if !r.state.HasClip() {
		r.mu.Unlock()
		return ErrNoClip
	}
	r.stopPlaybackLocked()
	r.clip = nil
	r.position = 0
	r.elapsed = 0
	r.state = Idle
	observers := r.observers
	r.mu.Unlock()
	notify(observers, Idle)
	return nil
}

// Reset aborts any recording, drops any clip and returns to Idle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s != nil {
		r.finish(s)
	}
	_ = r.Discard()
}

// Close releases the device and any clip. The recorder cannot be reused.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	s := r.session
	r.session = nil
	r.stopPlaybackLocked()
	r.clip = nil
	r.position = 0
	r.elapsed = 0
	r.state = Idle
	r.mu.Unlock()

	if s != nil {
		s.endOnce.Do(func() {
			s.release()
			<-s.done
			close(s.ended)
		})
	}
	return nil
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}
