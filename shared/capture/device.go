package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
)

// Device hands out an exclusive audio input stream. Closing the stream
// releases the device.
type Device interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// classifyOpenError maps any device failure onto the two capture errors.
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrDeviceUnavailable):
		return err
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}

// ReaderDevice serves a single pre-opened stream, e.g. stdin piped from
// an external recorder. A second Open fails until the first stream is closed.
type ReaderDevice struct {
	r    io.Reader
	busy chan struct{}
}

func NewReaderDevice(r io.Reader) *ReaderDevice {
	return &ReaderDevice{r: r, busy: make(chan struct{}, 1)}
}

func (d *ReaderDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	select {
	case d.busy <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: device is in use", ErrDeviceUnavailable)
	}
	s := &readerStream{
		dev:    d,
		chunks: make(chan []byte),
		errc:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// readerStream decouples Read from the source so that Close returns
// immediately even while the source is blocked (a terminal, a pipe).
type readerStream struct {
	dev     *ReaderDevice
	chunks  chan []byte
	errc    chan error
	closed  chan struct{}
	once    sync.Once
	pending []byte
}

func (s *readerStream) pump() {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.dev.r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			s.errc <- err
			return
		}
	}
}

func (s *readerStream) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	case chunk := <-s.chunks:
		n := copy(p, chunk)
		s.pending = chunk[n:]
		return n, nil
	case err := <-s.errc:
		return 0, err
	}
}

func (s *readerStream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		<-s.dev.busy
	})
	return nil
}

// FileDevice opens a fresh file for every recording session.
type FileDevice struct {
	Path string
}

func (d FileDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	return f, nil
}
