package composer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/capture"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGateway counts calls and returns err.
type mockGateway struct {
	mu    sync.Mutex
	calls []apiclient.SendRequest
	err   error
	block chan struct{}
}

func (m *mockGateway) SendMessage(ctx context.Context, req apiclient.SendRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	return m.err
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type panicGateway struct{}

func (panicGateway) SendMessage(context.Context, apiclient.SendRequest) error {
	panic("transport exploded")
}

func jpeg(size int) *domain.PendingUpload {
	return &domain.PendingUpload{Filename: "p.jpg", MimeType: "image/jpeg", Size: int64(size), Data: make([]byte, size)}
}

func pdf() *domain.PendingUpload {
	return &domain.PendingUpload{Filename: "cv.pdf", MimeType: "application/pdf", Size: 4, Data: []byte("%PDF")}
}

func TestSubmit_NoContent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Composer)
	}{
		{name: "empty text", setup: func(c *Composer) {}},
		{name: "whitespace text", setup: func(c *Composer) { require.NoError(t, c.SetText("   \n")) }},
		{name: "image without file", setup: func(c *Composer) {
			require.NoError(t, c.SetMode(domain.TypeImage))
			require.NoError(t, c.SetImageCaption("caption only"))
		}},
		{name: "document without file", setup: func(c *Composer) { require.NoError(t, c.SetMode(domain.TypeDocument)) }},
		{name: "voice without clip", setup: func(c *Composer) { require.NoError(t, c.SetMode(domain.TypeVoice)) }},
		{name: "text staged but image mode", setup: func(c *Composer) {
			require.NoError(t, c.SetText("hello"))
			require.NoError(t, c.SetMode(domain.TypeImage))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			c := New(gw, nil)
			tt.setup(c)

			err := c.Submit(context.Background())
			assert.ErrorIs(t, err, ErrNoContent)
			assert.Zero(t, gw.callCount())
			assert.False(t, c.InFlight())
		})
	}
}

func TestSubmit_TextSuccessResetsEverything(t *testing.T) {
	gw := &mockGateway{}
	c := New(gw, nil)

	require.NoError(t, c.StageImage(jpeg(10)))
	require.NoError(t, c.SetImageCaption("cat"))
	require.NoError(t, c.StageDocument(pdf()))
	require.NoError(t, c.SetDocumentDescription("resume"))
	require.NoError(t, c.SetMode(domain.TypeText))
	require.NoError(t, c.SetText("hello there"))

	require.NoError(t, c.Submit(context.Background()))

	require.Equal(t, 1, gw.callCount())
	assert.Equal(t, apiclient.SendRequest{Type: domain.TypeText, Text: "hello there"}, gw.calls[0])
	assert.Equal(t, domain.TypeText, c.Mode())
	assert.Empty(t, c.Text())
	assert.Empty(t, c.ImageCaption())
	assert.Empty(t, c.DocumentDescription())
	assert.Nil(t, c.StagedImage())
	assert.Nil(t, c.StagedDocument())
	assert.False(t, c.InFlight())
}

func TestSubmit_ImageAndDocumentCarryCaption(t *testing.T) {
	gw := &mockGateway{}
	c := New(gw, nil)

	img := jpeg(2 * 1024 * 1024)
	require.NoError(t, c.StageImage(img))
	assert.Equal(t, domain.TypeImage, c.Mode(), "staging switches mode")
	require.NoError(t, c.SetImageCaption("sunset"))
	require.NoError(t, c.Submit(context.Background()))

	require.NoError(t, c.StageDocument(pdf()))
	require.NoError(t, c.SetDocumentDescription("my cv"))
	require.NoError(t, c.Submit(context.Background()))

	require.Equal(t, 2, gw.callCount())
	assert.Equal(t, domain.TypeImage, gw.calls[0].Type)
	assert.Same(t, img, gw.calls[0].File)
	assert.Equal(t, "sunset", gw.calls[0].Text)
	assert.Equal(t, domain.TypeDocument, gw.calls[1].Type)
	assert.Equal(t, "my cv", gw.calls[1].Text)
}

func TestSubmit_FailurePreservesState(t *testing.T) {
	gw := &mockGateway{err: &apiclient.GatewayError{Op: "send_message", StatusCode: 500, Body: "boom"}}
	c := New(gw, nil)

	img := jpeg(100)
	require.NoError(t, c.StageImage(img))
	require.NoError(t, c.SetImageCaption("keep me"))
	require.NoError(t, c.SetText("draft text"))

	err := c.Submit(context.Background())
	var gerr *apiclient.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 500, gerr.StatusCode)

	assert.Equal(t, 1, gw.callCount())
	assert.False(t, c.InFlight())
	assert.Equal(t, domain.TypeImage, c.Mode())
	assert.Same(t, img, c.StagedImage())
	assert.Equal(t, "keep me", c.ImageCaption())
	assert.Equal(t, "draft text", c.Text())

	// retry without re-entering anything
	gw.err = nil
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, 2, gw.callCount())
	assert.Nil(t, c.StagedImage())
}

func TestSubmit_PlainErrorIsWrappedAsGatewayError(t *testing.T) {
	gw := &mockGateway{err: errors.New("connection reset")}
	c := New(gw, nil)
	require.NoError(t, c.SetText("hi"))

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, apiclient.ErrGateway)
	assert.Equal(t, "hi", c.Text())
}

func TestSubmit_PanicResetsInFlight(t *testing.T) {
	c := New(panicGateway{}, nil)
	require.NoError(t, c.SetText("hi"))

	assert.Panics(t, func() { _ = c.Submit(context.Background()) })
	assert.False(t, c.InFlight())
	assert.Equal(t, "hi", c.Text())
}

func TestSubmit_RejectsReentry(t *testing.T) {
	gw := &mockGateway{block: make(chan struct{})}
	c := New(gw, nil)
	require.NoError(t, c.SetText("once"))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()

	require.Eventually(t, c.InFlight, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmitInFlight)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.callCount())
	assert.False(t, c.InFlight())
}

func TestSetText_Bounds(t *testing.T) {
	c := New(&mockGateway{}, nil)

	require.NoError(t, c.SetText(strings.Repeat("ж", MaxTextLength)))
	err := c.SetText(strings.Repeat("a", MaxTextLength+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
	assert.Contains(t, err.Error(), "1000")
	assert.Equal(t, strings.Repeat("ж", MaxTextLength), c.Text(), "rejected text is not stored or truncated")

	assert.ErrorIs(t, c.SetImageCaption(strings.Repeat("a", MaxCaptionLength+1)), ErrTextTooLong)
	assert.ErrorIs(t, c.SetDocumentDescription(strings.Repeat("a", MaxCaptionLength+1)), ErrTextTooLong)
	assert.NoError(t, c.SetDocumentDescription(strings.Repeat("a", MaxCaptionLength)))
}

func TestStage_RejectedFileNotStaged(t *testing.T) {
	c := New(&mockGateway{}, nil)

	good := jpeg(10)
	require.NoError(t, c.StageImage(good))
	require.NoError(t, c.SetMode(domain.TypeText))

	err := c.StageImage(jpeg(6 * 1024 * 1024))
	assert.ErrorIs(t, err, validation.ErrFileTooLarge)
	assert.Same(t, good, c.StagedImage())
	assert.Equal(t, domain.TypeText, c.Mode(), "failed staging keeps the mode")

	err = c.StageDocument(&domain.PendingUpload{Filename: "a.txt", MimeType: "text/plain", Size: 3, Data: []byte("abc")})
	assert.ErrorIs(t, err, validation.ErrUnsupportedType)
	assert.Nil(t, c.StagedDocument())
}

func TestSetMode_Invalid(t *testing.T) {
	c := New(&mockGateway{}, nil)
	assert.ErrorIs(t, c.SetMode("video"), ErrInvalidMode)
	assert.Equal(t, domain.TypeText, c.Mode())
}

func TestSubmit_UploadedVoice(t *testing.T) {
	gw := &mockGateway{}
	c := New(gw, nil)

	require.NoError(t, c.StageVoice(&domain.PendingUpload{Filename: "v.ogg", MimeType: "audio/ogg", Size: 4, Data: []byte("OggS")}))
	assert.Equal(t, domain.TypeVoice, c.Mode())
	require.NoError(t, c.Submit(context.Background()))

	require.Equal(t, 1, gw.callCount())
	require.NotNil(t, gw.calls[0].Audio)
	assert.Equal(t, "audio/ogg", gw.calls[0].Audio.MimeType)
}

// tickClock fires its tickers only when Tick is called.
type tickClock struct {
	mu      sync.Mutex
	tickers []*tickTicker
}

type tickTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *tickTicker) C() <-chan time.Time { return t.c }
func (t *tickTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (k *tickClock) NewTicker(time.Duration) capture.Ticker {
	t := &tickTicker{c: make(chan time.Time)}
	k.mu.Lock()
	k.tickers = append(k.tickers, t)
	k.mu.Unlock()
	return t
}

func (k *tickClock) Tick() {
	k.mu.Lock()
	tickers := append([]*tickTicker(nil), k.tickers...)
	k.mu.Unlock()
	for _, t := range tickers {
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		if stopped {
			continue
		}
		select {
		case t.c <- time.Now():
		case <-time.After(time.Second):
		}
	}
}

type streamDevice struct {
	r io.ReadCloser
}

func (d streamDevice) Open(context.Context) (io.ReadCloser, error) {
	return d.r, nil
}

// fillReader never runs dry.
type fillReader struct{}

func (fillReader) Read(p []byte) (int, error) { return len(p), nil }

func TestSubmit_OversizeRecordingRejected(t *testing.T) {
	rule, err := validation.RuleFor(validation.ContextAudio)
	require.NoError(t, err)

	rec := capture.NewRecorder(streamDevice{r: io.NopCloser(fillReader{})}, capture.Config{
		MaxBytes: rule.MaxSize + 4096,
		Clock:    &tickClock{},
	})
	defer rec.Close()
	require.NoError(t, rec.Start(context.Background()))
	require.Eventually(t, func() bool { return rec.State() == capture.Stopped }, 10*time.Second, 10*time.Millisecond)

	gw := &mockGateway{}
	c := New(gw, rec)
	require.NoError(t, c.SetMode(domain.TypeVoice))

	err = c.Submit(context.Background())
	assert.ErrorIs(t, err, validation.ErrFileTooLarge)
	assert.Zero(t, gw.callCount())
	assert.Equal(t, capture.Stopped, rec.State(), "rejected clip stays for review")
	assert.False(t, c.InFlight())
}

func TestSubmit_VoiceEndToEnd(t *testing.T) {
	var (
		mu       sync.Mutex
		calls    int
		typeVal  string
		audio    []byte
		filename string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/add-message" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		mu.Lock()
		calls++
		typeVal = r.FormValue("type")
		audio = data
		filename = fh.Filename
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pr, pw := io.Pipe()
	clock := &tickClock{}
	rec := capture.NewRecorder(streamDevice{r: pr}, capture.Config{Clock: clock})
	defer rec.Close()

	c := New(apiclient.New(srv.URL, 5*time.Second), rec)
	require.NoError(t, c.SetMode(domain.TypeVoice))

	require.NoError(t, rec.Start(context.Background()))
	assert.ErrorIs(t, c.Submit(context.Background()), ErrNoContent, "recording in progress is not content")

	_, err := pw.Write([]byte("ID3-frames"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		clock.Tick()
	}
	require.Eventually(t, func() bool { return rec.Elapsed() == 3*time.Second }, time.Second, time.Millisecond)

	clip, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, clip.Duration)
	assert.True(t, bytes.Equal([]byte("ID3-frames"), clip.Data))

	require.NoError(t, c.Submit(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "audio", typeVal)
	assert.Equal(t, "ID3-frames", string(audio))
	assert.Regexp(t, `^audio_\d+\.mp3$`, filename)
	assert.Equal(t, capture.Idle, rec.State())
	assert.False(t, c.InFlight())
	assert.Equal(t, domain.TypeText, c.Mode())
}
