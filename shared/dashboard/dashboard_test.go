package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mu        sync.Mutex
	messages  []domain.Message
	getErr    error
	markErr   error
	getCalls  int
	markCalls []domain.MsgId

	// when set, GetMessages signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (m *mockSource) GetMessages(ctx context.Context) ([]domain.Message, error) {
	m.mu.Lock()
	m.getCalls++
	entered, release := m.entered, m.release
	msgs := append([]domain.Message(nil), m.messages...)
	err := m.getErr
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	return msgs, err
}

func (m *mockSource) MarkAsRead(ctx context.Context, id domain.MsgId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls = append(m.markCalls, id)
	return m.markErr
}

func (m *mockSource) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls, len(m.markCalls)
}

func seeded() *mockSource {
	return &mockSource{messages: []domain.Message{
		msg("1", domain.TypeText, false, 1, "first"),
		msg("2", domain.TypeImage, false, 2, ""),
		msg("3", domain.TypeText, true, 3, "third"),
	}}
}

func TestDashboard_Refresh(t *testing.T) {
	src := seeded()
	d := New(src, 0)

	n, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, d.UnreadCount())
	assert.False(t, d.RefreshedAt().IsZero())

	src.getErr = errors.New("gateway down")
	_, err = d.Refresh(context.Background())
	assert.Error(t, err)
	assert.Len(t, d.Messages(), 3, "failed refresh keeps the previous list")
}

func TestDashboard_MarkAsRead(t *testing.T) {
	src := seeded()
	d := New(src, 0)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	src.markErr = errors.New("rejected")
	require.Error(t, d.MarkAsRead(context.Background(), "1"))
	m, _ := d.Message("1")
	assert.False(t, m.IsRead, "local state changes only after the gateway succeeds")

	src.markErr = nil
	require.NoError(t, d.MarkAsRead(context.Background(), "1"))
	m, _ = d.Message("1")
	assert.True(t, m.IsRead)
	assert.Equal(t, 1, d.UnreadCount())

	assert.ErrorIs(t, d.MarkAsRead(context.Background(), "404"), ErrMessageNotFound)
	_, marks := src.calls()
	assert.Equal(t, 2, marks)
}

func TestDashboard_ReadStateSurvivesRefresh(t *testing.T) {
	src := seeded()
	d := New(src, 0)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, d.MarkAsRead(context.Background(), "1"))

	// gateway still reports 1 unread and now 3 unread too
	src.mu.Lock()
	src.messages[2].IsRead = false
	src.mu.Unlock()
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)

	m, ok := d.Message("1")
	require.True(t, ok)
	assert.True(t, m.IsRead)
	m, _ = d.Message("3")
	assert.True(t, m.IsRead)
	assert.Equal(t, 1, d.UnreadCount())
}

func TestDashboard_HideFromViewIsLocal(t *testing.T) {
	src := seeded()
	d := New(src, 0)
	other := New(src, 0)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)
	_, err = other.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, d.HideFromView("2"))
	assert.ErrorIs(t, d.HideFromView("99"), ErrMessageNotFound)

	assert.Equal(t, []string{"1", "3"}, ids(d.Messages()))
	_, ok := d.Message("2")
	assert.False(t, ok)
	assert.Len(t, other.Messages(), 3, "other dashboards are unaffected")

	// stays hidden after the gateway returns it again
	n, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d.View(Filters{}, SortNewest, 1).Total)

	_, marks := src.calls()
	assert.Zero(t, marks)
}

func TestPoller_RefreshesUntilStopped(t *testing.T) {
	src := seeded()
	d := New(src, 0)
	p := NewPoller(d, 10*time.Millisecond)

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		gets, _ := src.calls()
		return gets >= 3
	}, time.Second, time.Millisecond)
	assert.Len(t, d.Messages(), 3)

	p.Stop()
	p.Stop()
	gets, _ := src.calls()
	time.Sleep(30 * time.Millisecond)
	after, _ := src.calls()
	assert.Equal(t, gets, after, "no polls after Stop")
}

func TestPoller_ResultAfterStopIsDiscarded(t *testing.T) {
	src := seeded()
	src.entered = make(chan struct{})
	src.release = make(chan struct{})
	d := New(src, 0)
	p := NewPoller(d, time.Hour)

	p.Start(context.Background())
	<-src.entered

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool { return !p.alive() }, time.Second, time.Millisecond)

	close(src.release)
	<-stopped
	assert.Empty(t, d.Messages())
	assert.True(t, d.RefreshedAt().IsZero())
}

func TestPoller_StopWithoutStart(t *testing.T) {
	p := NewPoller(New(seeded(), 0), 0)
	p.Stop()
	p.Start(context.Background())
	gets, _ := p.dash.src.(*mockSource).calls()
	assert.Zero(t, gets)
}
