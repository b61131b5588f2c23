package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itchan-dev/echobox/shared/logger"
)

const DefaultPollInterval = 30 * time.Second

// Poller refreshes a Dashboard on a fixed interval until stopped.
type Poller struct {
	dash     *Dashboard
	interval time.Duration
	log      *slog.Logger

	stopped  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	startMu  sync.Mutex
	stopOnce sync.Once
}

func NewPoller(dash *Dashboard, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		dash:     dash,
		interval: interval,
		log:      logger.Component("poller"),
		done:     make(chan struct{}),
	}
}

// Start runs an immediate refresh and then one per interval in the
// background. Calling Start twice or after Stop does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.cancel != nil || p.stopped.Load() {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	n, err := p.dash.refresh(ctx, p.alive)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("poll failed", "error", err)
		}
		return
	}
	p.log.Debug("poll complete", "visible", n)
}

func (p *Poller) alive() bool {
	return !p.stopped.Load()
}

// Stop cancels any poll in flight and waits for the loop to exit. After Stop
// returns the dashboard is never touched by this poller again.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		p.startMu.Lock()
		cancel := p.cancel
		p.startMu.Unlock()
		if cancel == nil {
			return
		}
		cancel()
		<-p.done
	})
}
