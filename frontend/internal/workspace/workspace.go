// Package workspace keeps one dashboard per admin session so that each
// admin's hidden set and poll loop are independent.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/echobox/shared/dashboard"
	"github.com/itchan-dev/echobox/shared/logger"
)

// Workspace is the dashboard state owned by one admin session.
type Workspace struct {
	Dashboard *dashboard.Dashboard
	poller    *dashboard.Poller
	expiresAt time.Time
}

type Registry struct {
	src          dashboard.Source
	pageSize     int
	pollInterval time.Duration
	now          func() time.Time

	mu     sync.Mutex
	spaces map[string]*Workspace
}

func NewRegistry(src dashboard.Source, pageSize int, pollInterval time.Duration) *Registry {
	return &Registry{
		src:          src,
		pageSize:     pageSize,
		pollInterval: pollInterval,
		now:          time.Now,
		spaces:       make(map[string]*Workspace),
	}
}

// Open returns the workspace for sessionID, creating it and starting its
// poller on first use.
func (reg *Registry) Open(ctx context.Context, sessionID string, expiresAt time.Time) *Workspace {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if ws, ok := reg.spaces[sessionID]; ok {
		return ws
	}

	dash := dashboard.New(reg.src, reg.pageSize)
	ws := &Workspace{
		Dashboard: dash,
		poller:    dashboard.NewPoller(dash, reg.pollInterval),
		expiresAt: expiresAt,
	}
	// the poller outlives the request that opened it
	ws.poller.Start(context.WithoutCancel(ctx))
	reg.spaces[sessionID] = ws
	logger.Log.Debug("opened workspace", "component", "workspace", "session", sessionID)
	return ws
}

func (reg *Registry) Get(sessionID string) (*Workspace, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ws, ok := reg.spaces[sessionID]
	return ws, ok
}

// Close stops the session's poller and drops its state.
func (reg *Registry) Close(sessionID string) {
	reg.mu.Lock()
	ws, ok := reg.spaces[sessionID]
	delete(reg.spaces, sessionID)
	reg.mu.Unlock()
	if ok {
		ws.poller.Stop()
	}
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.spaces)
}

// Sweep closes workspaces whose sessions have expired.
func (reg *Registry) Sweep() int {
	now := reg.now()
	reg.mu.Lock()
	var expired []*Workspace
	for id, ws := range reg.spaces {
		if !ws.expiresAt.After(now) {
			expired = append(expired, ws)
			delete(reg.spaces, id)
		}
	}
	reg.mu.Unlock()

	for _, ws := range expired {
		ws.poller.Stop()
	}
	return len(expired)
}

// CloseAll stops every poller. Used on shutdown.
func (reg *Registry) CloseAll() {
	reg.mu.Lock()
	spaces := reg.spaces
	reg.spaces = make(map[string]*Workspace)
	reg.mu.Unlock()

	for _, ws := range spaces {
		ws.poller.Stop()
	}
}

// StartBackgroundSweep sweeps expired sessions until ctx is cancelled.
func (reg *Registry) StartBackgroundSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started workspace sweep",
		"component", "workspace",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := reg.Sweep(); n > 0 {
					logger.Log.Debug("closed expired workspaces",
						"component", "workspace",
						"closed", n)
				}
			case <-ctx.Done():
				logger.Log.Info("workspace sweep shutting down", "component", "workspace")
				return
			}
		}
	}()
}
