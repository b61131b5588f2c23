package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
)

var ErrMessageNotFound = errors.New("message not found")

// Source is the part of the gateway client the dashboard reads from.
type Source interface {
	GetMessages(ctx context.Context) ([]domain.Message, error)
	MarkAsRead(ctx context.Context, id domain.MsgId) error
}

// Dashboard owns one admin's local message list. Hidden messages stay
// hidden across refreshes; hiding never reaches the gateway. A message seen
// as read stays read even if a later fetch reports it unread.
type Dashboard struct {
	src      Source
	pageSize int
	log      *slog.Logger

	mu          sync.RWMutex
	messages    []domain.Message
	hidden      map[domain.MsgId]struct{}
	read        map[domain.MsgId]struct{}
	refreshedAt time.Time
}

func New(src Source, pageSize int) *Dashboard {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Dashboard{
		src:      src,
		pageSize: pageSize,
		log:      logger.Component("dashboard"),
		hidden:   make(map[domain.MsgId]struct{}),
		read:     make(map[domain.MsgId]struct{}),
	}
}

// Refresh replaces the local list with the gateway's. On error the previous
// list is kept. It returns the number of visible messages.
func (d *Dashboard) Refresh(ctx context.Context) (int, error) {
	return d.refresh(ctx, nil)
}

// refresh applies the fetched list only while alive reports true. alive is
// checked under the lock so a stopped poller can never mutate the list.
func (d *Dashboard) refresh(ctx context.Context, alive func() bool) (int, error) {
	messages, err := d.src.GetMessages(ctx)
	if err != nil {
		d.log.Warn("failed to refresh messages", "error", err)
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if alive != nil && !alive() {
		d.log.Debug("discarding refresh after stop")
		return 0, context.Canceled
	}
	for i := range messages {
		id := messages[i].Id
		if messages[i].IsRead {
			d.read[id] = struct{}{}
		} else if _, ok := d.read[id]; ok {
			messages[i].IsRead = true
		}
	}
	d.messages = messages
	d.refreshedAt = time.Now()
	return d.visibleLocked(), nil
}

func (d *Dashboard) visibleLocked() int {
	n := 0
	for _, m := range d.messages {
		if _, ok := d.hidden[m.Id]; !ok {
			n++
		}
	}
	return n
}

// Messages returns a copy of the visible list in gateway order.
func (d *Dashboard) Messages() []domain.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Message, 0, len(d.messages))
	for _, m := range d.messages {
		if _, ok := d.hidden[m.Id]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// Message looks up one visible message.
func (d *Dashboard) Message(id domain.MsgId) (domain.Message, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.hidden[id]; ok {
		return domain.Message{}, false
	}
	i := d.indexLocked(id)
	if i < 0 {
		return domain.Message{}, false
	}
	return d.messages[i], true
}

func (d *Dashboard) indexLocked(id domain.MsgId) int {
	return slices.IndexFunc(d.messages, func(m domain.Message) bool { return m.Id == id })
}

func (d *Dashboard) UnreadCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, m := range d.messages {
		if _, ok := d.hidden[m.Id]; !ok && !m.IsRead {
			n++
		}
	}
	return n
}

func (d *Dashboard) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}

// MarkAsRead calls the gateway first and flips the local flag only when the
// gateway call succeeds.
func (d *Dashboard) MarkAsRead(ctx context.Context, id domain.MsgId) error {
	if _, ok := d.Message(id); !ok {
		return ErrMessageNotFound
	}
	if err := d.src.MarkAsRead(ctx, id); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.read[id] = struct{}{}
	if i := d.indexLocked(id); i >= 0 {
		d.messages[i].IsRead = true
	}
	return nil
}

// HideFromView removes a message from this dashboard only. The message is
// not deleted: the gateway keeps it and other dashboards still show it.
func (d *Dashboard) HideFromView(id domain.MsgId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexLocked(id) < 0 {
		return ErrMessageNotFound
	}
	d.hidden[id] = struct{}{}
	return nil
}

// View projects the visible list.
func (d *Dashboard) View(f Filters, order SortOrder, page int) Page {
	return Project(d.Messages(), f, order, page, d.pageSize)
}
