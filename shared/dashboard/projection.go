// Package dashboard keeps the admin's local copy of the gateway's messages
// and projects it into filtered, sorted pages.
package dashboard

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/itchan-dev/echobox/shared/domain"
)

const DefaultPageSize = 10

type SortOrder string

const (
	SortNewest      SortOrder = "newest"
	SortOldest      SortOrder = "oldest"
	SortUnreadFirst SortOrder = "unread"
)

// ParseSortOrder falls back to newest-first for unknown values.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortOldest, SortUnreadFirst:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

// Filters narrows the list. A zero Type means all types.
type Filters struct {
	Type       domain.MessageType
	UnreadOnly bool
	Search     string
}

type Page struct {
	Messages   []domain.Message
	Page       int
	TotalPages int
	// Total counts messages after filtering.
	Total int
}

// Project filters by type, then unread, then search text, sorts the result
// and cuts out one page. A page outside the result clamps to 1. The input is
// never modified.
func Project(messages []domain.Message, f Filters, order SortOrder, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := lo.Filter(messages, func(m domain.Message, _ int) bool {
		return f.Type == "" || m.Type == f.Type
	})
	if f.UnreadOnly {
		filtered = lo.Filter(filtered, func(m domain.Message, _ int) bool { return !m.IsRead })
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		filtered = lo.Filter(filtered, func(m domain.Message, _ int) bool {
			return strings.Contains(strings.ToLower(m.Content), q) ||
				strings.Contains(strings.ToLower(m.FileName), q)
		})
	}

	sortMessages(filtered, order)

	total := len(filtered)
	totalPages := max(1, (total+pageSize-1)/pageSize)
	if page < 1 || page > totalPages {
		page = 1
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	return Page{
		Messages:   filtered[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}

func sortMessages(messages []domain.Message, order SortOrder) {
	newestFirst := func(a, b domain.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}
	switch order {
	case SortOldest:
		slices.SortStableFunc(messages, func(a, b domain.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortUnreadFirst:
		slices.SortStableFunc(messages, func(a, b domain.Message) int {
			if c := cmp.Compare(boolRank(a.IsRead), boolRank(b.IsRead)); c != 0 {
				return c
			}
			return newestFirst(a, b)
		})
	default:
		slices.SortStableFunc(messages, newestFirst)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
