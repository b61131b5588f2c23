package frontend_domain

import (
	"net/url"
	"strconv"

	"github.com/itchan-dev/echobox/shared/domain"
)

type IndexPageData struct {
	Modes []domain.MessageType
}

// SubmitPageData re-renders the form. Files are never echoed back, only
// the text fields survive a failed submit.
type SubmitPageData struct {
	Mode                domain.MessageType
	Modes               []domain.MessageType
	Placeholder         string
	Text                string
	ImageCaption        string
	DocumentDescription string
}

type LoginPageData struct {
	Username string
}

type MessagesPageData struct {
	Messages    []*Message
	Page        int
	TotalPages  int
	Total       int
	Unread      int
	Types       []domain.MessageType
	Query       MessagesQuery
	RefreshedAt string
}

// MessagesQuery is the dashboard state carried in the URL.
type MessagesQuery struct {
	Type   string
	Unread bool
	Search string
	Sort   string
	View   string
}

type MessagePageData struct {
	Message *Message
}

// PageURL links to page of the same query.
func (q MessagesQuery) PageURL(page int) string {
	v := q.values()
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return encode(v)
}

// ViewURL links to the first page of the query in another layout.
func (q MessagesQuery) ViewURL(view string) string {
	q.View = view
	return encode(q.values())
}

func (q MessagesQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Unread {
		v.Set("unread", "1")
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.View != "" {
		v.Set("view", q.View)
	}
	return v
}

func encode(v url.Values) string {
	if len(v) == 0 {
		return "/admin-messages"
	}
	return "/admin-messages?" + v.Encode()
}
