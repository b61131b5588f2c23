package handler

import (
	"context"
	"html/template"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/itchan-dev/echobox/frontend/internal/markdown"
	"github.com/itchan-dev/echobox/frontend/internal/thumbnail"
	"github.com/itchan-dev/echobox/frontend/internal/workspace"
	"github.com/itchan-dev/echobox/shared/admin"
	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/config"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/jwt"
)

// Gateway is the remote message API as the web client uses it.
type Gateway interface {
	SendMessage(ctx context.Context, req apiclient.SendRequest) error
	GetMessages(ctx context.Context) ([]domain.Message, error)
	MarkAsRead(ctx context.Context, id domain.MsgId) error
	GetMedia(ctx context.Context, id domain.MsgId) (*apiclient.Media, error)
}

// Revoker records logged-out sessions.
type Revoker interface {
	Revoke(sessionID string, expiresAt time.Time)
}

type Handler struct {
	Templates     map[string]*template.Template
	Public        config.Public
	TextProcessor *markdown.TextProcessor
	Gateway       Gateway
	Workspaces    *workspace.Registry
	Jwt           jwt.JwtService
	Admin         *admin.Authenticator
	Revoked       Revoker
	Thumbnails    *thumbnail.Cache

	placeholder func() string
}

type Options struct {
	Templates     map[string]*template.Template
	Public        config.Public
	TextProcessor *markdown.TextProcessor
	Gateway       Gateway
	Workspaces    *workspace.Registry
	Jwt           jwt.JwtService
	Admin         *admin.Authenticator
	Revoked       Revoker
}

func New(opts Options) *Handler {
	return &Handler{
		Templates:     opts.Templates,
		Public:        opts.Public,
		TextProcessor: opts.TextProcessor,
		Gateway:       opts.Gateway,
		Workspaces:    opts.Workspaces,
		Jwt:           opts.Jwt,
		Admin:         opts.Admin,
		Revoked:       opts.Revoked,
		Thumbnails:    thumbnail.NewCache(thumbnailCacheSize),
		placeholder:   randomPlaceholder,
	}
}

const thumbnailCacheSize = 256

var placeholders = []string{
	"Share your thoughts anonymously...",
	"What's on your mind?",
	"Tell us something you've never said out loud...",
	"Your secret is safe here...",
	"Say what you really think...",
}

func randomPlaceholder() string {
	return placeholders[rand.IntN(len(placeholders))]
}

// Health is a liveness probe. It does not call the gateway.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
