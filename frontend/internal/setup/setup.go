package setup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"

	"github.com/itchan-dev/echobox/frontend/internal/handler"
	"github.com/itchan-dev/echobox/frontend/internal/markdown"
	fmw "github.com/itchan-dev/echobox/frontend/internal/middleware"
	"github.com/itchan-dev/echobox/frontend/internal/workspace"
	"github.com/itchan-dev/echobox/frontend/templates"
	"github.com/itchan-dev/echobox/shared/admin"
	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/blacklist"
	"github.com/itchan-dev/echobox/shared/config"
	"github.com/itchan-dev/echobox/shared/jwt"
	"github.com/itchan-dev/echobox/shared/logger"
	mw "github.com/itchan-dev/echobox/shared/middleware"
	"github.com/itchan-dev/echobox/shared/middleware/ratelimiter"
)

const (
	devTemplatePath        = "frontend/templates"
	templateReloadInterval = 5 * time.Second
	sweepInterval          = time.Minute
)

type Dependencies struct {
	Handler       *handler.Handler
	Public        config.Public
	Auth          *mw.Auth
	FrontendAuth  *fmw.Auth
	LoginLimiter  *ratelimiter.KeyedRateLimiter
	SubmitLimiter *ratelimiter.KeyedRateLimiter
	AccessLog     zerolog.Logger
	Workspaces    *workspace.Registry
	CancelFunc    context.CancelFunc
}

func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	// Create cancellable context for background tasks
	ctx, cancel := context.WithCancel(context.Background())

	tmpls, err := templates.Load(templates.FS)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	gateway := apiclient.New(cfg.Public.GatewayURL, cfg.Public.GatewayTimeout)
	gateway.StrictMarkRead = cfg.Public.StrictMarkRead

	revoked := blacklist.NewCache()
	revoked.StartBackgroundPurge(ctx, sweepInterval)

	workspaces := workspace.NewRegistry(gateway, cfg.Public.PageSize, cfg.Public.PollInterval)
	workspaces.StartBackgroundSweep(ctx, sweepInterval)

	jwtSvc := jwt.New(cfg.JwtKey(), cfg.SessionTTL())
	sharedAuth := mw.NewAuth(jwtSvc, revoked, cfg.Public.SecureCookies)

	h := handler.New(handler.Options{
		Templates:     tmpls,
		Public:        cfg.Public,
		TextProcessor: markdown.New(),
		Gateway:       gateway,
		Workspaces:    workspaces,
		Jwt:           jwtSvc,
		Admin:         admin.NewAuthenticator(cfg.AdminUsername(), cfg.AdminPasswordHash()),
		Revoked:       revoked,
	})
	startTemplateReloader(ctx, h, devTemplatePath)

	// 5 login attempts per minute, 1 message per 2 seconds, per IP
	loginLimiter := ratelimiter.New(5.0/60.0, 5, time.Hour)
	submitLimiter := ratelimiter.New(0.5, 3, time.Hour)
	startLimiterSweep(ctx, sweepInterval, loginLimiter, submitLimiter)

	return &Dependencies{
		Handler:       h,
		Public:        cfg.Public,
		Auth:          sharedAuth,
		FrontendAuth:  fmw.NewAuth(sharedAuth, cfg.Public.SecureCookies),
		LoginLimiter:  loginLimiter,
		SubmitLimiter: submitLimiter,
		AccessLog:     httplog.NewLogger("echobox-frontend", httplog.Options{JSON: cfg.Public.LogJSON}),
		Workspaces:    workspaces,
		CancelFunc: func() {
			cancel()
			workspaces.CloseAll()
		},
	}, nil
}

// startTemplateReloader re-reads templates from disk in development so edits
// show up without a rebuild.
func startTemplateReloader(ctx context.Context, h *handler.Handler, tmplPath string) {
	if os.Getenv("ENV") != "development" {
		return
	}
	ticker := time.NewTicker(templateReloadInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tmpls, err := templates.Load(os.DirFS(tmplPath))
				if err != nil {
					logger.Log.Warn("template reload failed", "error", err)
					continue
				}
				h.Templates = tmpls
			case <-ctx.Done():
				return
			}
		}
	}()
}

func startLimiterSweep(ctx context.Context, interval time.Duration, limiters ...*ratelimiter.KeyedRateLimiter) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, l := range limiters {
					l.Sweep()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
