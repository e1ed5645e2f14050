package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
	wsbroadcast "github.com/trezcool/tulia/services/broadcast/ws"
	"github.com/trezcool/tulia/services/monitor"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		CORSOrigins    []string
	}

	Deps struct {
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		ChildSvc    *child.Service
		AvatarSvc   *avatar.Service
		ProgressSvc *progress.Service
		SessionSvc  *session.Service
		Predictor   Predictor
		Monitor     *monitor.Manager
		Hub         *wsbroadcast.Hub // optional
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		deps *Deps
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer builds the API. signalShutdown is called when a handler hits a core shutdown error.
func NewServer(opts *Options, signalShutdown func(), deps *Deps) Server {
	s := &server{
		opts: opts,
		deps: deps,
		app:  echo.New(),
	}
	s.setup(signalShutdown)
	return s
}

func (s *server) setup(signalShutdown func()) {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(s.opts.CORSOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.opts.CORSOrigins}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)
	s.app.GET("/health", health)

	v1 := s.app.Group("/v1")
	loadChild := childMiddleware(s.deps.ChildSvc)

	registerChildAPI(v1, loadChild, s.deps)
	registerProgressAPI(v1, loadChild, s.deps)
	registerSessionAPI(v1, s.deps)
	registerEmotionAPI(v1, s.deps)
	registerMonitorAPI(v1, loadChild, s.deps)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tulia API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}
