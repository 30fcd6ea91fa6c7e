// Package webhook exposes the relay pipeline over HTTP.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sherlock-relay/server/internal/relay"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

// Config configures the HTTP surface.
type Config struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	// WebhookSecret must match X-Telegram-Bot-Api-Secret-Token when set.
	WebhookSecret string `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	// RelayAPIToken guards POST /v1/relay when set.
	RelayAPIToken   string        `envconfig:"RELAY_API_TOKEN"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Runner executes the relay for one incoming message.
type Runner interface {
	Run(ctx context.Context, in relay.IncomingMessage) (relay.DeliveryResult, error)
}

// Server wraps the echo instance serving the relay routes.
type Server struct {
	cfg  Config
	echo *echo.Echo
}

func NewServer(cfg Config, runner Runner) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger())

	NewHandler(runner, cfg).RegisterRoutes(e)

	return &Server{cfg: cfg, echo: e}
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logx.Info().Msg("Shutting down HTTP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
