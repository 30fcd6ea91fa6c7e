package webhook

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mymmrac/telego"

	errx "github.com/sherlock-relay/server/internal/core/error"
	"github.com/sherlock-relay/server/internal/relay"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler serves the relay routes.
type Handler struct {
	runner Runner
	cfg    Config
}

func NewHandler(runner Runner, cfg Config) *Handler {
	return &Handler{runner: runner, cfg: cfg}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/telegram/webhook", h.TelegramWebhook)
	e.POST("/v1/relay", h.Relay)
	e.GET("/healthz", h.Health)
}

// Health returns health status.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// TelegramWebhook relays a Telegram update to the agent.
// POST /telegram/webhook
func (h *Handler) TelegramWebhook(c echo.Context) error {
	if h.cfg.WebhookSecret != "" && !tokenEqual(c.Request().Header.Get(secretTokenHeader), h.cfg.WebhookSecret) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid secret token"})
	}

	var update telego.Update
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid update body"})
	}

	in, ok := incomingFromUpdate(update)
	if !ok {
		logx.Debug().Int("update_id", update.UpdateID).Msg("Ignoring update without text")
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "ignored": true})
	}

	return h.run(c, in)
}

// Relay runs the pipeline on a raw {userName, message, chatId} body.
// POST /v1/relay
func (h *Handler) Relay(c echo.Context) error {
	if h.cfg.RelayAPIToken != "" {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || !tokenEqual(token, h.cfg.RelayAPIToken) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid bearer token"})
		}
	}

	var in relay.IncomingMessage
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	return h.run(c, in)
}

func (h *Handler) run(c echo.Context, in relay.IncomingMessage) error {
	result, err := h.runner.Run(c.Request().Context(), in)
	if err != nil {
		logx.Error().
			Err(err).
			Str("request_id", requestIDFrom(c)).
			Int64("chat_id", in.ChatID).
			Msg("Relay failed")
		return c.JSON(errx.StatusOf(err), map[string]string{"error": publicMessage(err)})
	}
	return c.JSON(http.StatusOK, result)
}

// incomingFromUpdate extracts the text message of an update. Updates carrying
// no text (media, edits, callbacks) report false.
func incomingFromUpdate(update telego.Update) (relay.IncomingMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return relay.IncomingMessage{}, false
	}

	name := ""
	if msg.From != nil {
		name = msg.From.Username
		if name == "" {
			name = msg.From.FirstName
		}
	}
	return relay.IncomingMessage{SenderName: name, Text: msg.Text, ChatID: msg.Chat.ID}, true
}

func publicMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return errx.SystemErrorMessage
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
