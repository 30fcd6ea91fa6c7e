package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errx "github.com/sherlock-relay/server/internal/core/error"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

const maxResponseBody = 1 << 20

// deliveryState is the Deliverer's position in its two-attempt state machine.
type deliveryState int

const (
	statePrimaryAttempt deliveryState = iota
	stateRetryAttempt
	stateDone
	stateFailed
)

func (s deliveryState) String() string {
	switch s {
	case statePrimaryAttempt:
		return "primary"
	case stateRetryAttempt:
		return "retry"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	Result *struct {
		MessageID *int64 `json:"message_id"`
	} `json:"result"`
}

// attemptError is a rejected or unreachable sendMessage call. It moves the
// state machine forward instead of aborting it.
type attemptError struct {
	Status int
	Body   string
	Err    error
}

func (e *attemptError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("telegram responded %d: %s", e.Status, e.Body)
}

func (e *attemptError) Unwrap() error { return e.Err }

// Deliverer posts agent replies to Telegram: once with rich-text formatting,
// then once more as plain text if the first post was refused.
type Deliverer struct {
	token     string
	endpoint  string
	parseMode string
	client    *http.Client
}

// NewDeliverer builds a Deliverer. A nil client gets a default one honoring cfg.Timeout.
// A missing token is not rejected here; Deliver reports it before any request.
func NewDeliverer(cfg TelegramConfig, client *http.Client) *Deliverer {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}
	return &Deliverer{
		token:     cfg.BotToken,
		endpoint:  base,
		parseMode: cfg.ParseMode,
		client:    client,
	}
}

// Deliver sends the reply and returns the platform message id.
func (d *Deliverer) Deliver(ctx context.Context, reply AgentReply) (DeliveryResult, error) {
	if d.token == "" {
		logx.Error().Msg("TELEGRAM_BOT_TOKEN is not configured")
		return DeliveryResult{}, errx.Configuration("TELEGRAM_BOT_TOKEN is not configured")
	}

	logx.Info().
		Int64("chat_id", reply.ChatID).
		Int("response_length", len(reply.Text)).
		Msg("Sending response to Telegram")

	var (
		state      = statePrimaryAttempt
		result     DeliveryResult
		primaryErr *attemptError
	)
	for {
		switch state {
		case statePrimaryAttempt:
			res, err := d.send(ctx, sendMessageRequest{ChatID: reply.ChatID, Text: reply.Text, ParseMode: d.parseMode})
			if err == nil {
				result, state = res, stateDone
				continue
			}
			if !errors.As(err, &primaryErr) {
				return DeliveryResult{}, err
			}
			logx.Error().
				Int("status", primaryErr.Status).
				Str("error", primaryErr.Body).
				Err(primaryErr.Err).
				Msg("Failed to send Telegram message, retrying as plain text")
			state = stateRetryAttempt

		case stateRetryAttempt:
			res, err := d.send(ctx, sendMessageRequest{ChatID: reply.ChatID, Text: reply.Text})
			if err == nil {
				result, state = res, stateDone
				continue
			}
			var retryErr *attemptError
			if !errors.As(err, &retryErr) {
				return DeliveryResult{}, err
			}
			logx.Error().
				Int("status", retryErr.Status).
				Str("error", retryErr.Body).
				Err(retryErr.Err).
				Msg("Plain text retry failed")
			state = stateFailed

		case stateDone:
			ev := logx.Info().Int64("chat_id", reply.ChatID)
			if result.MessageID != nil {
				ev = ev.Int64("message_id", *result.MessageID)
			}
			ev.Bool("retried", primaryErr != nil).Msg("Message sent successfully")
			return result, nil

		case stateFailed:
			return DeliveryResult{}, errx.Delivery(primaryErr, primaryErr.Body)
		}
	}
}

// send performs one sendMessage call. Refusals and transport failures come back
// as *attemptError; anything else is final.
func (d *Deliverer) send(ctx context.Context, payload sendMessageRequest) (DeliveryResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := d.endpoint + "/bot" + d.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{}, &attemptError{Err: redactToken(err, d.token)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return DeliveryResult{}, &attemptError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DeliveryResult{}, &attemptError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var decoded sendMessageResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return DeliveryResult{}, errx.Delivery(fmt.Errorf("decode sendMessage response: %w", err), string(respBody))
	}

	result := DeliveryResult{Success: true}
	if decoded.Result != nil {
		result.MessageID = decoded.Result.MessageID
	}
	return result, nil
}

// redactToken keeps the bot token out of errors that embed the request URL.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
