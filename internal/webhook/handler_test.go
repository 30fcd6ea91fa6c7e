package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/sherlock-relay/server/internal/core/error"
	"github.com/sherlock-relay/server/internal/relay"
)

type fakeRunner struct {
	result relay.DeliveryResult
	err    error

	calls []relay.IncomingMessage
}

func (f *fakeRunner) Run(_ context.Context, in relay.IncomingMessage) (relay.DeliveryResult, error) {
	f.calls = append(f.calls, in)
	return f.result, f.err
}

func messageID(id int64) *int64 { return &id }

func doRequest(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

const textUpdate = `{
	"update_id": 1,
	"message": {
		"message_id": 10,
		"date": 1700000000,
		"text": "Hello",
		"chat": {"id": 42, "type": "private"},
		"from": {"id": 7, "is_bot": false, "first_name": "Alice", "username": "alice"}
	}
}`

func TestTelegramWebhookRelaysText(t *testing.T) {
	runner := &fakeRunner{result: relay.DeliveryResult{Success: true, MessageID: messageID(100)}}
	srv := NewServer(Config{}, runner)

	rec := doRequest(t, srv, http.MethodPost, "/telegram/webhook", textUpdate, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"messageId":100}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, relay.IncomingMessage{SenderName: "alice", Text: "Hello", ChatID: 42}, runner.calls[0])
}

func TestTelegramWebhookFallsBackToFirstName(t *testing.T) {
	runner := &fakeRunner{result: relay.DeliveryResult{Success: true}}
	srv := NewServer(Config{}, runner)

	body := `{"update_id":2,"message":{"message_id":1,"date":1,"text":"Hi","chat":{"id":5,"type":"private"},"from":{"id":1,"is_bot":false,"first_name":"Bob"}}}`
	rec := doRequest(t, srv, http.MethodPost, "/telegram/webhook", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "Bob", runner.calls[0].SenderName)
}

func TestTelegramWebhookIgnoresNonText(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(Config{}, runner)

	for name, body := range map[string]string{
		"no message": `{"update_id":3}`,
		"photo":      `{"update_id":4,"message":{"message_id":1,"date":1,"chat":{"id":5,"type":"private"},"photo":[{"file_id":"x","file_unique_id":"y","width":1,"height":1}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/telegram/webhook", body, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
	assert.Empty(t, runner.calls)
}

func TestTelegramWebhookSecretToken(t *testing.T) {
	runner := &fakeRunner{result: relay.DeliveryResult{Success: true}}
	srv := NewServer(Config{WebhookSecret: "s3cret"}, runner)

	rec := doRequest(t, srv, http.MethodPost, "/telegram/webhook", textUpdate, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/telegram/webhook", textUpdate, map[string]string{secretTokenHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.calls)

	rec = doRequest(t, srv, http.MethodPost, "/telegram/webhook", textUpdate, map[string]string{secretTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, runner.calls, 1)
}

func TestTelegramWebhookFailureIsServerError(t *testing.T) {
	runner := &fakeRunner{err: errx.Delivery(errors.New("refused"), `{"ok":false}`)}
	srv := NewServer(Config{}, runner)

	rec := doRequest(t, srv, http.MethodPost, "/telegram/webhook", textUpdate, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errx.DeliveryErrorMessage, body["error"])
}

func TestRelayEndpoint(t *testing.T) {
	runner := &fakeRunner{result: relay.DeliveryResult{Success: true, MessageID: messageID(101)}}
	srv := NewServer(Config{}, runner)

	rec := doRequest(t, srv, http.MethodPost, "/v1/relay", `{"userName":"alice","message":"Hello","chatId":42}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"messageId":101}`, rec.Body.String())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, relay.IncomingMessage{SenderName: "alice", Text: "Hello", ChatID: 42}, runner.calls[0])
}

func TestRelayEndpointBearerToken(t *testing.T) {
	runner := &fakeRunner{result: relay.DeliveryResult{Success: true}}
	srv := NewServer(Config{RelayAPIToken: "tok"}, runner)
	body := `{"userName":"alice","message":"Hello","chatId":42}`

	rec := doRequest(t, srv, http.MethodPost, "/v1/relay", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1/relay", body, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.calls)

	rec = doRequest(t, srv, http.MethodPost, "/v1/relay", body, map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRelayEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"configuration", errx.Configuration("TELEGRAM_BOT_TOKEN is not configured"), http.StatusInternalServerError, "TELEGRAM_BOT_TOKEN is not configured"},
		{"generation", errx.Generation(errors.New("boom")), http.StatusBadGateway, errx.GenerationErrorMessage},
		{"plain", errors.New("boom"), http.StatusInternalServerError, errx.SystemErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(Config{}, &fakeRunner{err: tc.err})
			rec := doRequest(t, srv, http.MethodPost, "/v1/relay", `{"message":"Hello","chatId":1}`, nil)
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}

func TestRelayEndpointBadJSON(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(Config{}, runner)

	rec := doRequest(t, srv, http.MethodPost, "/v1/relay", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.calls)
}

func TestHealthAndRequestID(t *testing.T) {
	srv := NewServer(Config{}, &fakeRunner{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
