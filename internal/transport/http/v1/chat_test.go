package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aswinikumar555/ai-customer-support/internal/adapter/llm"
	"github.com/Aswinikumar555/ai-customer-support/internal/config"
	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/lock"
	"github.com/Aswinikumar555/ai-customer-support/internal/repository"
	"github.com/Aswinikumar555/ai-customer-support/internal/service"
	"github.com/Aswinikumar555/ai-customer-support/policy"
	"github.com/Aswinikumar555/ai-customer-support/tests/helpers"
)

type failingGateway struct {
	err error
}

func (f failingGateway) Complete(context.Context, []domain.TranscriptMessage) (*llm.Completion, error) {
	return nil, f.err
}

func newTestHandler(t *testing.T, gw llm.CompletionClient) (*Handler, repository.ConversationStore) {
	t.Helper()
	if gw == nil {
		gw = llm.NewMockClient()
	}
	cfg := &config.Config{MessageMaxChars: 100, ConflictMaxRetries: 1}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, gw, lock.NewLocalLocker(), policyEngine, cfg)
	return NewHandler(svc, zerolog.Nop()), db
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func newContext(e *echo.Echo, method, target, body, owner string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if owner != "" {
		c.Set(ownerContextKey, owner)
	}
	return c, rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp domain.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Message
}

func TestSendMessageCreatesAndContinuesConversation(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	c, rec := newContext(e, http.MethodPost, "/api/chat/send", `{"message":"Hello"}`, "u1")
	if err := h.SendMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var conv domain.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, domain.SenderAssistant, conv.Messages[1].Sender)
	assert.Contains(t, conv.Messages[1].Content, "Hello")

	c, rec = newContext(e, http.MethodPost, "/api/chat/send", `{"message":"Follow up","chatId":"`+conv.ID+`"}`, "u1")
	require.NoError(t, h.SendMessage(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var next domain.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Equal(t, conv.ID, next.ID)
	assert.Len(t, next.Messages, 4)
}

func TestSendMessageValidation(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"message":`, "Invalid request body"},
		{"missing message", `{}`, "message is required"},
		{"blank message", `{"message":"   "}`, "invalid message: must not be empty"},
		{"long chat id", `{"message":"hi","chatId":"` + string(bytes.Repeat([]byte("x"), 65)) + `"}`, "chatId must be at most 64 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/api/chat/send", tt.body, "u1")
			require.NoError(t, h.SendMessage(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
		})
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	c, rec := newContext(e, http.MethodPost, "/api/chat/send", `{"message":"hi","chatId":"nope"}`, "u1")
	require.NoError(t, h.SendMessage(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Chat not found", decodeError(t, rec))
}

func TestSendMessageProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"rejected", &domain.ProviderError{Kind: domain.ProviderRejected, StatusCode: 401, Err: errors.New("bad key")}, http.StatusBadGateway},
		{"unreachable", &domain.ProviderError{Kind: domain.ProviderUnreachable, Err: errors.New("timeout")}, http.StatusGatewayTimeout},
		{"construction", &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: errors.New("bad url")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			h, db := newTestHandler(t, failingGateway{err: tt.err})

			c, rec := newContext(e, http.MethodPost, "/api/chat/send", `{"message":"Hello"}`, "u1")
			require.NoError(t, h.SendMessage(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "AI Service Error", decodeError(t, rec))
			assert.NotContains(t, rec.Body.String(), "bad key")

			list, err := db.ListByOwner(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestGetConversationOwnership(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	c, rec := newContext(e, http.MethodPost, "/api/chat/send", `{"message":"private"}`, "v")
	require.NoError(t, h.SendMessage(c))
	var conv domain.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	c, rec = newContext(e, http.MethodGet, "/api/chat/"+conv.ID, "", "u")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.GetConversation(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Chat not found", decodeError(t, rec))

	c, rec = newContext(e, http.MethodGet, "/api/chat/"+conv.ID, "", "v")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.GetConversation(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListConversations(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	for _, msg := range []string{"one", "two"} {
		c, rec := newContext(e, http.MethodPost, "/api/chat/send", `{"message":"`+msg+`"}`, "u1")
		require.NoError(t, h.SendMessage(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	c, rec := newContext(e, http.MethodGet, "/api/chat/history", "", "u1")
	require.NoError(t, h.ListConversations(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.False(t, list[0].UpdatedAt.Before(list[1].UpdatedAt))
	assert.Equal(t, 2, list[0].MessageCount)

	c, rec = newContext(e, http.MethodGet, "/api/chat/history", "", "someone-else")
	require.NoError(t, h.ListConversations(c))
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestErrorStatus(t *testing.T) {
	status, msg := ErrorStatus(domain.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, msg)

	status, msg = ErrorStatus(&domain.StorageError{Op: "save", Err: errors.New("disk full")})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", msg)

	status, _ = ErrorStatus(domain.ErrShuttingDown)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestHealth(t *testing.T) {
	e := newTestEcho()
	h, _ := newTestHandler(t, nil)

	c, rec := newContext(e, http.MethodGet, "/health", "", "")
	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
