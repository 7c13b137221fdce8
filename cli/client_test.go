package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/transport/ws"
)

func TestClient_Send(t *testing.T) {
	var got domain.SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/send", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("x-auth-token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.Conversation{
			ID: "c1",
			Messages: []domain.Message{
				{Sender: domain.SenderUser, Content: got.Message},
				{Sender: domain.SenderAssistant, Content: "hi"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "tok", 5*time.Second)
	conv, err := client.Send(context.Background(), "hello", "c0")
	require.NoError(t, err)

	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, "c0", got.ChatID)
	assert.Equal(t, "c1", conv.ID)
	reply, ok := lastReply(conv)
	require.True(t, ok)
	assert.Equal(t, "hi", reply.Content)
}

func TestClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Chat not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", 5*time.Second)
	_, err := client.Show(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "404: Chat not found", err.Error())
}

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/history", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"b","title":"Chat 1/2/2026","message_count":2},{"id":"a","title":"Chat 1/1/2026","message_count":4}]`))
	}))
	defer srv.Close()

	summaries, err := NewClient(srv.URL, "tok", 5*time.Second).History(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "b", summaries[0].ID)
	assert.Equal(t, 4, summaries[1].MessageCount)

	var out bytes.Buffer
	printSummaries(&out, summaries)
	assert.Contains(t, out.String(), "Chat 1/2/2026")
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/api/chat/ws"},
		{in: "https://chat.example.com/", want: "wss://chat.example.com/api/chat/ws"},
		{in: "ws://host/base", want: "ws://host/base/api/chat/ws"},
		{in: "ftp://host", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := websocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplSession_HandleFrame(t *testing.T) {
	var out bytes.Buffer
	s := &replSession{out: &out, style: "notty", pending: map[string]struct{}{"r1": {}}}

	// another device of the same owner finishes first
	s.handleFrame(ws.Frame{Type: ws.TypeConversation, Conversation: &domain.Conversation{ID: "theirs"}})
	assert.Empty(t, s.chatID)
	assert.Contains(t, out.String(), "updated elsewhere")

	out.Reset()
	s.handleFrame(ws.Frame{Type: ws.TypeConversation, RequestID: "r1", Conversation: &domain.Conversation{
		ID: "c1",
		Messages: []domain.Message{
			{Sender: domain.SenderUser, Content: "hello"},
			{Sender: domain.SenderAssistant, Content: "hi there"},
		},
	}})
	assert.Equal(t, "c1", s.chatID)
	assert.Empty(t, s.pending)
	assert.Contains(t, out.String(), "Started chat c1")
	assert.Contains(t, out.String(), "hi there")

	out.Reset()
	s.handleFrame(ws.Frame{Type: ws.TypeError, Code: ws.ErrorCodeProvider, Message: "AI Service Error"})
	assert.Contains(t, out.String(), "error (provider_error): AI Service Error")
}

func TestReplSession_QueuesUntilChatExists(t *testing.T) {
	var out bytes.Buffer
	s := &replSession{out: &out, style: "notty", pending: map[string]struct{}{"r1": {}}}

	// the first line of a new chat is still in flight
	require.NoError(t, s.submit("second"))
	require.NoError(t, s.submit("third"))
	assert.Equal(t, []string{"second", "third"}, s.queued)

	next := s.handleFrame(ws.Frame{Type: ws.TypeConversation, RequestID: "r1", Conversation: &domain.Conversation{ID: "c1"}})
	require.Len(t, next, 2)
	for i, msg := range []string{"second", "third"} {
		assert.Equal(t, ws.TypeSend, next[i].Type)
		assert.Equal(t, "c1", next[i].ChatID)
		assert.Equal(t, msg, next[i].Message)
		assert.Contains(t, s.pending, next[i].RequestID)
	}
	assert.Empty(t, s.queued)
}

func TestReplSession_FailedNewChatReleasesOneQueuedLine(t *testing.T) {
	var out bytes.Buffer
	s := &replSession{out: &out, style: "notty", pending: map[string]struct{}{"r1": {}}}
	require.NoError(t, s.submit("second"))
	require.NoError(t, s.submit("third"))

	next := s.handleFrame(ws.Frame{Type: ws.TypeError, RequestID: "r1", Code: ws.ErrorCodeProvider})
	require.Len(t, next, 1)
	assert.Equal(t, "second", next[0].Message)
	assert.Empty(t, next[0].ChatID)
	assert.Equal(t, []string{"third"}, s.queued)
}

func TestRootCommand_RequiresToken(t *testing.T) {
	t.Setenv("CHAT_TOKEN", "")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"history"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session token is required")
}
