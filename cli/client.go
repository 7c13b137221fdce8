package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	v1 "github.com/Aswinikumar555/ai-customer-support/internal/transport/http/v1"
)

// Client calls the chat HTTP API on behalf of one session token.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader(v1.HeaderAuthToken, token).
		SetHeader("User-Agent", "chat-cli/1.0")

	return &Client{http: httpClient, baseURL: baseURL, token: token}
}

// Send posts one message. An empty chatID starts a new chat.
func (c *Client) Send(ctx context.Context, message, chatID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(domain.SendMessageRequest{Message: message, ChatID: chatID}).
		SetResult(&conv).
		SetError(&domain.ErrorResponse{}).
		Post("/api/chat/send")
	if err := responseError(resp, err); err != nil {
		return nil, err
	}
	return &conv, nil
}

// History lists the caller's chats.
func (c *Client) History(ctx context.Context) ([]domain.ConversationSummary, error) {
	var summaries []domain.ConversationSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&summaries).
		SetError(&domain.ErrorResponse{}).
		Get("/api/chat/history")
	if err := responseError(resp, err); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Show fetches one chat.
func (c *Client) Show(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&conv).
		SetError(&domain.ErrorResponse{}).
		Get("/api/chat/{id}")
	if err := responseError(resp, err); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Dial opens the chat WebSocket.
func (c *Client) Dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := websocketURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set(v1.HeaderAuthToken, c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s", wsURL, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/chat/ws"
	return u.String(), nil
}

func responseError(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*domain.ErrorResponse); ok && e.Message != "" {
		return fmt.Errorf("%d: %s", resp.StatusCode(), e.Message)
	}
	return fmt.Errorf("%d: %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}
