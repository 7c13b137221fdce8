// Package rpc exposes the chat service over JSON-RPC to trusted internal
// gateways that have already authenticated the caller.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/service"
	v1 "github.com/Aswinikumar555/ai-customer-support/internal/transport/http/v1"
)

// Server exposes internal RPC endpoints.
type Server struct {
	rpcServer *rpc.Server
	log       zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a new RPC server bound to the chat service.
func NewServer(svc *service.Service, log zerolog.Logger) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName("Chat", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		log:       log,
		done:      make(chan struct{}),
	}, nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts RPC connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.log.Warn().Err(err).Msg("RPC accept error")
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements chat RPC methods.
type Handler struct {
	service *service.Service
}

// SendMessageArgs identifies the caller and the message to send.
type SendMessageArgs struct {
	OwnerID string `json:"owner_id"`
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message"`
}

// GetConversationArgs identifies a conversation of an owner.
type GetConversationArgs struct {
	OwnerID string `json:"owner_id"`
	ChatID  string `json:"chat_id"`
}

// ListConversationsArgs identifies an owner.
type ListConversationsArgs struct {
	OwnerID string `json:"owner_id"`
}

// ListConversationsReply holds an owner's conversation summaries.
type ListConversationsReply struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// SendMessage runs one chat exchange.
func (h *Handler) SendMessage(req *SendMessageArgs, resp *domain.Conversation) error {
	if req == nil {
		return errors.New("send request is required")
	}

	conv, err := h.service.SendMessage(context.Background(), req.OwnerID, req.Message, req.ChatID)
	if err != nil {
		return clientError(err)
	}
	if resp != nil {
		*resp = *conv
	}
	return nil
}

// GetConversation returns one conversation.
func (h *Handler) GetConversation(req *GetConversationArgs, resp *domain.Conversation) error {
	if req == nil {
		return errors.New("get request is required")
	}

	conv, err := h.service.GetConversation(context.Background(), req.OwnerID, req.ChatID)
	if err != nil {
		return clientError(err)
	}
	if resp != nil {
		*resp = *conv
	}
	return nil
}

// ListConversations returns an owner's conversations, most recent first.
func (h *Handler) ListConversations(req *ListConversationsArgs, resp *ListConversationsReply) error {
	if req == nil {
		return errors.New("list request is required")
	}

	summaries, err := h.service.ListConversations(context.Background(), req.OwnerID)
	if err != nil {
		return clientError(err)
	}
	if resp != nil {
		resp.Conversations = summaries
	}
	return nil
}

// clientError keeps the same stable messages the HTTP API returns. net/rpc
// only carries the error string.
func clientError(err error) error {
	status, msg := v1.ErrorStatus(err)
	return fmt.Errorf("%d: %s", status, msg)
}
