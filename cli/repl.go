package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Aswinikumar555/ai-customer-support/internal/transport/ws"
)

func newReplCommand(newClient func() (*Client, error), style func() string) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat interactively over a WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			conn, err := client.Dial(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			s := &replSession{conn: conn, chatID: chatID, style: style(), out: cmd.OutOrStdout()}
			return s.run(cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "continue an existing chat")
	return cmd
}

type replSession struct {
	conn  *websocket.Conn
	style string
	out   io.Writer

	writeMu sync.Mutex

	mu      sync.Mutex
	chatID  string
	pending map[string]struct{}
	// queued lines wait for the first reply of a new chat, so they land in
	// that chat instead of starting chats of their own.
	queued []string
}

func (s *replSession) run(in io.Reader) error {
	s.pending = make(map[string]struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readFrames()
	}()

	fmt.Fprintln(s.out, "Connected. Type a message and press Enter.")
	fmt.Fprintln(s.out, "Commands: /new to start a new chat, /quit to exit")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(s.out, "Bye!")
			return s.close(done)
		case "/new":
			s.mu.Lock()
			s.chatID = ""
			s.queued = nil
			s.mu.Unlock()
			fmt.Fprintln(s.out, "Next message starts a new chat.")
			continue
		}

		if err := s.submit(input); err != nil {
			return err
		}
	}
	return s.close(done)
}

// submit sends message now, or queues it while a new chat is being created.
func (s *replSession) submit(message string) error {
	s.mu.Lock()
	if s.chatID == "" && len(s.pending) > 0 {
		s.queued = append(s.queued, message)
		s.mu.Unlock()
		fmt.Fprintln(s.out, "... queued until the chat is created")
		return nil
	}
	frame := s.newSendFrame(message)
	s.mu.Unlock()
	return s.write(frame)
}

// newSendFrame registers a pending request. s.mu must be held.
func (s *replSession) newSendFrame(message string) ws.Frame {
	requestID := uuid.NewString()
	s.pending[requestID] = struct{}{}
	return ws.Frame{
		Type:      ws.TypeSend,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		ChatID:    s.chatID,
		Message:   message,
	}
}

// flushQueued returns the frames for queued lines that can go out now.
// s.mu must be held.
func (s *replSession) flushQueued() []ws.Frame {
	var frames []ws.Frame
	for len(s.queued) > 0 {
		if s.chatID == "" && len(s.pending) > 0 {
			break
		}
		msg := s.queued[0]
		s.queued = s.queued[1:]
		frames = append(frames, s.newSendFrame(msg))
	}
	return frames
}

func (s *replSession) write(frame ws.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *replSession) readFrames() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(s.out, "connection closed: %v\n", err)
			}
			return
		}
		var frame ws.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		for _, next := range s.handleFrame(frame) {
			if err := s.write(next); err != nil {
				fmt.Fprintln(s.out, err)
				return
			}
		}
	}
}

// handleFrame prints frame and returns queued sends it released.
func (s *replSession) handleFrame(frame ws.Frame) []ws.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, mine := s.pending[frame.RequestID]
	mine = mine && frame.RequestID != ""

	switch frame.Type {
	case ws.TypeAck:
		if mine {
			fmt.Fprintln(s.out, "... waiting for reply")
		}
	case ws.TypeError:
		if mine {
			delete(s.pending, frame.RequestID)
		}
		fmt.Fprintf(s.out, "error (%s): %s\n", frame.Code, frame.Message)
		return s.flushQueued()
	case ws.TypeConversation:
		conv := frame.Conversation
		if conv == nil {
			return nil
		}
		// Updates from the owner's other devices carry no request id of ours.
		if !mine {
			fmt.Fprintf(s.out, "(chat %s updated elsewhere)\n", conv.ID)
			return nil
		}
		delete(s.pending, frame.RequestID)
		if s.chatID == "" {
			s.chatID = conv.ID
			fmt.Fprintf(s.out, "Started chat %s\n", conv.ID)
		}
		if reply, ok := lastReply(conv); ok {
			fmt.Fprintln(s.out, renderMarkdown(reply.Content, s.style))
		}
		return s.flushQueued()
	}
	return nil
}

func (s *replSession) close(done <-chan struct{}) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return nil
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	return nil
}
