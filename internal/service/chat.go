package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/adapter/llm"
	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/metrics"
	"github.com/Aswinikumar555/ai-customer-support/internal/transcript"
	"github.com/Aswinikumar555/ai-customer-support/policy"
)

// SendMessage runs one exchange: the user message and the assistant reply are
// persisted together or not at all. An empty conversationID starts a new
// conversation.
func (s *Service) SendMessage(ctx context.Context, ownerID, text, conversationID string) (conv *domain.Conversation, err error) {
	// A client that goes away must not abort an exchange halfway.
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	defer func() {
		s.recordExchange(ownerID, conversationID, conv, err, time.Since(started))
	}()

	if !s.begin() {
		return nil, domain.ErrShuttingDown
	}
	defer s.inflight.Done()

	if err = s.admit(ctx, ownerID, text, conversationID == ""); err != nil {
		return nil, err
	}

	if conversationID == "" {
		conv, err = s.startConversation(ctx, ownerID, text)
	} else {
		conv, err = s.continueConversation(ctx, ownerID, conversationID, text)
	}
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, ownerID, conv.Clone())
	}
	return conv, nil
}

// GetConversation returns a conversation owned by ownerID.
func (s *Service) GetConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.NewValidationError("owner_id", "is required")
	}
	if conversationID == "" {
		return nil, domain.ErrNotFound
	}

	conv, err := s.store.FindByIDAndOwner(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *Service) ListConversations(ctx context.Context, ownerID string) ([]domain.ConversationSummary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.NewValidationError("owner_id", "is required")
	}
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *Service) admit(ctx context.Context, ownerID, text string, newConversation bool) error {
	if strings.TrimSpace(ownerID) == "" {
		return domain.NewValidationError("owner_id", "is required")
	}
	if strings.TrimSpace(text) == "" {
		return domain.NewValidationError("message", "must not be empty")
	}
	if s.policyEngine == nil {
		return nil
	}

	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		OwnerID:         ownerID,
		Message:         text,
		MaxLength:       s.config.MessageMaxChars,
		NewConversation: newConversation,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if !decision.Allowed() {
		return domain.NewValidationError("message", decision.Reason)
	}
	return nil
}

func (s *Service) startConversation(ctx context.Context, ownerID, text string) (*domain.Conversation, error) {
	conv := domain.NewConversation(ownerID, s.now())
	if err := s.exchange(ctx, conv, text); err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// continueConversation holds the conversation lock for the whole exchange and
// restarts it from a fresh read when another writer saved first.
func (s *Service) continueConversation(ctx context.Context, ownerID, conversationID, text string) (*domain.Conversation, error) {
	// Ownership is checked before queueing on the lock, so a busy conversation
	// of another owner answers exactly like an unknown one.
	owned, err := s.store.FindByIDAndOwner(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if owned == nil {
		return nil, domain.ErrNotFound
	}

	unlock, err := s.locker.Lock(ctx, conversationID)
	if err != nil {
		return nil, &domain.StorageError{Op: "lock", Err: err}
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		conv, err := s.store.FindByIDAndOwner(ctx, conversationID, ownerID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, domain.ErrNotFound
		}
		if err := s.exchange(ctx, conv, text); err != nil {
			return nil, err
		}

		err = s.store.Save(ctx, conv)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= s.config.ConflictMaxRetries {
			return nil, err
		}
		metrics.ConflictRetries.Inc()
		s.log.Debug().
			Str("conversation_id", conversationID).
			Int("attempt", attempt+1).
			Msg("Conversation changed during exchange, retrying")
	}
}

// exchange appends the user message and the provider reply to conv in memory.
// Nothing is persisted here.
func (s *Service) exchange(ctx context.Context, conv *domain.Conversation, text string) error {
	conv.Append(domain.SenderUser, text, s.now())

	entries, err := transcript.BuildWithSystem(s.config.LLMSystemPrompt, conv.Messages)
	if err != nil {
		return &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: err}
	}

	reply, err := s.complete(ctx, entries)
	if err != nil {
		return err
	}

	conv.Append(domain.SenderAssistant, reply.Content, s.now())
	return nil
}

// complete calls the provider, retrying only when it could not be reached.
func (s *Service) complete(ctx context.Context, entries []domain.TranscriptMessage) (*llm.Completion, error) {
	op := func() (*llm.Completion, error) {
		started := time.Now()
		reply, err := s.completion.Complete(ctx, entries)
		metrics.RecordCompletion(completionStatus(err), time.Since(started))
		if err != nil {
			if domain.IsProviderKind(err, domain.ProviderUnreachable) {
				s.log.Warn().Err(err).Msg("Completion provider unreachable")
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return reply, nil
	}

	b := backoff.NewExponentialBackOff()
	if s.config.LLMRetryInitialInterval > 0 {
		b.InitialInterval = s.config.LLMRetryInitialInterval
	}
	retries := s.config.LLMMaxRetries
	if retries < 0 {
		retries = 0
	}
	reply, err := backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
	if err != nil {
		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			err = &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: err}
		}
		return nil, err
	}
	metrics.RecordTokens(reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
	return reply, nil
}

func completionStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return string(perr.Kind)
	}
	return "error"
}

func (s *Service) recordExchange(ownerID, conversationID string, conv *domain.Conversation, err error, took time.Duration) {
	outcome := domain.Outcome(err)
	metrics.RecordExchange(string(outcome))

	if conv != nil {
		conversationID = conv.ID
	}

	var event *zerolog.Event
	switch outcome {
	case domain.OutcomeSucceeded:
		event = s.log.Info()
	case domain.OutcomeInvalid, domain.OutcomeNotFound:
		event = s.log.Warn().Err(err)
	default:
		event = s.log.Error().Err(err)
	}
	event.
		Str("conversation_id", conversationID).
		Str("owner_id", ownerID).
		Str("outcome", string(outcome)).
		Dur("duration", took).
		Msg("Chat exchange finished")
}
