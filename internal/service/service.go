// Package service implements the conversation orchestrator.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/adapter/llm"
	"github.com/Aswinikumar555/ai-customer-support/internal/config"
	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/lock"
	"github.com/Aswinikumar555/ai-customer-support/internal/repository"
	"github.com/Aswinikumar555/ai-customer-support/policy"
)

// Notifier is told about every conversation a completed exchange produced.
// ctx is the exchange's context, so transports can recognise their own requests.
type Notifier interface {
	Publish(ctx context.Context, ownerID string, conv *domain.Conversation)
}

type Service struct {
	store        repository.ConversationStore
	completion   llm.CompletionClient
	locker       lock.Locker
	policyEngine *policy.Engine
	notifier     Notifier
	config       *config.Config
	log          zerolog.Logger
	now          func() time.Time

	// in-flight exchanges, awaited by Drain
	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier registers a Notifier for completed exchanges.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func New(store repository.ConversationStore, completion llm.CompletionClient, locker lock.Locker, policyEngine *policy.Engine, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:        store,
		completion:   completion,
		locker:       locker,
		policyEngine: policyEngine,
		config:       cfg,
		log:          zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	return s
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// begin registers an exchange. It fails once Drain has been called.
func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Drain stops accepting exchanges and waits for the running ones to persist
// their result. It returns ctx.Err() if they do not finish in time.
func (s *Service) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
