package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/triage"
)

// Options configures a Session. Loader, Classifier, Drafter and Refiner are
// required; Memory is only needed for SearchFeedback.
type Options struct {
	Loader     *mail.Loader
	UseLive    bool
	Memory     *memory.Memory
	Classifier *triage.Classifier
	Drafter    *triage.Drafter
	Refiner    *triage.Refiner
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Session is the explicit context of one assistant run: the loaded message
// set plus the components that act on it. It is safe for concurrent use.
type Session struct {
	id         string
	loader     *mail.Loader
	useLive    bool
	memory     *memory.Memory
	classifier *triage.Classifier
	drafter    *triage.Drafter
	refiner    *triage.Refiner
	logger     *slog.Logger
	metrics    *instrumentation.Metrics

	mu       sync.RWMutex
	loaded   bool
	origin   mail.Origin
	messages []mail.Message
	index    map[string]int

	closeOnce sync.Once
}

// New creates a session. Messages are loaded on first use or by Refresh.
func New(opts Options) (*Session, error) {
	switch {
	case opts.Loader == nil:
		return nil, fmt.Errorf("session requires a message loader")
	case opts.Classifier == nil:
		return nil, fmt.Errorf("session requires a classifier")
	case opts.Drafter == nil:
		return nil, fmt.Errorf("session requires a drafter")
	case opts.Refiner == nil:
		return nil, fmt.Errorf("session requires a refiner")
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts.Metrics.IncrementActiveSessions(context.Background())

	return &Session{
		id:         id,
		loader:     opts.Loader,
		useLive:    opts.UseLive,
		memory:     opts.Memory,
		classifier: opts.Classifier,
		drafter:    opts.Drafter,
		refiner:    opts.Refiner,
		logger:     logging.WithSession(logger, id),
		metrics:    opts.Metrics,
		origin:     mail.OriginNone,
		index:      map[string]int{},
	}, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Close releases the session. It does not close the shared memory.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.metrics.DecrementActiveSessions(context.Background())
	})
}

// Refresh reloads the message set through the loader and replaces the
// current set atomically. On error the previous set is kept.
func (s *Session) Refresh(ctx context.Context) (int, error) {
	msgs, origin, err := s.loader.Load(ctx, s.useLive)
	if err != nil {
		s.logger.Error("failed to load messages", logging.Err(err))
		return 0, err
	}

	index := make(map[string]int, len(msgs))
	for i, m := range msgs {
		// First occurrence wins for duplicate ids.
		if _, dup := index[m.ID]; !dup {
			index[m.ID] = i
		}
	}

	s.mu.Lock()
	s.messages = msgs
	s.index = index
	s.origin = origin
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("messages loaded", logging.Source(string(origin)), slog.Int("count", len(msgs)))
	return len(msgs), nil
}

// EnsureLoaded loads the message set unless it already has been.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}

// Messages returns a copy of the current message set.
func (s *Session) Messages() []mail.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mail.Message(nil), s.messages...)
}

// Origin reports where the current message set came from.
func (s *Session) Origin() mail.Origin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// Lookup returns the message with the given id or a *NotFoundError.
func (s *Session) Lookup(id string) (mail.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return mail.Message{}, &NotFoundError{ID: id}
	}
	return s.messages[i], nil
}

// First returns the first message of the set, loading it if needed.
func (s *Session) First(ctx context.Context) (mail.Message, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return mail.Message{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return mail.Message{}, fmt.Errorf("no messages available")
	}
	return s.messages[0], nil
}

func (s *Session) resolve(ctx context.Context, id string) (mail.Message, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return mail.Message{}, err
	}
	return s.Lookup(id)
}

// Classify labels the message with the given id.
func (s *Session) Classify(ctx context.Context, id string) (triage.Category, error) {
	msg, err := s.resolve(ctx, id)
	if err != nil {
		return triage.CategoryUnknown, err
	}
	return s.classifier.Classify(ctx, msg)
}

// Draft writes a reply for the message with the given id.
func (s *Session) Draft(ctx context.Context, id string) (triage.Draft, error) {
	msg, err := s.resolve(ctx, id)
	if err != nil {
		return triage.Draft{}, err
	}
	return s.drafter.Draft(ctx, msg)
}

// Refine improves draft for the message with the given id and records the
// feedback.
func (s *Session) Refine(ctx context.Context, id, draft, feedback string) (triage.Refinement, error) {
	msg, err := s.resolve(ctx, id)
	if err != nil {
		return triage.Refinement{Text: draft}, err
	}
	return s.refiner.Refine(ctx, msg, draft, feedback)
}

// SearchFeedback returns stored feedback similar to query.
func (s *Session) SearchFeedback(ctx context.Context, query string, n int) ([]memory.Match, error) {
	if s.memory == nil {
		return []memory.Match{}, errors.New("no feedback memory configured")
	}
	return s.memory.RetrieveSimilar(ctx, query, n)
}

// Process runs the full pipeline for one message: classify, draft, and, when
// feedback is not blank, refine. Step failures are collected in
// Result.Errors and the degraded values are used; only an unknown id or a
// failed message load is returned as an error.
func (s *Session) Process(ctx context.Context, id, feedback string) (Result, error) {
	msg, err := s.resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.process(ctx, msg, feedback), nil
}

// ProcessAll runs Process over every message of the current set.
func (s *Session) ProcessAll(ctx context.Context, feedback string) ([]Result, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	msgs := s.Messages()
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.process(ctx, msg, feedback))
	}
	return results, nil
}

func (s *Session) process(ctx context.Context, msg mail.Message, feedback string) Result {
	logger := s.logger.With(logging.MessageID(msg.ID))
	res := Result{ID: msg.ID}

	category, err := s.classifier.Classify(ctx, msg)
	res.Category = category
	res.addError(instrumentation.StepClassify, err)

	draft, err := s.drafter.Draft(ctx, msg)
	res.addError(instrumentation.StepDraft, err)

	if strings.TrimSpace(feedback) == "" {
		res.Reply = draft.Text
	} else {
		refined, err := s.refiner.Refine(ctx, msg, draft.Text, feedback)
		res.addError(instrumentation.StepRefine, err)
		res.OriginalDraft = draft.Text
		res.RefinedReply = refined.Text
		res.FeedbackUsed = feedback
	}

	if len(res.Errors) > 0 {
		logger.Warn("message processed with degraded steps", slog.Int("errors", len(res.Errors)))
	} else {
		logger.Info("message processed", logging.Category(string(res.Category)))
	}
	return res
}
