package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/prompts"
)

// FeedbackWriter persists reviewer feedback for a message.
type FeedbackWriter interface {
	AddFeedback(ctx context.Context, messageID, feedback, draft string) error
}

// Refinement is the outcome of refining a draft.
type Refinement struct {
	Text string
	// Refined is false when Text is the unchanged input draft.
	Refined bool
}

// Refiner rewrites a draft from reviewer feedback and records the feedback so
// later drafts for similar messages can use it.
type Refiner struct {
	step
	memory FeedbackWriter
}

// NewRefiner creates a refiner. mem is required: refinement without
// persisting the feedback would break the learning loop.
func NewRefiner(cfg StepConfig, mem FeedbackWriter) (*Refiner, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("refiner requires a language model client")
	}
	if mem == nil {
		return nil, fmt.Errorf("refiner requires a feedback memory")
	}
	s, err := newStep(instrumentation.StepRefine, cfg)
	if err != nil {
		return nil, err
	}
	return &Refiner{step: s, memory: mem}, nil
}

// Refine asks the model to improve draft according to feedback. Only after the
// model succeeds is the feedback stored, keyed by the message id together with the
// original draft. On any failure the unchanged draft is returned with the
// error: a model failure leaves memory untouched, a storage failure returns
// a *memory.WriteError.
//
// Blank feedback is rejected before the model is called. Session.Process never
// gets here with blank feedback; the check covers direct and MCP callers, which
// would otherwise store an empty record.
func (r *Refiner) Refine(ctx context.Context, msg mail.Message, draft, feedback string) (Refinement, error) {
	start := time.Now()
	ctx, span := instrumentation.StartStepSpan(ctx, r.name, msg.ID)
	defer span.End()

	logger := logging.WithStep(r.logger, r.name).With(logging.MessageID(msg.ID))
	unchanged := Refinement{Text: draft}

	if strings.TrimSpace(feedback) == "" {
		err := fmt.Errorf("feedback must not be empty")
		r.finish(ctx, span, instrumentation.StatusError, err, start)
		return unchanged, err
	}

	refined, err := r.generate(ctx, prompts.Refine, prompts.Data{
		Email:    msg.Body,
		Draft:    draft,
		Feedback: feedback,
	})
	if err == nil && refined == "" {
		err = fmt.Errorf("empty refinement from model")
	}
	if err != nil {
		logger.Error("refinement failed, keeping draft", logging.Err(err))
		r.finish(ctx, span, instrumentation.StatusFallback, err, start)
		return unchanged, err
	}

	if err := r.memory.AddFeedback(ctx, msg.ID, feedback, draft); err != nil {
		logger.Error("failed to store feedback, keeping draft", logging.Err(err))
		r.finish(ctx, span, instrumentation.StatusFallback, err, start)
		return unchanged, err
	}

	logger.Info("draft refined and feedback stored")
	r.finish(ctx, span, instrumentation.StatusSuccess, nil, start)
	return Refinement{Text: refined, Refined: true}, nil
}
