package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/prompts"
)

// FallbackDraft is returned in place of a reply when the model fails.
const FallbackDraft = "Sorry, I couldn't generate a reply."

// noFeedback is the feedback context when memory holds nothing relevant.
const noFeedback = "None"

// Retriever finds past feedback similar to a query text.
type Retriever interface {
	RetrieveSimilar(ctx context.Context, query string, n int) ([]memory.Match, error)
}

// Draft is the outcome of drafting a reply.
type Draft struct {
	Text     string
	Fallback bool
	// Feedback holds the past entries injected into the prompt.
	Feedback []memory.Match
}

// Drafter writes reply drafts informed by similar past feedback.
type Drafter struct {
	step
	memory Retriever
	count  int
}

// NewDrafter creates a drafter. A nil memory drafts without feedback context.
// count is the number of past entries retrieved; zero uses
// memory.DefaultRetrieveCount.
func NewDrafter(cfg StepConfig, mem Retriever, count int) (*Drafter, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("drafter requires a language model client")
	}
	s, err := newStep(instrumentation.StepDraft, cfg)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = memory.DefaultRetrieveCount
	}
	return &Drafter{step: s, memory: mem, count: count}, nil
}

// Draft produces a reply to msg. Memory retrieval failures degrade to an
// empty feedback context and do not fail the draft. When the model fails the
// draft is FallbackDraft and the model error is returned.
func (d *Drafter) Draft(ctx context.Context, msg mail.Message) (Draft, error) {
	start := time.Now()
	ctx, span := instrumentation.StartStepSpan(ctx, d.name, msg.ID)
	defer span.End()

	logger := logging.WithStep(d.logger, d.name).With(logging.MessageID(msg.ID))

	var past []memory.Match
	if d.memory != nil {
		var err error
		past, err = d.memory.RetrieveSimilar(ctx, msg.Body, d.count)
		if err != nil {
			logger.Warn("feedback retrieval failed, drafting without context", logging.Err(err))
			past = nil
		}
	}

	text, err := d.generate(ctx, prompts.Draft, prompts.Data{
		Email:    msg.Body,
		Feedback: FormatFeedbackContext(past),
	})
	if err == nil && text == "" {
		err = fmt.Errorf("empty draft from model")
	}
	if err != nil {
		logger.Error("draft generation failed, using fallback", logging.Err(err))
		d.finish(ctx, span, instrumentation.StatusFallback, err, start)
		return Draft{Text: FallbackDraft, Fallback: true, Feedback: past}, err
	}

	logger.Debug("draft generated", "past_feedback", len(past))
	d.finish(ctx, span, instrumentation.StatusSuccess, nil, start)
	return Draft{Text: text, Feedback: past}, nil
}

// FormatFeedbackContext renders past feedback as the prompt's context block:
// one "Past: <feedback>" line per entry, or "None" when empty.
func FormatFeedbackContext(past []memory.Match) string {
	if len(past) == 0 {
		return noFeedback
	}
	lines := make([]string, 0, len(past))
	for _, m := range past {
		lines = append(lines, "Past: "+m.Feedback)
	}
	return strings.Join(lines, "\n")
}
