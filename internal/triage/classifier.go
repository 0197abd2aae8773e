package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/prompts"
)

// Classifier assigns a Category to a message body.
type Classifier struct {
	step
}

// NewClassifier creates a classifier. A nil Prompts uses the built-in set.
func NewClassifier(cfg StepConfig) (*Classifier, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("classifier requires a language model client")
	}
	s, err := newStep(instrumentation.StepClassify, cfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{step: s}, nil
}

// Classify asks the model for a label for the message body and normalises
// it. On failure it returns CategoryUnknown together with the error.
func (c *Classifier) Classify(ctx context.Context, msg mail.Message) (Category, error) {
	start := time.Now()
	ctx, span := instrumentation.StartStepSpan(ctx, c.name, msg.ID)
	defer span.End()

	logger := logging.WithStep(c.logger, c.name).With(logging.MessageID(msg.ID))

	resp, err := c.generate(ctx, prompts.Classify, prompts.Data{Email: msg.Body})
	if err != nil {
		logger.Error("classification failed", logging.Err(err))
		c.finish(ctx, span, instrumentation.StatusError, err, start)
		c.metrics.RecordCategory(ctx, string(CategoryUnknown))
		return CategoryUnknown, err
	}

	category := ParseCategory(resp)
	if category == CategoryUnknown {
		logger.Warn("model answer did not contain a known category",
			"response", logging.Truncate(resp, 80))
	}
	logger.Debug("message classified", logging.Category(string(category)))

	c.finish(ctx, span, instrumentation.StatusSuccess, nil, start)
	c.metrics.RecordCategory(ctx, string(category))
	return category, nil
}
