package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"google.golang.org/api/option"

	"github.com/teemow/mailresponder/internal/google"
	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
)

const (
	// UnreadQuery selects unread inbox messages.
	UnreadQuery = "is:unread in:inbox"
	DefaultMax  = 10
)

// SourceConfig configures a Gmail source.
type SourceConfig struct {
	Provider   google.TokenProvider
	Account    string
	Query      string
	Max        int
	MarkAsRead bool
	Logger     *slog.Logger
	// ClientOptions are passed to the API client.
	ClientOptions []option.ClientOption
}

// Source implements mail.Source over the Gmail API. The API client is
// created on first fetch so a missing token only fails the fetch.
type Source struct {
	cfg    SourceConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *Client
}

// NewSource creates a Gmail source.
func NewSource(cfg SourceConfig) *Source {
	if cfg.Account == "" {
		cfg.Account = google.DefaultAccount
	}
	if cfg.Query == "" {
		cfg.Query = UnreadQuery
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, logger: logger.With(logging.Source("gmail"))}
}

// Name implements mail.Source.
func (s *Source) Name() string { return "gmail" }

// Fetch implements mail.Source. Messages are returned oldest first, like the
// IMAP source. Messages that cannot be retrieved or decoded are skipped.
func (s *Source) Fetch(ctx context.Context) (msgs []mail.Message, err error) {
	ctx, span := instrumentation.StartMailboxSpan(ctx, s.Name())
	defer func() {
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}()

	c, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := c.ListMessageIDs(ctx, s.cfg.Query, int64(s.cfg.Max))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		s.logger.Info("no unread messages")
		return []mail.Message{}, nil
	}
	// The API lists newest first; sources yield oldest first.
	slices.Reverse(ids)

	msgs = make([]mail.Message, 0, len(ids))
	fetched := make([]string, 0, len(ids))
	for _, id := range ids {
		raw, err := c.GetMessage(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping message", logging.MessageID(id), logging.Err(err))
			continue
		}
		msg, err := ToMessage(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable message", logging.MessageID(id), logging.Err(err))
			continue
		}
		msgs = append(msgs, msg)
		fetched = append(fetched, id)
	}

	if s.cfg.MarkAsRead {
		if err := c.MarkAsRead(ctx, fetched); err != nil {
			s.logger.Warn("failed to mark messages as read", logging.Err(err))
		}
	}

	s.logger.Info("fetched unread messages", slog.Int("count", len(msgs)))
	return msgs, nil
}

func (s *Source) getClient(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.cfg.Provider == nil {
		return nil, fmt.Errorf("gmail source has no token provider")
	}
	c, err := NewClient(ctx, s.cfg.Provider, s.cfg.Account, s.cfg.ClientOptions...)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}
