// Package imapsource fetches unread messages from an IMAP mailbox.
package imapsource

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
)

const (
	// DefaultAddr is the Gmail IMAP endpoint.
	DefaultAddr    = "imap.gmail.com:993"
	DefaultMailbox = "INBOX"
	DefaultMax     = 10
)

// Config configures an IMAP source.
type Config struct {
	Addr       string
	Username   string
	Password   string
	Mailbox    string
	Max        int  // newest unread messages to return
	MarkAsRead bool // flag fetched messages \Seen
	// DisableTLS connects without TLS. Only meant for local test servers.
	DisableTLS bool
	Logger     *slog.Logger
}

// Source reads unread messages over IMAP. Message ids are UIDs.
type Source struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an IMAP source.
func New(cfg Config) (*Source, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("imap username and password must be set")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, logger: logger.With(logging.Source("imap"))}, nil
}

// Name implements mail.Source.
func (s *Source) Name() string { return "imap" }

// Fetch implements mail.Source. Cancelling ctx terminates the connection.
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

	c, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", s.cfg.Addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()
	defer func() {
		if lerr := c.Logout(); lerr != nil && !errors.Is(lerr, client.ErrAlreadyLoggedOut) {
			s.logger.Debug("imap logout failed", logging.Err(lerr))
		}
	}()

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	s.logger.Info("connected to mailbox", logging.Sender(s.cfg.Username))

	if _, err := c.Select(s.cfg.Mailbox, !s.cfg.MarkAsRead); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", s.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}
	uids = newest(uids, s.cfg.Max)
	if len(uids) == 0 {
		s.logger.Info("no unread messages")
		return []mail.Message{}, nil
	}

	msgs, err = s.fetch(c, uids)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.cfg.MarkAsRead {
		seqset := new(imap.SeqSet)
		seqset.AddNum(uids...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			s.logger.Warn("failed to mark messages as read", logging.Err(err))
		}
	}

	s.logger.Info("fetched unread messages", slog.Int("count", len(msgs)))
	return msgs, nil
}

func (s *Source) dial() (*client.Client, error) {
	var (
		c   *client.Client
		err error
	)
	if s.cfg.DisableTLS {
		c, err = client.Dial(s.cfg.Addr)
	} else {
		c, err = client.DialTLS(s.cfg.Addr, &tls.Config{MinVersion: tls.VersionTLS12})
	}
	if err != nil {
		return nil, err
	}
	c.ErrorLog = logging.NewPrintfLogger(s.logger, slog.LevelWarn)
	return c, nil
}

// fetch downloads the full bodies of uids without setting \Seen and parses
// them. Messages that fail to parse are skipped.
func (s *Source) fetch(c *client.Client, uids []uint32) ([]mail.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	byUID := make(map[uint32]mail.Message, len(uids))
	for m := range ch {
		body := m.GetBody(section)
		if body == nil {
			s.logger.Warn("server returned no body", slog.Any("uid", m.Uid))
			continue
		}
		parsed, err := Parse(body)
		if err != nil {
			s.logger.Warn("failed to parse message", slog.Any("uid", m.Uid), logging.Err(err))
			continue
		}
		parsed.ID = strconv.FormatUint(uint64(m.Uid), 10)
		byUID[m.Uid] = parsed
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	msgs := make([]mail.Message, 0, len(byUID))
	for _, uid := range uids {
		if m, ok := byUID[uid]; ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// newest returns the max highest uids in ascending order.
func newest(uids []uint32, max int) []uint32 {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	if len(sorted) > max {
		sorted = sorted[len(sorted)-max:]
	}
	return sorted
}
