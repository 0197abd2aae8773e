package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/logging"
)

// Origin tells where a loaded message set came from.
type Origin string

const (
	OriginLive   Origin = "live"
	OriginCache  Origin = "cache"
	OriginSample Origin = "sample"
	OriginNone   Origin = "none"
)

// Loader applies the fallback policy over the message sources:
// live mailbox, then the cache of the last live fetch, then the sample set.
type Loader struct {
	Live    Source // optional
	Cache   *Cache // optional
	Sample  Source // optional
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Load returns the message set for a session. When useLive is false the live
// source is skipped. An error is returned only when no source produced a
// usable result; a degraded load is logged and reported through Origin.
func (l *Loader) Load(ctx context.Context, useLive bool) ([]Message, Origin, error) {
	logger := l.logger()

	if useLive && l.Live != nil {
		msgs, err := l.fetch(ctx, l.Live)
		switch {
		case err != nil:
			logger.Warn("live fetch failed, falling back to cache",
				logging.Source(l.Live.Name()), logging.Err(err))
			if cached := l.loadCache(logger); len(cached) > 0 {
				return cached, OriginCache, nil
			}
		case len(msgs) == 0:
			logger.Info("no unread messages in live mailbox", logging.Source(l.Live.Name()))
		default:
			if l.Cache != nil {
				if err := l.Cache.Save(msgs); err != nil {
					logger.Warn("failed to write message cache", logging.Err(err))
				}
			}
			logger.Info("fetched live messages",
				logging.Source(l.Live.Name()), slog.Int("count", len(msgs)))
			return msgs, OriginLive, nil
		}
	}

	if l.Sample == nil {
		return nil, OriginNone, fmt.Errorf("no messages available: live mailbox empty or unreachable and no sample set configured")
	}

	if useLive {
		logger.Warn("no live emails; falling back to sample")
	}
	msgs, err := l.fetch(ctx, l.Sample)
	if err != nil {
		logger.Error("failed to load sample messages", logging.Err(err))
		return nil, OriginNone, err
	}
	logger.Info("loaded sample messages", slog.Int("count", len(msgs)))
	return msgs, OriginSample, nil
}

func (l *Loader) fetch(ctx context.Context, src Source) ([]Message, error) {
	start := time.Now()
	msgs, err := src.Fetch(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	l.Metrics.RecordMailboxFetch(ctx, src.Name(), status, len(msgs), time.Since(start))
	return msgs, err
}

func (l *Loader) loadCache(logger *slog.Logger) []Message {
	if l.Cache == nil {
		return nil
	}
	msgs, err := l.Cache.Load()
	if err != nil {
		logger.Warn("failed to read message cache", logging.Err(err))
		return nil
	}
	if len(msgs) > 0 {
		logger.Info("loaded cached messages", slog.Int("count", len(msgs)))
	}
	return msgs
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
