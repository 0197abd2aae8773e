package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/mailresponder/internal/config"
	"github.com/teemow/mailresponder/internal/gmail"
	"github.com/teemow/mailresponder/internal/google"
	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/llm"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/mail/imapsource"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/prompts"
	"github.com/teemow/mailresponder/internal/session"
	"github.com/teemow/mailresponder/internal/triage"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	ollama  *llm.Ollama
	memory  *memory.Memory
	session *session.Session
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(settings, resolveConfigFile())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newApp wires the language model, feedback memory, triage steps, message
// loader and session. metrics may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	ollama, err := llm.NewOllama(llm.OllamaConfig{
		Host:       cfg.LLM.Host,
		EmbedModel: cfg.LLM.EmbedModel,
		Timeout:    cfg.LLM.Timeout,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	mem, err := openMemory(ctx, cfg, ollama, logger, metrics)
	if err != nil {
		return nil, err
	}

	set, err := prompts.Load(cfg.Prompts.File)
	if err != nil {
		_ = mem.Close()
		return nil, err
	}

	stepConfig := func(s config.StepConfig) triage.StepConfig {
		return triage.StepConfig{
			Client:      ollama,
			Prompts:     set,
			Model:       s.Model,
			Temperature: s.Temperature,
			Logger:      logger,
			Metrics:     metrics,
		}
	}

	classifier, err := triage.NewClassifier(stepConfig(cfg.LLM.Classify))
	if err != nil {
		_ = mem.Close()
		return nil, err
	}
	drafter, err := triage.NewDrafter(stepConfig(cfg.LLM.Draft), mem, cfg.Memory.RetrieveCount)
	if err != nil {
		_ = mem.Close()
		return nil, err
	}
	refiner, err := triage.NewRefiner(stepConfig(cfg.LLM.Refine), mem)
	if err != nil {
		_ = mem.Close()
		return nil, err
	}

	loader := &mail.Loader{
		Live:    liveSource(cfg, logger),
		Cache:   mail.NewCache(cfg.Mail.CachePath, cfg.Mail.CacheMax),
		Sample:  mail.NewSampleSource(cfg.Mail.SamplePath),
		Logger:  logger,
		Metrics: metrics,
	}

	sess, err := session.New(session.Options{
		Loader:     loader,
		UseLive:    cfg.LiveEnabled(),
		Memory:     mem,
		Classifier: classifier,
		Drafter:    drafter,
		Refiner:    refiner,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		_ = mem.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		ollama:  ollama,
		memory:  mem,
		session: sess,
	}, nil
}

// openMemory opens the configured feedback store.
func openMemory(ctx context.Context, cfg *config.Config, embedder llm.Embedder, logger *slog.Logger, metrics *instrumentation.Metrics) (*memory.Memory, error) {
	store, err := memory.OpenStore(ctx, memory.StoreConfig{
		Backend:     cfg.Memory.Backend,
		SQLitePath:  cfg.Memory.Path,
		RedisURL:    cfg.Memory.RedisURL,
		RedisPrefix: cfg.Memory.RedisPrefix,
		PostgresDSN: cfg.Memory.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback memory: %w", err)
	}

	mem, err := memory.New(memory.Config{
		Embedder: embedder,
		Store:    store,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return mem, nil
}

// liveSource returns the configured live mailbox, or nil when it is disabled
// or lacks credentials. A nil source makes the loader use the sample set.
func liveSource(cfg *config.Config, logger *slog.Logger) mail.Source {
	if !cfg.LiveEnabled() {
		return nil
	}

	switch cfg.Mail.Source {
	case config.SourceIMAP:
		src, err := imapsource.New(imapsource.Config{
			Addr:       cfg.IMAP.Addr,
			Username:   cfg.IMAP.Username,
			Password:   cfg.IMAP.Password,
			Mailbox:    cfg.IMAP.Mailbox,
			Max:        cfg.Mail.Max,
			MarkAsRead: cfg.Mail.MarkAsRead,
			Logger:     logger,
		})
		if err != nil {
			logger.Warn("live mailbox disabled", logging.Source(config.SourceIMAP), logging.Err(err))
			return nil
		}
		return src

	case config.SourceGmail:
		auth, err := newAuthenticator(cfg)
		if err != nil {
			logger.Warn("live mailbox disabled", logging.Source(config.SourceGmail), logging.Err(err))
			return nil
		}
		return gmail.NewSource(gmail.SourceConfig{
			Provider:   auth,
			Account:    cfg.Gmail.Account,
			Max:        cfg.Mail.Max,
			MarkAsRead: cfg.Mail.MarkAsRead,
			Logger:     logger,
		})
	}
	return nil
}

func newAuthenticator(cfg *config.Config) (*google.Authenticator, error) {
	return google.NewAuthenticator(google.OAuthConfig{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		TokenDir:     cfg.Gmail.TokenDir,
	})
}

// Close releases the session and the feedback store.
func (a *app) Close() error {
	a.session.Close()
	return a.memory.Close()
}
