package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/session"
)

func newProcessCmd() *cobra.Command {
	var (
		emailID  string
		feedback string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify messages and draft replies",
		Long: `Classify a message and draft a reply. With --feedback the draft is refined
and the feedback is stored, so future drafts for similar messages take it
into account.

Without --email-id and --all the first message is processed.

Messages come from the live mailbox when --live is set (IMAP or the Gmail
API), falling back to the cache of the last live fetch and then to the
sample set.

Each result is printed as JSON:
  {"id": "...", "category": "WORK", "reply": "..."}
or, with feedback:
  {"id": "...", "category": "WORK", "original_draft": "...",
   "refined_reply": "...", "feedback_used": "..."}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && emailID != "" {
				return fmt.Errorf("--email-id and --all are mutually exclusive")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := bindFlags(cmd, map[string]string{"mail.live": "live"}); err != nil {
				return err
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("failed to close feedback memory", logging.Err(err))
				}
			}()

			results, err := runProcess(ctx, a.session, emailID, feedback, all)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&emailID, "email-id", "", "ID of the message to process (default: the first message)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback on the draft; refines the reply and is remembered for future drafts")
	cmd.Flags().BoolVar(&all, "all", false, "Process every message")
	cmd.Flags().Bool("live", false, "Fetch unread messages from the live mailbox. Can also use MAILRESPONDER_MAIL_LIVE env var.")

	return cmd
}

// runProcess selects the messages and runs the pipeline on them.
func runProcess(ctx context.Context, sess *session.Session, emailID, feedback string, all bool) ([]session.Result, error) {
	if all {
		return sess.ProcessAll(ctx, feedback)
	}

	if emailID == "" {
		first, err := sess.First(ctx)
		if err != nil {
			return nil, err
		}
		emailID = first.ID
	}

	res, err := sess.Process(ctx, emailID, feedback)
	if err != nil {
		return nil, err
	}
	return []session.Result{res}, nil
}

// writeResults prints each result as indented JSON.
func writeResults(w io.Writer, results []session.Result) error {
	for _, res := range results {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	return nil
}
