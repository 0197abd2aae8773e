package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var (
		account string
		code    string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail API access",
		Long: `Authorize read and modify access to a Gmail account. Only needed when
mail.source is "gmail"; the IMAP source uses an app password instead.

Requires the OAuth client credentials:
  MAILRESPONDER_GMAIL_CLIENT_ID and MAILRESPONDER_GMAIL_CLIENT_SECRET

The command prints an authorization URL. Visit it, grant access and paste the
code (or pass it with --code). The token is stored in the token directory
and refreshed automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.Gmail.Account
			}

			auth, err := newAuthenticator(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if auth.HasToken(account) && code == "" {
				fmt.Fprintf(out, "Account %q is already authorized. Pass --code to replace the token.\n", account)
				return nil
			}

			if code == "" {
				fmt.Fprintf(out, "Visit this URL in your browser:\n\n  %s\n\nThen paste the authorization code: ", auth.AuthURL(account))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			if err := auth.Exchange(cmd.Context(), account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Account %q authorized.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account name for the stored token (default: gmail.account)")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code; prompts when omitted")
	return cmd
}
