package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

// oob is the out-of-band redirect used by the CLI flow: the user pastes the
// code shown by Google back into the terminal.
const oob = "urn:ietf:wg:oauth:2.0:oob"

var accountName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// OAuthConfig holds the OAuth client credentials and token location.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // defaults to the out-of-band redirect
	TokenDir     string // defaults to DefaultTokenDir()
}

// Authenticator runs the authorization code flow and hands out token
// sources for stored tokens.
type Authenticator struct {
	conf     *oauth2.Config
	tokenDir string
}

// DefaultTokenDir returns the per-user cache directory for tokens.
func DefaultTokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mailresponder")
}

// NewAuthenticator creates an Authenticator. Client id and secret are
// required.
func NewAuthenticator(cfg OAuthConfig) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("google oauth client id and secret must be configured")
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = oob
	}
	if cfg.TokenDir == "" {
		cfg.TokenDir = DefaultTokenDir()
	}
	return &Authenticator{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       DefaultOAuthScopes,
		},
		tokenDir: cfg.TokenDir,
	}, nil
}

// AuthURL returns the URL the user visits to authorize access.
func (a *Authenticator) AuthURL(state string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and stores it for
// account.
func (a *Authenticator) Exchange(ctx context.Context, account, code string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return a.saveToken(account, tok)
}

// HasToken reports whether a token is stored for account.
func (a *Authenticator) HasToken(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(a.tokenPath(account))
	return err == nil
}

// TokenSource returns a refreshing token source for the stored token of
// account.
func (a *Authenticator) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := a.loadToken(account)
	if err != nil {
		return nil, err
	}
	return a.conf.TokenSource(ctx, tok), nil
}

// HTTPClient returns an HTTP client authorized as account.
func (a *Authenticator) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	ts, err := a.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

func (a *Authenticator) tokenPath(account string) string {
	return filepath.Join(a.tokenDir, "google-"+account+".token")
}

func (a *Authenticator) saveToken(account string, tok *oauth2.Token) error {
	if err := os.MkdirAll(a.tokenDir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(a.tokenPath(account), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (a *Authenticator) loadToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.tokenPath(account))
	if err != nil {
		return nil, fmt.Errorf("no Google OAuth token for account %s, run the auth command first: %w", account, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("token file for account %s holds no token", account)
	}
	return &tok, nil
}

func validateAccountName(account string) error {
	if !accountName.MatchString(account) {
		return fmt.Errorf("invalid account name %q: use letters, digits, hyphen or underscore", account)
	}
	return nil
}
