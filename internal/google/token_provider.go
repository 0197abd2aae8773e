package google

import (
	"context"
	"net/http"
)

// TokenProvider hands out authorized HTTP clients per account. The Gmail
// source depends on this interface so tests can substitute a plain client.
type TokenProvider interface {
	HTTPClient(ctx context.Context, account string) (*http.Client, error)
	HasToken(account string) bool
}

var _ TokenProvider = (*Authenticator)(nil)

// StaticProvider returns the same client for every account.
type StaticProvider struct {
	Client *http.Client
}

// HTTPClient implements TokenProvider.
func (p StaticProvider) HTTPClient(context.Context, string) (*http.Client, error) {
	if p.Client == nil {
		return http.DefaultClient, nil
	}
	return p.Client, nil
}

// HasToken implements TokenProvider.
func (p StaticProvider) HasToken(string) bool { return true }
