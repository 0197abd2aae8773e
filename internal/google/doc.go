// Package google provides OAuth2 authentication and token storage for the
// Gmail message source.
//
// Client credentials come from configuration. Tokens obtained through the
// authorization code flow are stored per account under the token directory
// and refreshed automatically by the returned token sources.
package google
