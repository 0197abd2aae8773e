// Package gmail reads unread inbox messages through the Gmail API.
//
// It is the API-based alternative to the IMAP source: Source lists messages
// matching UnreadQuery, converts each one to a mail.Message (decoded
// headers, first text/plain body) and can remove the UNREAD label afterwards.
// Authorization comes from a google.TokenProvider, normally the
// google.Authenticator populated by the auth command.
//
// Example usage:
//
//	auth, err := google.NewAuthenticator(google.OAuthConfig{ClientID: id, ClientSecret: secret})
//	if err != nil {
//	    return err
//	}
//	src := gmail.NewSource(gmail.SourceConfig{Provider: auth, Max: 10})
//	msgs, err := src.Fetch(ctx)
package gmail
