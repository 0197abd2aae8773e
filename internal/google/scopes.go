package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes requested for the Gmail source: reading
// unread mail and removing the UNREAD label when mark-as-read is enabled.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
}
