// Package mail defines the normalized message record and the sources that
// produce it.
//
// A Source yields []Message from a live mailbox (see the imapsource and gmail
// packages) or from a static sample file. The Loader applies the session's
// fallback policy:
//
//	live mailbox ──error──▶ cache of the last live fetch ──empty──▶ sample set
//	      │
//	      └──empty──────────────────────────────────────────────▶ sample set
//
// Every successful non-empty live fetch rewrites the bounded on-disk Cache.
package mail
