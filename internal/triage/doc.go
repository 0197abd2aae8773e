// Package triage implements the three model-backed steps applied to a
// message: classification, reply drafting with feedback memory context, and
// refinement of a draft from reviewer feedback.
//
// Every step returns a usable value together with a typed error. On failure
// the value is the documented fallback (UNKNOWN, FallbackDraft, or the
// unrefined draft) so callers can always continue; the error tells them that
// the value is degraded.
package triage
