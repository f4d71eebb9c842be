// Package api exposes the landing page and its JSON endpoints: the voice-call
// proxy, the narrative frame and descriptor queries, per-visitor sessions and
// the recent engagement feed.
package api
