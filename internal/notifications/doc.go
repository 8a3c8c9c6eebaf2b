// Package notifications delivers build events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the workflow publishes unconditionally. Callers log publish failures and
// carry on; a notification never fails a build.
package notifications
