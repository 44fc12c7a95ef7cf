// Package ui renders supervised run lifecycle events as diagnostics.
//
// The child's own output and the supervisor's notices go to stdout through the
// tee package; everything here flows through zap to stderr, so it only shows
// up when the configured log level admits it.
package ui
