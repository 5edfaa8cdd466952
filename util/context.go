package util

import (
	"context"
)

// ContextKey is the key type used for context.WithValue().
type ContextKey int

// ContextEntry represents a key-value entry for a context.
type ContextEntry struct {
	Key   ContextKey
	Value interface{}
}

const (
	// LoggerPrefix is the key to the string that is outputted first when logging.
	// The release tool sets it to the name of the running phase, so a line
	// logged while building the folder distribution reads "folder: ...".
	LoggerPrefix ContextKey = iota

	// Logger is the key for a *log.Logger.
	Logger

	// Debug is the LogFunc that is called when outputting a debug statement.
	Debug

	// Warn is the LogFunc that is called when outputting a warning.
	Warn

	// Info is the LogFunc that is called when outputting an info.
	Info
)

// ContextWithEntries creates a context with a variadic number of key-value
// entries rooted at context.Background().
func ContextWithEntries(entries ...ContextEntry) context.Context {
	return WithEntries(context.Background(), entries...)
}

// WithEntries derives a context from parent carrying the given entries.
// Cancellation of the parent propagates to the returned context.
func WithEntries(parent context.Context, entries ...ContextEntry) context.Context {
	for _, entry := range entries {
		parent = context.WithValue(parent, entry.Key, entry.Value)
	}
	return parent
}

// WithPrefix derives a context whose log lines are prefixed with prefix.
func WithPrefix(parent context.Context, prefix string) context.Context {
	return context.WithValue(parent, LoggerPrefix, prefix)
}
