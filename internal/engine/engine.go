// Package engine defines the natural-language query engine boundary. An
// Engine turns one game's rows into a Session that answers free-text
// questions about them.
package engine

import (
	"context"
	"errors"

	"github.com/dom/puckquery/internal/ingest"
)

// ErrNotConfigured is returned by Prepare when the engine has no credentials.
var ErrNotConfigured = errors.New("query engine is not configured")

// Engine prepares a question-answering session over a scoped table.
// Prepare may be slow; callers are expected to reuse the returned Session.
type Engine interface {
	Prepare(ctx context.Context, table *ingest.Table) (Session, error)
}

// Session answers questions about the table it was prepared with.
type Session interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Func adapts a plain function to Engine.
type Func func(ctx context.Context, table *ingest.Table) (Session, error)

func (f Func) Prepare(ctx context.Context, table *ingest.Table) (Session, error) {
	return f(ctx, table)
}

// SessionFunc adapts a plain function to Session.
type SessionFunc func(ctx context.Context, question string) (string, error)

func (f SessionFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}
