// Package backend provides the two data sources the proofreading session
// can work against:
//
//   - HTTP, a client for a running proofreading server's JSON API
//   - Local, which reads and writes Paradox localisation files in mod
//     directories on disk
//
// Both serve project listings, file listings, per-file proofreading data,
// raw source text, saves, validation and kanban status updates.
package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNotFound reports a project, file or path that does not exist.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code int
	// Body is the response body, truncated.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// Is makes a 404 match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
