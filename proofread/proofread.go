// Package proofread drives a proofreading session: choosing a project,
// resolving which source/target file pair is active, loading the
// three-pane editor, tracking key drift, autosaving drafts, saving and
// validating.
//
// A Coordinator composes three parts:
//
//	Navigator  project and file-pair selection over a grouped file list
//	Editor     the three panes, the entry list and draft autosave
//	Linter     validation of arbitrary pasted content
//
// All data comes from a Backend, which the caller provides.
package proofread

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/remis-mod/remis/project"
)

var (
	// ErrNoProject is returned when an operation needs a selected project.
	ErrNoProject = errors.New("no project selected")
	// ErrNoActivePair is returned when an operation needs a loaded file.
	ErrNoActivePair = errors.New("no file loaded")
	// ErrDriftUnacknowledged is returned by Save when the edited text
	// no longer has the loaded key set and the caller did not confirm.
	ErrDriftUnacknowledged = errors.New("keys changed since load; save must be acknowledged")
	// ErrUnknownProject is returned for a project id not in the list.
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownFile is returned for a file id not in the grouping.
	ErrUnknownFile = errors.New("unknown file")
)

// Backend is the data source of a session.
type Backend interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	ProjectFiles(ctx context.Context, projectID string) ([]project.File, error)
	ProofreadData(ctx context.Context, projectID, fileID string) (*project.ProofreadData, error)
	ReadSourceFile(ctx context.Context, path string) (string, error)
	SaveEntries(ctx context.Context, req project.SaveRequest) error
	ValidateLocalization(ctx context.Context, req project.ValidateRequest) ([]project.Issue, error)
}

// Validator is the subset of Backend the Linter needs.
type Validator interface {
	ValidateLocalization(ctx context.Context, req project.ValidateRequest) ([]project.Issue, error)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// Level is the severity of a user notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a short message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier receives user notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// Stats tallies validation issues.
type Stats struct {
	Errors   int
	Warnings int
}

func statsOf(issues []project.Issue) Stats {
	e, w := project.CountIssues(issues)
	return Stats{Errors: e, Warnings: w}
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
