package proofread

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remis-mod/remis/locfile"
	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/session"
)

// DefaultDraftDelay is the quiet period before an edit is autosaved.
const DefaultDraftDelay = 500 * time.Millisecond

// FileInfo identifies the file loaded in the editor.
type FileInfo struct {
	ProjectID string
	FileID    string
	Path      string
}

// Ticket identifies one load. Only the most recent ticket may commit.
type Ticket struct {
	ID        uuid.UUID
	ProjectID string
	FileID    string
}

// LoadResult is what a load fetched.
type LoadResult struct {
	// SourceText is the raw text of the source file, shown as the
	// original pane.
	SourceText string
	// Data is the proofreading data of the requested file. Nil clears
	// the AI and final panes.
	Data *project.ProofreadData
}

// EditorOptions configures an Editor.
type EditorOptions struct {
	// Store receives drafts. Defaults to an in-memory store.
	Store  session.Store
	Logger *slog.Logger
	// DraftDelay defaults to DefaultDraftDelay. A negative value turns
	// autosave off; Flush still works.
	DraftDelay time.Duration
}

// Editor holds the three panes of the loaded file and autosaves edits
// of the final pane. It is safe for concurrent use.
type Editor struct {
	store session.Store
	log   *slog.Logger
	delay time.Duration

	mu      sync.Mutex
	ticket  uuid.UUID
	loading bool
	triple  locfile.Triple
	entries []project.Entry
	info    *FileInfo
	drift   bool
	pending *session.Draft
	timer   *time.Timer
}

// NewEditor returns an empty Editor.
func NewEditor(opts EditorOptions) *Editor {
	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	delay := opts.DraftDelay
	if delay == 0 {
		delay = DefaultDraftDelay
	}
	return &Editor{store: store, log: loggerOrDiscard(opts.Logger), delay: delay}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Begin starts a load of fileID and supersedes any load in flight. A
// pending draft of the current file is written first.
func (e *Editor) Begin(projectID, fileID string) Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
	e.ticket = uuid.New()
	e.loading = true
	return Ticket{ID: e.ticket, ProjectID: projectID, FileID: fileID}
}

// Abort ends a failed load. It reports whether t was still current;
// a superseded failure is not worth reporting.
func (e *Editor) Abort(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.ID != e.ticket {
		return false
	}
	e.loading = false
	return true
}

// Commit installs a load result. A result whose ticket has been
// superseded is discarded and Commit returns false. restored reports
// that a saved draft replaced the final pane.
func (e *Editor) Commit(t Ticket, r LoadResult) (committed, restored bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.ID != e.ticket {
		e.log.Debug("discarding stale load", "project", t.ProjectID, "file", t.FileID)
		return false, false
	}
	e.loading = false
	e.triple = locfile.Triple{Original: r.SourceText}

	if r.Data == nil {
		e.entries = nil
		e.info = nil
		e.drift = false
		return true, false
	}

	d := r.Data
	e.entries = append([]project.Entry(nil), d.Entries...)
	e.info = &FileInfo{ProjectID: t.ProjectID, FileID: t.FileID, Path: d.FilePath}

	switch {
	case d.AIContent != "":
		e.triple.AI = d.AIContent
		e.triple.Final = d.AIContent
		if d.FinalContent != "" {
			e.triple.Final = d.FinalContent
		}
	case d.FileContent != "":
		e.triple.AI = d.FileContent
		e.triple.Final = d.FileContent
	default:
		aligned := locfile.Align(e.entries)
		e.triple.AI = aligned.AI
		e.triple.Final = aligned.Final
	}

	draft, ok, err := session.LoadDraft(e.store, t.ProjectID, t.FileID)
	if err != nil {
		e.log.Warn("reading draft failed", "file", t.FileID, "error", err)
	} else if ok {
		e.triple.Final = draft.Content
		restored = true
	}

	e.drift = e.detectDrift()
	e.log.Debug("loaded file", "project", t.ProjectID, "file", t.FileID,
		"entries", len(e.entries), "draft", restored, "drift", e.drift)
	return true, restored
}

// Reset clears the editor and supersedes any load in flight.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
	e.ticket = uuid.New()
	e.loading = false
	e.triple = locfile.Triple{}
	e.entries = nil
	e.info = nil
	e.drift = false
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

// SetFinal replaces the final pane, re-checks key drift and arms the
// draft autosave.
func (e *Editor) SetFinal(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.triple.Final = text
	e.drift = e.detectDrift()
	if e.info == nil {
		return
	}

	e.pending = &session.Draft{
		ProjectID: e.info.ProjectID,
		FileID:    e.info.FileID,
		Content:   text,
		Timestamp: time.Now(),
	}
	if e.delay < 0 {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.delay, e.fire)
}

func (e *Editor) detectDrift() bool {
	if len(e.entries) == 0 || e.triple.Final == "" {
		return false
	}
	return locfile.DetectDrift(e.triple.Final, e.entries)
}

func (e *Editor) fire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
}

// Flush writes a pending draft now.
func (e *Editor) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	return e.flushLocked()
}

func (e *Editor) flushLocked() error {
	if e.pending == nil {
		return nil
	}
	d := *e.pending
	e.pending = nil
	if err := session.SaveDraft(e.store, d); err != nil {
		e.log.Warn("saving draft failed", "file", d.FileID, "error", err)
		return err
	}
	e.log.Debug("draft saved", "project", d.ProjectID, "file", d.FileID, "bytes", len(d.Content))
	return nil
}

// Saved records that content was saved for info. The draft is dropped
// unless the final pane changed in the meantime.
func (e *Editor) Saved(info FileInfo, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.info == nil || *e.info != info || e.triple.Final != content {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.pending = nil
	if err := session.ClearDraft(e.store, info.ProjectID, info.FileID); err != nil {
		e.log.Warn("clearing draft failed", "file", info.FileID, "error", err)
	}
}

// Close writes a pending draft and stops the autosave timer.
func (e *Editor) Close() error {
	return e.Flush()
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// Triple returns the three panes.
func (e *Editor) Triple() locfile.Triple {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triple
}

// Entries returns the loaded entries.
func (e *Editor) Entries() []project.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]project.Entry(nil), e.entries...)
}

// Info returns the loaded file.
func (e *Editor) Info() (FileInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.info == nil {
		return FileInfo{}, false
	}
	return *e.info, true
}

// Drift reports whether the final pane's key set differs from the
// loaded entries.
func (e *Editor) Drift() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drift
}

// Loading reports whether a load is in flight.
func (e *Editor) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}
