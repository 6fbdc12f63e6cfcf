package proofread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/remis-mod/remis/grouping"
	"github.com/remis-mod/remis/langmeta"
	"github.com/remis-mod/remis/locfile"
	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/session"
)

// DefaultGame is the game id used for validation when the project has
// none.
const DefaultGame = "victoria3"

// Options configures a Coordinator.
type Options struct {
	// Store persists the selection, the project filter and drafts.
	// Defaults to an in-memory store.
	Store    session.Store
	Logger   *slog.Logger
	Notifier Notifier
	// DraftDelay is passed to the Editor.
	DraftDelay time.Duration
	// DeepLink is a file id to open first. It takes precedence over the
	// persisted selection.
	DeepLink string
	// DefaultGame overrides DefaultGame.
	DefaultGame string
}

// Coordinator runs one proofreading session against a Backend. It is
// safe for concurrent use; backend calls are made without holding the
// lock, so a slow load never blocks navigation, and a superseded load
// is discarded when it completes.
type Coordinator struct {
	backend     Backend
	store       session.Store
	log         *slog.Logger
	notify      Notifier
	defaultGame string
	editor      *Editor
	linter      *Linter

	mu       sync.Mutex
	nav      *Navigator
	projects []project.Project
	filter   string
	// requested is "<project>/<file>" of the last load started.
	requested string
}

// New returns a Coordinator for b.
func New(b Backend, opts Options) *Coordinator {
	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	notify := opts.Notifier
	if notify == nil {
		notify = discardNotifier{}
	}
	game := opts.DefaultGame
	if game == "" {
		game = DefaultGame
	}
	log := loggerOrDiscard(opts.Logger)

	c := &Coordinator{
		backend:     b,
		store:       store,
		log:         log,
		notify:      notify,
		defaultGame: game,
		editor:      NewEditor(EditorOptions{Store: store, Logger: log, DraftDelay: opts.DraftDelay}),
		linter:      NewLinter(b),
		nav:         NewNavigator(opts.DeepLink),
	}
	if f, ok, err := store.Get(session.ProjectFilterKey); err != nil {
		log.Warn("reading project filter failed", "error", err)
	} else if ok {
		c.filter = f
	}
	return c
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// LoadProjects fetches the project list and returns the projects that
// match the project filter.
func (c *Coordinator) LoadProjects(ctx context.Context) ([]project.Project, error) {
	projects, err := c.backend.ListProjects(ctx)
	if err != nil {
		c.log.Error("loading projects failed", "error", err)
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects = projects
	return c.filteredLocked(), nil
}

// Projects returns the loaded projects that match the project filter.
func (c *Coordinator) Projects() []project.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filteredLocked()
}

func (c *Coordinator) filteredLocked() []project.Project {
	if c.filter == "" {
		return append([]project.Project(nil), c.projects...)
	}
	needle := strings.ToLower(c.filter)
	var out []project.Project
	for _, p := range c.projects {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.ProjectID), needle) {
			out = append(out, p)
		}
	}
	return out
}

// ProjectFilter returns the persisted project filter.
func (c *Coordinator) ProjectFilter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetProjectFilter sets and persists the project filter, a
// case-insensitive substring of the project name or id.
func (c *Coordinator) SetProjectFilter(filter string) error {
	c.mu.Lock()
	c.filter = strings.TrimSpace(filter)
	f := c.filter
	c.mu.Unlock()
	if f == "" {
		return c.store.Delete(session.ProjectFilterKey)
	}
	return c.store.Set(session.ProjectFilterKey, f)
}

// SelectProject selects a loaded project, fetches its files and loads
// the reconciled pair.
func (c *Coordinator) SelectProject(ctx context.Context, projectID string) error {
	c.mu.Lock()
	p, ok := c.findProjectLocked(projectID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("project %q: %w", projectID, ErrUnknownProject)
	}
	c.nav.SelectProject(p)
	c.editor.Reset()
	c.requested = ""
	c.persistSelectionLocked()
	c.mu.Unlock()

	c.log.Info("project selected", "project", p.ProjectID, "name", p.Name)
	return c.Refresh(ctx)
}

func (c *Coordinator) findProjectLocked(projectID string) (project.Project, bool) {
	for _, p := range c.projects {
		if p.ProjectID == projectID {
			return p, true
		}
	}
	return project.Project{}, false
}

// Restore reselects the persisted project and file. The DeepLink option,
// when set, replaces the persisted file. It returns false when nothing
// was persisted or the project no longer exists.
func (c *Coordinator) Restore(ctx context.Context) (bool, error) {
	sel, ok, err := session.LoadSelection(c.store)
	if err != nil {
		c.log.Warn("reading selection failed", "error", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	p, found := c.findProjectLocked(sel.ProjectID)
	if !found {
		c.mu.Unlock()
		c.log.Info("persisted project is gone", "project", sel.ProjectID)
		return false, nil
	}
	link := c.nav.DeepLink()
	if link == "" {
		link = sel.FileID
	}
	c.nav.SelectProject(p)
	c.nav.SetDeepLink(link)
	c.editor.Reset()
	c.requested = ""
	c.mu.Unlock()

	return true, c.Refresh(ctx)
}

func (c *Coordinator) persistSelectionLocked() {
	p, ok := c.nav.Project()
	if !ok {
		return
	}
	sel := session.Selection{ProjectID: p.ProjectID, FileID: c.nav.DeepLink()}
	if err := session.SaveSelection(c.store, sel); err != nil {
		c.log.Warn("saving selection failed", "error", err)
	}
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// Refresh refetches the project's files, regroups them and reloads the
// editor if the reconciled pair differs from the one loaded.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	p, ok := c.nav.Project()
	c.mu.Unlock()
	if !ok {
		return ErrNoProject
	}

	files, err := c.backend.ProjectFiles(ctx, p.ProjectID)
	if err != nil {
		c.log.Error("loading project files failed", "project", p.ProjectID, "error", err)
		c.notify.Notify(Notification{Level: LevelError, Title: "Error", Message: "Failed to load project files."})
		return fmt.Errorf("loading files of %s: %w", p.ProjectID, err)
	}

	c.mu.Lock()
	if cur, ok := c.nav.Project(); !ok || cur.ProjectID != p.ProjectID {
		c.mu.Unlock()
		c.log.Debug("discarding file list of deselected project", "project", p.ProjectID)
		return nil
	}
	pair, ok := c.nav.SetFiles(files)
	c.persistSelectionLocked()
	if !ok {
		c.editor.Reset()
		c.requested = ""
		c.mu.Unlock()
		c.log.Info("project has no source files", "project", p.ProjectID, "files", len(files))
		return nil
	}
	c.mu.Unlock()

	return c.load(ctx, p, pair)
}

// Reload loads the active pair again, discarding the loaded panes. A
// pending draft is written first and restored by the load.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.mu.Lock()
	p, ok := c.nav.Project()
	if !ok {
		c.mu.Unlock()
		return ErrNoProject
	}
	pair, ok := c.nav.Current()
	if !ok {
		c.mu.Unlock()
		return ErrNoActivePair
	}
	c.requested = ""
	c.mu.Unlock()
	return c.load(ctx, p, pair)
}

// SelectSource activates a source file and its first target.
func (c *Coordinator) SelectSource(ctx context.Context, fileID string) error {
	return c.selectWith(ctx, func() (Pair, error) { return c.nav.SelectSource(fileID) })
}

// SelectTarget activates another target of the active source.
func (c *Coordinator) SelectTarget(ctx context.Context, fileID string) error {
	return c.selectWith(ctx, func() (Pair, error) { return c.nav.SelectTarget(fileID) })
}

func (c *Coordinator) selectWith(ctx context.Context, sel func() (Pair, error)) error {
	c.mu.Lock()
	p, ok := c.nav.Project()
	if !ok {
		c.mu.Unlock()
		return ErrNoProject
	}
	pair, err := sel()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.persistSelectionLocked()
	c.mu.Unlock()
	return c.load(ctx, p, pair)
}

// load fills the editor for pair unless that file is already loaded or
// loading. The source text is best effort; the proofreading data is not.
func (c *Coordinator) load(ctx context.Context, p project.Project, pair Pair) error {
	fileID := pair.FileID()
	key := p.ProjectID + "/" + fileID

	c.mu.Lock()
	if c.requested == key {
		c.mu.Unlock()
		return nil
	}
	c.requested = key
	ticket := c.editor.Begin(p.ProjectID, fileID)
	c.mu.Unlock()

	var res LoadResult
	if pair.Source.FilePath != "" {
		text, err := c.backend.ReadSourceFile(ctx, pair.Source.FilePath)
		if err != nil {
			c.log.Warn("reading source file failed", "path", pair.Source.FilePath, "error", err)
		} else {
			res.SourceText = text
		}
	}

	data, err := c.backend.ProofreadData(ctx, p.ProjectID, fileID)
	if err != nil {
		c.mu.Lock()
		current := c.editor.Abort(ticket)
		if current {
			c.requested = ""
		}
		c.mu.Unlock()
		if !current {
			return nil
		}
		c.log.Error("loading file failed", "project", p.ProjectID, "file", fileID, "error", err)
		c.notify.Notify(Notification{Level: LevelError, Title: "Error", Message: "Failed to load file data."})
		return fmt.Errorf("loading %s: %w", pair.Source.BaseName(), err)
	}
	res.Data = data

	committed, restored := c.editor.Commit(ticket, res)
	if committed && restored {
		c.notify.Notify(Notification{Level: LevelInfo, Title: "Draft Restored", Message: "Restored unsaved changes."})
	}
	return nil
}

// ---------------------------------------------------------------------------
// Editing, saving, validating
// ---------------------------------------------------------------------------

// SetFinal replaces the final pane.
func (c *Coordinator) SetFinal(text string) {
	c.editor.SetFinal(text)
}

// Save sends the final pane to the backend. When the key set drifted
// from the loaded entries, Save returns ErrDriftUnacknowledged unless
// acknowledgeDrift is set. On failure the final pane and the draft are
// kept.
func (c *Coordinator) Save(ctx context.Context, acknowledgeDrift bool) error {
	c.mu.Lock()
	p, ok := c.nav.Project()
	c.mu.Unlock()
	if !ok {
		return ErrNoProject
	}
	info, ok := c.editor.Info()
	if !ok {
		return ErrNoActivePair
	}
	if c.editor.Drift() && !acknowledgeDrift {
		return ErrDriftUnacknowledged
	}

	content := c.editor.Triple().Final
	parsed := locfile.ParseEntries(content)
	req := project.SaveRequest{
		ProjectID:      info.ProjectID,
		FileID:         info.FileID,
		Entries:        locfile.ToSaveEntries(parsed),
		TargetLanguage: langmeta.HeaderKey(langmeta.ToLanguageToken(p.SourceLanguage)),
	}

	if err := c.backend.SaveEntries(ctx, req); err != nil {
		c.log.Error("save failed", "file", info.FileID, "error", err)
		c.notify.Notify(Notification{Level: LevelError, Title: "Error", Message: "Failed to save file."})
		if ferr := c.editor.Flush(); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return fmt.Errorf("saving %s: %w", info.Path, err)
	}

	c.editor.Saved(info, content)
	c.log.Info("file saved", "file", info.FileID, "entries", len(req.Entries))
	c.notify.Notify(Notification{Level: LevelSuccess, Title: "Saved", Message: "File saved successfully."})
	return nil
}

// Validate checks the final pane with the backend's validator. Entries
// are re-rendered one per line so that reported line numbers count
// entries, not wrapped or padded lines.
func (c *Coordinator) Validate(ctx context.Context) ([]project.Issue, Stats, error) {
	c.mu.Lock()
	p, ok := c.nav.Project()
	c.mu.Unlock()
	if !ok {
		return nil, Stats{}, ErrNoProject
	}

	game := p.GameID
	if game == "" {
		game = c.defaultGame
	}
	content := locfile.Render(locfile.ParseEntries(c.editor.Triple().Final))

	issues, err := c.backend.ValidateLocalization(ctx, project.ValidateRequest{
		GameID:         game,
		Content:        content,
		SourceLangCode: SourceLangCode,
	})
	if err != nil {
		c.log.Error("validation failed", "error", err)
		c.notify.Notify(Notification{Level: LevelError, Title: "Error", Message: "Validation failed."})
		return nil, Stats{}, fmt.Errorf("validating: %w", err)
	}

	stats := statsOf(issues)
	if stats.Errors == 0 && stats.Warnings == 0 {
		c.notify.Notify(Notification{Level: LevelSuccess, Title: "Perfect", Message: "No issues found."})
	} else {
		c.notify.Notify(Notification{
			Level:   LevelWarning,
			Title:   "Issues Found",
			Message: fmt.Sprintf("Found %d errors and %d warnings.", stats.Errors, stats.Warnings),
		})
	}
	return issues, stats, nil
}

// Lint validates content outside any loaded file.
func (c *Coordinator) Lint(ctx context.Context, content, gameID string) ([]project.Issue, Stats, error) {
	return c.linter.Lint(ctx, content, gameID)
}

// Close writes any pending draft.
func (c *Coordinator) Close() error {
	return c.editor.Close()
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State returns the navigation state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.State()
}

// Project returns the selected project.
func (c *Coordinator) Project() (project.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Project()
}

// Pair returns the active pair.
func (c *Coordinator) Pair() (Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Current()
}

// Grouping returns the current grouping of the project's files.
func (c *Coordinator) Grouping() grouping.Grouping {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Grouping()
}

// Files returns the project's files as last fetched.
func (c *Coordinator) Files() []project.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]project.File(nil), c.nav.Files()...)
}

// DeepLink returns the file id the selection points at.
func (c *Coordinator) DeepLink() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.DeepLink()
}

// Triple returns the editor panes.
func (c *Coordinator) Triple() locfile.Triple { return c.editor.Triple() }

// Entries returns the loaded entries.
func (c *Coordinator) Entries() []project.Entry { return c.editor.Entries() }

// FileInfo returns the loaded file.
func (c *Coordinator) FileInfo() (FileInfo, bool) { return c.editor.Info() }

// Drift reports key drift in the final pane.
func (c *Coordinator) Drift() bool { return c.editor.Drift() }

// Loading reports whether a load is in flight.
func (c *Coordinator) Loading() bool { return c.editor.Loading() }
