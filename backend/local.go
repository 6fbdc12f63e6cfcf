package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/remis-mod/remis/langmeta"
	"github.com/remis-mod/remis/locfile"
	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/session"
)

// fileNamespace seeds the name-based UUIDs of local files, so a file
// keeps its id across runs as long as its relative path is unchanged.
var fileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://remis.invalid/local-file"))

// suffixLanguage extracts the language token from "<base>_l_<lang>.yml".
var suffixLanguage = regexp.MustCompile(`(?i)_l_(\w+)\.yml$`)

// headerLanguage extracts the token from a first line like "l_french:".
var headerLanguage = regexp.MustCompile(`(?i)^\s*l_(\w+):`)

// LocalOptions configures a Local backend.
type LocalOptions struct {
	// Projects are the mod directories to serve. SourcePath is the root
	// scanned for .yml files.
	Projects []project.Project
	// Store keeps kanban statuses. Defaults to an in-memory store.
	Store  session.Store
	Logger *slog.Logger
}

// Local serves projects straight from disk.
type Local struct {
	projects []project.Project
	store    session.Store
	log      *slog.Logger
}

// NewLocal validates opts and returns a Local backend.
func NewLocal(opts LocalOptions) (*Local, error) {
	seen := make(map[string]bool, len(opts.Projects))
	for i, p := range opts.Projects {
		if p.ProjectID == "" {
			return nil, fmt.Errorf("project %d: id is empty", i+1)
		}
		if seen[p.ProjectID] {
			return nil, fmt.Errorf("project %q: duplicate id", p.ProjectID)
		}
		seen[p.ProjectID] = true
		if p.SourcePath == "" {
			return nil, fmt.Errorf("project %q: source path is empty", p.ProjectID)
		}
	}
	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	projects := make([]project.Project, len(opts.Projects))
	copy(projects, opts.Projects)
	return &Local{projects: projects, store: store, log: loggerOrDiscard(opts.Logger)}, nil
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

// ListProjects returns projects whose status is empty or "active".
func (l *Local) ListProjects(ctx context.Context) ([]project.Project, error) {
	var out []project.Project
	for _, p := range l.projects {
		if p.Status == "" || strings.EqualFold(p.Status, "active") {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *Local) project(projectID string) (project.Project, error) {
	for _, p := range l.projects {
		if p.ProjectID == projectID {
			return p, nil
		}
	}
	return project.Project{}, fmt.Errorf("project %q: %w", projectID, ErrNotFound)
}

// ProjectFiles scans the project directory for localisation files.
// Hidden directories are skipped. Files are sorted by path.
func (l *Local) ProjectFiles(ctx context.Context, projectID string) ([]project.File, error) {
	p, err := l.project(projectID)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(p.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", p.SourcePath, err)
	}
	sourceToken := langmeta.ToLanguageToken(p.SourceLanguage)

	var files []project.File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".yml") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := l.describe(projectID, path, filepath.ToSlash(rel), sourceToken)
		if err != nil {
			l.log.Warn("skipping unreadable file", "path", path, "error", err)
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].FilePath < files[j].FilePath })
	l.log.Debug("scanned project", "project", projectID, "files", len(files))
	return files, nil
}

func (l *Local) describe(projectID, path, rel, sourceToken string) (project.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return project.File{}, err
	}

	fileType := project.FileTypeTranslation
	if fileLanguage(path, data) == sourceToken {
		fileType = project.FileTypeSource
	}

	status := project.StatusTodo
	id := fileID(projectID, rel)
	if raw, ok, err := l.store.Get(session.StatusKey(projectID, id)); err != nil {
		return project.File{}, err
	} else if ok {
		if st, err := project.ParseStatus(raw); err == nil {
			status = st
		}
	}

	return project.File{
		FileID:    id,
		FilePath:  path,
		FileType:  fileType,
		LineCount: countLines(data),
		Status:    status,
	}, nil
}

func fileID(projectID, rel string) string {
	return uuid.NewSHA1(fileNamespace, []byte(projectID+"/"+rel)).String()
}

// fileLanguage returns the language token of a localisation file, from
// its "_l_<lang>.yml" suffix or else its header. Defaults to english.
func fileLanguage(path string, data []byte) string {
	if m := suffixLanguage.FindStringSubmatch(filepath.Base(path)); m != nil {
		return strings.ToLower(m[1])
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	if sc.Scan() {
		if m := headerLanguage.FindStringSubmatch(locfile.StripBOM(sc.Bytes())); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return langmeta.DefaultToken
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func (l *Local) file(ctx context.Context, projectID, fileID string) (project.Project, project.File, []project.File, error) {
	p, err := l.project(projectID)
	if err != nil {
		return project.Project{}, project.File{}, nil, err
	}
	files, err := l.ProjectFiles(ctx, projectID)
	if err != nil {
		return project.Project{}, project.File{}, nil, err
	}
	for _, f := range files {
		if f.FileID == fileID {
			return p, f, files, nil
		}
	}
	return project.Project{}, project.File{}, nil, fmt.Errorf("file %q in project %q: %w", fileID, projectID, ErrNotFound)
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

// findTemplate locates the source-language counterpart of a target file.
// It first swaps the language folder and the "_l_<lang>" suffix in the
// target path, then searches the project files for the expected name.
// It returns "" when nothing is found.
func findTemplate(target, sourceToken, currentToken string, files []project.File) string {
	dir, name := filepath.Split(target)
	expected := swapSuffix(name, currentToken, sourceToken)
	if expected == "" {
		return ""
	}

	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if strings.EqualFold(parts[i], currentToken) {
			parts[i] = sourceToken
			break
		}
	}
	candidate := filepath.Join(filepath.FromSlash(strings.Join(parts, "/")), expected)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}

	for _, f := range files {
		if strings.EqualFold(f.BaseName(), expected) {
			return f.FilePath
		}
	}
	return ""
}

// swapSuffix replaces "_l_<from>" with "_l_<to>" in name, ignoring case.
// It returns "" if name has no such suffix.
func swapSuffix(name, from, to string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta("_l_"+from))
	if !re.MatchString(name) {
		return ""
	}
	return re.ReplaceAllLiteralString(name, "_l_"+to)
}

// template returns the template path and the languages involved for a
// target file.
func (l *Local) template(p project.Project, f project.File, files []project.File) (templatePath, current string, err error) {
	data, err := os.ReadFile(f.FilePath)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", f.FilePath, err)
	}
	current = fileLanguage(f.FilePath, data)
	source := langmeta.ToLanguageToken(p.SourceLanguage)

	templatePath = f.FilePath
	if current != source {
		if found := findTemplate(f.FilePath, source, current, files); found != "" {
			templatePath = found
		} else {
			l.log.Warn("no source template found, using the file itself", "file", f.FilePath, "source", source)
		}
	}
	return templatePath, current, nil
}

// ---------------------------------------------------------------------------
// Proofreading
// ---------------------------------------------------------------------------

// ProofreadData returns the translatable entries of the file's source
// template, each paired with the file's current translation. A missing
// translation falls back to the original text. Unversioned keys are
// returned with ":0".
func (l *Local) ProofreadData(ctx context.Context, projectID, fileID string) (*project.ProofreadData, error) {
	p, f, files, err := l.file(ctx, projectID, fileID)
	if err != nil {
		return nil, err
	}
	templatePath, _, err := l.template(p, f, files)
	if err != nil {
		return nil, err
	}

	tmpl, err := locfile.ParseFile(templatePath)
	if err != nil {
		return nil, err
	}
	target := tmpl
	if templatePath != f.FilePath {
		if target, err = locfile.ParseFile(f.FilePath); err != nil {
			return nil, err
		}
	}

	entries := tmpl.Translatable()
	for i := range entries {
		// keys go out the way the editor writes them back
		entries[i].Key = locfile.SerializedKey(entries[i].Key)
		if tr, ok := target.Get(entries[i].Key); ok {
			entries[i].Translation = tr
		} else {
			entries[i].Translation = entries[i].Original
		}
	}

	return &project.ProofreadData{
		FileID:   f.FileID,
		FilePath: f.FilePath,
		ModName:  p.Name,
		Entries:  entries,
	}, nil
}

// ReadSourceFile returns the text of a file inside one of the projects,
// without its byte order mark.
func (l *Local) ReadSourceFile(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if !l.contains(abs) {
		return "", fmt.Errorf("%s is outside every project: %w", path, ErrNotFound)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return locfile.StripBOM(data), nil
}

func (l *Local) contains(abs string) bool {
	for _, p := range l.projects {
		root, err := filepath.Abs(p.SourcePath)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// SaveEntries writes translations into a copy of the file's source
// template, switches the header to the file's language, writes it over
// the file and marks the file done. Template entries without a submitted
// translation keep their template text. The header language comes from
// the file itself; req.TargetLanguage is not consulted.
func (l *Local) SaveEntries(ctx context.Context, req project.SaveRequest) error {
	p, f, files, err := l.file(ctx, req.ProjectID, req.FileID)
	if err != nil {
		return err
	}
	templatePath, current, err := l.template(p, f, files)
	if err != nil {
		return err
	}

	tmpl, err := locfile.ParseFile(templatePath)
	if err != nil {
		return err
	}

	submitted := make(map[string]string, len(req.Entries))
	for _, e := range req.Entries {
		if _, dup := submitted[e.Key]; !dup {
			submitted[e.Key] = e.Translation
		}
	}
	applied := 0
	for _, key := range tmpl.Keys() {
		if tr, ok := lookupSubmitted(submitted, key); ok {
			tmpl.Set(key, tr)
			applied++
		}
	}
	tmpl.SetLanguage(current)

	if err := tmpl.WriteFile(f.FilePath); err != nil {
		return err
	}
	l.log.Info("saved file", "path", f.FilePath, "applied", applied, "submitted", len(req.Entries))
	return l.store.Set(session.StatusKey(req.ProjectID, req.FileID), string(project.StatusDone))
}

// lookupSubmitted matches a template key against submitted keys, which
// always carry a version after a round trip through the editor.
func lookupSubmitted(submitted map[string]string, key string) (string, bool) {
	if tr, ok := submitted[key]; ok {
		return tr, true
	}
	if !locfile.HasVersion(key) {
		tr, ok := submitted[key+":0"]
		return tr, ok
	}
	tr, ok := submitted[key[:strings.LastIndexByte(key, ':')]]
	return tr, ok
}

// ValidateLocalization runs the built-in checks over req.Content.
func (l *Local) ValidateLocalization(ctx context.Context, req project.ValidateRequest) ([]project.Issue, error) {
	issues := locfile.Validate(req.Content)
	l.log.Debug("validated content", "game", req.GameID, "issues", len(issues))
	return issues, nil
}

// UpdateFileStatus records a file's kanban status.
func (l *Local) UpdateFileStatus(ctx context.Context, projectID, fileID string, status project.Status) error {
	if _, _, _, err := l.file(ctx, projectID, fileID); err != nil {
		return err
	}
	if _, err := project.ParseStatus(string(status)); err != nil {
		return err
	}
	return l.store.Set(session.StatusKey(projectID, fileID), string(status))
}
