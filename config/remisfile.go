// Package config: .remis.yaml configuration file support.
//
// When a .remis.yaml file exists in the working directory it selects the
// backend, the session store and, for the local backend, the list of
// mod projects. Without one, the directory itself is detected as a
// single mod served by the local backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/session"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// RemisFile is the top-level .remis.yaml structure.
type RemisFile struct {
	// Backend: "local" (default) or "http".
	Backend string `yaml:"backend,omitempty"`
	// BaseURL is the server root of the http backend.
	BaseURL string `yaml:"base_url,omitempty"`
	// Timeout bounds one http request (default 30s).
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Proxy overrides HTTP_PROXY/HTTPS_PROXY for the http backend.
	Proxy string `yaml:"proxy,omitempty"`
	// Store configures where session state is kept.
	Store StoreConfig `yaml:"store,omitempty"`
	// DraftDelay is the quiet period before an edit is autosaved
	// (default 500ms).
	DraftDelay time.Duration `yaml:"draft_delay,omitempty"`
	// DefaultGame is the validation game id for projects without one.
	DefaultGame string `yaml:"default_game,omitempty"`
	// Projects are served by the local backend.
	Projects []project.Project `yaml:"projects,omitempty"`

	// dir is the directory the file was loaded from.
	dir string
}

// StoreConfig selects the session store.
type StoreConfig struct {
	// Driver: "memory", "file" (default) or "sqlite".
	Driver string `yaml:"driver,omitempty"`
	// Path relative to the config file. Defaults to ".remis.session"
	// for the file driver and ".remis.db" for sqlite.
	Path string `yaml:"path,omitempty"`
}

// Backend names.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// Defaults.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultDraftDelay  = 500 * time.Millisecond
	DefaultGame        = "victoria3"
	DefaultSQLiteName  = ".remis.db"
	DefaultStoreDriver = session.DriverFile
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// RemisFileName is the default config file name.
const RemisFileName = ".remis.yaml"

// LoadRemisFile loads and validates .remis.yaml from the given directory.
// Returns nil if no .remis.yaml exists.
func LoadRemisFile(rootDir string) (*RemisFile, error) {
	path := filepath.Join(rootDir, RemisFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var rf RemisFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	absDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	rf.dir = absDir

	if err := rf.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rf, nil
}

// FromMod builds the configuration used when no .remis.yaml exists: the
// local backend serving the detected mod as project "local".
func FromMod(m *Mod) *RemisFile {
	rf := &RemisFile{dir: m.Root, Projects: []project.Project{m.Project("local")}}
	// Detected projects are valid by construction.
	_ = rf.normalize()
	return rf
}

// normalize applies defaults and validates.
func (rf *RemisFile) normalize() error {
	rf.Backend = strings.ToLower(strings.TrimSpace(rf.Backend))
	if rf.Backend == "" {
		rf.Backend = BackendLocal
	}
	if rf.Timeout == 0 {
		rf.Timeout = DefaultTimeout
	}
	if rf.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", rf.Timeout)
	}
	if rf.DraftDelay == 0 {
		rf.DraftDelay = DefaultDraftDelay
	}
	if rf.DefaultGame == "" {
		rf.DefaultGame = DefaultGame
	}

	rf.Store.Driver = strings.ToLower(strings.TrimSpace(rf.Store.Driver))
	switch rf.Store.Driver {
	case "":
		rf.Store.Driver = DefaultStoreDriver
	case session.DriverMemory, session.DriverFile, session.DriverSQLite:
	default:
		return fmt.Errorf("store driver %q is unknown (valid: %s)", rf.Store.Driver, strings.Join(session.Drivers(), ", "))
	}
	if rf.Store.Path == "" {
		switch rf.Store.Driver {
		case session.DriverFile:
			rf.Store.Path = session.FileName
		case session.DriverSQLite:
			rf.Store.Path = DefaultSQLiteName
		}
	}

	switch rf.Backend {
	case BackendHTTP:
		if rf.BaseURL == "" {
			return fmt.Errorf("backend %q needs base_url", rf.Backend)
		}
	case BackendLocal:
		if len(rf.Projects) == 0 {
			return fmt.Errorf("backend %q needs at least one project", rf.Backend)
		}
	default:
		return fmt.Errorf("backend %q is unknown (valid: local, http)", rf.Backend)
	}

	seen := make(map[string]bool, len(rf.Projects))
	for i := range rf.Projects {
		p := &rf.Projects[i]
		if p.ProjectID == "" {
			return fmt.Errorf("project #%d has no id", i+1)
		}
		if seen[p.ProjectID] {
			return fmt.Errorf("project %q is declared twice", p.ProjectID)
		}
		seen[p.ProjectID] = true
		if p.Name == "" {
			p.Name = p.ProjectID
		}
		if p.SourcePath == "" {
			p.SourcePath = "."
		}
		if p.SourceLanguage == "" {
			p.SourceLanguage = "english"
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolving
// ---------------------------------------------------------------------------

// Dir returns the directory the file was loaded from.
func (rf *RemisFile) Dir() string {
	return rf.dir
}

// ResolvedProjects returns Projects with SourcePath made absolute
// relative to the config file.
func (rf *RemisFile) ResolvedProjects() []project.Project {
	out := make([]project.Project, len(rf.Projects))
	for i, p := range rf.Projects {
		if !filepath.IsAbs(p.SourcePath) {
			p.SourcePath = filepath.Join(rf.dir, p.SourcePath)
		}
		out[i] = p
	}
	return out
}

// StorePath returns the absolute session store path; empty for the
// memory driver.
func (rf *RemisFile) StorePath() string {
	if rf.Store.Driver == session.DriverMemory || rf.Store.Path == "" {
		return ""
	}
	if filepath.IsAbs(rf.Store.Path) {
		return rf.Store.Path
	}
	return filepath.Join(rf.dir, rf.Store.Path)
}

// OpenStore opens the configured session store.
func (rf *RemisFile) OpenStore() (session.Store, error) {
	return session.Open(rf.Store.Driver, rf.StorePath())
}

// Load returns the configuration of rootDir: its .remis.yaml if present,
// otherwise the detected mod.
func Load(rootDir string) (*RemisFile, error) {
	rf, err := LoadRemisFile(rootDir)
	if err != nil {
		return nil, err
	}
	if rf != nil {
		return rf, nil
	}
	return FromMod(Detect(rootDir)), nil
}
