package proofread

import (
	"fmt"

	"github.com/remis-mod/remis/grouping"
	"github.com/remis-mod/remis/project"
)

// State is the navigation state.
type State int

const (
	// NoProject: nothing selected.
	NoProject State = iota
	// ProjectSelectedNoFiles: a project is selected, its files are not
	// loaded yet.
	ProjectSelectedNoFiles
	// FileGrouped: files are loaded and grouped but no pair is active,
	// which happens when the project has no source files.
	FileGrouped
	// PairActive: a source, and its target if it has one, is active.
	PairActive
)

func (s State) String() string {
	switch s {
	case NoProject:
		return "no-project"
	case ProjectSelectedNoFiles:
		return "project-selected"
	case FileGrouped:
		return "files-grouped"
	case PairActive:
		return "pair-active"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pair is the active source file and, if the source has any, one of its
// targets.
type Pair struct {
	Source project.File
	Target *project.File
}

// FileID returns the id the editor loads: the target's, or the source's
// when there is no target.
func (p Pair) FileID() string {
	if p.Target != nil {
		return p.Target.FileID
	}
	return p.Source.FileID
}

// Equal compares pairs by file id.
func (p Pair) Equal(o Pair) bool {
	if p.Source.FileID != o.Source.FileID {
		return false
	}
	if (p.Target == nil) != (o.Target == nil) {
		return false
	}
	return p.Target == nil || p.Target.FileID == o.Target.FileID
}

// Navigator tracks the selected project and the active file pair. It is
// not safe for concurrent use.
type Navigator struct {
	project  *project.Project
	files    []project.File
	grouped  bool
	groups   grouping.Grouping
	pair     *Pair
	deepLink string
}

// NewNavigator returns a Navigator whose first reconciliation prefers
// deepLink, a source or target file id.
func NewNavigator(deepLink string) *Navigator {
	return &Navigator{deepLink: deepLink}
}

// State reports the navigation state.
func (n *Navigator) State() State {
	switch {
	case n.project == nil:
		return NoProject
	case !n.grouped:
		return ProjectSelectedNoFiles
	case n.pair == nil:
		return FileGrouped
	default:
		return PairActive
	}
}

// Project returns the selected project.
func (n *Navigator) Project() (project.Project, bool) {
	if n.project == nil {
		return project.Project{}, false
	}
	return *n.project, true
}

// Files returns the last file list passed to SetFiles.
func (n *Navigator) Files() []project.File {
	return n.files
}

// Grouping returns the current grouping.
func (n *Navigator) Grouping() grouping.Grouping {
	return n.groups
}

// Current returns the active pair.
func (n *Navigator) Current() (Pair, bool) {
	if n.pair == nil {
		return Pair{}, false
	}
	return *n.pair, true
}

// DeepLink returns the file id the selection points at.
func (n *Navigator) DeepLink() string {
	return n.deepLink
}

// SetDeepLink sets the file id the next reconciliation prefers.
func (n *Navigator) SetDeepLink(fileID string) {
	n.deepLink = fileID
}

// SelectProject makes p the selected project and drops its files and
// pair. Switching to a different project also drops the deep link.
func (n *Navigator) SelectProject(p project.Project) {
	if n.project != nil && n.project.ProjectID != p.ProjectID {
		n.deepLink = ""
	}
	n.project = &p
	n.files = nil
	n.grouped = false
	n.groups = grouping.Grouping{}
	n.pair = nil
}

// SetFiles regroups files and reconciles the active pair:
//
//  1. a deep link to a source selects it with its first target
//  2. a deep link to a target selects its owning source and the target
//  3. otherwise the first source and its first target
//
// It returns false when there is no project or no source.
func (n *Navigator) SetFiles(files []project.File) (Pair, bool) {
	if n.project == nil {
		return Pair{}, false
	}
	n.files = append([]project.File(nil), files...)
	n.groups = grouping.Group(n.files, *n.project)
	n.grouped = true

	if len(n.groups.Sources) == 0 {
		n.pair = nil
		return Pair{}, false
	}

	pair, found := Pair{}, false
	if n.deepLink != "" {
		var target *project.File
		pair.Source, target, found = n.groups.Find(n.deepLink)
		if found {
			pair.Target = target
			if target == nil {
				pair.Target = n.firstTarget(pair.Source.FileID)
			}
		}
	}
	if !found {
		pair = Pair{Source: n.groups.Sources[0], Target: n.firstTarget(n.groups.Sources[0].FileID)}
	}

	n.pair = &pair
	n.deepLink = pair.FileID()
	return pair, true
}

func (n *Navigator) firstTarget(sourceID string) *project.File {
	targets := n.groups.Targets[sourceID]
	if len(targets) == 0 {
		return nil
	}
	t := targets[0]
	return &t
}

// SelectSource activates a source and its first target.
func (n *Navigator) SelectSource(fileID string) (Pair, error) {
	if !n.grouped {
		return Pair{}, ErrNoProject
	}
	source, ok := n.groups.Source(fileID)
	if !ok {
		return Pair{}, fmt.Errorf("source file %q: %w", fileID, ErrUnknownFile)
	}
	pair := Pair{Source: source, Target: n.firstTarget(fileID)}
	n.pair = &pair
	n.deepLink = pair.FileID()
	return pair, nil
}

// SelectTarget activates one of the active source's targets.
func (n *Navigator) SelectTarget(fileID string) (Pair, error) {
	if n.pair == nil {
		return Pair{}, ErrNoActivePair
	}
	for _, t := range n.groups.Targets[n.pair.Source.FileID] {
		if t.FileID == fileID {
			pair := Pair{Source: n.pair.Source, Target: &t}
			n.pair = &pair
			n.deepLink = fileID
			return pair, nil
		}
	}
	return Pair{}, fmt.Errorf("target file %q of %s: %w", fileID, n.pair.Source.BaseName(), ErrUnknownFile)
}
