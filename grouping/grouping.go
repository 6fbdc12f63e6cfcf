// Package grouping partitions a project's files into source files and,
// for each source, the translated target files derived from it.
//
// Paradox localisation files are named "<base>_l_<language>.yml"; mods
// distributed in some communities use a space instead of the underscore
// ("<base> l_<language>.yml"). Both separators are accepted on either
// side of a pair.
package grouping

import (
	"regexp"
	"sort"
	"strings"

	"github.com/remis-mod/remis/langmeta"
	"github.com/remis-mod/remis/project"
)

// Grouping is the source/target view over a file list. It is recomputed
// from scratch whenever the file list or the project changes.
type Grouping struct {
	// Sources are the original-language files, ordered by path.
	Sources []project.File
	// Targets maps a source FileID to its translations, ordered by path.
	// Every source has an entry, possibly empty.
	Targets map[string][]project.File
	// Token is the resolved source language token.
	Token string
}

// targetPattern matches "[ _]l_<word>.yml" at the end of a lowercased name.
// The base-name prefix is compared literally before applying it.
var targetPattern = regexp.MustCompile(`^[ _]l_\w+\.yml$`)

// suffixPattern builds the case-insensitive source suffix matcher for a
// language token.
func suffixPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)[ _]l_` + regexp.QuoteMeta(token) + `\.yml$`)
}

type sourceBase struct {
	lower string
	id    string
}

// Group classifies files against the project's source language. Files
// matching neither the source nor a target pattern are left out.
//
// Input order does not matter: files are stable-sorted by path first, so
// when a name could match more than one base the outcome is fixed.
func Group(files []project.File, p project.Project) Grouping {
	sourceLang := p.SourceLanguage
	if sourceLang == "" {
		sourceLang = langmeta.DefaultToken
	}
	token := langmeta.ToLanguageToken(sourceLang)

	g := Grouping{
		Targets: make(map[string][]project.File),
		Token:   token,
	}
	if len(files) == 0 {
		return g
	}

	sorted := make([]project.File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FilePath < sorted[j].FilePath
	})

	suffix := suffixPattern(token)

	// Pass 1: sources.
	var bases []sourceBase
	seenBase := make(map[string]bool)
	isSource := make([]bool, len(sorted))
	for i, f := range sorted {
		name := f.BaseName()
		loc := suffix.FindStringIndex(name)
		if loc == nil {
			continue
		}
		isSource[i] = true
		g.Sources = append(g.Sources, f)
		g.Targets[f.FileID] = []project.File{}

		lower := strings.ToLower(name[:loc[0]])
		if !seenBase[lower] {
			// Two sources sharing a base name (different directories):
			// the first one by path owns the targets.
			seenBase[lower] = true
			bases = append(bases, sourceBase{lower: lower, id: f.FileID})
		}
	}

	// Pass 2: targets. First matching base wins.
	for i, f := range sorted {
		if isSource[i] {
			continue
		}
		name := strings.ToLower(f.BaseName())
		for _, b := range bases {
			if !strings.HasPrefix(name, b.lower) {
				continue
			}
			if targetPattern.MatchString(name[len(b.lower):]) {
				g.Targets[b.id] = append(g.Targets[b.id], f)
				break
			}
		}
	}

	return g
}

// Source returns the source with the given id.
func (g Grouping) Source(fileID string) (project.File, bool) {
	for _, s := range g.Sources {
		if s.FileID == fileID {
			return s, true
		}
	}
	return project.File{}, false
}

// Find locates a file id in the grouping. A source id returns the source
// and no target; a target id returns its owning source and the target.
// Sources are checked first, then target lists in source order.
func (g Grouping) Find(fileID string) (source project.File, target *project.File, ok bool) {
	if s, found := g.Source(fileID); found {
		return s, nil, true
	}
	for _, s := range g.Sources {
		for i := range g.Targets[s.FileID] {
			if g.Targets[s.FileID][i].FileID == fileID {
				t := g.Targets[s.FileID][i]
				return s, &t, true
			}
		}
	}
	return project.File{}, nil, false
}

// Unclassified returns the files that are neither sources nor targets,
// in input order.
func Unclassified(files []project.File, g Grouping) []project.File {
	known := make(map[string]bool, len(files))
	for _, s := range g.Sources {
		known[s.FileID] = true
		for _, t := range g.Targets[s.FileID] {
			known[t.FileID] = true
		}
	}
	var out []project.File
	for _, f := range files {
		if !known[f.FileID] {
			out = append(out, f)
		}
	}
	return out
}
