// Package config implements auto-detection of mod settings from a mod
// directory: its descriptor, localisation root and source language.
package config

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/remis-mod/remis/langmeta"
	"github.com/remis-mod/remis/project"
)

// LocalisationDirs are the localisation roots checked by Detect, in
// order. Older games spell the directory with an s.
var LocalisationDirs = []string{"localization", "localisation"}

// Mod holds auto-detected settings of a mod directory.
type Mod struct {
	// Root is the absolute mod directory.
	Root string
	// Name from the descriptor, or the directory name.
	Name string
	// Version from the descriptor, or "0.0.0".
	Version string
	// LocDir is the localisation root, or Root when none exists.
	LocDir string
	// SourceLanguage is the most common language token among the
	// localisation files; "english" when it cannot be determined.
	SourceLanguage string
	// Languages are all tokens found, sorted.
	Languages []string
}

// Project converts m into a backend project with the given id.
func (m *Mod) Project(id string) project.Project {
	return project.Project{
		ProjectID:      id,
		Name:           m.Name,
		SourceLanguage: m.SourceLanguage,
		SourcePath:     m.LocDir,
		Status:         "active",
	}
}

// Detect auto-detects mod settings from rootDir.
func Detect(rootDir string) *Mod {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	m := &Mod{Root: absRoot, LocDir: absRoot}

	// Newer games keep metadata in .metadata/metadata.json, older ones
	// use a descriptor.mod in the mod root.
	if name, version, err := parseMetadata(filepath.Join(absRoot, ".metadata", "metadata.json")); err == nil {
		m.Name, m.Version = name, version
	} else if name, version, err := parseDescriptor(filepath.Join(absRoot, "descriptor.mod")); err == nil {
		m.Name, m.Version = name, version
	}
	if m.Name == "" {
		m.Name = filepath.Base(absRoot)
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}

	for _, candidate := range LocalisationDirs {
		dir := filepath.Join(absRoot, candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			m.LocDir = dir
			break
		}
	}

	counts := countLanguages(m.LocDir)
	for lang := range counts {
		m.Languages = append(m.Languages, lang)
	}
	sort.Strings(m.Languages)
	m.SourceLanguage = pickSource(counts)
	return m
}

// ---------------------------------------------------------------------------
// Descriptor parsing
// ---------------------------------------------------------------------------

var descriptorRe = regexp.MustCompile(`^\s*(name|version)\s*=\s*"([^"]*)"`)

func parseDescriptor(path string) (name, version string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		matches := descriptorRe.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}
		switch matches[1] {
		case "name":
			name = matches[2]
		case "version":
			version = matches[2]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	if name == "" {
		return "", "", os.ErrNotExist
	}
	return name, version, nil
}

func parseMetadata(path string) (name, version string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var meta struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", "", err
	}
	if meta.Name == "" {
		return "", "", os.ErrNotExist
	}
	return meta.Name, meta.Version, nil
}

// ---------------------------------------------------------------------------
// Language detection
// ---------------------------------------------------------------------------

var fileLangRe = regexp.MustCompile(`(?i)_l_(\w+)\.yml$`)

// countLanguages counts .yml files per language token, skipping hidden
// directories.
func countLanguages(dir string) map[string]int {
	counts := make(map[string]int)
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if m := fileLangRe.FindStringSubmatch(d.Name()); m != nil {
			if meta, ok := langmeta.Lookup(m[1]); ok {
				counts[meta.Token]++
			}
		}
		return nil
	})
	return counts
}

// pickSource returns the token with the most files. Ties go to
// langmeta.DefaultToken, then alphabetically.
func pickSource(counts map[string]int) string {
	best, bestN := langmeta.DefaultToken, counts[langmeta.DefaultToken]
	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	for _, t := range tokens {
		if counts[t] > bestN {
			best, bestN = t, counts[t]
		}
	}
	return best
}
