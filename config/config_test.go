package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/remis-mod/remis/session"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Detect
// ---------------------------------------------------------------------------

func TestDetect(t *testing.T) {
	t.Run("descriptor and localisation dir", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "descriptor.mod"), "version=\"1.4\"\ntags={ \"Gameplay\" }\nname=\"Better Floods\"\n")
		loc := filepath.Join(dir, "localisation")
		writeFile(t, filepath.Join(loc, "english", "a_l_english.yml"), "l_english:\n")
		writeFile(t, filepath.Join(loc, "english", "b_l_english.yml"), "l_english:\n")
		writeFile(t, filepath.Join(loc, "french", "a_l_french.yml"), "l_french:\n")
		writeFile(t, filepath.Join(loc, ".cache", "x_l_german.yml"), "l_german:\n")

		m := Detect(dir)
		if m.Name != "Better Floods" || m.Version != "1.4" {
			t.Fatalf("name/version = %q/%q", m.Name, m.Version)
		}
		if m.LocDir != loc {
			t.Fatalf("LocDir = %q, want %q", m.LocDir, loc)
		}
		if m.SourceLanguage != "english" {
			t.Fatalf("SourceLanguage = %q", m.SourceLanguage)
		}
		if want := []string{"english", "french"}; !reflect.DeepEqual(m.Languages, want) {
			t.Fatalf("Languages = %v, want %v", m.Languages, want)
		}
	})

	t.Run("metadata json wins and localization spelling", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".metadata", "metadata.json"), `{"name": "Vic Mod", "version": "2.0"}`)
		writeFile(t, filepath.Join(dir, "descriptor.mod"), `name="Old Name"`)
		writeFile(t, filepath.Join(dir, "localization", "german", "a_l_german.yml"), "")
		writeFile(t, filepath.Join(dir, "localization", "german", "b_l_german.yml"), "")
		writeFile(t, filepath.Join(dir, "localization", "english", "a_l_english.yml"), "")

		m := Detect(dir)
		if m.Name != "Vic Mod" || m.Version != "2.0" {
			t.Fatalf("name/version = %q/%q", m.Name, m.Version)
		}
		if m.LocDir != filepath.Join(dir, "localization") {
			t.Fatalf("LocDir = %q", m.LocDir)
		}
		if m.SourceLanguage != "german" {
			t.Fatalf("SourceLanguage = %q, want the most common token", m.SourceLanguage)
		}
	})

	t.Run("bare directory falls back", func(t *testing.T) {
		dir := t.TempDir()
		m := Detect(dir)
		if m.Name != filepath.Base(dir) || m.Version != "0.0.0" || m.LocDir != dir {
			t.Fatalf("Detect() = %+v", m)
		}
		if m.SourceLanguage != "english" || len(m.Languages) != 0 {
			t.Fatalf("languages = %q, %v", m.SourceLanguage, m.Languages)
		}
	})
}

func TestPickSourcePrefersDefaultOnTie(t *testing.T) {
	got := pickSource(map[string]int{"french": 2, "english": 2, "braz_por": 2})
	if got != "english" {
		t.Fatalf("pickSource() = %q, want english", got)
	}
	got = pickSource(map[string]int{"french": 2, "braz_por": 2})
	if got != "braz_por" {
		t.Fatalf("pickSource() = %q, want braz_por", got)
	}
}

// ---------------------------------------------------------------------------
// .remis.yaml
// ---------------------------------------------------------------------------

func TestLoadRemisFileMissing(t *testing.T) {
	rf, err := LoadRemisFile(t.TempDir())
	if err != nil || rf != nil {
		t.Fatalf("LoadRemisFile(empty dir) = %v, %v; want nil, nil", rf, err)
	}
}

func TestLoadRemisFileDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, RemisFileName), `
projects:
  - id: floods
    source_path: mods/floods/localization
`)
	rf, err := LoadRemisFile(dir)
	if err != nil {
		t.Fatalf("LoadRemisFile: %v", err)
	}
	if rf.Backend != BackendLocal || rf.Timeout != DefaultTimeout || rf.DraftDelay != DefaultDraftDelay {
		t.Fatalf("defaults not applied: %+v", rf)
	}
	if rf.DefaultGame != DefaultGame {
		t.Fatalf("DefaultGame = %q", rf.DefaultGame)
	}
	if rf.Store.Driver != session.DriverFile || rf.StorePath() != filepath.Join(dir, session.FileName) {
		t.Fatalf("store = %+v, path %q", rf.Store, rf.StorePath())
	}

	projects := rf.ResolvedProjects()
	p := projects[0]
	if p.Name != "floods" || p.SourceLanguage != "english" {
		t.Fatalf("project defaults = %+v", p)
	}
	if p.SourcePath != filepath.Join(dir, "mods", "floods", "localization") {
		t.Fatalf("SourcePath = %q", p.SourcePath)
	}
	if rf.Projects[0].SourcePath != "mods/floods/localization" {
		t.Fatalf("ResolvedProjects modified the file's projects")
	}
}

func TestLoadRemisFileFull(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, RemisFileName), `
backend: HTTP
base_url: http://127.0.0.1:8000
timeout: 5s
draft_delay: 1s
default_game: hoi4
store:
  driver: sqlite
  path: /var/tmp/remis.db
`)
	rf, err := LoadRemisFile(dir)
	if err != nil {
		t.Fatalf("LoadRemisFile: %v", err)
	}
	if rf.Backend != BackendHTTP || rf.BaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("backend = %q %q", rf.Backend, rf.BaseURL)
	}
	if rf.Timeout != 5*time.Second || rf.DraftDelay != time.Second || rf.DefaultGame != "hoi4" {
		t.Fatalf("values = %+v", rf)
	}
	if rf.StorePath() != "/var/tmp/remis.db" {
		t.Fatalf("StorePath() = %q", rf.StorePath())
	}
}

func TestLoadRemisFileErrors(t *testing.T) {
	cases := []struct {
		name, yaml, want string
	}{
		{"http without url", "backend: http\n", "needs base_url"},
		{"local without projects", "backend: local\n", "at least one project"},
		{"unknown backend", "backend: ftp\nprojects: [{id: a}]\n", "unknown"},
		{"unknown driver", "store: {driver: redis}\nprojects: [{id: a}]\n", "store driver"},
		{"missing id", "projects: [{name: x}]\n", "has no id"},
		{"duplicate id", "projects: [{id: a}, {id: a}]\n", "declared twice"},
		{"negative timeout", "timeout: -1s\nprojects: [{id: a}]\n", "timeout"},
		{"bad yaml", "projects: [\n", "parsing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, RemisFileName), tc.yaml)
			_, err := LoadRemisFile(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadFallsBackToDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "descriptor.mod"), `name="Detected"`)
	writeFile(t, filepath.Join(dir, "localisation", "x_l_english.yml"), "l_english:\n")

	rf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rf.Backend != BackendLocal || len(rf.Projects) != 1 {
		t.Fatalf("Load() = %+v", rf)
	}
	p := rf.ResolvedProjects()[0]
	if p.ProjectID != "local" || p.Name != "Detected" || p.SourcePath != filepath.Join(dir, "localisation") {
		t.Fatalf("project = %+v", p)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, RemisFileName), "store: {driver: memory}\nprojects: [{id: a}]\n")
	rf, err := LoadRemisFile(dir)
	if err != nil {
		t.Fatalf("LoadRemisFile: %v", err)
	}
	if rf.StorePath() != "" {
		t.Fatalf("memory store has a path: %q", rf.StorePath())
	}
	s, err := rf.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*session.MemoryStore); !ok {
		t.Fatalf("OpenStore() = %T", s)
	}
}
