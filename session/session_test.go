package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := OpenFileStore(filepath.Join(dir, "state", "session.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	sqliteStore, err := OpenSQLiteStore(filepath.Join(dir, "db", "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	stores := map[string]Store{
		DriverMemory: NewMemoryStore(),
		DriverFile:   fileStore,
		DriverSQLite: sqliteStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, s := range openAll(t) {
		if _, ok, err := s.Get("missing"); ok || err != nil {
			t.Fatalf("%s: Get(missing) = %v, %v", name, ok, err)
		}
		if err := s.Set("k", "v1"); err != nil {
			t.Fatalf("%s: Set: %v", name, err)
		}
		if err := s.Set("k", "v2"); err != nil {
			t.Fatalf("%s: Set overwrite: %v", name, err)
		}
		if v, ok, err := s.Get("k"); !ok || err != nil || v != "v2" {
			t.Fatalf("%s: Get(k) = %q, %v, %v", name, v, ok, err)
		}
		if err := s.Delete("k"); err != nil {
			t.Fatalf("%s: Delete: %v", name, err)
		}
		if err := s.Delete("k"); err != nil {
			t.Fatalf("%s: Delete missing: %v", name, err)
		}
		if _, ok, _ := s.Get("k"); ok {
			t.Fatalf("%s: key survived Delete", name)
		}
	}
}

func TestStore_Closed(t *testing.T) {
	for name, s := range openAll(t) {
		if err := s.Close(); err != nil {
			t.Fatalf("%s: Close: %v", name, err)
		}
		if _, _, err := s.Get("k"); !errors.Is(err, ErrClosed) {
			t.Fatalf("%s: Get after Close = %v, want ErrClosed", name, err)
		}
		if err := s.Set("k", "v"); !errors.Is(err, ErrClosed) {
			t.Fatalf("%s: Set after Close = %v, want ErrClosed", name, err)
		}
	}
}

func TestFileStore_Persists(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if s.Path() != filepath.Join(dir, FileName) {
		t.Fatalf("Path() = %q", s.Path())
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatalf("file created before first write")
	}
	if err := s.Set(ProjectFilterKey, "active"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	again, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok, _ := again.Get(ProjectFilterKey); !ok || v != "active" {
		t.Fatalf("reopened value = %q, %v", v, ok)
	}
	if keys := again.Keys(); len(keys) != 1 || keys[0] != ProjectFilterKey {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestFileStore_FailedWriteIsUndone(t *testing.T) {
	sub := filepath.Join(t.TempDir(), "sub")
	s, err := OpenFileStore(filepath.Join(sub, FileName))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a regular file where the store's directory was makes every write fail
	if err := os.RemoveAll(sub); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sub, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Set("a", "2"); err == nil {
		t.Fatalf("Set succeeded without a writable directory")
	}
	if err := s.Set("b", "new"); err == nil {
		t.Fatalf("Set(b) succeeded without a writable directory")
	}
	if err := s.Delete("a"); err == nil {
		t.Fatalf("Delete succeeded without a writable directory")
	}
	if v, ok, _ := s.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v; want the last saved value", v, ok)
	}
	if _, ok, _ := s.Get("b"); ok {
		t.Fatalf("failed Set(b) left a value behind")
	}
}

func TestFileStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	for _, v := range []string{"1", "2", "3"} {
		if err := s.Set("k", v); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != FileName {
		t.Fatalf("directory holds %v, want only %s", entries, FileName)
	}
}

func TestFileStore_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("version: 9\nvalues: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileStore(path); err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("OpenFileStore() error = %v, want version error", err)
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if v, ok, _ := again.Get("a"); !ok || v != "1" {
		t.Fatalf("reopened value = %q, %v", v, ok)
	}
}

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range Drivers() {
		s, err := Open(driver, filepath.Join(dir, driver+".store"))
		if err != nil {
			t.Fatalf("Open(%s): %v", driver, err)
		}
		s.Close()
	}
	if _, err := Open("redis", ""); err == nil {
		t.Fatalf("Open(redis) should fail")
	}
}

func TestDrafts(t *testing.T) {
	s := NewMemoryStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := LoadDraft(s, "p1", "f1"); ok || err != nil {
		t.Fatalf("LoadDraft on empty store = %v, %v", ok, err)
	}
	d := Draft{ProjectID: "p1", FileID: "f1", Content: "a:0 \"x\"\n", Timestamp: ts}
	if err := SaveDraft(s, d); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	got, ok, err := LoadDraft(s, "p1", "f1")
	if err != nil || !ok {
		t.Fatalf("LoadDraft = %v, %v", ok, err)
	}
	if got.Content != d.Content || !got.Timestamp.Equal(ts) {
		t.Fatalf("LoadDraft = %+v", got)
	}
	if _, ok, _ := LoadDraft(s, "p1", "f2"); ok {
		t.Fatalf("draft leaked to another file")
	}
	if err := ClearDraft(s, "p1", "f1"); err != nil {
		t.Fatalf("ClearDraft: %v", err)
	}
	if _, ok, _ := LoadDraft(s, "p1", "f1"); ok {
		t.Fatalf("draft survived ClearDraft")
	}
}

func TestDraft_MismatchedPayloadIgnored(t *testing.T) {
	s := NewMemoryStore()
	s.Set(DraftKey("p1", "f1"), `{"project_id":"p9","file_id":"f1","content":"x"}`)
	if _, ok, err := LoadDraft(s, "p1", "f1"); ok || err != nil {
		t.Fatalf("LoadDraft = %v, %v; want ignored", ok, err)
	}
	s.Set(DraftKey("p1", "f2"), "not json")
	if _, _, err := LoadDraft(s, "p1", "f2"); err == nil {
		t.Fatalf("LoadDraft on garbage should fail")
	}
}

func TestSelection(t *testing.T) {
	s := NewMemoryStore()
	if _, ok, _ := LoadSelection(s); ok {
		t.Fatalf("empty store has a selection")
	}
	if err := SaveSelection(s, Selection{ProjectID: "p", FileID: "f"}); err != nil {
		t.Fatalf("SaveSelection: %v", err)
	}
	sel, ok, err := LoadSelection(s)
	if err != nil || !ok || sel.ProjectID != "p" || sel.FileID != "f" {
		t.Fatalf("LoadSelection = %+v, %v, %v", sel, ok, err)
	}
}
