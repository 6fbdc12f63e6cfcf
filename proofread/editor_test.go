package proofread

import (
	"strings"
	"testing"
	"time"

	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/session"
)

func testEntries() []project.Entry {
	return []project.Entry{
		{Key: "title:0", Original: "The Flood", Translation: "Le Déluge"},
		{Key: "desc:0", Original: "Water rises", Translation: "L'eau monte"},
	}
}

func loadInto(t *testing.T, e *Editor, data *project.ProofreadData) {
	t.Helper()
	tk := e.Begin("p", data.FileID)
	if ok, _ := e.Commit(tk, LoadResult{SourceText: "l_english:\n", Data: data}); !ok {
		t.Fatalf("Commit rejected a current ticket")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEditor_AlignsEntries(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})
	loadInto(t, e, &project.ProofreadData{FileID: "f", FilePath: "a.yml", Entries: testEntries()})

	tr := e.Triple()
	if tr.Original != "l_english:\n" {
		t.Fatalf("original pane = %q, want the raw source text", tr.Original)
	}
	want := "title:0 \"Le Déluge\"\ndesc:0 \"L'eau monte\"\n"
	if tr.AI != want || tr.Final != want {
		t.Fatalf("panes = %q / %q, want %q", tr.AI, tr.Final, want)
	}
	if e.Drift() {
		t.Fatalf("fresh load must not drift")
	}
	info, ok := e.Info()
	if !ok || info.FileID != "f" || info.ProjectID != "p" || info.Path != "a.yml" {
		t.Fatalf("Info() = %+v, %v", info, ok)
	}
}

func TestEditor_PreRenderedContentWins(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})

	// Pre-rendered text is used as is, even if it disagrees with the entries.
	loadInto(t, e, &project.ProofreadData{
		FileID:       "f",
		Entries:      testEntries(),
		AIContent:    "l_french:\n title:0 \"ai\"\n",
		FinalContent: "l_french:\n other:0 \"final\"\n",
	})
	tr := e.Triple()
	if tr.AI != "l_french:\n title:0 \"ai\"\n" || tr.Final != "l_french:\n other:0 \"final\"\n" {
		t.Fatalf("panes = %q / %q", tr.AI, tr.Final)
	}
	if !e.Drift() {
		t.Fatalf("final content with other keys should drift")
	}

	loadInto(t, e, &project.ProofreadData{FileID: "g", Entries: testEntries(), AIContent: "ai only"})
	if tr := e.Triple(); tr.Final != "ai only" {
		t.Fatalf("final pane without FinalContent = %q, want the AI content", tr.Final)
	}

	loadInto(t, e, &project.ProofreadData{FileID: "h", Entries: testEntries(), FileContent: "raw file"})
	if tr := e.Triple(); tr.AI != "raw file" || tr.Final != "raw file" {
		t.Fatalf("file content panes = %q / %q", tr.AI, tr.Final)
	}
}

func TestEditor_StaleLoadDiscarded(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})
	first := e.Begin("p", "a")
	second := e.Begin("p", "b")

	if ok, _ := e.Commit(first, LoadResult{Data: &project.ProofreadData{FileID: "a"}}); ok {
		t.Fatalf("superseded load was committed")
	}
	if !e.Loading() {
		t.Fatalf("editor stopped loading after a stale commit")
	}
	if e.Abort(first) {
		t.Fatalf("Abort of a superseded ticket reported current")
	}
	if ok, _ := e.Commit(second, LoadResult{Data: &project.ProofreadData{FileID: "b", Entries: testEntries()}}); !ok {
		t.Fatalf("current load was rejected")
	}
	if info, _ := e.Info(); info.FileID != "b" {
		t.Fatalf("loaded file = %q, want b", info.FileID)
	}
	if e.Loading() {
		t.Fatalf("still loading after commit")
	}
}

func TestEditor_ResetSupersedesLoad(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})
	tk := e.Begin("p", "a")
	e.Reset()
	if ok, _ := e.Commit(tk, LoadResult{Data: &project.ProofreadData{FileID: "a"}}); ok {
		t.Fatalf("load committed after Reset")
	}
	if _, ok := e.Info(); ok {
		t.Fatalf("Reset left a file loaded")
	}
}

func TestEditor_NilDataClearsFile(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})
	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})
	tk := e.Begin("p", "s")
	e.Commit(tk, LoadResult{SourceText: "src"})
	if _, ok := e.Info(); ok || len(e.Entries()) != 0 || e.Triple().Final != "" {
		t.Fatalf("nil data left state behind: %+v", e.Triple())
	}
}

func TestEditor_DriftTracking(t *testing.T) {
	e := NewEditor(EditorOptions{DraftDelay: -1})
	e.SetFinal("a:0 \"x\"\n")
	if e.Drift() {
		t.Fatalf("drift without loaded entries")
	}

	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})
	e.SetFinal(strings.Replace(e.Triple().Final, "Le Déluge", "Le Grand Déluge", 1))
	if e.Drift() {
		t.Fatalf("text edit flagged as drift")
	}
	e.SetFinal(strings.Replace(e.Triple().Final, "desc:0", "descr:0", 1))
	if !e.Drift() {
		t.Fatalf("renamed key not flagged")
	}
	e.SetFinal("")
	if e.Drift() {
		t.Fatalf("empty final pane flagged as drift")
	}
}

func TestEditor_DraftAutosave(t *testing.T) {
	store := session.NewMemoryStore()
	e := NewEditor(EditorOptions{Store: store, DraftDelay: 10 * time.Millisecond})
	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})

	e.SetFinal("first")
	e.SetFinal("second")
	waitFor(t, "draft", func() bool {
		d, ok, _ := session.LoadDraft(store, "p", "f")
		return ok && d.Content == "second"
	})
	e.Close()
}

func TestEditor_FlushWithoutAutosave(t *testing.T) {
	store := session.NewMemoryStore()
	e := NewEditor(EditorOptions{Store: store, DraftDelay: -1})
	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})

	e.SetFinal("edited")
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := session.LoadDraft(store, "p", "f"); ok {
		t.Fatalf("draft written with autosave off")
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if d, ok, _ := session.LoadDraft(store, "p", "f"); !ok || d.Content != "edited" {
		t.Fatalf("draft after Flush = %+v, %v", d, ok)
	}
}

func TestEditor_BeginFlushesPendingDraft(t *testing.T) {
	store := session.NewMemoryStore()
	e := NewEditor(EditorOptions{Store: store, DraftDelay: time.Hour})
	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})
	e.SetFinal("unsaved")

	e.Begin("p", "other")
	if d, ok, _ := session.LoadDraft(store, "p", "f"); !ok || d.Content != "unsaved" {
		t.Fatalf("switching files lost the pending draft: %+v, %v", d, ok)
	}
	e.Close()
}

func TestEditor_DraftRestoredOnLoad(t *testing.T) {
	store := session.NewMemoryStore()
	session.SaveDraft(store, session.Draft{ProjectID: "p", FileID: "f", Content: "from draft", Timestamp: time.Now()})

	e := NewEditor(EditorOptions{Store: store, DraftDelay: -1})
	tk := e.Begin("p", "f")
	ok, restored := e.Commit(tk, LoadResult{Data: &project.ProofreadData{FileID: "f", Entries: testEntries()}})
	if !ok || !restored {
		t.Fatalf("Commit = %v, %v; want restored draft", ok, restored)
	}
	if e.Triple().Final != "from draft" {
		t.Fatalf("final pane = %q", e.Triple().Final)
	}

	tk = e.Begin("p", "g")
	if _, restored := e.Commit(tk, LoadResult{Data: &project.ProofreadData{FileID: "g"}}); restored {
		t.Fatalf("draft of f restored into g")
	}
}

func TestEditor_SavedClearsDraft(t *testing.T) {
	store := session.NewMemoryStore()
	e := NewEditor(EditorOptions{Store: store, DraftDelay: -1})
	loadInto(t, e, &project.ProofreadData{FileID: "f", Entries: testEntries()})
	e.SetFinal("saved text")
	e.Flush()
	info, _ := e.Info()

	e.Saved(info, "older text")
	if _, ok, _ := session.LoadDraft(store, "p", "f"); !ok {
		t.Fatalf("draft dropped although the pane changed after the save")
	}

	e.Saved(info, "saved text")
	if _, ok, _ := session.LoadDraft(store, "p", "f"); ok {
		t.Fatalf("draft kept after a save of the current text")
	}
}
