package proofread

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remis-mod/remis/backend"
	"github.com/remis-mod/remis/project"
)

// A mod whose keys carry no version must load without drift and save
// without acknowledgement.
func TestCoordinator_LocalUnversionedKeysDoNotDrift(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"localization/english/events_l_english.yml": "\ufeffl_english:\n title: \"Flood\"\n desc:0 \"Rises\"\n",
		"localization/french/events_l_french.yml":   "\ufeffl_french:\n title: \"Deluge\"\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	b, err := backend.NewLocal(backend.LocalOptions{Projects: []project.Project{
		{ProjectID: "mod", Name: "Mod", SourceLanguage: "english", SourcePath: root},
	}})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	c := New(b, Options{DraftDelay: -1})
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	if _, err := c.LoadProjects(ctx); err != nil {
		t.Fatalf("LoadProjects: %v", err)
	}
	if err := c.SelectProject(ctx, "mod"); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}

	final := c.Triple().Final
	if final != "title:0 \"Deluge\"\ndesc:0 \"Rises\"\n" {
		t.Fatalf("final pane = %q", final)
	}
	if c.Drift() {
		t.Fatalf("drift reported right after load")
	}

	c.SetFinal(strings.Replace(final, "Deluge", "Le Déluge", 1))
	if c.Drift() {
		t.Fatalf("text edit reported as drift")
	}
	if err := c.Save(ctx, false); err != nil {
		t.Fatalf("Save without acknowledgement: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(root, "localization", "french", "events_l_french.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(saved), "l_french:") || !strings.Contains(string(saved), "Le Déluge") {
		t.Fatalf("saved file = %q", saved)
	}
}
