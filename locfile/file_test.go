package locfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const sample = "\ufeffl_english:\n" +
	" title:0 \"The Great Flood\"\n" +
	" desc:1 \"Water rises\" # keep me\n" +
	" name:0 \"name\"\n" +
	" var:0 \"$COUNTRY$\"\n" +
	" empty:0 \"\"\n" +
	" title:0 \"shadowed\"\n"

func TestParse_Header(t *testing.T) {
	f := Parse([]byte(sample))
	if f.Language() != "english" {
		t.Fatalf("Language() = %q, want english", f.Language())
	}
	if f.Text()[0] != 'l' {
		t.Fatalf("Text() still carries the byte order mark")
	}
	if got := len(f.Entries()); got != 6 {
		t.Fatalf("Entries() = %d, want 6", got)
	}
	keys := f.Keys()
	if len(keys) != 5 || keys[0] != "title:0" || keys[4] != "empty:0" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestGet_VersionFallback(t *testing.T) {
	f := Parse([]byte("l_french:\n a:0 \"A\"\n b: \"B\"\n"))
	cases := map[string]string{"a:0": "A", "a": "A", "b": "B", "b:3": "B"}
	for key, want := range cases {
		got, ok := f.Get(key)
		if !ok || got != want {
			t.Fatalf("Get(%q) = %q, %v; want %q", key, got, ok, want)
		}
	}
	if _, ok := f.Get("missing"); ok {
		t.Fatalf("Get(missing) should fail")
	}
}

func TestTranslatable(t *testing.T) {
	got := Parse([]byte(sample)).Translatable()
	if len(got) != 2 {
		t.Fatalf("Translatable() = %+v, want 2 entries", got)
	}
	if got[0].Key != "title:0" || got[0].Original != "The Great Flood" || got[0].LineNumber != 2 {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[1].Key != "desc:1" {
		t.Fatalf("second entry = %+v", got[1])
	}
}

func TestSetAndMarshal_PreservesLayout(t *testing.T) {
	f := Parse([]byte(sample))
	if !f.Set("desc:1", "L'eau monte") {
		t.Fatalf("Set(desc:1) = false")
	}
	if f.Set("nope:0", "x") {
		t.Fatalf("Set(nope:0) = true")
	}
	f.SetLanguage("french")

	out := f.Marshal()
	if !bytes.HasPrefix(out, bom) {
		t.Fatalf("Marshal() dropped the byte order mark")
	}
	want := "l_french:\n" +
		" title:0 \"The Great Flood\"\n" +
		" desc:1 \"L'eau monte\" # keep me\n" +
		" name:0 \"name\"\n" +
		" var:0 \"$COUNTRY$\"\n" +
		" empty:0 \"\"\n" +
		" title:0 \"shadowed\"\n"
	if got := string(out[len(bom):]); got != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", got, want)
	}
}

func TestSetLanguage_LongerToken(t *testing.T) {
	f := Parse([]byte("l_english:\n a:0 \"A\"\n"))
	f.SetLanguage("simp_chinese")
	f.Set("a:0", "甲")
	if got := string(f.Marshal()); got != "l_simp_chinese:\n a:0 \"甲\"\n" {
		t.Fatalf("Marshal() = %q", got)
	}
}

func TestSetLanguage_AddsMissingHeader(t *testing.T) {
	f := Parse([]byte(" a:0 \"A\"\n"))
	f.SetLanguage("german")
	f.Set("a:0", "Ä")
	if f.Language() != "german" {
		t.Fatalf("Language() = %q", f.Language())
	}
	if got := string(f.Marshal()); got != "l_german:\n a:0 \"Ä\"\n" {
		t.Fatalf("Marshal() = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localization", "french", "mod_l_french.yml")
	f := Parse([]byte("l_french:\n a:0 \"A\"\n"))
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, bom) {
		t.Fatalf("written file has no byte order mark")
	}
	back, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if v, _ := back.Get("a:0"); v != "A" {
		t.Fatalf("round trip value = %q", v)
	}
	if StripBOM(data) != "l_french:\n a:0 \"A\"\n" {
		t.Fatalf("StripBOM() = %q", StripBOM(data))
	}
}
