// Package locfile implements Paradox localisation files and the editor
// text format derived from them.
//
// A localisation file has a language header followed by versioned,
// double-quoted entries:
//
//	l_english:
//	 event_title:0 "The Great Flood"
//	 event_desc:1 "Water rises over §Y[Province.GetName]§!."
//
// The same line shape is used for the flat text shown in the three-pane
// proofreading editor, so one scanner serves both. Files are written as
// UTF-8 with a byte order mark, which the games require.
package locfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/remis-mod/remis/project"
)

var bom = []byte{0xef, 0xbb, 0xbf}

// headerPattern matches the language header line.
var headerPattern = regexp.MustCompile(`(?m)^[ \t]*l_(\w+)[ \t]*:`)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// File is a parsed localisation file.
type File struct {
	// text is the file content without the byte order mark.
	text string
	// bom records whether the file started with a byte order mark.
	bom bool
	// language is the header token, e.g. "english"; empty if absent.
	language string
	// headerStart/headerEnd delimit the token in text.
	headerStart, headerEnd int
	// entries in document order, duplicates included.
	entries []Parsed
	// index maps key → first occurrence in entries.
	index map[string]int
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a localisation file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data), nil
}

// Parse parses localisation data. It never fails: lines that are not
// entries are kept verbatim and ignored.
func Parse(data []byte) *File {
	f := &File{index: make(map[string]int)}
	if bytes.HasPrefix(data, bom) {
		f.bom = true
		data = data[len(bom):]
	}
	f.text = string(data)

	if loc := headerPattern.FindStringSubmatchIndex(f.text); loc != nil {
		f.language = strings.ToLower(f.text[loc[2]:loc[3]])
		f.headerStart, f.headerEnd = loc[2], loc[3]
	}

	for _, p := range ParseEntries(f.text) {
		if _, dup := f.index[p.Key]; !dup {
			f.index[p.Key] = len(f.entries)
		}
		f.entries = append(f.entries, p)
	}
	return f
}

// StripBOM returns data as a string without a leading byte order mark.
func StripBOM(data []byte) string {
	return string(bytes.TrimPrefix(data, bom))
}

// ---------------------------------------------------------------------------
// Querying
// ---------------------------------------------------------------------------

// Language returns the header language token ("english"), or "".
func (f *File) Language() string {
	return f.language
}

// Text returns the file content without the byte order mark.
func (f *File) Text() string {
	return f.text
}

// Entries returns all entries in document order.
func (f *File) Entries() []Parsed {
	out := make([]Parsed, len(f.entries))
	copy(out, f.entries)
	return out
}

// Keys returns entry keys in document order, first occurrences only.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for i, e := range f.entries {
		if f.index[e.Key] == i {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Get returns the value for key. A versioned key falls back to its base
// and vice versa, since files disagree on whether versions are written.
func (f *File) Get(key string) (string, bool) {
	if idx, ok := f.lookup(key); ok {
		return f.entries[idx].Value, true
	}
	return "", false
}

func (f *File) lookup(key string) (int, bool) {
	if idx, ok := f.index[key]; ok {
		return idx, true
	}
	if HasVersion(key) {
		base := key[:strings.LastIndexByte(key, ':')]
		if idx, ok := f.index[base]; ok {
			return idx, true
		}
	}
	for i, e := range f.entries {
		if e.Base == key && f.index[e.Key] == i {
			return i, true
		}
	}
	return 0, false
}

// Set updates the value of the first entry with key. Returns false if
// the key is not in the file.
func (f *File) Set(key, value string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	f.entries[idx].Value = value
	return true
}

// Translatable returns the entries worth translating: first occurrences
// with a non-empty value that is neither the key itself nor a single
// "$variable$" reference.
func (f *File) Translatable() []project.Entry {
	var out []project.Entry
	for i, e := range f.entries {
		if f.index[e.Key] != i {
			continue
		}
		if e.Value == "" || e.Value == e.Key || e.Value == e.Base || isPureVariable(e.Value) {
			continue
		}
		out = append(out, project.Entry{Key: e.Key, Original: e.Value, LineNumber: e.Line})
	}
	return out
}

func isPureVariable(v string) bool {
	return len(v) >= 2 && strings.HasPrefix(v, "$") && strings.HasSuffix(v, "$") && strings.Count(v, "$") == 2
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// SetLanguage rewrites the header token. Files without a header get one
// prepended.
func (f *File) SetLanguage(token string) {
	if f.language == "" {
		header := "l_" + token + ":\n"
		f.text = header + f.text
		f.shift(len(header))
		f.headerStart, f.headerEnd = 2, 2+len(token)
		f.language = token
		return
	}
	delta := len(token) - (f.headerEnd - f.headerStart)
	f.text = f.text[:f.headerStart] + token + f.text[f.headerEnd:]
	f.headerEnd += delta
	for i := range f.entries {
		if f.entries[i].valueStart > f.headerStart {
			f.entries[i].valueStart += delta
			f.entries[i].valueEnd += delta
		}
	}
	f.language = token
}

func (f *File) shift(n int) {
	for i := range f.entries {
		f.entries[i].valueStart += n
		f.entries[i].valueEnd += n
	}
}

// Marshal renders the file with current values spliced into their
// original positions. Everything outside the quoted values is preserved.
func (f *File) Marshal() []byte {
	var b bytes.Buffer
	if f.bom {
		b.Write(bom)
	}
	last := 0
	for _, e := range f.entries {
		b.WriteString(f.text[last:e.valueStart])
		b.WriteString(e.Value)
		last = e.valueEnd
	}
	b.WriteString(f.text[last:])
	return b.Bytes()
}

// WriteFile writes the file as UTF-8 with a byte order mark.
func (f *File) WriteFile(path string) error {
	f.bom = true
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, f.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
