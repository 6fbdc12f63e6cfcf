package locfile

import (
	"strings"

	"github.com/remis-mod/remis/project"
)

// WrapWidth is the column width of the editor's wrap model.
const WrapWidth = 60

// Triple holds the three synchronized editor panes.
type Triple struct {
	Original string
	AI       string
	Final    string
}

// CalcLines returns how many visual lines text occupies in the wrap
// model. Runes up to U+00FF take one column, all others two.
func CalcLines(text string) int {
	if text == "" {
		return 1
	}
	cols := 0
	for _, r := range text {
		if r > 0xff {
			cols += 2
		} else {
			cols++
		}
	}
	lines := (cols + WrapWidth - 1) / WrapWidth
	if lines < 1 {
		return 1
	}
	return lines
}

// HasVersion reports whether key ends in ":<digits>" after a non-empty
// base.
func HasVersion(key string) bool {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 || i == len(key)-1 {
		return false
	}
	for _, c := range key[i+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SerializedKey returns key as an entry line writes it: unchanged when
// it carries a version, with ":0" appended otherwise.
func SerializedKey(key string) string {
	if HasVersion(key) {
		return key
	}
	return key + ":0"
}

// Serialize renders one entry line without a trailing newline. Keys
// without a version get ":0" so every line has the same shape.
func Serialize(key, text string) string {
	return SerializedKey(key) + ` "` + text + `"`
}

// Align renders entries into the three editor panes. For each entry the
// original and AI panes are padded with blank lines to the larger of the
// two wrapped heights, so the panes stay row-aligned entry by entry. The
// final pane is left unpadded. Padding lines carry no quoted segment and
// decode to nothing.
func Align(entries []project.Entry) Triple {
	var orig, ai, final strings.Builder
	for _, e := range entries {
		origLines := CalcLines(e.Original)
		aiLines := CalcLines(e.Translation)
		maxLines := max(origLines, aiLines)

		orig.WriteString(Serialize(e.Key, e.Original))
		orig.WriteString(strings.Repeat("\n", maxLines-origLines))
		orig.WriteByte('\n')

		ai.WriteString(Serialize(e.Key, e.Translation))
		ai.WriteString(strings.Repeat("\n", maxLines-aiLines))
		ai.WriteByte('\n')

		final.WriteString(Serialize(e.Key, e.Translation))
		final.WriteByte('\n')
	}
	return Triple{Original: orig.String(), AI: ai.String(), Final: final.String()}
}

// ParseEntries decodes edited text back into entries, in source order.
// Header lines ("l_english:" and friends) are skipped, unmatched lines
// produce nothing, and duplicate keys are kept.
func ParseEntries(text string) []Parsed {
	var out []Parsed
	newScanner(text).scan(false, func(p Parsed) {
		out = append(out, p)
	})
	return out
}

// Keys returns the keys implied by text, using only the key and the
// opening quote of each line. An unterminated value still yields its key.
func Keys(text string) []string {
	var out []string
	newScanner(text).scan(true, func(p Parsed) {
		out = append(out, p.Key)
	})
	return out
}

// ToSaveEntries converts decoded entries into a save payload.
func ToSaveEntries(parsed []Parsed) []project.SaveEntry {
	out := make([]project.SaveEntry, len(parsed))
	for i, p := range parsed {
		out[i] = project.SaveEntry{Key: p.Key, Translation: p.Value}
	}
	return out
}

// Render builds validation input from decoded entries, one
// ` key:0 "value"` line per entry.
func Render(parsed []Parsed) string {
	var b strings.Builder
	for _, p := range parsed {
		b.WriteByte(' ')
		b.WriteString(Serialize(p.Key, p.Value))
		b.WriteByte('\n')
	}
	return b.String()
}
