package locfile

import (
	"strings"
	"unicode/utf8"

	"github.com/remis-mod/remis/langmeta"
)

// Parsed is one decoded `key:version "value"` unit.
type Parsed struct {
	// Key is "base:version", or "base" when the version is empty.
	Key string
	// Base is the key without the version.
	Base string
	// Version is the digit string after the colon, possibly empty.
	Version string
	// Value is the raw quoted body; escapes are kept as written.
	Value string

	// Line is the 1-based line the key is on.
	Line int
	// valueStart and valueEnd delimit Value in the scanned text.
	valueStart, valueEnd int
}

// The scanner below accepts exactly what the multiline pattern
//
//	^\s*([\w.-]+)\s*:\s*(\d*)\s*"((?:[^"\\]|\\.)*)"
//
// accepts under ECMAScript semantics: attempts start at line starts only,
// whitespace runs may cross line breaks, a quoted body may span lines, and
// a backslash escapes any character except a line terminator.
//
// Adjacent groups of the pattern never share a first character, so every
// attempt is decided in one forward pass with no backtracking. A failed
// body ends before any later opening quote (the character before an
// opening quote is never a backslash), so body scans never overlap, and a
// failed attempt resumes after its leading whitespace run. The scan is
// linear in the length of the text.

type scanner struct {
	text    string
	headers []string
	// line tracking for Parsed.Line
	lineAt  int
	lineNum int
}

func newScanner(text string) *scanner {
	return &scanner{text: text, headers: langmeta.Headers(), lineNum: 1}
}

// isSpace reports ECMAScript \s membership.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == 0x2028 || r == 0x2029
}

func isKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.' || c == '-'
}

func (s *scanner) skipSpace(i int) int {
	for i < len(s.text) {
		r, size := utf8.DecodeRuneInString(s.text[i:])
		if !isSpace(r) {
			break
		}
		i += size
	}
	return i
}

// atLineStart reports whether ^ matches at i in multiline mode.
func (s *scanner) atLineStart(i int) bool {
	if i == 0 {
		return true
	}
	if c := s.text[i-1]; c == '\n' || c == '\r' {
		return true
	}
	if i >= 3 {
		r, _ := utf8.DecodeLastRuneInString(s.text[:i])
		return r == 0x2028 || r == 0x2029
	}
	return false
}

// nextLineStart returns the first offset >= i where ^ matches, or -1.
func (s *scanner) nextLineStart(i int) int {
	if i > len(s.text) {
		return -1
	}
	if s.atLineStart(i) {
		return i
	}
	for i < len(s.text) {
		r, size := utf8.DecodeRuneInString(s.text[i:])
		i += size
		if isLineTerminator(r) {
			return i
		}
	}
	return -1
}

// head matches `\s*([\w.-]+)\s*:\s*(\d*)\s*"` at i. It returns the key
// parts and the offset just past the opening quote. keyAt, the offset
// after the leading whitespace, is set even when the match fails.
func (s *scanner) head(i int) (base, version string, keyAt, next int, ok bool) {
	t := s.text
	i = s.skipSpace(i)
	keyAt = i
	for i < len(t) && isKeyByte(t[i]) {
		i++
	}
	if i == keyAt {
		return "", "", keyAt, 0, false
	}
	base = t[keyAt:i]

	i = s.skipSpace(i)
	if i >= len(t) || t[i] != ':' {
		return "", "", keyAt, 0, false
	}
	i = s.skipSpace(i + 1)

	verAt := i
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	version = t[verAt:i]

	i = s.skipSpace(i)
	if i >= len(t) || t[i] != '"' {
		return "", "", keyAt, 0, false
	}
	return base, version, keyAt, i + 1, true
}

// body matches `(?:[^"\\]|\\.)*"` at i and returns the offset of the
// closing quote.
func (s *scanner) body(i int) (int, bool) {
	t := s.text
	for {
		if i >= len(t) {
			return 0, false
		}
		switch t[i] {
		case '"':
			return i, true
		case '\\':
			if i+1 >= len(t) {
				return 0, false
			}
			r, size := utf8.DecodeRuneInString(t[i+1:])
			if isLineTerminator(r) {
				return 0, false
			}
			i += 1 + size
		default:
			// Continuation bytes of a multi-byte rune are never '"' or '\\',
			// so stepping byte-wise is equivalent to stepping by rune.
			i++
		}
	}
}

func (s *scanner) isHeader(base string) bool {
	for _, h := range s.headers {
		if strings.HasPrefix(base, h) {
			return true
		}
	}
	return false
}

// line returns the 1-based line number of offset i. Offsets must be
// requested in increasing order.
func (s *scanner) line(i int) int {
	for s.lineAt < i {
		if s.text[s.lineAt] == '\n' {
			s.lineNum++
		}
		s.lineAt++
	}
	return s.lineNum
}

// scan walks all matches. With headOnly set it stops each match after
// the opening quote, which is what key-set extraction needs.
func (s *scanner) scan(headOnly bool, emit func(Parsed)) {
	for pos := 0; pos >= 0 && pos <= len(s.text); {
		if !s.atLineStart(pos) {
			pos = s.nextLineStart(pos)
			continue
		}
		base, version, keyAt, next, ok := s.head(pos)
		if !ok {
			// Line starts inside the leading whitespace run would reach
			// the same keyAt and fail the same way.
			pos = s.nextLineStart(max(pos, keyAt) + 1)
			continue
		}

		end := next
		valueEnd := -1
		if !headOnly {
			closing, ok := s.body(next)
			if !ok {
				pos = s.nextLineStart(pos + 1)
				continue
			}
			valueEnd = closing
			end = closing + 1
		}

		if !s.isHeader(base) {
			key := base
			if version != "" {
				key = base + ":" + version
			}
			p := Parsed{Key: key, Base: base, Version: version, Line: s.line(keyAt)}
			if valueEnd >= 0 {
				p.Value = s.text[next:valueEnd]
				p.valueStart, p.valueEnd = next, valueEnd
			}
			emit(p)
		}
		pos = end
	}
}
