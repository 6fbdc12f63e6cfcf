package locfile

import (
	"fmt"
	"strings"

	"github.com/remis-mod/remis/project"
)

// Validate runs the built-in localisation checks over content:
//
//   - lines that look like entries but do not parse (error)
//   - duplicate keys (warning)
//   - an odd number of unescaped '$' in a value (error)
//   - unbalanced '[' and ']' in a value (warning)
//   - '§' colour codes that are opened but never closed with "§!" (warning)
//
// Header and comment lines are ignored.
func Validate(content string) []project.Issue {
	var issues []project.Issue
	seen := make(map[string]int)

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || headerPattern.MatchString(line) {
			continue
		}

		parsed := ParseEntries(line)
		if len(parsed) == 0 {
			issues = append(issues, project.Issue{
				Level:   project.LevelError,
				Line:    lineNo,
				Message: fmt.Sprintf("malformed entry: %s", truncate(trimmed, 60)),
			})
			continue
		}

		for _, p := range parsed {
			if first, dup := seen[p.Key]; dup {
				issues = append(issues, project.Issue{
					Level:   project.LevelWarning,
					Line:    lineNo,
					Key:     p.Key,
					Message: fmt.Sprintf("duplicate key (first defined on line %d)", first),
				})
			} else {
				seen[p.Key] = lineNo
			}
			issues = append(issues, checkValue(lineNo, p)...)
		}
	}
	return issues
}

func checkValue(lineNo int, p Parsed) []project.Issue {
	var issues []project.Issue
	add := func(level project.IssueLevel, msg string) {
		issues = append(issues, project.Issue{Level: level, Line: lineNo, Key: p.Key, Message: msg})
	}

	if countUnescaped(p.Value, '$')%2 != 0 {
		add(project.LevelError, "unbalanced '$' variable reference")
	}
	if open, closed := strings.Count(p.Value, "["), strings.Count(p.Value, "]"); open != closed {
		add(project.LevelWarning, fmt.Sprintf("unbalanced brackets: %d '[' vs %d ']'", open, closed))
	}
	closes := strings.Count(p.Value, "§!")
	opens := strings.Count(p.Value, "§") - closes
	if opens > closes {
		add(project.LevelWarning, fmt.Sprintf("%d colour code(s) not closed with §!", opens-closes))
	}
	return issues
}

func countUnescaped(s string, c byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case c:
			n++
		}
	}
	return n
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
