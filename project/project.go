// Package project defines the data model shared by the grouping, codec,
// proofreading and backend packages: project files, localisation entries,
// and the request/response shapes exchanged with a backend.
package project

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// FileType classifies a project file as original-language or translated.
type FileType string

const (
	FileTypeSource      FileType = "source"
	FileTypeTranslation FileType = "translation"
)

// Status is the kanban column a file sits in.
type Status string

const (
	StatusTodo         Status = "todo"
	StatusInProgress   Status = "in_progress"
	StatusProofreading Status = "proofreading"
	StatusPaused       Status = "paused"
	StatusDone         Status = "done"
)

// Statuses returns all statuses in board column order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusProofreading, StatusPaused, StatusDone}
}

// ParseStatus validates a status string. Matching ignores case and
// surrounding whitespace; "in-progress" is accepted for "in_progress".
func ParseStatus(s string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, st := range Statuses() {
		if string(st) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown file status %q", s)
}

// File is one file discovered in a project's translation directories.
type File struct {
	FileID    string   `json:"file_id" yaml:"file_id"`
	FilePath  string   `json:"file_path" yaml:"file_path"`
	FileType  FileType `json:"file_type" yaml:"file_type"`
	LineCount int      `json:"line_count" yaml:"line_count"`
	Status    Status   `json:"status" yaml:"status"`
}

// BaseName returns the last path element of FilePath. Both back and
// forward slashes are treated as separators, since backends may report
// Windows paths.
func (f File) BaseName() string {
	p := strings.ReplaceAll(f.FilePath, "\\", "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// Project is a mod translation project.
type Project struct {
	ProjectID      string `json:"project_id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	GameID         string `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	SourceLanguage string `json:"source_language,omitempty" yaml:"source_language,omitempty"`
	SourcePath     string `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Status         string `json:"status,omitempty" yaml:"status,omitempty"`
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Entry is one translatable unit. Key is "base:version" when the source
// line carries a numeric version, "base" otherwise.
type Entry struct {
	Key         string `json:"key"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	LineNumber  int    `json:"line_number,omitempty"`
}

// ProofreadData is what a backend returns for one file. When AIContent or
// FileContent is set, the editor uses it verbatim instead of rendering
// Entries.
type ProofreadData struct {
	FileID       string  `json:"file_id"`
	FilePath     string  `json:"file_path"`
	ModName      string  `json:"mod_name,omitempty"`
	Entries      []Entry `json:"entries"`
	FileContent  string  `json:"file_content,omitempty"`
	AIContent    string  `json:"ai_content,omitempty"`
	FinalContent string  `json:"final_content,omitempty"`
}

// SaveEntry is the per-key payload of a save.
type SaveEntry struct {
	Key         string `json:"key"`
	Translation string `json:"translation"`
}

// SaveRequest asks a backend to persist proofread translations.
type SaveRequest struct {
	ProjectID      string      `json:"project_id"`
	FileID         string      `json:"file_id"`
	Entries        []SaveEntry `json:"entries"`
	TargetLanguage string      `json:"target_language"`
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// IssueLevel is the severity of a validation issue.
type IssueLevel string

const (
	LevelError   IssueLevel = "error"
	LevelWarning IssueLevel = "warning"
)

// Issue is one finding reported by a localisation validator.
type Issue struct {
	Level   IssueLevel `json:"level"`
	Line    int        `json:"line,omitempty"`
	Key     string     `json:"key,omitempty"`
	Message string     `json:"message"`
}

// ValidateRequest is the input of a validation call.
type ValidateRequest struct {
	GameID         string `json:"game_id"`
	Content        string `json:"content"`
	SourceLangCode string `json:"source_lang_code"`
}

// CountIssues returns the number of errors and warnings in issues.
func CountIssues(issues []Issue) (errors, warnings int) {
	for _, is := range issues {
		switch is.Level {
		case LevelError:
			errors++
		case LevelWarning:
			warnings++
		}
	}
	return errors, warnings
}
