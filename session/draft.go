package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known keys.
const (
	// SelectionKey holds the last selected project and file.
	SelectionKey = "proofread_selection"
	// ProjectFilterKey holds the project list filter.
	ProjectFilterKey = "proofread_project_filter"
	// DraftPrefix prefixes per-file draft keys.
	DraftPrefix = "remis_draft_cache"
	// StatusPrefix prefixes per-file kanban status keys.
	StatusPrefix = "remis_file_status"
)

// DraftKey returns the key of the draft for projectID/fileID.
func DraftKey(projectID, fileID string) string {
	return DraftPrefix + "/" + projectID + "/" + fileID
}

// StatusKey returns the key of the status for projectID/fileID.
func StatusKey(projectID, fileID string) string {
	return StatusPrefix + "/" + projectID + "/" + fileID
}

// ---------------------------------------------------------------------------
// Drafts
// ---------------------------------------------------------------------------

// Draft is an unsaved final-pane buffer.
type Draft struct {
	ProjectID string    `json:"project_id"`
	FileID    string    `json:"file_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveDraft stores d under its draft key.
func SaveDraft(s Store, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	return s.Set(DraftKey(d.ProjectID, d.FileID), string(data))
}

// LoadDraft returns the draft for projectID/fileID. ok is false when
// there is none. A stored draft for a different pair is ignored.
func LoadDraft(s Store, projectID, fileID string) (d Draft, ok bool, err error) {
	raw, found, err := s.Get(DraftKey(projectID, fileID))
	if err != nil || !found {
		return Draft{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Draft{}, false, fmt.Errorf("decoding draft: %w", err)
	}
	if d.ProjectID != projectID || d.FileID != fileID {
		return Draft{}, false, nil
	}
	return d, true, nil
}

// ClearDraft removes the draft for projectID/fileID.
func ClearDraft(s Store, projectID, fileID string) error {
	return s.Delete(DraftKey(projectID, fileID))
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// Selection is the persisted navigation state.
type Selection struct {
	ProjectID string `json:"project_id"`
	FileID    string `json:"file_id,omitempty"`
}

// SaveSelection stores sel under SelectionKey.
func SaveSelection(s Store, sel Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	return s.Set(SelectionKey, string(data))
}

// LoadSelection returns the persisted selection, if any.
func LoadSelection(s Store) (Selection, bool, error) {
	raw, found, err := s.Get(SelectionKey)
	if err != nil || !found {
		return Selection{}, false, err
	}
	var sel Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return Selection{}, false, fmt.Errorf("decoding selection: %w", err)
	}
	return sel, sel.ProjectID != "", nil
}
