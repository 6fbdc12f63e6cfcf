package locfile

import "github.com/remis-mod/remis/project"

// DetectDrift reports whether the key set implied by edited differs from
// the keys of original: any inserted, deleted or renamed key. Text-only
// edits never drift. Keys compare in their serialized shape, so an
// unversioned "k" and "k:0" are the same key.
func DetectDrift(edited string, original []project.Entry) bool {
	current := make(map[string]struct{})
	newScanner(edited).scan(true, func(p Parsed) {
		current[SerializedKey(p.Key)] = struct{}{}
	})

	known := make(map[string]struct{}, len(original))
	for _, e := range original {
		known[SerializedKey(e.Key)] = struct{}{}
	}

	// Equal size plus current ⊆ known implies equality.
	if len(current) != len(known) {
		return true
	}
	for k := range current {
		if _, ok := known[k]; !ok {
			return true
		}
	}
	return false
}
