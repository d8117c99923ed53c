package settlement

import "strings"

// AppendNote adds note on its own line after existing notes, keeping what was there
func AppendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n" + note
}
