package index

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/michele-orsini-71/minerva/internal/chunk"
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// noteJSON mirrors spec §3's Note schema for decoding. Extra extractor
// fields are accepted and silently dropped, per §3's "arbitrary extra
// fields preserved but not required".
type noteJSON struct {
	Title            string `json:"title"`
	Markdown         string `json:"markdown"`
	Size             int    `json:"size"`
	ModificationDate string `json:"modificationDate"`
	CreationDate     string `json:"creationDate"`
}

// LoadNotes reads and schema-validates the notes JSON file an extractor
// produced (spec §6), returning field-precise errors on the first
// malformed note.
func LoadNotes(path string) ([]*chunk.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, minerrors.ValidationError(fmt.Sprintf("read notes file %s: %v", path, err), err).
			WithDetail("file", path)
	}

	var raw []noteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, minerrors.ValidationError(fmt.Sprintf("notes file %s is not a JSON array of notes: %v", path, err), err).
			WithDetail("file", path)
	}

	notes := make([]*chunk.Note, 0, len(raw))
	for i, n := range raw {
		if err := validateNote(i, n); err != nil {
			return nil, err
		}
		notes = append(notes, &chunk.Note{
			Title:            n.Title,
			Markdown:         n.Markdown,
			Size:             n.Size,
			ModificationDate: n.ModificationDate,
			CreationDate:     n.CreationDate,
		})
	}
	return notes, nil
}

func validateNote(index int, n noteJSON) error {
	field := func(name string) string { return fmt.Sprintf("notes[%d].%s", index, name) }

	if n.Title == "" {
		return minerrors.ValidationError("title is required and must be non-empty", nil).
			WithDetail("field", field("title"))
	}
	if n.Size < 0 {
		return minerrors.ValidationError("size must be non-negative", nil).
			WithDetail("field", field("size"))
	}
	if n.ModificationDate == "" {
		return minerrors.ValidationError("modificationDate is required", nil).
			WithDetail("field", field("modificationDate"))
	}
	if _, err := parseISO8601UTC(n.ModificationDate); err != nil {
		return minerrors.ValidationError("modificationDate must be an ISO-8601 UTC timestamp with a trailing Z", err).
			WithDetail("field", field("modificationDate")).
			WithDetail("value", n.ModificationDate)
	}
	return nil
}

// parseISO8601UTC parses spec §3's modificationDate format: an RFC3339
// timestamp ending in the literal "Z" offset, not just any RFC3339 offset.
func parseISO8601UTC(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("missing trailing Z offset")
	}
	return time.Parse(time.RFC3339, s)
}
