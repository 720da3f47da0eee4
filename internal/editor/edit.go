package editor

import (
	"fmt"
	"sort"
	"strings"
)

// TextEdit inserts NewText at Offset of the pre-edit text.
type TextEdit struct {
	Offset  int    `json:"offset"`
	NewText string `json:"new_text"`
}

// ApplyEdits applies all edits against the original text in one step.
// Offsets always refer to text as passed in, never to a partially edited
// result. Edits sharing an offset keep their relative order. If any offset
// is out of range nothing is applied.
func ApplyEdits(text string, edits []TextEdit) (string, error) {
	for _, e := range edits {
		if e.Offset < 0 || e.Offset > len(text) {
			return text, fmt.Errorf("edit offset %d out of range [0,%d]", e.Offset, len(text))
		}
	}
	if len(edits) == 0 {
		return text, nil
	}

	ordered := make([]TextEdit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Offset < ordered[j].Offset
	})

	var b strings.Builder
	grow := len(text)
	for _, e := range ordered {
		grow += len(e.NewText)
	}
	b.Grow(grow)

	last := 0
	for _, e := range ordered {
		b.WriteString(text[last:e.Offset])
		b.WriteString(e.NewText)
		last = e.Offset
	}
	b.WriteString(text[last:])
	return b.String(), nil
}
