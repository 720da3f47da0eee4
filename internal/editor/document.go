// Package editor models the host side of an editing session: open
// documents, text edits and the user-facing message/confirmation surface.
package editor

import (
	"path/filepath"
	"strings"
)

// Document is an open text document.
type Document struct {
	Path    string `json:"path"`
	Text    string `json:"text"`
	Version int    `json:"version"`
	Dirty   bool   `json:"dirty"`
}

// FileName returns the base name of the document path.
func (d *Document) FileName() string {
	return filepath.Base(filepath.FromSlash(d.Path))
}

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// PositionAt converts a byte offset into a Position. Offsets past the end
// are clamped to the end of the text.
func PositionAt(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	before := text[:offset]
	line := strings.Count(before, "\n")
	start := strings.LastIndexByte(before, '\n') + 1
	return Position{Line: line, Character: offset - start}
}

// LineEnd returns the offset just past the last character of the line that
// contains offset, excluding the line break, and the line break used by
// that line ("\r\n", "\n", or "" for the last line).
func LineEnd(text string, offset int) (int, string) {
	if offset > len(text) {
		offset = len(text)
	}
	i := strings.IndexByte(text[offset:], '\n')
	if i < 0 {
		return len(text), ""
	}
	end := offset + i
	if end > 0 && text[end-1] == '\r' {
		return end - 1, "\r\n"
	}
	return end, "\n"
}
