package editor

import (
	"fmt"
	"path"
	"sort"

	"github.com/sitedog/preview/internal/apperr"
)

// Buffers holds the open documents of a session and tracks which one is
// active. It is not safe for concurrent use; the session loop owns it.
type Buffers struct {
	docs   map[string]*Document
	active string
}

// NewBuffers returns an empty buffer set.
func NewBuffers() *Buffers {
	return &Buffers{docs: make(map[string]*Document)}
}

func normalize(p string) string {
	return path.Clean(p)
}

// Open registers a document with its on-disk text and makes it active. An
// already open document keeps its in-memory text.
func (b *Buffers) Open(p, text string) *Document {
	p = normalize(p)
	doc, ok := b.docs[p]
	if !ok {
		doc = &Document{Path: p, Text: text, Version: 1}
		b.docs[p] = doc
	}
	b.active = p
	return doc
}

// Get returns the open document at p.
func (b *Buffers) Get(p string) (*Document, error) {
	doc, ok := b.docs[normalize(p)]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", p, apperr.ErrNotFound)
	}
	return doc, nil
}

// Update replaces the text of an open document, as a live edit would.
func (b *Buffers) Update(p, text string) (*Document, error) {
	doc, err := b.Get(p)
	if err != nil {
		return nil, err
	}
	if doc.Text == text {
		return doc, nil
	}
	doc.Text = text
	doc.Version++
	doc.Dirty = true
	return doc, nil
}

// Sync reloads a clean document from disk content. Dirty documents are left
// untouched. It reports whether the text changed.
func (b *Buffers) Sync(p, text string) bool {
	doc, ok := b.docs[normalize(p)]
	if !ok || doc.Dirty || doc.Text == text {
		return false
	}
	doc.Text = text
	doc.Version++
	return true
}

// ApplyEdits applies edits computed against version to the document. The
// whole batch is rejected if the document moved past that version.
func (b *Buffers) ApplyEdits(p string, version int, edits []TextEdit) (*Document, error) {
	doc, err := b.Get(p)
	if err != nil {
		return nil, err
	}
	if doc.Version != version {
		return nil, fmt.Errorf("document %s at version %d, edits target %d: %w",
			doc.Path, doc.Version, version, apperr.ErrStaleDocument)
	}
	text, err := ApplyEdits(doc.Text, edits)
	if err != nil {
		return nil, err
	}
	if text != doc.Text {
		doc.Text = text
		doc.Version++
		doc.Dirty = true
	}
	return doc, nil
}

// MarkSaved clears the dirty flag.
func (b *Buffers) MarkSaved(p string) {
	if doc, ok := b.docs[normalize(p)]; ok {
		doc.Dirty = false
	}
}

// Activate makes an open document the active one.
func (b *Buffers) Activate(p string) (*Document, error) {
	doc, err := b.Get(p)
	if err != nil {
		return nil, err
	}
	b.active = doc.Path
	return doc, nil
}

// Active returns the active document, or nil when none is active.
func (b *Buffers) Active() *Document {
	if b.active == "" {
		return nil
	}
	return b.docs[b.active]
}

// Close forgets an open document.
func (b *Buffers) Close(p string) {
	p = normalize(p)
	delete(b.docs, p)
	if b.active == p {
		b.active = ""
	}
}

// Paths returns the paths of all open documents, sorted.
func (b *Buffers) Paths() []string {
	out := make([]string, 0, len(b.docs))
	for p := range b.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
