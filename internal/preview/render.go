// Package preview turns sitedog.yml content into panel documents and owns
// the lifecycle of the single preview panel.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/goccy/go-yaml"

	"github.com/sitedog/preview/internal/apperr"
)

// Default remote assets. The card layout itself lives in renderCards.js.
const (
	DefaultTitle           = "SiteDog Preview"
	DefaultStylesheetURL   = "https://sitedog.io/css/preview.css"
	DefaultYAMLScriptURL   = "https://cdnjs.cloudflare.com/ajax/libs/js-yaml/4.1.0/js-yaml.min.js"
	DefaultRenderScriptURL = "https://sitedog.io/js/renderCards.js"
)

// Assets configures the rendered documents.
type Assets struct {
	Title           string
	StylesheetURL   string
	YAMLScriptURL   string
	RenderScriptURL string
}

// DefaultAssets returns the sitedog.io assets.
func DefaultAssets() Assets {
	return Assets{
		Title:           DefaultTitle,
		StylesheetURL:   DefaultStylesheetURL,
		YAMLScriptURL:   DefaultYAMLScriptURL,
		RenderScriptURL: DefaultRenderScriptURL,
	}
}

// Kind classifies a render result.
type Kind string

const (
	KindCards      Kind = "cards"
	KindParseError Kind = "parse_error"
	KindReadError  Kind = "read_error"
)

// Result is one fully rendered panel document.
type Result struct {
	Kind Kind
	HTML string
	Err  error
}

// Renderer produces the cards and error documents.
type Renderer struct {
	assets Assets
}

// NewRenderer creates a renderer; empty asset fields fall back to defaults.
func NewRenderer(assets Assets) *Renderer {
	def := DefaultAssets()
	if assets.Title == "" {
		assets.Title = def.Title
	}
	if assets.StylesheetURL == "" {
		assets.StylesheetURL = def.StylesheetURL
	}
	if assets.YAMLScriptURL == "" {
		assets.YAMLScriptURL = def.YAMLScriptURL
	}
	if assets.RenderScriptURL == "" {
		assets.RenderScriptURL = def.RenderScriptURL
	}
	return &Renderer{assets: assets}
}

// ParseError reports text that is not valid YAML.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string { return "yaml: " + e.Detail }

// Unwrap lets errors.Is match apperr.ErrParse.
func (e *ParseError) Unwrap() error { return apperr.ErrParse }

// Validate parses text as YAML and discards the result.
func Validate(text string) error {
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return &ParseError{Detail: yaml.FormatError(err, false, true)}
	}
	return nil
}

// Render validates text and returns the cards document, or the error
// document when text is not valid YAML.
func (r *Renderer) Render(text string) Result {
	if err := Validate(text); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return r.errorResult(KindParseError, "YAML Error: "+pe.Detail, err)
		}
		return r.errorResult(KindParseError, "YAML Error: "+err.Error(), err)
	}

	var buf bytes.Buffer
	err := cardsTemplate.Execute(&buf, struct {
		Assets
		YAML string
	}{r.assets, text})
	if err != nil {
		return r.errorResult(KindParseError, "Render Error: "+err.Error(), err)
	}
	return Result{Kind: KindCards, HTML: buf.String()}
}

// RenderReadError returns the error document for a failed file read.
func (r *Renderer) RenderReadError(err error) Result {
	return r.errorResult(KindReadError, "Error reading file: "+err.Error(), fmt.Errorf("%w: %w", apperr.ErrRead, err))
}

// RenderError returns an error document showing message.
func (r *Renderer) RenderError(message string) string {
	var buf bytes.Buffer
	if err := errorTemplate.Execute(&buf, struct {
		Title   string
		Message string
	}{r.assets.Title, message}); err != nil {
		return template.HTMLEscapeString(message)
	}
	return buf.String()
}

func (r *Renderer) errorResult(kind Kind, message string, err error) Result {
	return Result{Kind: kind, HTML: r.RenderError(message), Err: err}
}
