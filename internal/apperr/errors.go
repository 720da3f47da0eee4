// Package apperr defines the error kinds shared across the preview server.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoActiveEditor = errors.New("no active editor found")
	ErrWrongFileName  = errors.New("wrong file name")
	ErrNoPanel        = errors.New("no preview panel")
	ErrStaleDocument  = errors.New("document changed")
	ErrRead           = errors.New("read failed")
	ErrParse          = errors.New("parse failed")
)
