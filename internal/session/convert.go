package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/relativedate"
)

// ConvertResult reports a relative date conversion.
type ConvertResult struct {
	Path      string               `json:"path"`
	Found     int                  `json:"found"`
	Converted int                  `json:"converted"`
	Saved     bool                 `json:"saved"`
	Dates     []ConvertedDate      `json:"dates"`
	Version   int                  `json:"version"`
	Edits     []editor.TextEdit    `json:"-"`
	Matches   []relativedate.Match `json:"-"`
}

// ConvertedDate is one relative date and the absolute date it becomes.
type ConvertedDate struct {
	Line     int    `json:"line"`
	Relative string `json:"relative"`
	Date     string `json:"date"`
}

func newConvertResult(doc *editor.Document, text string, p relativedate.Proposal) ConvertResult {
	res := ConvertResult{
		Path:    doc.Path,
		Found:   p.Count(),
		Version: doc.Version,
		Edits:   p.Edits,
		Matches: p.Matches,
		Dates:   make([]ConvertedDate, 0, len(p.Matches)),
	}
	for _, m := range p.Matches {
		res.Dates = append(res.Dates, ConvertedDate{
			Line:     m.Position.Line + 1,
			Relative: text[m.Offset:m.End],
			Date:     m.Formatted(),
		})
	}
	return res
}

// ConvertRelativeDates replaces relative expiry dates in the document at
// path, or the active document, after the user confirms through prompter.
// The prompt runs outside the session loop; the edit is rejected when the
// document changed while the user was deciding. With save set the result is
// written to disk.
func (s *Session) ConvertRelativeDates(ctx context.Context, path string, prompter editor.Prompter, save bool) (ConvertResult, error) {
	var res ConvertResult
	err := s.exec(ctx, func() error {
		doc, err := s.resolve(path)
		if err != nil {
			return s.report(err)
		}
		res = newConvertResult(doc, doc.Text, relativedate.Propose(doc.Text, s.now()))
		if res.Found == 0 {
			editor.Info(s.notifier, "No relative dates found in the current document.")
		}
		return nil
	})
	if err != nil || res.Found == 0 {
		return res, err
	}

	msg := fmt.Sprintf("Found %d relative date(s). Convert to absolute dates?", res.Found)
	ok, err := prompter.Confirm(ctx, msg, AcceptLabel, DeclineLabel)
	if err != nil {
		return res, fmt.Errorf("confirm conversion: %w", err)
	}
	if !ok {
		s.logger.Info("session: conversion declined", slog.String("path", res.Path), slog.Int("found", res.Found))
		return res, nil
	}

	err = s.exec(ctx, func() error {
		doc, err := s.buffers.ApplyEdits(res.Path, res.Version, res.Edits)
		if err != nil {
			return err
		}
		res.Converted = len(res.Edits)
		res.Version = doc.Version
		if save {
			if err := s.save(doc); err != nil {
				return err
			}
			res.Saved = true
		}
		s.liveRefresh(doc)
		editor.Info(s.notifier, fmt.Sprintf("Converted %d relative date(s) to absolute dates.", res.Converted))
		s.logger.Info("session: converted relative dates",
			slog.String("path", doc.Path),
			slog.Int("count", res.Converted),
			slog.Bool("saved", res.Saved))
		return nil
	})
	return res, err
}
