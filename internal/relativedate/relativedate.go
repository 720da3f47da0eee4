// Package relativedate finds "expires in: N unit" expressions in text and
// turns them into absolute expiry dates.
package relativedate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sitedog/preview/internal/editor"
)

// DateLayout is the output format of converted dates.
const DateLayout = "2006-01-02"

// Indent prefixes every inserted expires_date line.
const Indent = "    "

var pattern = regexp.MustCompile(`(?i)expires in:\s*(\d+)\s*(days?|weeks?|months?|years?)`)

// Unit is a calendar unit.
type Unit string

const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

// ParseUnit accepts singular or plural unit words in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "day":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	case "year":
		return Year, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// Match is one relative date expression found in a text.
type Match struct {
	Quantity int             `json:"quantity"`
	Unit     Unit            `json:"unit"`
	Offset   int             `json:"offset"`
	End      int             `json:"end"`
	Position editor.Position `json:"position"`
	Date     time.Time       `json:"-"`
}

// Formatted returns the computed date as YYYY-MM-DD.
func (m Match) Formatted() string {
	return Format(m.Date)
}

// Scan collects every match in text, left to right, computing dates from
// now. Quantities too large for an int are skipped.
func Scan(text string, now time.Time) []Match {
	today := Truncate(now)
	var out []Match
	for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		unit, err := ParseUnit(text[loc[4]:loc[5]])
		if err != nil {
			continue
		}
		out = append(out, Match{
			Quantity: n,
			Unit:     unit,
			Offset:   loc[0],
			End:      loc[1],
			Position: editor.PositionAt(text, loc[0]),
			Date:     AddUnit(today, n, unit),
		})
	}
	return out
}

// Truncate drops the time of day, keeping the local calendar date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddUnit adds n units to date. Day-of-month overflow normalises forward,
// so Jan 31 + 1 month lands in early March rather than on Feb 31.
func AddUnit(date time.Time, n int, unit Unit) time.Time {
	switch unit {
	case Day:
		return date.AddDate(0, 0, n)
	case Week:
		return date.AddDate(0, 0, 7*n)
	case Month:
		return date.AddDate(0, n, 0)
	case Year:
		return date.AddDate(n, 0, 0)
	}
	return date
}

// Format renders date as YYYY-MM-DD.
func Format(date time.Time) string {
	return date.Format(DateLayout)
}

// Line returns the inserted line for a date, without the leading line break.
func Line(date time.Time) string {
	return Indent + "expires_date: " + Format(date)
}

// Proposal is the set of insertions for one conversion.
type Proposal struct {
	Matches []Match           `json:"matches"`
	Edits   []editor.TextEdit `json:"edits"`
}

// Count returns the number of relative dates found.
func (p Proposal) Count() int {
	return len(p.Matches)
}

// Propose scans text and builds one insertion per match, placed at the end
// of the line holding the end of the match. All offsets refer to text.
func Propose(text string, now time.Time) Proposal {
	matches := Scan(text, now)
	edits := make([]editor.TextEdit, 0, len(matches))
	for _, m := range matches {
		end, eol := editor.LineEnd(text, m.End)
		if eol == "" {
			eol = "\n"
		}
		edits = append(edits, editor.TextEdit{
			Offset:  end,
			NewText: eol + Line(m.Date),
		})
	}
	return Proposal{Matches: matches, Edits: edits}
}
