// Package dateparse finds a date/time phrase in free text.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Match is one date phrase found in a text. Start and End are byte offsets of
// Text inside the parsed input.
type Match struct {
	Start int
	End   int
	Text  string
	At    time.Time
}

// When extracts dates with olebedev/when, resolving relative phrases in loc.
type When struct {
	parser *when.Parser
	loc    *time.Location
}

func New(loc *time.Location) *When {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &When{parser: w, loc: loc}
}

var (
	weekdayRe      = regexp.MustCompile(`(?i)\b(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(day|nesday|sday|urday)?\b`)
	nextRe         = regexp.MustCompile(`(?i)\bnext\b`)
	explicitDateRe = regexp.MustCompile(`(?i)(\d{1,4}[/.-]\d{1,2}|\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\b|\b(yesterday|ago|last|past|today|tonight)\b)`)

	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{2}))?\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	clockRe     = regexp.MustCompile(`(?i)(\d{1,2}(:\d{2})?\s*(am|pm)\b|\d{1,2}:\d{2}|\bnoon\b|\bmidnight\b)`)
	connectorRe = regexp.MustCompile(`(?i)^[\s,]*(at|@)?[\s,]*$`)
	leadingOnRe = regexp.MustCompile(`(?i)\bon\s+$`)
)

// Parse returns the date phrases found in text, at most one, with future
// preference.
//
// Numeric dates (2026-10-20, 10/20, 10/20/26) are read month first and win
// over anything else; a clock time next to them is folded in, otherwise they
// are at noon, and one without a year that already passed is next year's.
// Other phrases go to when: one that only names a weekday or a clock time and
// resolves to a moment not after ref is moved to its next occurrence, and a
// bare weekday naming today is today while its time is still ahead.
func (w *When) Parse(text string, ref time.Time) ([]Match, error) {
	ref = ref.In(w.loc)

	explicit, err := w.numeric(text, ref)
	if err != nil {
		return nil, fmt.Errorf("(*When).Parse: %w", err)
	}
	if explicit != nil {
		return []Match{*explicit}, nil
	}

	r, err := w.parser.Parse(text, ref)
	if err != nil {
		return nil, fmt.Errorf("(*When).Parse: %w", err)
	}
	if r == nil {
		return nil, nil
	}

	at := r.Time
	if weekdayRe.MatchString(r.Text) && !nextRe.MatchString(r.Text) && !explicitDateRe.MatchString(r.Text) && at.Weekday() == ref.Weekday() {
		today := time.Date(ref.Year(), ref.Month(), ref.Day(), at.Hour(), at.Minute(), at.Second(), 0, w.loc)
		if today.After(ref) && at.After(today) {
			at = today
		}
	}
	if !at.After(ref) && !explicitDateRe.MatchString(r.Text) {
		step := 24 * time.Hour
		if weekdayRe.MatchString(r.Text) {
			step = 7 * 24 * time.Hour
		}
		for !at.After(ref) {
			at = at.Add(step)
		}
	}

	return []Match{{
		Start: r.Index,
		End:   r.Index + len(r.Text),
		Text:  r.Text,
		At:    at,
	}}, nil
}

// numeric resolves the first ISO or slash date in text. It returns nil when
// there is none and an error when the date doesn't exist.
func (w *When) numeric(text string, ref time.Time) (*Match, error) {
	var (
		year, month, day int
		hour, minute     = 12, 0
		hasClock         bool
		yearGiven        = true
	)

	idx := isoDateRe.FindStringSubmatchIndex(text)
	if idx != nil {
		year, month, day = atoi(text, idx, 1), atoi(text, idx, 2), atoi(text, idx, 3)
		if idx[8] >= 0 {
			hour, minute, hasClock = atoi(text, idx, 4), atoi(text, idx, 5), true
		}
	} else if idx = slashDateRe.FindStringSubmatchIndex(text); idx != nil {
		month, day = atoi(text, idx, 1), atoi(text, idx, 2)
		switch {
		case idx[6] < 0:
			year, yearGiven = ref.Year(), false
		case idx[7]-idx[6] == 2:
			year = 2000 + atoi(text, idx, 3)
		default:
			year = atoi(text, idx, 3)
		}
	} else {
		return nil, nil
	}

	start, end := idx[0], idx[1]
	token := text[start:end]

	if !hasClock {
		blanked := text[:start] + strings.Repeat(" ", end-start) + text[end:]
		r, err := w.parser.Parse(blanked, ref)
		if err != nil {
			return nil, err
		}
		if r != nil && clockRe.MatchString(r.Text) {
			hour, minute, hasClock = r.Time.Hour(), r.Time.Minute(), true
			clockStart, clockEnd := r.Index, r.Index+len(r.Text)
			if clockStart >= end && connectorRe.MatchString(text[end:clockStart]) {
				end = clockEnd
			} else if clockEnd <= start && connectorRe.MatchString(text[clockEnd:start]) {
				start = clockStart
			}
		}
	}

	at := time.Date(year, time.Month(month), day, hour, minute, 0, 0, w.loc)
	if month < 1 || month > 12 || at.Month() != time.Month(month) || at.Day() != day || hour > 23 || minute > 59 {
		return nil, fmt.Errorf("no such date %q", token)
	}
	if !yearGiven && !at.After(ref) {
		at = at.AddDate(1, 0, 0)
	}
	if loc := leadingOnRe.FindStringIndex(text[:start]); loc != nil {
		start = loc[0]
	}

	return &Match{Start: start, End: end, Text: text[start:end], At: at}, nil
}

func atoi(text string, idx []int, group int) int {
	n, _ := strconv.Atoi(text[idx[2*group]:idx[2*group+1]])
	return n
}

// StripMatch removes the matched phrase from text: by span when text is the
// parsed input, otherwise its first occurrence.
func StripMatch(text string, m Match) string {
	if m.Start >= 0 && m.End <= len(text) && m.Start <= m.End && text[m.Start:m.End] == m.Text {
		return strings.Join(strings.Fields(text[:m.Start]+" "+text[m.End:]), " ")
	}
	return strings.Join(strings.Fields(strings.Replace(text, m.Text, "", 1)), " ")
}
