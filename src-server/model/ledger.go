package model

import (
	"fmt"
	"strings"
)

// Category is an RSVP bucket.
type Category string

const (
	CategoryAvailable   Category = "available"
	CategoryUnavailable Category = "unavailable"
	CategoryTentative   Category = "tentative"
)

// Categories in render order.
var Categories = []Category{CategoryAvailable, CategoryUnavailable, CategoryTentative}

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAvailable, CategoryUnavailable, CategoryTentative:
		return c, nil
	default:
		return "", fmt.Errorf("ParseCategory: unknown rsvp category %q", s)
	}
}

func (c Category) Label() string {
	switch c {
	case CategoryAvailable:
		return "Available"
	case CategoryUnavailable:
		return "Unavailable"
	case CategoryTentative:
		return "Tentative"
	}
	return string(c)
}

// Reactor is a user who reacted to an event message.
type Reactor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot"`
}

func (r Reactor) Mention() string {
	return "<@" + r.ID + ">"
}

// Ledger is the attendance of one event, rebuilt from the reactions every
// time it is rendered and never stored.
type Ledger map[Category][]Reactor

// NewLedger builds a ledger from the raw reactors per category, dropping
// bots. It shows whatever the chat reports: if a stale reaction could not be
// removed the actor stays listed twice until they fix it themselves.
func NewLedger(raw map[Category][]Reactor) Ledger {
	ledger := make(Ledger, len(Categories))
	for _, category := range Categories {
		reactors := make([]Reactor, 0, len(raw[category]))
		for _, reactor := range raw[category] {
			if reactor.Bot {
				continue
			}
			reactors = append(reactors, reactor)
		}
		ledger[category] = reactors
	}
	return ledger
}

func (l Ledger) Count(c Category) int {
	return len(l[c])
}

// Names joins the display names of a category, "none" when empty.
func (l Ledger) Names(c Category) string {
	if len(l[c]) == 0 {
		return "none"
	}
	names := make([]string, len(l[c]))
	for i, reactor := range l[c] {
		names[i] = reactor.Name
	}
	return strings.Join(names, ", ")
}

func (l Ledger) Mentions(c Category) string {
	mentions := make([]string, len(l[c]))
	for i, reactor := range l[c] {
		mentions[i] = reactor.Mention()
	}
	return strings.Join(mentions, ", ")
}

// Has reports whether actorID is listed under c.
func (l Ledger) Has(c Category, actorID string) bool {
	for _, reactor := range l[c] {
		if reactor.ID == actorID {
			return true
		}
	}
	return false
}
