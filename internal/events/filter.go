package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Genoux/website/internal/domain"
)

// ErrInvalidFilter indicates a selection outside the closed filter set.
var ErrInvalidFilter = errors.New("events: invalid filter")

// Kind enumerates the filter families.
type Kind string

const (
	KindAll      Kind = "all"
	KindUpcoming Kind = "upcoming"
	KindPast     Kind = "past"
	KindGame     Kind = "game"
)

const gamePrefix = "game:"

// Selection is a parsed filter choice. The zero value is invalid.
type Selection struct {
	kind Kind
	game domain.GameTag
}

var (
	All      = Selection{kind: KindAll}
	Upcoming = Selection{kind: KindUpcoming}
	Past     = Selection{kind: KindPast}
)

// ByGame filters to one game.
func ByGame(tag domain.GameTag) (Selection, error) {
	if !tag.Valid() {
		return Selection{}, fmt.Errorf("%w: unknown game %q", ErrInvalidFilter, tag)
	}
	return Selection{kind: KindGame, game: tag}, nil
}

// ParseFilter reads the wire form: all, upcoming, past or game:<tag>.
func ParseFilter(raw string) (Selection, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case string(KindAll):
		return All, nil
	case string(KindUpcoming):
		return Upcoming, nil
	case string(KindPast):
		return Past, nil
	}
	if strings.HasPrefix(value, gamePrefix) {
		return ByGame(domain.GameTag(strings.TrimPrefix(value, gamePrefix)))
	}
	return Selection{}, fmt.Errorf("%w: %q", ErrInvalidFilter, raw)
}

// Selections lists every valid selection in display order.
func Selections() []Selection {
	out := []Selection{All, Upcoming, Past}
	for _, g := range domain.KnownGames() {
		out = append(out, Selection{kind: KindGame, game: g})
	}
	return out
}

func (s Selection) Kind() Kind { return s.kind }

func (s Selection) Game() domain.GameTag { return s.game }

func (s Selection) valid() bool {
	switch s.kind {
	case KindAll, KindUpcoming, KindPast:
		return true
	case KindGame:
		return s.game.Valid()
	}
	return false
}

// String is the wire form accepted by ParseFilter.
func (s Selection) String() string {
	if s.kind == KindGame {
		return gamePrefix + string(s.game)
	}
	return string(s.kind)
}

// Filter keeps the events matching the selection in their input order.
func Filter(list []domain.Event, sel Selection, now time.Time, loc *time.Location) ([]domain.Event, error) {
	if !sel.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, sel.String())
	}
	out := make([]domain.Event, 0, len(list))
	for _, ev := range list {
		if matches(ev, sel, now, loc) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func matches(ev domain.Event, sel Selection, now time.Time, loc *time.Location) bool {
	switch sel.kind {
	case KindUpcoming:
		return ClassifyEvent(ev, now, loc) == StatusUpcoming
	case KindPast:
		return ClassifyEvent(ev, now, loc) == StatusPassed
	case KindGame:
		return ev.Game == sel.game
	default:
		return true
	}
}
