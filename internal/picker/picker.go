// Package picker models the combined autocomplete used to choose a location or
// business type: the user types, sees ranked matches or an offer to add a new
// item, and commits to one choice.
package picker

import (
	"errors"
	"strings"

	"github.com/starford/vouch/internal/hierarchy"
)

// State is the derived state of a Picker.
type State int

const (
	Empty State = iota
	// Typing means a query is present but candidates are still loading.
	Typing
	ShowingMatches
	ShowingCreateNew
	Selected
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Typing:
		return "typing"
	case ShowingMatches:
		return "showing_matches"
	case ShowingCreateNew:
		return "showing_create_new"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

var (
	// ErrSelected is returned when typing into a picker that holds a selection.
	ErrSelected = errors.New("picker: selection must be cleared first")
	// ErrUnknownOption is returned when selecting an id not among the candidates.
	ErrUnknownOption = errors.New("picker: unknown option")
	// ErrNotNew is returned by SelectNew when the query matches existing items.
	ErrNotNew = errors.New("picker: query matches existing items")
)

// Selection is the committed choice. New selections carry only a name until
// the caller creates the item.
type Selection struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	New  bool   `json:"new"`
}

// Picker holds the query and candidate set. Everything shown to the user is
// derived from these two; nothing else is stored. It is not safe for
// concurrent use.
type Picker struct {
	entries  []hierarchy.Entry
	loaded   bool
	query    string
	limit    int
	selected *Selection
}

// New returns an empty picker that shows at most limit matches (0 for all).
func New(limit int) *Picker {
	return &Picker{limit: limit}
}

// SetEntries installs the candidate set.
func (p *Picker) SetEntries(entries []hierarchy.Entry) {
	p.entries = entries
	p.loaded = true
}

// SetLoading marks the candidate set as being reloaded.
func (p *Picker) SetLoading() {
	p.loaded = false
}

// Type replaces the query.
func (p *Picker) Type(query string) error {
	if p.selected != nil {
		return ErrSelected
	}
	p.query = query
	return nil
}

// Query returns the current query.
func (p *Picker) Query() string {
	return p.query
}

// State derives the picker state from the query and candidates.
func (p *Picker) State() State {
	switch {
	case p.selected != nil:
		return Selected
	case strings.TrimSpace(p.query) == "":
		return Empty
	case !p.loaded:
		return Typing
	case hierarchy.IsNew(p.query, p.entries):
		return ShowingCreateNew
	default:
		return ShowingMatches
	}
}

// Matches returns the ranked candidates for the query. It is empty unless the
// picker is showing matches.
func (p *Picker) Matches() []hierarchy.Entry {
	if p.State() != ShowingMatches {
		return nil
	}
	return hierarchy.Search(p.query, p.entries, p.limit)
}

// NewName returns the trimmed query offered as a new item, or "".
func (p *Picker) NewName() string {
	if p.State() != ShowingCreateNew {
		return ""
	}
	return strings.TrimSpace(p.query)
}

// Select commits to the candidate with id.
func (p *Picker) Select(id string) error {
	if p.selected != nil {
		return ErrSelected
	}
	for _, e := range p.entries {
		if e.ID == id {
			p.selected = &Selection{ID: e.ID, Name: e.Label()}
			p.query = e.Label()
			return nil
		}
	}
	return ErrUnknownOption
}

// SelectNew commits to creating the query as a new item.
func (p *Picker) SelectNew() (Selection, error) {
	if p.selected != nil {
		return Selection{}, ErrSelected
	}
	name := p.NewName()
	if name == "" {
		return Selection{}, ErrNotNew
	}
	p.selected = &Selection{Name: name, New: true}
	return *p.selected, nil
}

// Resolve records the id of a newly created selection.
func (p *Picker) Resolve(id string) {
	if p.selected != nil && p.selected.New {
		p.selected.ID = id
	}
}

// Selection returns the committed choice.
func (p *Picker) Selection() (Selection, bool) {
	if p.selected == nil {
		return Selection{}, false
	}
	return *p.selected, true
}

// Clear drops the selection and the query.
func (p *Picker) Clear() {
	p.selected = nil
	p.query = ""
}
