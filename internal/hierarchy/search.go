package hierarchy

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/vouch/internal/models"
)

// Entry is a searchable candidate: an item plus its resolved parent name.
type Entry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentID   string `json:"parent_id,omitempty"`
	ParentName string `json:"parent_name,omitempty"`
	// UserGenerated is carried through for "(user-added)" labels.
	UserGenerated bool `json:"user_generated,omitempty"`
}

// TopLevel reports whether the entry has no parent.
func (e Entry) TopLevel() bool {
	return e.ParentID == ""
}

// Label is the display form "{name} ({parent})", or just the name.
func (e Entry) Label() string {
	if e.ParentName == "" {
		return e.Name
	}
	return e.Name + " (" + e.ParentName + ")"
}

// LocationEntries resolves parent names within a single list of items.
func LocationEntries(items []models.HierarchyItem) []Entry {
	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{
			ID:            it.ID,
			Name:          it.Name,
			ParentID:      it.Parent(),
			ParentName:    names[it.Parent()],
			UserGenerated: it.UserGenerated(),
		}
	}
	return out
}

// OptionEntries converts flattened category options into search entries.
func OptionEntries(opts []models.CategoryOption) []Entry {
	out := make([]Entry, len(opts))
	for i, o := range opts {
		e := Entry{ID: o.ID, Name: o.Name}
		if o.ParentID != nil {
			e.ParentID = *o.ParentID
		}
		if o.ParentName != nil {
			e.ParentName = *o.ParentName
		}
		out[i] = e
	}
	return out
}

// matcher holds a normalised query. A Caser keeps state between calls, so each
// search owns one.
type matcher struct {
	fold  cases.Caser
	query string
}

func newMatcher(query string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.query = m.norm(query)
	return m
}

func (m *matcher) norm(s string) string {
	return m.fold.String(strings.TrimSpace(s))
}

func (m *matcher) matches(e Entry) bool {
	if m.query == "" {
		return true
	}
	if strings.Contains(m.norm(e.Name), m.query) {
		return true
	}
	return e.ParentName != "" && strings.Contains(m.norm(e.ParentName), m.query)
}

// tier ranks exact name matches first, then name prefixes, then the rest.
func (m *matcher) tier(e Entry) int {
	name := m.norm(e.Name)
	switch {
	case m.query != "" && name == m.query:
		return 0
	case m.query != "" && strings.HasPrefix(name, m.query):
		return 1
	default:
		return 2
	}
}

// Matches reports whether query (trimmed, case-insensitive) is a substring of
// the entry name or of its parent name. An empty query matches everything.
func Matches(query string, e Entry) bool {
	return newMatcher(query).matches(e)
}

// Filter returns the entries matching query in their original order.
func Filter(query string, entries []Entry) []Entry {
	m := newMatcher(query)
	var out []Entry
	for _, e := range entries {
		if m.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Search filters entries by query and ranks the matches: exact name match,
// then name prefix, then top-level before children, then alphabetical, then id.
// limit <= 0 returns every match.
func Search(query string, entries []Entry, limit int) []Entry {
	m := newMatcher(query)
	type ranked struct {
		Entry
		tier int
	}
	var hits []ranked
	for _, e := range entries {
		if m.matches(e) {
			hits = append(hits, ranked{Entry: e, tier: m.tier(e)})
		}
	}

	col := newCollator()
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.TopLevel() != b.TopLevel() {
			return a.TopLevel()
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Entry, len(hits))
	for i, h := range hits {
		out[i] = h.Entry
	}
	return out
}

// ExactMatch returns the first entry whose name equals query, ignoring case and
// surrounding whitespace.
func ExactMatch(query string, entries []Entry) (Entry, bool) {
	m := newMatcher(query)
	if m.query == "" {
		return Entry{}, false
	}
	for _, e := range entries {
		if m.norm(e.Name) == m.query {
			return e, true
		}
	}
	return Entry{}, false
}

// IsNew reports whether query asks for a new item: it is non-empty, no entry
// has that exact name and no entry matches it as a substring.
func IsNew(query string, entries []Entry) bool {
	m := newMatcher(query)
	if m.query == "" {
		return false
	}
	if _, ok := ExactMatch(query, entries); ok {
		return false
	}
	for _, e := range entries {
		if m.matches(e) {
			return false
		}
	}
	return true
}
