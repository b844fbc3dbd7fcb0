package hierarchy

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/vouch/internal/models"
)

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestSearch_RankingExample(t *testing.T) {
	entries := []Entry{
		{ID: "1", Name: "London"},
		{ID: "2", Name: "Central London"},
		{ID: "3", Name: "Londonderry"},
	}
	got := Search("lon", entries, 0)
	if diff := cmp.Diff([]string{"London", "Londonderry", "Central London"}, names(got)); diff != "" {
		t.Errorf("ranking (-want +got):\n%s", diff)
	}
}

func TestSearch_ExactFirstThenTopLevel(t *testing.T) {
	entries := []Entry{
		{ID: "a", Name: "Soho Square", ParentID: "w", ParentName: "Westminster"},
		{ID: "b", Name: "Soho", ParentID: "w", ParentName: "Westminster"},
		{ID: "c", Name: "Soho Road", ParentID: ""},
		{ID: "d", Name: "Old Soho"},
	}
	got := Search("  SOHO ", entries, 0)
	if diff := cmp.Diff([]string{"Soho", "Soho Road", "Soho Square", "Old Soho"}, names(got)); diff != "" {
		t.Errorf("ranking (-want +got):\n%s", diff)
	}
}

func TestSearch_ParentNameMatches(t *testing.T) {
	items := []models.HierarchyItem{
		item("london", ""),
		item("hackney", "london"),
		item("leeds", ""),
	}
	items[0].Name, items[1].Name, items[2].Name = "London", "Hackney", "Leeds"

	got := Search("london", LocationEntries(items), 0)
	if diff := cmp.Diff([]string{"London", "Hackney"}, names(got)); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if got[1].Label() != "Hackney (London)" {
		t.Errorf("label = %q", got[1].Label())
	}
}

func TestSearch_EmptyQueryAndLimit(t *testing.T) {
	entries := []Entry{{ID: "2", Name: "b"}, {ID: "1", Name: "a"}, {ID: "3", Name: "c"}}
	if got := Search("", entries, 0); len(got) != 3 {
		t.Errorf("empty query returned %d, want 3", len(got))
	}
	got := Search(" ", entries, 2)
	if diff := cmp.Diff([]string{"a", "b"}, names(got)); diff != "" {
		t.Errorf("limited (-want +got):\n%s", diff)
	}
}

func TestSearch_DeterministicOnDuplicates(t *testing.T) {
	entries := []Entry{{ID: "z", Name: "Other"}, {ID: "a", Name: "Other"}}
	got := Search("oth", entries, 0)
	if got[0].ID != "a" || got[1].ID != "z" {
		t.Errorf("ids = %s, %s; want a, z", got[0].ID, got[1].ID)
	}
}

func TestIsNew(t *testing.T) {
	entries := []Entry{{ID: "1", Name: "Plumber"}, {ID: "2", Name: "Electrician"}}

	cases := []struct {
		query string
		want  bool
	}{
		{"Painter", true},
		{"plumb", false},
		{"PLUMBER", false},
		{"  electrician ", false},
		{"", false},
		{"   ", false},
	}
	for _, c := range cases {
		if got := IsNew(c.query, entries); got != c.want {
			t.Errorf("IsNew(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestIsNew_ParentNameCountsAsMatch(t *testing.T) {
	entries := OptionEntries(Flatten(
		[]models.HierarchyItem{cat("c1", "Food & Drink", nil)},
		[]models.HierarchyItem{sub("s1", "Restaurant", "c1", nil)},
	))
	if IsNew("drink", entries) {
		t.Error("query matching a parent name should not be new")
	}
	if !IsNew("Tattoo", entries) {
		t.Error("unrelated query should be new")
	}
}

func TestExactMatch(t *testing.T) {
	entries := []Entry{{ID: "1", Name: "Hackney"}, {ID: "2", Name: "Hackney Wick"}}
	e, ok := ExactMatch(" hackney", entries)
	if !ok || e.ID != "1" {
		t.Errorf("ExactMatch = %+v, %v", e, ok)
	}
	if _, ok := ExactMatch("hack", entries); ok {
		t.Error("prefix should not be an exact match")
	}
}

func TestFilter_KeepsOrder(t *testing.T) {
	entries := []Entry{{ID: "1", Name: "Bakery"}, {ID: "2", Name: "Barber"}, {ID: "3", Name: "Cafe"}}
	if diff := cmp.Diff([]string{"Bakery", "Barber"}, names(Filter("ba", entries))); diff != "" {
		t.Errorf("filter (-want +got):\n%s", diff)
	}
	if !Matches("", entries[2]) {
		t.Error("empty query should match")
	}
}
