package seed

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `
lists:
  - name: area
    items:
      - id: london
        name: London
        sort_order: 1
        children:
          - name: Hackney
            children:
              - name: Shoreditch
      - name: Leeds
        sort_order: 2
  - name: category
    items:
      - name: Home
        code_name: home
  - name: subcategory
    items:
      - name: Plumber
        parent: "category:Home"
      - name: Dog walker
`

func TestParse_FlattensParentsFirst(t *testing.T) {
	lists, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lists) != 3 {
		t.Fatalf("lists = %d, want 3", len(lists))
	}

	areas := lists[0].Items
	var got []string
	for _, it := range areas {
		got = append(got, it.Name)
	}
	if diff := cmp.Diff([]string{"London", "Hackney", "Shoreditch", "Leeds"}, got); diff != "" {
		t.Errorf("area order (-want +got):\n%s", diff)
	}
	if areas[0].ID != "london" {
		t.Errorf("explicit id = %q", areas[0].ID)
	}
	if areas[1].ParentID != "london" || areas[2].ParentID != areas[1].ID {
		t.Errorf("nested parents = %q, %q", areas[1].ParentID, areas[2].ParentID)
	}
	if areas[0].ParentID != "" || areas[3].ParentID != "" {
		t.Error("top-level areas should have no parent")
	}
	if areas[0].SortOrder == nil || *areas[0].SortOrder != 1 || areas[1].SortOrder != nil {
		t.Errorf("sort orders = %v, %v", areas[0].SortOrder, areas[1].SortOrder)
	}

	home := lists[1].Items[0]
	if home.CodeName != "home" {
		t.Errorf("code name = %q", home.CodeName)
	}
	subs := lists[2].Items
	if subs[0].ParentID != home.ID {
		t.Errorf("cross-list parent = %q, want %q", subs[0].ParentID, home.ID)
	}
	if subs[1].ParentID != "" {
		t.Errorf("orphan subcategory parent = %q", subs[1].ParentID)
	}
}

func TestParse_DerivedIDsStable(t *testing.T) {
	a, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("ids differ between parses (-a +b):\n%s", diff)
	}
	if a[0].Items[1].ID == a[2].Items[0].ID {
		t.Error("derived ids collide across lists")
	}
}

func TestParse_ParentByID(t *testing.T) {
	doc := `
lists:
  - name: category
    items:
      - id: c1
        name: Home
  - name: subcategory
    items:
      - name: Plumber
        parent: c1
`
	lists, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := lists[1].Items[0].ParentID; got != "c1" {
		t.Errorf("parent = %q, want c1", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want string
	}{
		"bad yaml": {"lists: [", "parse"},
		"unnamed list": {`
lists:
  - items: [{name: A}]`, "without a name"},
		"duplicate list": {`
lists:
  - name: area
  - name: area`, "defined twice"},
		"unnamed item": {`
lists:
  - name: area
    items: [{sort_order: 1}]`, "item without a name"},
		"duplicate id": {`
lists:
  - name: area
    items: [{id: x, name: A}, {id: x, name: B}]`, "duplicate id"},
		"forward parent": {`
lists:
  - name: subcategory
    items: [{name: Plumber, parent: "category:Home"}]
  - name: category
    items: [{name: Home}]`, "unknown parent"},
		"nested with parent": {`
lists:
  - name: category
    items: [{id: c, name: Home}]
  - name: subcategory
    items:
      - name: Trades
        children: [{name: Plumber, parent: c}]`, "cannot also set parent"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(c.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err, c.want)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different input, same checksum")
	}
	if got := Checksum(nil); len(got) != 64 {
		t.Errorf("checksum length = %d, want 64", len(got))
	}
}
