package hierarchy

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/vouch/internal/models"
)

func item(id, parent string) models.HierarchyItem {
	return models.HierarchyItem{ID: id, Name: id, ParentID: models.StringPtr(parent)}
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestBuildDescendants_London(t *testing.T) {
	areas := []models.HierarchyItem{
		item("london", ""),
		item("hackney", "london"),
		item("shoreditch", "hackney"),
	}
	d := BuildDescendants(areas)

	if diff := cmp.Diff([]string{"hackney", "shoreditch"}, sorted(d.Of("london"))); diff != "" {
		t.Errorf("london descendants (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"shoreditch"}, d.Of("hackney")); diff != "" {
		t.Errorf("hackney descendants (-want +got):\n%s", diff)
	}
	if got := d.Of("shoreditch"); got != nil {
		t.Errorf("leaf descendants = %v, want nil", got)
	}
	if diff := cmp.Diff([]string{"london", "hackney", "shoreditch"}, d.Expand("london")); diff != "" {
		t.Errorf("expand (-want +got):\n%s", diff)
	}
	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}
	if len(d.CycleBreaks()) != 0 {
		t.Errorf("unexpected cycle breaks: %v", d.CycleBreaks())
	}
}

func TestBuildDescendants_DepthFirstOrder(t *testing.T) {
	items := []models.HierarchyItem{
		item("root", ""),
		item("a", "root"),
		item("b", "root"),
		item("a1", "a"),
		item("b1", "b"),
	}
	d := BuildDescendants(items)
	if diff := cmp.Diff([]string{"a", "a1", "b", "b1"}, d.Of("root")); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestBuildDescendants_OrderIndependent(t *testing.T) {
	items := randomForest(rand.New(rand.NewSource(7)), 60)
	want := BuildDescendants(items).Map()

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]models.HierarchyItem(nil), items...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := BuildDescendants(shuffled).Map()
		if len(got) != len(want) {
			t.Fatalf("shuffle %d: %d roots, want %d", i, len(got), len(want))
		}
		for id, w := range want {
			if diff := cmp.Diff(sorted(w), sorted(got[id])); diff != "" {
				t.Errorf("shuffle %d root %s (-want +got):\n%s", i, id, diff)
			}
		}
	}
}

func TestBuildDescendants_MatchesReachability(t *testing.T) {
	items := randomForest(rand.New(rand.NewSource(99)), 80)
	parent := make(map[string]string, len(items))
	for _, it := range items {
		parent[it.ID] = it.Parent()
	}

	// Walking up from every node gives the reference answer.
	want := make(map[string][]string)
	for _, it := range items {
		for p := parent[it.ID]; p != ""; p = parent[p] {
			want[p] = append(want[p], it.ID)
		}
	}

	d := BuildDescendants(items)
	for _, it := range items {
		got := d.Of(it.ID)
		seen := make(map[string]struct{}, len(got))
		for _, id := range got {
			if _, dup := seen[id]; dup {
				t.Fatalf("%s: duplicate descendant %s", it.ID, id)
			}
			seen[id] = struct{}{}
		}
		if diff := cmp.Diff(sorted(want[it.ID]), sorted(got)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", it.ID, diff)
		}
	}
}

func TestBuildDescendants_CycleTerminates(t *testing.T) {
	items := []models.HierarchyItem{
		item("a", "b"),
		item("b", "a"),
		item("c", "a"),
	}
	d := BuildDescendants(items)

	if diff := cmp.Diff([]string{"b", "c"}, sorted(d.Of("a"))); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, sorted(d.Of("b"))); diff != "" {
		t.Errorf("b (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, d.CycleBreaks()); diff != "" {
		t.Errorf("cycle breaks (-want +got):\n%s", diff)
	}
}

func TestBuildDescendants_SelfParent(t *testing.T) {
	d := BuildDescendants([]models.HierarchyItem{item("x", "x")})
	if got := d.Of("x"); got != nil {
		t.Errorf("self-parented item descendants = %v, want nil", got)
	}
	if diff := cmp.Diff([]string{"x"}, d.CycleBreaks()); diff != "" {
		t.Errorf("cycle breaks (-want +got):\n%s", diff)
	}
}

func TestBuildDescendants_MissingParentIgnored(t *testing.T) {
	d := BuildDescendants([]models.HierarchyItem{item("orphan", "ghost")})
	if diff := cmp.Diff([]string{"orphan"}, d.Of("ghost")); diff != "" {
		t.Errorf("ghost (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unknown"}, d.Expand("unknown")); diff != "" {
		t.Errorf("expand unknown (-want +got):\n%s", diff)
	}
}

// randomForest builds n items where every item's parent (if any) has a lower index.
func randomForest(r *rand.Rand, n int) []models.HierarchyItem {
	items := make([]models.HierarchyItem, n)
	for i := 0; i < n; i++ {
		parent := ""
		if i > 0 && r.Intn(4) != 0 {
			parent = fmt.Sprintf("n%02d", r.Intn(i))
		}
		items[i] = item(fmt.Sprintf("n%02d", i), parent)
	}
	return items
}
