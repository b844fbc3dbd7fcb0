package hierarchy

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/vouch/internal/models"
)

func cat(id, name string, order *int) models.HierarchyItem {
	return models.HierarchyItem{ID: id, Name: name, SortOrder: order}
}

func sub(id, name, parent string, order *int) models.HierarchyItem {
	return models.HierarchyItem{ID: id, Name: name, ParentID: models.StringPtr(parent), SortOrder: order}
}

func TestFlatten_Example(t *testing.T) {
	got := Flatten(
		[]models.HierarchyItem{cat("c1", "Food & Drink", models.IntPtr(1))},
		[]models.HierarchyItem{sub("s1", "Restaurant", "c1", models.IntPtr(1))},
	)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "c1" || got[0].DisplayName != "Food & Drink" || got[0].IsSubcategory || got[0].ParentName != nil {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ID != "s1" || got[1].DisplayName != "Restaurant (Food & Drink)" || !got[1].IsSubcategory {
		t.Errorf("second = %+v", got[1])
	}
	if got[1].ParentName == nil || *got[1].ParentName != "Food & Drink" {
		t.Errorf("parent name = %v", got[1].ParentName)
	}
	if got[1].CategoryID() != "c1" || got[0].CategoryID() != "c1" {
		t.Errorf("category ids = %q, %q", got[0].CategoryID(), got[1].CategoryID())
	}
}

func TestFlatten_MissingParent(t *testing.T) {
	got := Flatten(nil, []models.HierarchyItem{
		sub("s1", "Tattoo", "", nil),
		sub("s2", "Barber", "gone", nil),
	})
	for _, o := range got {
		if o.ParentName != nil {
			t.Errorf("%s: parent name = %q, want nil", o.ID, *o.ParentName)
		}
		if o.DisplayName != o.Name {
			t.Errorf("%s: display = %q, want %q", o.ID, o.DisplayName, o.Name)
		}
	}
}

func TestFlatten_MissingSortOrderLast(t *testing.T) {
	got := Flatten([]models.HierarchyItem{
		cat("none", "Aardvark Care", nil),
		cat("zero", "Zoo", models.IntPtr(0)),
		cat("big", "Mid", models.IntPtr(1000)),
	}, nil)
	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.ID
	}
	if diff := cmp.Diff([]string{"zero", "big", "none"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestFlatten_NameTieBreak(t *testing.T) {
	got := Flatten([]models.HierarchyItem{
		cat("b", "beauty", models.IntPtr(2)),
		cat("a", "Automotive", models.IntPtr(2)),
		cat("c", "Cleaning", models.IntPtr(2)),
	}, nil)
	var names []string
	for _, o := range got {
		names = append(names, o.Name)
	}
	if diff := cmp.Diff([]string{"Automotive", "beauty", "Cleaning"}, names); diff != "" {
		t.Errorf("collated order (-want +got):\n%s", diff)
	}
}

func TestFlatten_IdempotentAndTotal(t *testing.T) {
	cats := []models.HierarchyItem{
		cat("c1", "Home", models.IntPtr(1)),
		cat("c2", "Health", models.IntPtr(1)),
		cat("c3", "Other", nil),
	}
	subs := []models.HierarchyItem{
		sub("s1", "Other", "c1", nil),
		sub("s2", "Other", "c2", nil),
		sub("s3", "other", "c2", nil),
		sub("s4", "Plumber", "c1", models.IntPtr(1)),
		sub("s5", "Other", "c2", nil),
	}

	first := Flatten(cats, subs)
	second := Flatten(cats, subs)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("not idempotent (-first +second):\n%s", diff)
	}

	col := newCollator()
	for i := range first {
		for j := range first {
			if i == j {
				continue
			}
			ab := lessOption(col, first[i], first[j])
			ba := lessOption(col, first[j], first[i])
			if ab == ba {
				t.Errorf("%s vs %s not strictly ordered", first[i].ID, first[j].ID)
			}
			if (i < j) != ab {
				t.Errorf("%s at %d, %s at %d disagree with comparator", first[i].ID, i, first[j].ID, j)
			}
		}
	}

	resorted := append([]models.CategoryOption(nil), first...)
	SortOptions(resorted)
	if diff := cmp.Diff(first, resorted); diff != "" {
		t.Errorf("re-sort changed order (-want +got):\n%s", diff)
	}
}
