package hierarchy

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/vouch/internal/models"
)

// missingOrder places items without an explicit sort order after every item
// that has one.
const missingOrder = math.MaxInt

// Flatten merges categories and subcategories into a single list of options,
// annotating subcategories with their parent category name.
func Flatten(categories, subcategories []models.HierarchyItem) []models.CategoryOption {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	out := make([]models.CategoryOption, 0, len(categories)+len(subcategories))
	for _, c := range categories {
		out = append(out, models.CategoryOption{
			ID:          c.ID,
			Name:        c.Name,
			DisplayName: c.Name,
			SortOrder:   c.SortOrder,
		})
	}
	for _, s := range subcategories {
		opt := models.CategoryOption{
			ID:            s.ID,
			Name:          s.Name,
			ParentID:      s.ParentID,
			DisplayName:   s.Name,
			IsSubcategory: true,
			SortOrder:     s.SortOrder,
		}
		if s.HasParent() {
			if pn, ok := names[s.Parent()]; ok {
				opt.ParentName = &pn
				opt.DisplayName = s.Name + " (" + pn + ")"
			}
		}
		out = append(out, opt)
	}

	SortOptions(out)
	return out
}

// SortOptions orders options by sort order, then collated name, display name,
// kind (categories first) and finally id, which makes the order total.
func SortOptions(opts []models.CategoryOption) {
	col := newCollator()
	sort.SliceStable(opts, func(i, j int) bool {
		return lessOption(col, opts[i], opts[j])
	})
}

func lessOption(col *collate.Collator, a, b models.CategoryOption) bool {
	if oa, ob := orderOf(a.SortOrder), orderOf(b.SortOrder); oa != ob {
		return oa < ob
	}
	if c := col.CompareString(a.Name, b.Name); c != 0 {
		return c < 0
	}
	if a.DisplayName != b.DisplayName {
		return a.DisplayName < b.DisplayName
	}
	if a.IsSubcategory != b.IsSubcategory {
		return !a.IsSubcategory
	}
	return a.ID < b.ID
}

func orderOf(n *int) int {
	if n == nil {
		return missingOrder
	}
	return *n
}

// newCollator returns an English collator. Collators are not safe for
// concurrent use, so every sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}
