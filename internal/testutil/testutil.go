// Package testutil provides shared test helpers for setting up databases and
// taxonomy fixtures.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/backend/sqlstore"
	"github.com/starford/vouch/internal/models"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T, opts ...sqlstore.Option) *sqlstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vouch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := sqlstore.Open(backend.DriverSQLite, dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Fixture ids.
const (
	London     = "london"
	Hackney    = "hackney"
	Shoreditch = "shoreditch"
	Leeds      = "leeds"
	Home       = "home"
	FoodDrink  = "food"
	Plumber    = "plumber"
	Restaurant = "restaurant"
)

// FixtureLists is a small taxonomy: London > Hackney > Shoreditch plus Leeds,
// and two categories with one subcategory each.
func FixtureLists() []backend.SeedList {
	return []backend.SeedList{
		{Name: models.KindArea, Items: []backend.SeedItem{
			{ID: London, Name: "London", SortOrder: models.IntPtr(1)},
			{ID: Hackney, Name: "Hackney", ParentID: London},
			{ID: Shoreditch, Name: "Shoreditch", ParentID: Hackney},
			{ID: Leeds, Name: "Leeds", SortOrder: models.IntPtr(2)},
		}},
		{Name: models.KindCategory, Items: []backend.SeedItem{
			{ID: FoodDrink, Name: "Food & Drink", SortOrder: models.IntPtr(1)},
			{ID: Home, Name: "Home", SortOrder: models.IntPtr(2)},
		}},
		{Name: models.KindSubcategory, Items: []backend.SeedItem{
			{ID: Restaurant, Name: "Restaurant", ParentID: FoodDrink, SortOrder: models.IntPtr(1)},
			{ID: Plumber, Name: "Plumber", ParentID: Home, SortOrder: models.IntPtr(1)},
		}},
	}
}

// SeededStore returns a TestStore loaded with FixtureLists.
func SeededStore(t *testing.T, opts ...sqlstore.Option) *sqlstore.Store {
	t.Helper()
	s := TestStore(t, opts...)
	if err := s.ApplySeed(context.Background(), FixtureLists(), "fixture"); err != nil {
		t.Fatalf("seed fixture: %v", err)
	}
	return s
}
