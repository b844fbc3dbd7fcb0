package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/vouch/internal/backend"
)

// Sync applies the seed file at path unless its checksum matches the one
// recorded by the last successful apply. It reports whether anything was
// written.
func Sync(ctx context.Context, seeder backend.Seeder, path string, logger *slog.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("seed: read %s: %w", path, err)
	}
	sum := Checksum(data)

	current, err := seeder.SeedChecksum(ctx)
	if err != nil {
		return false, err
	}
	if current == sum {
		logger.Debug("seed: unchanged", slog.String("path", path))
		return false, nil
	}

	lists, err := Parse(data)
	if err != nil {
		return false, err
	}
	if err := seeder.ApplySeed(ctx, lists, sum); err != nil {
		return false, err
	}

	items := 0
	for _, l := range lists {
		items += len(l.Items)
	}
	logger.Info("seed: applied",
		slog.String("path", path),
		slog.Int("lists", len(lists)),
		slog.Int("items", items))
	return true, nil
}
