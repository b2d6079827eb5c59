package syncer

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/github"
)

// FilterAssets returns the assets whose names match pattern. An empty
// pattern matches everything.
func FilterAssets(assets []github.Asset, pattern string) ([]github.Asset, error) {
	if pattern == "" {
		return assets, nil
	}

	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling asset pattern %q: %w", pattern, err)
	}

	var filtered []github.Asset
	for _, asset := range assets {
		if matcher.Match(asset.Name) {
			filtered = append(filtered, asset)
		}
	}

	log.Info().
		Str("pattern", pattern).
		Int("matched", len(filtered)).
		Int("total", len(assets)).
		Msg("Filtered release assets")

	return filtered, nil
}
