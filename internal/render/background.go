package render

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nightshift/internal/config"
	"nightshift/internal/services"
)

var backgroundExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".webm": {},
	".mkv":  {},
}

// listBackgrounds returns the candidate pool for a customer: their own
// directory when it has videos, otherwise the shared pool.
func listBackgrounds(cfg *config.Config, customerID string) ([]string, error) {
	for _, dir := range []string{
		cfg.CustomerBackgroundsDir(customerID),
		cfg.SharedBackgroundsDir(),
	} {
		videos, err := listVideos(dir)
		if err != nil {
			return nil, err
		}
		if len(videos) > 0 {
			return videos, nil
		}
	}
	return nil, services.Wrap(services.ErrConfiguration, "render", "pick background",
		"no background videos for customer "+customerID, nil)
}

func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrTransient, "render", "pick background", "read pool directory", err)
	}

	var videos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := backgroundExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			videos = append(videos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}

func pickBackground(cfg *config.Config, customerID string, rng *rand.Rand) (string, error) {
	videos, err := listBackgrounds(cfg, customerID)
	if err != nil {
		return "", err
	}
	return videos[rng.Intn(len(videos))], nil
}
