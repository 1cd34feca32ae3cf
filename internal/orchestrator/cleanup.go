package orchestrator

import (
	"encoding/json"
	"os"

	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// cleanupStaleOutputs reads a previous run's manifest (if any) from
// manifestPath and deletes the normalized file, previews, and overlay for
// every page whose checksum changed or that no longer appears in current.
// Missing files are ignored; this runs before normalization so a stale
// output never survives alongside a page the corpus no longer has.
func cleanupStaleOutputs(manifestPath string, current []checksumEntry) error {
	prev, err := readManifest(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	currentByID := make(map[string]string, len(current))
	for _, c := range current {
		currentByID[c.PageID] = c.Checksum
	}

	for _, pg := range prev.Pages {
		newChecksum, stillPresent := currentByID[pg.PageID]
		if stillPresent && newChecksum == pg.Checksum && pg.Checksum != "" {
			continue
		}
		removeIfExists(pg.NormalizedFile)
		removeIfExists(pg.OverlayFile)
		for _, preview := range pg.PreviewFiles {
			removeIfExists(preview)
		}
	}
	return nil
}

type checksumEntry struct {
	PageID   string
	Checksum string
}

func readManifest(path string) (sidecar.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sidecar.Manifest{}, err
	}
	var m sidecar.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return sidecar.Manifest{}, err
	}
	return m, nil
}

func removeIfExists(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
