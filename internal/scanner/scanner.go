// Package scanner discovers the image files that make up a run's corpus and
// assigns each a stable page id, following the directory-walk pattern of the
// teacher's upload command.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asteria-studio/normalize-core/internal/page"
	"github.com/asteria-studio/normalize-core/internal/pipelineerr"
)

var supportedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

func isImageFile(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

// Options configures a scan. All fields are optional.
type Options struct {
	ProjectID          string
	IncludeChecksums   bool
	TargetDpi          float64
	TargetDimensionsMm [2]float64
}

// PipelineRunConfig is the scanner's output: every discovered page plus the
// options the rest of the pipeline needs to carry forward.
type PipelineRunConfig struct {
	ProjectID          string
	Root               string
	Pages              []page.Page
	TargetDpi          float64
	TargetDimensionsMm [2]float64
}

// Scan walks root for supported images and returns a PipelineRunConfig with
// one Page per file, sorted lexicographically by relative path. It returns a
// *pipelineerr.ScanError for an unreadable root, a non-directory root, or a
// root containing no supported images — the only conditions that abort a
// run outright.
func Scan(root string, opts Options) (*PipelineRunConfig, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, pipelineerr.NewScanError(root, fmt.Sprintf("cannot access root: %v", err))
	}
	if !info.IsDir() {
		return nil, pipelineerr.NewScanError(root, "root is not a directory")
	}

	var relPaths []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isImageFile(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return nil, pipelineerr.NewScanError(root, fmt.Sprintf("cannot walk root: %v", err))
	}
	if len(relPaths) == 0 {
		return nil, pipelineerr.NewScanError(root, "no supported images found")
	}
	sort.Strings(relPaths)

	pages := make([]page.Page, 0, len(relPaths))
	seen := make(map[string]int, len(relPaths))
	for _, rel := range relPaths {
		id := page.StableID(rel)
		if _, exists := seen[id]; exists {
			id = page.DisambiguateID(rel, id)
		}
		for n := 2; ; n++ {
			if _, exists := seen[id]; !exists {
				break
			}
			id = fmt.Sprintf("%s_%d", id, n)
		}
		seen[id]++

		absPath := filepath.Join(root, rel)
		p := page.Page{
			ID:           id,
			Filename:     filepath.Base(rel),
			OriginalPath: absPath,
		}
		if opts.IncludeChecksums {
			checksum, err := fileChecksum(absPath)
			if err != nil {
				return nil, pipelineerr.NewScanError(root, fmt.Sprintf("cannot checksum %s: %v", rel, err))
			}
			p.Checksum = checksum
		}
		pages = append(pages, p)
	}

	return &PipelineRunConfig{
		ProjectID:          opts.ProjectID,
		Root:               root,
		Pages:              pages,
		TargetDpi:          opts.TargetDpi,
		TargetDimensionsMm: opts.TargetDimensionsMm,
	}, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
