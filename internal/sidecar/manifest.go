package sidecar

import "sort"

// ManifestPage is one page's entry in the run manifest.
type ManifestPage struct {
	PageID         string   `json:"pageId"`
	SourcePath     string   `json:"sourcePath"`
	Checksum       string   `json:"checksum,omitempty"`
	NormalizedFile string   `json:"normalizedFile,omitempty"`
	SidecarFile    string   `json:"sidecarFile,omitempty"`
	OverlayFile    string   `json:"overlayFile,omitempty"`
	PreviewFiles   []string `json:"previewFiles,omitempty"`
	Profile        string   `json:"profile,omitempty"`
	Status         string   `json:"status"` // "normalized" | "skipped" | "failed"
}

// Manifest is the run-level index of every page's output artifacts.
type Manifest struct {
	RunID     string         `json:"runId"`
	ProjectID string         `json:"projectId"`
	Pages     []ManifestPage `json:"pages"`
}

// SortPages orders pages by page id, the manifest's required write order.
func (m *Manifest) SortPages() {
	sort.Slice(m.Pages, func(i, j int) bool { return m.Pages[i].PageID < m.Pages[j].PageID })
}
