package sidecar

import "github.com/asteria-studio/normalize-core/internal/pipelineerr"

// Determinism records what would need to match for two runs over the same
// inputs to be byte-identical.
type Determinism struct {
	AppVersion  string `json:"appVersion"`
	ConfigHash  string `json:"configHash"`
}

// Report is the run-level report.json: counts, errors, and the determinism
// fingerprint.
type Report struct {
	RunID            string                  `json:"runId"`
	ProjectID        string                  `json:"projectId"`
	Status           string                  `json:"status"` // "completed" | "cancelled"
	TotalPages       int                     `json:"totalPages"`
	NormalizedPages  int                     `json:"normalizedPages"`
	SkippedPages     int                     `json:"skippedPages"`
	ReviewPages      int                     `json:"reviewPages"`
	SecondPassPages  int                     `json:"secondPassPages"`
	Errors           []pipelineerr.PageError `json:"errors"`
	Determinism      Determinism             `json:"determinism"`
}
