package sidecar

// ReviewSpread records the spread-split outcome for a review item whose page
// was considered for (or underwent) splitting.
type ReviewSpread struct {
	Detected     bool    `json:"detected"`
	Confidence   float64 `json:"confidence"`
	GutterStartX float64 `json:"gutterStartX,omitempty"`
	GutterEndX   float64 `json:"gutterEndX,omitempty"`
}

// QualityGateStatus is the nested quality-gate verdict recorded on a review
// item: whether the gate accepted the page and, if not, why.
type QualityGateStatus struct {
	Accepted bool     `json:"accepted"`
	Reasons  []string `json:"reasons,omitempty"`
}

// PreviewRef points at one rendered preview image for a review item.
type PreviewRef struct {
	Kind   string `json:"kind"` // "source" | "normalized"
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ReviewItem is one page routed to human review.
type ReviewItem struct {
	PageID          string            `json:"pageId"`
	Filename        string            `json:"filename"`
	Profile         string            `json:"profile"`
	Confidence      float64           `json:"confidence"`
	Reason          string            `json:"reason"` // "quality-gate" | "semantic-layout"
	SuggestedAction string            `json:"suggestedAction"` // "adjust" | "confirm"
	GateReasons     []string          `json:"gateReasons,omitempty"`
	QualityGate     QualityGateStatus `json:"qualityGate"`
	Previews        []PreviewRef      `json:"previews,omitempty"`
	Spread          *ReviewSpread     `json:"spread,omitempty"`
}

// ReviewQueue is the run-level review-queue.json.
type ReviewQueue struct {
	RunID string       `json:"runId"`
	Items []ReviewItem `json:"items"`
}
