package page

import "testing"

func TestStableID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"scan0001.jpg", "scan0001"},
		{"Jiří-scan.png", "Jiri-scan"},
		{"folder/page 12.tif", "page 12"},
		{"café/naïve.jpeg", "naive"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := StableID(tt.input)
			if result != tt.expected {
				t.Errorf("StableID(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisambiguateID(t *testing.T) {
	got := DisambiguateID("chapterA/page1.jpg", "page1")
	if got != "chapterA_page1" {
		t.Errorf("DisambiguateID = %q, want chapterA_page1", got)
	}

	got = DisambiguateID("page1.jpg", "page1")
	if got != "page1" {
		t.Errorf("DisambiguateID with no dir = %q, want page1", got)
	}
}
