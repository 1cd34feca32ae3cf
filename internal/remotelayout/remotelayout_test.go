package remotelayout

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 180})
		}
	}
	return img
}

func TestNewHTTPClient_RejectsNonLocalHTTP(t *testing.T) {
	if _, err := NewHTTPClient(Config{Endpoint: "http://example.com/layout"}); err == nil {
		t.Fatal("expected rejection of non-localhost http endpoint")
	}
}

func TestNewHTTPClient_AcceptsHTTPS(t *testing.T) {
	if _, err := NewHTTPClient(Config{Endpoint: "https://layout.internal/detect"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewHTTPClient_AcceptsLocalhostHTTP(t *testing.T) {
	if _, err := NewHTTPClient(Config{Endpoint: "http://localhost:9090/detect"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPClient_DetectLayout_SanitizesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.PageID != "p1" {
			t.Errorf("expected pageId p1, got %s", req.PageID)
		}
		resp := response{Elements: []Element{
			{Type: "text_block", Bbox: [4]int{-5, -5, 10000, 10000}, Confidence: 1.4},
			{Type: "not-a-real-type", Bbox: [4]int{0, 0, 10, 10}, Confidence: 0.9},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Config{Endpoint: srv.URL, MaxDimension: 500, MaxPayloadBytes: 1024 * 1024})
	if err != nil {
		t.Fatalf("unexpected error constructing client: %v", err)
	}

	elements, err := client.DetectLayout(context.TODO(), "p1", testImage(800, 600))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("expected disallowed element type filtered out, got %d elements", len(elements))
	}
	if elements[0].Confidence != 1.0 {
		t.Errorf("expected confidence clamped to 1.0, got %f", elements[0].Confidence)
	}
}
