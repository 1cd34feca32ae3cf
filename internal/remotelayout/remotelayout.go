// Package remotelayout implements the optional remote layout collaborator:
// an HTTP POST of a downsized page raster that returns candidate layout
// elements. The request/response shape and base64-image-payload convention
// are grounded on the teacher's Ollama provider; the Collaborator interface
// generalizes the teacher's Provider interface to this single call.
package remotelayout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/asteria-studio/normalize-core/internal/constants"
)

// Element is a candidate layout region returned by the collaborator.
type Element struct {
	Type       string    `json:"type"`
	Bbox       [4]int    `json:"bbox"`
	Confidence float64   `json:"confidence"`
}

var allowedElementTypes = map[string]bool{
	"page_bounds":  true,
	"text_block":   true,
	"title":        true,
	"running_head": true,
	"folio":        true,
	"ornament":     true,
	"drop_cap":     true,
	"footnote":     true,
	"marginalia":   true,
}

// Collaborator is the optional remote layout backend.
type Collaborator interface {
	DetectLayout(ctx context.Context, pageID string, img image.Image) ([]Element, error)
}

// request is the wire shape POSTed to the collaborator.
type request struct {
	PageID      string `json:"pageId"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"imageBase64"`
	ImageMime   string `json:"imageMime"`
}

type response struct {
	Elements []Element `json:"elements"`
}

// Config configures an HTTPClient collaborator.
type Config struct {
	Endpoint        string
	Token           string
	TimeoutMs       int
	MaxPayloadBytes int64
	MaxDimension    int
}

// HTTPClient is the default net/http-based Collaborator implementation.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient validates cfg.Endpoint (must be HTTPS, or http://localhost
// with an optional port) and returns a ready collaborator.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, err
	}
	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = constants.DefaultRemoteLayoutTimeoutMs
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}, nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("remotelayout: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" {
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
	}
	return fmt.Errorf("remotelayout: endpoint %q must be HTTPS or http://localhost[:port]", endpoint)
}

// DetectLayout downsizes img to stay within the configured payload and
// dimension caps, POSTs it, and returns allowed, bbox-clamped elements
// tagged with source="remote" by the caller.
func (c *HTTPClient) DetectLayout(ctx context.Context, pageID string, img image.Image) ([]Element, error) {
	payload, w, h, err := encodeCapped(img, c.cfg.MaxDimension, c.cfg.MaxPayloadBytes)
	if err != nil {
		return nil, err
	}

	reqBody := request{
		PageID:      pageID,
		Width:       w,
		Height:      h,
		ImageBase64: base64.StdEncoding.EncodeToString(payload),
		ImageMime:   "image/jpeg",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("remotelayout: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("remotelayout: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remotelayout: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remotelayout: unexpected status %d", resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("remotelayout: decode response: %w", err)
	}

	return sanitize(parsed.Elements, w, h), nil
}

// sanitize drops elements of a disallowed type and clamps bboxes to the
// image's own bounds.
func sanitize(elements []Element, w, h int) []Element {
	out := make([]Element, 0, len(elements))
	for _, e := range elements {
		if !allowedElementTypes[e.Type] {
			continue
		}
		e.Bbox = clampBox(e.Bbox, w, h)
		e.Confidence = clamp01(e.Confidence)
		out = append(out, e)
	}
	return out
}

func clampBox(b [4]int, w, h int) [4]int {
	if b[0] < 0 {
		b[0] = 0
	}
	if b[1] < 0 {
		b[1] = 0
	}
	if b[2] > w-1 {
		b[2] = w - 1
	}
	if b[3] > h-1 {
		b[3] = h - 1
	}
	if b[2] < b[0] {
		b[2] = b[0]
	}
	if b[3] < b[1] {
		b[3] = b[1]
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// encodeCapped downscales img so neither dimension exceeds maxDimension,
// then JPEG-encodes at decreasing quality until the payload fits
// maxPayloadBytes.
func encodeCapped(img image.Image, maxDimension int, maxPayloadBytes int64) ([]byte, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		scale := float64(maxDimension) / float64(maxInt(w, h))
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
		w, h = nw, nh
	}

	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 8 * 1024 * 1024
	}
	for quality := 90; quality >= 30; quality -= 15 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, 0, 0, fmt.Errorf("remotelayout: encode payload: %w", err)
		}
		if int64(buf.Len()) <= maxPayloadBytes {
			return buf.Bytes(), w, h, nil
		}
	}
	return nil, 0, 0, errors.New("remotelayout: could not fit payload within max payload bytes")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ResolveEndpoint returns a usable display form of an endpoint, trimming
// trailing slashes the way the teacher's Ollama client normalizes its base
// URL.
func ResolveEndpoint(endpoint string) string {
	return strings.TrimSuffix(endpoint, "/")
}
