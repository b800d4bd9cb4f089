// Package remote implements the OCR engine backed by a remote recognition
// service speaking the /v1/ocr multipart protocol.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/pkg/models"
)

// Engine posts page images to a remote OCR service over HTTP.
type Engine struct {
	cfg    config.RemoteConfig
	client *http.Client
}

func NewEngine(cfg config.RemoteConfig, timeout time.Duration) *Engine {
	return &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *Engine) Name() string { return "remote" }

// Recognize uploads one PNG page and flattens the service response to a
// single string. Transport-level failures classify as unavailable; an HTTP
// error status or an unparsable payload is a runtime fault.
func (e *Engine) Recognize(ctx context.Context, page models.PageImage) (string, error) {
	if e.cfg.BaseURL == "" {
		return "", fmt.Errorf("%w: REMOTE_OCR_BASE_URL not configured", models.ErrEngineUnavailable)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fmt.Sprintf("page-%d.png", page.Page))
	if err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(page.PNG); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("remote ocr returned status %d for page %d", resp.StatusCode, page.Page)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("reading remote ocr response: %w", err)
	}
	return flattenPayload(payload)
}

// flattenPayload accepts either {"pages":[{"text":...},...]} or {"text":...}
// and joins everything into one flat string.
func flattenPayload(raw []byte) (string, error) {
	var payload struct {
		Pages []struct {
			Text string `json:"text"`
		} `json:"pages"`
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("remote ocr response is not valid JSON: %w", err)
	}
	if len(payload.Pages) > 0 {
		parts := make([]string, 0, len(payload.Pages))
		for _, p := range payload.Pages {
			parts = append(parts, p.Text)
		}
		return strings.Join(parts, "\n"), nil
	}
	if payload.Text != nil {
		return *payload.Text, nil
	}
	return "", fmt.Errorf("remote ocr response contained neither pages nor text")
}

// classifyTransportError maps connection-level failures to the unavailable
// sentinel; everything else stays a plain error.
func classifyTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return fmt.Errorf("%w: request timed out: %v", models.ErrEngineUnavailable, err)
		}
		return fmt.Errorf("%w: %v", models.ErrEngineUnavailable, err)
	}
	return fmt.Errorf("remote ocr request failed: %w", err)
}

var _ models.OCREngine = (*Engine)(nil)
