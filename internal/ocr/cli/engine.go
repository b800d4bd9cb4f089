// Package cli implements the OCR engine that shells out to an external
// recognition binary, one invocation per page.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/pkg/models"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// Engine invokes an external OCR binary with `--image <png>` and parses a
// JSON {"text": ...} document from stdout.
type Engine struct {
	cfg    config.CLIConfig
	runner Runner
}

func NewEngine(cfg config.CLIConfig) *Engine {
	return &Engine{cfg: cfg, runner: execRunner{}}
}

// NewEngineWithRunner is used by tests to substitute the process runner.
func NewEngineWithRunner(cfg config.CLIConfig, r Runner) *Engine {
	return &Engine{cfg: cfg, runner: r}
}

func (e *Engine) Name() string { return "cli" }

func (e *Engine) Recognize(ctx context.Context, page models.PageImage) (string, error) {
	if e.cfg.Path == "" {
		return "", fmt.Errorf("%w: CLI_OCR_PATH not configured", models.ErrEngineUnavailable)
	}

	tmp, err := os.CreateTemp("", "partscan-page-*.png")
	if err != nil {
		return "", fmt.Errorf("writing page image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(page.PNG); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing page image: %w", err)
	}

	stdout, stderr, err := e.runner.Run(ctx, e.cfg.Path, "--image", tmp.Name())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: binary %q not found", models.ErrEngineUnavailable, e.cfg.Path)
		}
		return "", fmt.Errorf("ocr binary failed: %w: %s", err, truncate(string(stderr), 512))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &payload); err != nil {
		return "", fmt.Errorf("ocr binary output is not valid JSON: %w", err)
	}
	return payload.Text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

var _ models.OCREngine = (*Engine)(nil)
