package cli_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/internal/ocr/cli"
	"github.com/mkurosawa/partscan/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error

	gotName string
	gotArgs []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.gotName = name
	s.gotArgs = args
	return s.stdout, s.stderr, s.err
}

func pageImage() models.PageImage {
	return models.PageImage{Document: "drawing.pdf", Page: 1, PNG: []byte{0x89, 'P', 'N', 'G'}}
}

func TestRecognize_ParsesJSONText(t *testing.T) {
	r := &stubRunner{stdout: []byte(`{"text": "AB-1234 CD-5678"}` + "\n")}
	e := cli.NewEngineWithRunner(config.CLIConfig{Path: "/opt/ocr/bin/recognize"}, r)

	text, err := e.Recognize(context.Background(), pageImage())
	require.NoError(t, err)
	assert.Equal(t, "AB-1234 CD-5678", text)

	assert.Equal(t, "/opt/ocr/bin/recognize", r.gotName)
	require.Len(t, r.gotArgs, 2)
	assert.Equal(t, "--image", r.gotArgs[0])
	// The temp file is cleaned up after the call.
	_, statErr := os.Stat(r.gotArgs[1])
	assert.True(t, os.IsNotExist(statErr))
}

func TestRecognize_UnconfiguredPathIsUnavailable(t *testing.T) {
	e := cli.NewEngineWithRunner(config.CLIConfig{}, &stubRunner{})

	_, err := e.Recognize(context.Background(), pageImage())
	assert.ErrorIs(t, err, models.ErrEngineUnavailable)
}

func TestRecognize_MissingBinaryIsUnavailable(t *testing.T) {
	r := &stubRunner{err: exec.ErrNotFound}
	e := cli.NewEngineWithRunner(config.CLIConfig{Path: "/nonexistent"}, r)

	_, err := e.Recognize(context.Background(), pageImage())
	assert.ErrorIs(t, err, models.ErrEngineUnavailable)
}

func TestRecognize_NonZeroExitIsError(t *testing.T) {
	r := &stubRunner{err: errors.New("exit status 2"), stderr: []byte("model cache corrupt")}
	e := cli.NewEngineWithRunner(config.CLIConfig{Path: "/opt/ocr/bin/recognize"}, r)

	_, err := e.Recognize(context.Background(), pageImage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "model cache corrupt")
}

func TestRecognize_NonJSONOutputIsError(t *testing.T) {
	r := &stubRunner{stdout: []byte("Segmentation fault")}
	e := cli.NewEngineWithRunner(config.CLIConfig{Path: "/opt/ocr/bin/recognize"}, r)

	_, err := e.Recognize(context.Background(), pageImage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}
