package ocr_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mkurosawa/partscan/internal/ocr"
	"github.com/mkurosawa/partscan/internal/ocr/mock"
	"github.com/mkurosawa/partscan/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usableText = "図面番号 AB-1234 部品リスト CD-5678 その他の注記"

// countingEngine wraps a mock engine and records which pages it saw.
type countingEngine struct {
	*mock.Engine
	calls []int
}

func (c *countingEngine) Recognize(ctx context.Context, p models.PageImage) (string, error) {
	c.calls = append(c.calls, p.Page)
	return c.Engine.Recognize(ctx, p)
}

func chainOf(engines ...models.OCREngine) []*ocr.Adapter {
	chain := make([]*ocr.Adapter, 0, len(engines))
	for _, e := range engines {
		chain = append(chain, ocr.NewAdapter(e, 20, 0))
	}
	return chain
}

func TestSelector_StaysOnPreferredWhileOK(t *testing.T) {
	primary := &countingEngine{Engine: mock.NewEngine("remote", usableText)}
	alternate := &countingEngine{Engine: mock.NewEngine("tesseract", usableText)}
	s := ocr.NewSelector(chainOf(primary, alternate))

	for p := 1; p <= 3; p++ {
		rec, ok := s.Recognize(context.Background(), page(p))
		require.True(t, ok)
		assert.Equal(t, "remote", rec.Backend)
	}
	assert.Equal(t, []int{1, 2, 3}, primary.calls)
	assert.Empty(t, alternate.calls)
	assert.Equal(t, "remote", s.BackendUsed())
}

func TestSelector_EscalatesAndSticks(t *testing.T) {
	primary := &countingEngine{Engine: mock.NewUnavailableEngine("remote")}
	alternate := &countingEngine{Engine: mock.NewEngine("tesseract", usableText)}
	s := ocr.NewSelector(chainOf(primary, alternate))

	// Page 1 escalates and is re-run against the alternate immediately.
	rec, ok := s.Recognize(context.Background(), page(1))
	require.True(t, ok)
	assert.Equal(t, "tesseract", rec.Backend)

	// Subsequent pages never attempt the abandoned backend again.
	for p := 2; p <= 3; p++ {
		rec, ok := s.Recognize(context.Background(), page(p))
		require.True(t, ok)
		assert.Equal(t, "tesseract", rec.Backend)
	}
	assert.Equal(t, []int{1}, primary.calls)
	assert.Equal(t, []int{1, 2, 3}, alternate.calls)
	assert.Equal(t, "tesseract", s.BackendUsed())
}

func TestSelector_DegradedTriggersEscalation(t *testing.T) {
	degraded := mock.NewEngine("remote", "x")
	alternate := mock.NewEngine("tesseract", usableText)
	s := ocr.NewSelector(chainOf(degraded, alternate))

	rec, ok := s.Recognize(context.Background(), page(1))
	require.True(t, ok)
	assert.Equal(t, "tesseract", rec.Backend)
}

func TestSelector_AllBackendsExhausted(t *testing.T) {
	s := ocr.NewSelector(chainOf(
		mock.NewUnavailableEngine("remote"),
		mock.NewUnavailableEngine("tesseract"),
	))

	rec, ok := s.Recognize(context.Background(), page(1))
	assert.False(t, ok)
	assert.Equal(t, models.OutcomeUnavailable, rec.Outcome)
	// backend_used reflects the last one attempted when nothing succeeded.
	assert.Equal(t, "tesseract", s.BackendUsed())
}

func TestSelector_LastAlternateStillAttemptedAfterExhaustion(t *testing.T) {
	primary := &countingEngine{Engine: mock.NewUnavailableEngine("remote")}
	flaky := &countingEngine{Engine: mock.NewScriptedEngine("tesseract", map[int]string{
		2: usableText,
		3: usableText,
	})}
	s := ocr.NewSelector(chainOf(primary, flaky))

	_, ok := s.Recognize(context.Background(), page(1))
	assert.False(t, ok)

	// Page 2 still gets one attempt against the last alternate.
	rec, ok := s.Recognize(context.Background(), page(2))
	require.True(t, ok)
	assert.Equal(t, "tesseract", rec.Backend)
	assert.Equal(t, []int{1}, primary.calls)
}

func TestBuildChain_RequestedFirstNoDuplicates(t *testing.T) {
	cfg := testOCRConfig()
	chain, err := ocr.BuildChain("tesseract", cfg)
	require.NoError(t, err)

	names := make([]string, 0, len(chain))
	for _, a := range chain {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"tesseract", "remote", "cli"}, names)
}

func TestBuildChain_UnknownBackend(t *testing.T) {
	_, err := ocr.BuildChain("paddleocr", testOCRConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrUnknownBackend)
	assert.True(t, strings.Contains(err.Error(), "paddleocr"))
}
