package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/internal/master"
	"github.com/mkurosawa/partscan/internal/match"
	"github.com/mkurosawa/partscan/internal/ocr"
	"github.com/mkurosawa/partscan/internal/raster"
	"github.com/mkurosawa/partscan/internal/token"
	"github.com/mkurosawa/partscan/pkg/models"
)

// TextLayerBackend is reported as BackendUsed for pages whose embedded
// text layer was read directly, skipping OCR.
const TextLayerBackend = "text-layer"

var (
	// ErrNotCompleted is returned when results are requested before the job
	// has finished.
	ErrNotCompleted = errors.New("job: not completed")
	// ErrNotRetryable is returned when retry is requested for a job that did
	// not fail.
	ErrNotRetryable = errors.New("job: only failed jobs can be retried")
	// ErrNoDocuments is returned for a submission without any documents.
	ErrNoDocuments = errors.New("job: no documents submitted")
)

// Service accepts submissions and runs each as a background scan.
type Service struct {
	store      *Store
	rasterizer raster.Rasterizer
	cfg        *config.Config
	extractor  *token.Extractor

	// chains builds the adapter chain for a requested backend. Tests swap
	// in chains of mock engines.
	chains func(backend string) ([]*ocr.Adapter, error)
}

func NewService(store *Store, rasterizer raster.Rasterizer, cfg *config.Config) *Service {
	s := &Service{
		store:      store,
		rasterizer: rasterizer,
		cfg:        cfg,
		extractor: token.NewExtractor(token.Config{
			MinLength:  cfg.Token.MinLength,
			MaxLength:  cfg.Token.MaxLength,
			Separators: cfg.Token.Separators,
		}),
	}
	s.chains = func(backend string) ([]*ocr.Adapter, error) {
		return ocr.BuildChain(backend, cfg.OCR)
	}
	return s
}

// Submit validates the submission, registers a job, and starts its runner.
// Backend and document-list problems surface here; everything that can only
// be discovered by doing the work (master parsing, rendering, OCR) is
// reported through the job state instead.
func (s *Service) Submit(_ context.Context, sub Submission) (uuid.UUID, error) {
	if sub.Backend == "" {
		sub.Backend = s.cfg.OCR.DefaultBackend
	}
	if _, err := s.chains(sub.Backend); err != nil {
		return uuid.Nil, err
	}
	if len(sub.Documents) == 0 {
		return uuid.Nil, ErrNoDocuments
	}

	j := newJob(sub)
	s.store.Put(j)

	j.tryStart()
	go s.run(j)

	slog.Info("job submitted",
		"job_id", j.ID,
		"backend", sub.Backend,
		"documents", len(sub.Documents))
	return j.ID, nil
}

// Status returns the latest snapshot for id.
func (s *Service) Status(id uuid.UUID) (models.JobSnapshot, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return models.JobSnapshot{}, err
	}
	return j.Snapshot(), nil
}

// Results returns matched tokens for a completed job.
func (s *Service) Results(id uuid.UUID) ([]models.MatchResult, error) {
	return s.completedSlice(id, func(snap models.JobSnapshot) []models.MatchResult {
		return snap.Results
	})
}

// Failures returns unmatched tokens for a completed job.
func (s *Service) Failures(id uuid.UUID) ([]models.MatchResult, error) {
	return s.completedSlice(id, func(snap models.JobSnapshot) []models.MatchResult {
		return snap.Failures
	})
}

func (s *Service) completedSlice(id uuid.UUID, pick func(models.JobSnapshot) []models.MatchResult) ([]models.MatchResult, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	snap := j.Snapshot()
	if snap.Status != models.JobStatusCompleted {
		return nil, ErrNotCompleted
	}
	return pick(snap), nil
}

// Candidates ranks master part numbers against a manually corrected token.
// The job must have built its master index, which happens on any run that
// got past master parsing.
func (s *Service) Candidates(id uuid.UUID, corrected string) ([]string, string, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return nil, "", err
	}
	idx := j.Index()
	if idx == nil {
		return nil, "", ErrNotCompleted
	}
	ids, reason := match.Rank(corrected, idx, match.RankConfig{
		Limit:           s.cfg.Match.CandidateLimit,
		MaxEditDistance: s.cfg.Match.MaxEditDistance,
	})
	return ids, reason, nil
}

// Retry re-runs a failed job from scratch under the same ID.
func (s *Service) Retry(id uuid.UUID) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}
	snap := j.Snapshot()
	if snap.Status != models.JobStatusFailed {
		return ErrNotRetryable
	}
	if !j.tryStart() {
		return ErrNotRetryable
	}

	j.publish(models.JobSnapshot{
		ID:               j.ID,
		Status:           models.JobStatusQueued,
		BackendRequested: j.submission.Backend,
		CreatedAt:        snap.CreatedAt,
	})
	go s.run(j)

	slog.Info("job retry started", "job_id", j.ID)
	return nil
}

// run executes the whole scan. It is the only goroutine that mutates the
// job, publishing a fresh snapshot after every page.
func (s *Service) run(j *Job) {
	ctx := context.Background()
	defer j.finish()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in job runner", "error", r, "job_id", j.ID)
			snap := j.Snapshot()
			snap.Status = models.JobStatusFailed
			snap.Error = fmt.Sprintf("panic: %v", r)
			j.publish(snap)
		}
	}()

	snap := j.Snapshot()
	snap.Status = models.JobStatusRunning
	j.publish(snap)

	records, err := master.Load(j.submission.MasterData)
	if err != nil {
		s.fail(j, fmt.Errorf("loading master data: %w", err))
		return
	}
	idx, err := match.NewIndex(records)
	if err != nil {
		s.fail(j, fmt.Errorf("indexing master data: %w", err))
		return
	}
	j.index.Store(idx)

	docs, pageFailures, totalPages := s.openDocuments(j.submission.Documents)
	defer func() {
		for _, d := range docs {
			_ = d.doc.Close()
		}
	}()

	snap = j.Snapshot()
	snap.Pages = totalPages
	snap.PagesDone = len(pageFailures)
	snap.Progress = percent(snap.PagesDone, totalPages)
	snap.PageFailures = pageFailures
	j.publish(snap)

	chain, err := s.chains(j.submission.Backend)
	if err != nil {
		s.fail(j, fmt.Errorf("building ocr chain: %w", err))
		return
	}
	selector := ocr.NewSelector(chain)

	for _, d := range docs {
		for page := 1; page <= d.doc.NumPages(); page++ {
			snap = s.scanPage(ctx, j, selector, idx, d, page)
			snap.Progress = percent(snap.PagesDone, snap.Pages)
			j.publish(snap)
		}
	}

	snap = j.Snapshot()
	snap.Status = models.JobStatusCompleted
	snap.Progress = 100
	j.publish(snap)

	// Completed jobs no longer need their uploads. Failed jobs keep the
	// work dir so Retry can re-read the documents.
	if dir := j.submission.WorkDir; dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("work dir cleanup failed", "job_id", j.ID, "dir", dir, "error", err)
		}
	}

	slog.Info("job completed",
		"job_id", j.ID,
		"pages", snap.Pages,
		"tokens", snap.Totals.Tokens,
		"matched", snap.Totals.Matched,
		"backend_used", snap.BackendUsed)
}

type openDoc struct {
	name string
	doc  raster.Document
}

// openDocuments opens every submitted file. A file that cannot be opened is
// recorded as a single-page failure so it shows up in the page count and in
// the failure report without failing the job.
func (s *Service) openDocuments(documents []Document) ([]openDoc, []models.PageFailure, int) {
	var (
		docs     []openDoc
		failures []models.PageFailure
		total    int
	)
	for _, d := range documents {
		doc, err := s.rasterizer.Open(d.Path)
		if err != nil {
			slog.Warn("document open failed", "document", d.Name, "error", err)
			failures = append(failures, models.PageFailure{
				Document: d.Name,
				Page:     1,
				Reason:   fmt.Sprintf("open failed: %v", err),
			})
			total++
			continue
		}
		docs = append(docs, openDoc{name: d.Name, doc: doc})
		total += doc.NumPages()
	}
	return docs, failures, total
}

// scanPage renders, recognizes, and matches one page, returning the next
// snapshot to publish. Slices grow by append on the runner goroutine only;
// previously published snapshots keep their shorter lengths and stay
// consistent.
func (s *Service) scanPage(ctx context.Context, j *Job, selector *ocr.Selector, idx *match.Index, d openDoc, page int) models.JobSnapshot {
	snap := j.Snapshot()
	snap.PagesDone++

	// Drawings exported straight from CAD carry an embedded text layer;
	// OCR is only needed for scans. Anything shorter than the threshold is
	// treated as incidental metadata and rasterized like a scan.
	if text, err := d.doc.Text(page); err == nil && utf8.RuneCountInString(strings.TrimSpace(text)) >= s.minTextChars() {
		snap.BackendUsed = TextLayerBackend
		s.matchTokens(&snap, idx, text, d.name, page)
		return snap
	}

	png, err := d.doc.Render(ctx, page)
	if err != nil {
		slog.Warn("page render failed", "job_id", j.ID, "document", d.name, "page", page, "error", err)
		snap.PageFailures = append(snap.PageFailures, models.PageFailure{
			Document: d.name,
			Page:     page,
			Reason:   fmt.Sprintf("render failed: %v", err),
		})
		return snap
	}

	rec, ok := selector.Recognize(ctx, models.PageImage{Document: d.name, Page: page, PNG: png})
	snap.BackendUsed = selector.BackendUsed()
	if !ok {
		reason := fmt.Sprintf("all ocr backends exhausted (last: %s, outcome: %s)", rec.Backend, rec.Outcome)
		if rec.Err != nil {
			reason = fmt.Sprintf("%s: %v", reason, rec.Err)
		}
		snap.PageFailures = append(snap.PageFailures, models.PageFailure{
			Document: d.name,
			Page:     page,
			Reason:   reason,
		})
		return snap
	}

	s.matchTokens(&snap, idx, rec.Text, d.name, page)
	return snap
}

// matchTokens extracts candidate tokens from text and folds every match into
// the snapshot. Results holds every observation; Failures is the unmatched
// subset. Tokens always equals len(Results).
func (s *Service) matchTokens(snap *models.JobSnapshot, idx *match.Index, text, document string, page int) {
	for _, raw := range s.extractor.Extract(text) {
		tok := models.Token{
			Raw:        raw,
			Normalized: token.Normalize(raw),
			Document:   document,
			Page:       page,
		}
		result := match.Match(tok, idx)

		snap.Totals.Tokens++
		snap.Results = append(snap.Results, result)
		switch result.Kind {
		case models.MatchExact:
			snap.Totals.Matched++
			snap.Totals.Exact++
		case models.MatchPartial:
			snap.Totals.Matched++
			snap.Totals.Partial++
		default:
			snap.Totals.Failed++
			snap.Failures = append(snap.Failures, result)
		}
	}
}

// minTextChars is the shared "enough text to trust" threshold for both the
// text-layer check and the degraded-outcome classification.
func (s *Service) minTextChars() int {
	if s.cfg.OCR.MinTextChars > 0 {
		return s.cfg.OCR.MinTextChars
	}
	return ocr.DefaultMinTextChars
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

func (s *Service) fail(j *Job, err error) {
	slog.Error("job failed", "job_id", j.ID, "error", err)
	snap := j.Snapshot()
	snap.Status = models.JobStatusFailed
	snap.Error = err.Error()
	j.publish(snap)
}
