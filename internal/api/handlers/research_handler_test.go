package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/adapters/events"
	"github.com/zatekoja/keywordscout/internal/api/handlers"
	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

type stubRunner struct {
	mu             sync.Mutex
	progress       map[string]*entities.GenerationProgress
	runs           chan services.ResearchRequest
	resumed        chan string
	release        chan struct{}
	progressCalled chan struct{}
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		progress:       map[string]*entities.GenerationProgress{},
		runs:           make(chan services.ResearchRequest, 4),
		resumed:        make(chan string, 4),
		progressCalled: make(chan struct{}, 4),
	}
}

func (s *stubRunner) wait() {
	if s.release != nil {
		<-s.release
	}
}

func (s *stubRunner) Run(_ context.Context, req services.ResearchRequest, _ services.ProgressFunc) (*entities.ResearchReport, error) {
	s.runs <- req
	s.wait()
	return &entities.ResearchReport{RunID: req.RunID}, nil
}

func (s *stubRunner) Resume(_ context.Context, runID string, _ services.ResearchRequest, _ services.ProgressFunc) (*entities.ResearchReport, error) {
	s.resumed <- runID
	s.wait()
	return &entities.ResearchReport{RunID: runID}, nil
}

func (s *stubRunner) Progress(_ context.Context, runID string) (*entities.GenerationProgress, error) {
	select {
	case s.progressCalled <- struct{}{}:
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[runID]
	if !ok {
		return nil, &apperrors.AppError{Type: apperrors.ErrorTypeNotFound, Message: "research run not found", Err: apperrors.ErrRunNotFound}
	}
	return p.Clone(), nil
}

func TestResearchHandler_StartRun(t *testing.T) {
	runner := newStubRunner()
	h := handlers.NewResearchHandler(runner, nil, nil, time.Minute)

	body := `{"input":{"pitch":"dog walking app","topics":["pets"]},"target_count":25,
		"filters":[{"metric":"volume","operator":">=","value":"100"}]}`
	w := httptest.NewRecorder()
	h.StartRun(w, httptest.NewRequest(http.MethodPost, "/api/research/runs", strings.NewReader(body)))
	h.Wait()

	assert.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeBody(t, w)
	runID := resp["run_id"].(string)
	assert.NotEmpty(t, runID)
	assert.Equal(t, "/api/research/runs/"+runID+"/stream", resp["stream_url"])

	req := <-runner.runs
	assert.Equal(t, runID, req.RunID)
	assert.Equal(t, 25, req.TargetCount)
	assert.Equal(t, []string{"pets"}, req.Input.Topics)
	require.Len(t, req.Filters, 1)
	assert.Equal(t, 100.0, req.Filters[0].Value)
}

func TestResearchHandler_StartRun_Validation(t *testing.T) {
	h := handlers.NewResearchHandler(newStubRunner(), nil, nil, 0)

	for _, body := range []string{
		`{"input":{}}`,
		`{"input":{"pitch":"x"},"filters":[{"metric":"volume","operator":"!","value":1}]}`,
	} {
		w := httptest.NewRecorder()
		h.StartRun(w, httptest.NewRequest(http.MethodPost, "/api/research/runs", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestResearchHandler_GetRun(t *testing.T) {
	runner := newStubRunner()
	runner.progress["run-1"] = &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageGeneratingKeywords, SeedsProcessed: 3}
	h := handlers.NewResearchHandler(runner, nil, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/research/runs/run-1", nil)
	req.SetPathValue("id", "run-1")
	w := httptest.NewRecorder()
	h.GetRun(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "generating-keywords", resp["stage"])
	assert.Equal(t, float64(3), resp["seeds_processed"])

	req = httptest.NewRequest(http.MethodGet, "/api/research/runs/missing", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	h.GetRun(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func resumeRequest(runID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/research/runs/"+runID+"/resume", nil)
	req.SetPathValue("id", runID)
	return req
}

func TestResearchHandler_ResumeRun(t *testing.T) {
	runner := newStubRunner()
	runner.release = make(chan struct{})
	runner.progress["run-1"] = &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageError}
	runner.progress["done"] = &entities.GenerationProgress{RunID: "done", Stage: entities.StageComplete}
	h := handlers.NewResearchHandler(runner, nil, nil, 0)

	w := httptest.NewRecorder()
	h.ResumeRun(w, resumeRequest("run-1"))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "run-1", <-runner.resumed)

	// the first resume is still running
	w = httptest.NewRecorder()
	h.ResumeRun(w, resumeRequest("run-1"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	h.ResumeRun(w, resumeRequest("done"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ResumeRun(w, resumeRequest("missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	close(runner.release)
	h.Wait()
	assert.Empty(t, runner.resumed)
}

func TestResearchHandler_StreamRun(t *testing.T) {
	runner := newStubRunner()
	runner.progress["run-1"] = &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageGeneratingKeywords}
	bus := events.NewMemoryProgressBus()
	h := handlers.NewResearchHandler(runner, bus, nil, 0)

	req := resumeRequest("run-1")
	req.Method = http.MethodGet
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.StreamRun(w, req)
	}()

	select {
	case <-runner.progressCalled:
	case <-time.After(time.Second):
		t.Fatal("stream never read the checkpoint")
	}
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageGeneratingKeywords, NewKeywords: []string{"dog walker"}}))
	require.NoError(t, bus.Publish(ctx, &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageComplete}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after the terminal stage")
	}

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: progress\n"))
	assert.Contains(t, body, `"new_keywords":["dog walker"]`)
	assert.Contains(t, body, `"stage":"complete"`)
}

func TestResearchHandler_StreamRun_TerminalCheckpoint(t *testing.T) {
	runner := newStubRunner()
	runner.progress["run-1"] = &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageError, Error: "seed failed"}
	h := handlers.NewResearchHandler(runner, events.NewMemoryProgressBus(), nil, 0)

	req := resumeRequest("run-1")
	req.Method = http.MethodGet
	w := httptest.NewRecorder()
	h.StreamRun(w, req)

	assert.Equal(t, 1, strings.Count(w.Body.String(), "event: progress\n"))
	assert.Contains(t, w.Body.String(), `"error":"seed failed"`)
}

func TestResearchHandler_GetRunKeywords(t *testing.T) {
	repo := &stubMetricsRepo{stored: map[string]*entities.StoredKeywordMetrics{
		"dog walker": {RunID: "run-1", Keyword: "dog walker"},
		"cat sitter": {RunID: "run-2", Keyword: "cat sitter"},
	}}
	h := handlers.NewResearchHandler(newStubRunner(), nil, repo, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/research/runs/run-1/keywords?limit=10", nil)
	req.SetPathValue("id", "run-1")
	w := httptest.NewRecorder()
	h.GetRunKeywords(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

type blockingRunner struct {
	*stubRunner
	cancelled chan error
}

func (b *blockingRunner) Run(ctx context.Context, req services.ResearchRequest, _ services.ProgressFunc) (*entities.ResearchReport, error) {
	b.runs <- req
	<-ctx.Done()
	b.cancelled <- ctx.Err()
	return nil, ctx.Err()
}

func TestResearchHandler_ShutdownCancelsRuns(t *testing.T) {
	runner := &blockingRunner{stubRunner: newStubRunner(), cancelled: make(chan error, 1)}
	h := handlers.NewResearchHandler(runner, nil, nil, 0)

	w := httptest.NewRecorder()
	h.StartRun(w, httptest.NewRequest(http.MethodPost, "/api/research/runs",
		strings.NewReader(`{"input":{"pitch":"dog walking app"}}`)))
	require.Equal(t, http.StatusAccepted, w.Code)
	<-runner.runs

	done := make(chan struct{})
	go func() {
		h.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not cancel the background run")
	}
	assert.ErrorIs(t, <-runner.cancelled, context.Canceled)
}
