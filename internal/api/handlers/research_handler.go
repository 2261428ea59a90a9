package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

const streamHeartbeatInterval = 15 * time.Second

// ResearchRunner executes and resumes research runs
type ResearchRunner interface {
	Run(ctx context.Context, req services.ResearchRequest, onProgress services.ProgressFunc) (*entities.ResearchReport, error)
	Resume(ctx context.Context, runID string, req services.ResearchRequest, onProgress services.ProgressFunc) (*entities.ResearchReport, error)
	Progress(ctx context.Context, runID string) (*entities.GenerationProgress, error)
}

// ResearchHandler starts research runs in the background and streams their
// progress
type ResearchHandler struct {
	runner      ResearchRunner
	bus         providers.ProgressBus
	metricsRepo repositories.KeywordMetricsRepository
	runTimeout  time.Duration

	mu      sync.Mutex
	active  map[string]struct{}
	wg      sync.WaitGroup
	stopCtx context.Context
	stopAll context.CancelFunc
}

// NewResearchHandler creates a research handler. runTimeout bounds each
// background run; zero means no limit.
func NewResearchHandler(runner ResearchRunner, bus providers.ProgressBus, metricsRepo repositories.KeywordMetricsRepository, runTimeout time.Duration) *ResearchHandler {
	stopCtx, stopAll := context.WithCancel(context.Background())
	return &ResearchHandler{
		runner:      runner,
		bus:         bus,
		metricsRepo: metricsRepo,
		runTimeout:  runTimeout,
		active:      make(map[string]struct{}),
		stopCtx:     stopCtx,
		stopAll:     stopAll,
	}
}

type researchRequest struct {
	Input       entities.IdeaInput `json:"input"`
	TargetCount int                `json:"target_count"`
	Filters     []filterRequest    `json:"filters"`
	Exclude     []string           `json:"exclude"`
}

func (req researchRequest) toService(runID string) (services.ResearchRequest, error) {
	filters, err := toFilters(req.Filters)
	if err != nil {
		return services.ResearchRequest{}, err
	}
	return services.ResearchRequest{
		RunID:       runID,
		Input:       req.Input,
		TargetCount: req.TargetCount,
		Filters:     filters,
		Exclude:     req.Exclude,
	}, nil
}

// StartRun handles POST /api/research/runs
func (h *ResearchHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var body researchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if body.Input.Pitch == "" {
		respondWithError(w, http.StatusBadRequest, "input.pitch is required")
		return
	}

	runID := uuid.New().String()
	req, err := body.toService(runID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.launch(r.Context(), runID, func(ctx context.Context) error {
		_, err := h.runner.Run(ctx, req, nil)
		return err
	})
	respondWithJSON(w, http.StatusAccepted, runLinks(runID))
}

// ResumeRun handles POST /api/research/runs/{id}/resume
func (h *ResearchHandler) ResumeRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		respondWithError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	var body researchRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}
	req, err := body.toService(runID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	checkpoint, err := h.runner.Progress(r.Context(), runID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if checkpoint.Stage == entities.StageComplete {
		respondWithJSON(w, http.StatusOK, checkpoint)
		return
	}

	if !h.launch(r.Context(), runID, func(ctx context.Context) error {
		_, err := h.runner.Resume(ctx, runID, req, nil)
		return err
	}) {
		respondWithError(w, http.StatusConflict, "run is already in progress")
		return
	}
	respondWithJSON(w, http.StatusAccepted, runLinks(runID))
}

// GetRun handles GET /api/research/runs/{id}
func (h *ResearchHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	progress, err := h.runner.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

// GetRunKeywords handles GET /api/research/runs/{id}/keywords
func (h *ResearchHandler) GetRunKeywords(w http.ResponseWriter, r *http.Request) {
	if h.metricsRepo == nil {
		respondWithError(w, http.StatusServiceUnavailable, "keyword storage is not configured")
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	keywords, err := h.metricsRepo.ListByRun(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

// StreamRun handles GET /api/research/runs/{id}/stream. The current
// checkpoint is sent first; the stream ends after a terminal stage.
func (h *ResearchHandler) StreamRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		respondWithError(w, http.StatusBadRequest, "run ID is required")
		return
	}
	if h.bus == nil {
		respondWithError(w, http.StatusServiceUnavailable, "progress streaming is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	logger := observability.LoggerFromContext(r.Context()).With().Str("run_id", runID).Logger()

	// Subscribe before reading the checkpoint so no snapshot falls in between
	events, err := h.bus.Subscribe(r.Context(), runID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to run progress")
		respondWithError(w, http.StatusInternalServerError, "failed to subscribe to run progress")
		return
	}

	checkpoint, err := h.runner.Progress(r.Context(), runID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendEvent(w, "progress", checkpoint)
	flusher.Flush()
	if checkpoint.Stage.IsTerminal() {
		return
	}

	ticker := time.NewTicker(streamHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("Client disconnected from run stream")
			return
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case progress, ok := <-events:
			if !ok {
				return
			}
			sendEvent(w, "progress", progress)
			flusher.Flush()
			if progress.Stage.IsTerminal() {
				return
			}
		}
	}
}

// Wait blocks until every background run has returned
func (h *ResearchHandler) Wait() {
	h.wg.Wait()
}

// Shutdown cancels every background run and waits for them to return.
// Cancelled runs keep their last checkpoint and can be resumed.
func (h *ResearchHandler) Shutdown() {
	h.stopAll()
	h.wg.Wait()
}

// launch starts fn in the background unless the run is already active. The
// run keeps the request's trace but not its cancellation.
func (h *ResearchHandler) launch(reqCtx context.Context, runID string, fn func(ctx context.Context) error) bool {
	h.mu.Lock()
	if _, running := h.active[runID]; running {
		h.mu.Unlock()
		return false
	}
	h.active[runID] = struct{}{}
	h.mu.Unlock()

	ctx := context.WithoutCancel(reqCtx)
	logger := observability.LoggerFromContext(ctx).With().Str("run_id", runID).Logger()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.active, runID)
			h.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer context.AfterFunc(h.stopCtx, cancel)()

		if h.runTimeout > 0 {
			var cancelTimeout context.CancelFunc
			ctx, cancelTimeout = context.WithTimeout(ctx, h.runTimeout)
			defer cancelTimeout()
		}
		if err := fn(ctx); err != nil {
			logger.Error().Err(err).Msg("Research run failed")
			return
		}
		logger.Info().Msg("Research run finished")
	}()
	return true
}

func runLinks(runID string) map[string]string {
	base := "/api/research/runs/" + runID
	return map[string]string{
		"run_id":     runID,
		"status_url": base,
		"stream_url": base + "/stream",
	}
}

// sendEvent writes one SSE event with a JSON payload
func sendEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
