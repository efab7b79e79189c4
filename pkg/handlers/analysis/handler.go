package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/compliance-atlas/pkg/adapters"
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/models/store"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultListLimit = 50

// Runner executes one analysis request to completion.
type Runner interface {
	Run(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
}

// ScanCoordinator manages detached multi-account scans.
type ScanCoordinator interface {
	Start(ctx context.Context, req domain.AnalysisRequest) (string, error)
	Status(scanID string) (domain.MultiUnitScanStatus, error)
	Cancel(scanID string) error
}

// ResultStore serves previously stored analysis results.
type ResultStore interface {
	Get(ctx context.Context, id string) (domain.AnalysisResult, error)
	List(ctx context.Context, limit int) ([]store.AnalysisRecord, error)
}

type Handler struct {
	runner   Runner
	scans    ScanCoordinator
	results  ResultStore
	registry registry.Registry
}

func NewHandler(runner Runner, scans ScanCoordinator, results ResultStore, reg registry.Registry) *Handler {
	return &Handler{
		runner:   runner,
		scans:    scans,
		results:  results,
		registry: reg,
	}
}

// RunAnalysis executes a request inline and responds with the full
// result. Long-running account scans belong on the scan endpoints.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, logger, &domain.ConfigurationError{Field: "body", Reason: "invalid JSON payload"})
		return
	}

	domainReq, err := adapters.MapAnalysisRequestApiToDomain(req)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	result, err := h.runner.Run(ctx, domainReq)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, adapters.MapAnalysisResultDomainToApi(result))
}

// StartScan launches a detached scan and responds with its ID.
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, logger, &domain.ConfigurationError{Field: "body", Reason: "invalid JSON payload"})
		return
	}

	domainReq, err := adapters.MapAnalysisRequestApiToDomain(req)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	scanID, err := h.scans.Start(ctx, domainReq)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusAccepted, api.ScanStarted{ScanId: scanID})
}

func (h *Handler) GetScanStatus(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	scanID := chi.URLParam(r, "scanID")

	status, err := h.scans.Status(scanID)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, adapters.MapScanStatusDomainToApi(status))
}

func (h *Handler) CancelScan(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	scanID := chi.URLParam(r, "scanID")

	if err := h.scans.Cancel(scanID); err != nil {
		writeError(w, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	analysisID := chi.URLParam(r, "analysisID")

	result, err := h.results.Get(ctx, analysisID)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, adapters.MapAnalysisResultDomainToApi(result))
}

func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, logger, &domain.ConfigurationError{Field: "limit", Reason: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.results.List(ctx, limit)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	response := make([]api.AnalysisRecord, 0, len(records))
	for _, record := range records {
		response = append(response, adapters.MapAnalysisRecordStoreToApi(record))
	}
	writeJSON(w, logger, http.StatusOK, response)
}

func (h *Handler) ListFrameworks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	filter := registry.Filter{
		Status: domain.FrameworkStatus(r.URL.Query().Get("status")),
	}

	frameworks, err := h.registry.ListFrameworks(ctx, filter)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	response := make([]api.FrameworkSummary, 0, len(frameworks))
	for _, framework := range frameworks {
		response = append(response, adapters.MapFrameworkSummaryDomainToApi(framework))
	}
	writeJSON(w, logger, http.StatusOK, response)
}

func (h *Handler) GetFramework(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	frameworkID := chi.URLParam(r, "frameworkID")

	framework, err := h.registry.GetFramework(ctx, frameworkID)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, adapters.MapFrameworkDomainToApi(framework))
}

func writeJSON(w http.ResponseWriter, logger *zerolog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status := http.StatusInternalServerError

	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrFrameworkNotFound), errors.Is(err, domain.ErrAnalysisNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAnalysis):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	writeJSON(w, logger, status, api.Error{Error: err.Error()})
}
