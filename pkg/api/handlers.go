package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/daycarealert/daycarealert-go/pkg/models"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

const defaultListLimit = 50

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleListFacilities lists facilities with optional filters
func (s *Server) handleListFacilities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FacilityFilter{
		Status: q.Get("status"),
		County: q.Get("county"),
		City:   q.Get("city"),
		Zip:    q.Get("zip"),
		Limit:  parseIntParam(r, "limit", defaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	facilities, err := s.store.ListFacilities(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list facilities", err)
		writeInternalServerErrorResponse(w, "failed to list facilities")
		return
	}
	if facilities == nil {
		facilities = []models.Facility{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"facilities": facilities,
		"count":      len(facilities),
		"offset":     filter.Offset,
	})
}

// handleGetFacility returns one facility by operation ID
func (s *Server) handleGetFacility(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	facility, err := s.store.GetFacility(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "facility not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get facility", err)
		writeInternalServerErrorResponse(w, "failed to get facility")
		return
	}

	writeJSONResponse(w, http.StatusOK, facility)
}

// handleListViolations returns the violations recorded against a facility
func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.store.GetFacility(r.Context(), id); errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "facility not found")
		return
	} else if err != nil {
		s.logger.Error("failed to get facility", err)
		writeInternalServerErrorResponse(w, "failed to get facility")
		return
	}

	violations, err := s.store.ListViolations(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list violations", err)
		writeInternalServerErrorResponse(w, "failed to list violations")
		return
	}
	if violations == nil {
		violations = []models.Violation{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"operation_id": id,
		"violations":   violations,
		"count":        len(violations),
	})
}

// handleGetRisk returns the derived risk analysis for a facility
func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if cached := s.cache.GetRiskAnalysis(r.Context(), id); cached != nil {
		writeJSONResponse(w, http.StatusOK, cached)
		return
	}

	analysis, err := s.store.GetRiskAnalysis(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "no risk analysis for facility")
		return
	}
	if err != nil {
		s.logger.Error("failed to get risk analysis", err)
		writeInternalServerErrorResponse(w, "failed to get risk analysis")
		return
	}

	s.cache.SetRiskAnalysis(r.Context(), analysis)
	writeJSONResponse(w, http.StatusOK, analysis)
}

// handleGetRating returns the derived rating for a facility
func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if cached := s.cache.GetRating(r.Context(), id); cached != nil {
		writeJSONResponse(w, http.StatusOK, cached)
		return
	}

	rating, err := s.store.GetRating(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "no rating for facility")
		return
	}
	if err != nil {
		s.logger.Error("failed to get rating", err)
		writeInternalServerErrorResponse(w, "failed to get rating")
		return
	}

	s.cache.SetRating(r.Context(), rating)
	writeJSONResponse(w, http.StatusOK, rating)
}

// handleGetCost returns the derived cost estimate for a facility
func (s *Server) handleGetCost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if cached := s.cache.GetCostEstimate(r.Context(), id); cached != nil {
		writeJSONResponse(w, http.StatusOK, cached)
		return
	}

	estimate, err := s.store.GetCostEstimate(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "no cost estimate for facility")
		return
	}
	if err != nil {
		s.logger.Error("failed to get cost estimate", err)
		writeInternalServerErrorResponse(w, "failed to get cost estimate")
		return
	}

	s.cache.SetCostEstimate(r.Context(), estimate)
	writeJSONResponse(w, http.StatusOK, estimate)
}

// handleRunPipeline starts a background scoring run
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	run, err := s.pipeline.Start("api")
	if errors.Is(err, pipeline.ErrRunInProgress) {
		writeErrorResponse(w, http.StatusConflict, "a pipeline run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error("failed to start pipeline run", err)
		writeInternalServerErrorResponse(w, "failed to start pipeline run")
		return
	}

	writeJSONResponse(w, http.StatusAccepted, run)
}

// handleListRuns lists recent pipeline runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)

	runs, err := s.store.ListPipelineRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list pipeline runs", err)
		writeInternalServerErrorResponse(w, "failed to list pipeline runs")
		return
	}
	if runs == nil {
		runs = []models.PipelineRun{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one pipeline run by ID
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.store.GetPipelineRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeNotFoundResponse(w, "pipeline run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get pipeline run", err)
		writeInternalServerErrorResponse(w, "failed to get pipeline run")
		return
	}

	writeJSONResponse(w, http.StatusOK, run)
}
