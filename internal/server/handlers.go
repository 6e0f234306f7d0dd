package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/ibge"
	"github.com/sells-group/locality/pkg/source"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps the provider failure taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case source.IsNotFound(err):
		return http.StatusNotFound
	case source.IsTimeout(err):
		return http.StatusGatewayTimeout
	case source.IsUnavailable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseCoordinate(raw string, bound float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrap(err, "server: parse coordinate")
	}
	if v < -bound || v > bound {
		return 0, eris.Errorf("server: coordinate %v outside [-%v, %v]", v, bound, bound)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scoreResponse struct {
	Location     geo.Point             `json:"location"`
	RadiusMeters float64               `json:"radius_meters"`
	Score        scorer.AggregateScore `json:"score"`
}

// handleScore scores either a coordinate pair (lat, lng) or a free-form
// address; radius falls back to the configured default.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	radius := s.defaultRadius
	if raw := q.Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
		radius = v
	}

	if address := strings.TrimSpace(q.Get("address")); address != "" {
		res, err := s.orch.ScoreAddress(r.Context(), address, radius)
		if err != nil {
			writeError(w, errorStatus(err), "address could not be scored")
			return
		}
		if s.metrics != nil {
			s.metrics.ObserveScore(res.Score.OverallScore)
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	lat, latErr := parseCoordinate(q.Get("lat"), 90)
	lng, lngErr := parseCoordinate(q.Get("lng"), 180)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required coordinates (or pass address)")
		return
	}

	center := geo.Point{Lat: lat, Lng: lng}
	agg, err := s.orch.ScoreCoordinates(r.Context(), center, radius)
	if err != nil {
		writeError(w, errorStatus(err), "location could not be scored")
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveScore(agg.OverallScore)
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Location:     center,
		RadiusMeters: radius,
		Score:        agg,
	})
}

func (s *Server) handleMunicipality(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.stats.Municipality(r.Context(), id)
	if err != nil {
		writeError(w, errorStatus(err), "municipality lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMunicipalitySearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	matches, err := ibge.Search(r.Context(), s.stats, q, limit)
	if err != nil {
		writeError(w, errorStatus(err), "municipality search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"matches": matches,
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.orch.CompositeRecord(r.Context(), id)
	if err != nil {
		writeError(w, errorStatus(err), "statistical record could not be assembled")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.CacheStats(r.Context()))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted := s.orch.ClearEntity(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": id,
		"deleted":   deleted,
	})
}

type warmUpRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

func (s *Server) handleWarmUp(w http.ResponseWriter, r *http.Request) {
	var req warmUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.EntityIDs) == 0 {
		writeError(w, http.StatusBadRequest, "entity_ids is required")
		return
	}

	report := s.orch.WarmUp(r.Context(), req.EntityIDs)
	if s.metrics != nil {
		s.metrics.ObserveWarmUp(report.Cached, report.Failed, len(report.Skipped))
	}
	writeJSON(w, http.StatusOK, report)
}
