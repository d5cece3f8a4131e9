package svc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Router serves the read only query API. Mutations go through the Service
// methods; nothing here changes custody state.
func (s *Service) Router(log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", s.handleHealth)
	r.Get("/solvency", s.handleSolvency)
	r.Get("/records", s.handleRecords)
	r.Get("/records/{id}", s.handleRecord)
	r.Get("/records/{id}/movements", s.handleMovements)
	r.Get("/participants/{address}", s.handleParticipant)

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleSolvency(w http.ResponseWriter, r *http.Request) {
	sol, err := s.CheckSolvency(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sol)
}

func (s *Service) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.Records(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, records)
}

func (s *Service) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
		return
	}

	rec, err := s.Record(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (s *Service) handleMovements(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
		return
	}

	movements, err := s.Movements(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, movements)
}

func (s *Service) handleParticipant(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	ids, err := s.ByParticipant(r.Context(), address)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"Address":   address,
		"RecordIDs": ids,
	})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	if errors.Cause(err) == registry.ErrNotFound {
		respond(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}
	respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
