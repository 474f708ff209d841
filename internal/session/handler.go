package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/middleware"
	"github.com/versant-prep/backend/internal/models"
	"github.com/versant-prep/backend/internal/questionbank"
	"go.uber.org/zap"
)

// ResultReader loads a stored result so enrichment merged after
// finalization is visible.
type ResultReader interface {
	Get(ctx context.Context, userID, id int64) (*models.ResultRecord, error)
}

type Handler struct {
	manager *Manager
	results ResultReader
}

func NewHandler(manager *Manager, results ResultReader) *Handler {
	return &Handler{manager: manager, results: results}
}

func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/sessions", h.StartSession).Methods("POST")
	protected.HandleFunc("/practice", h.StartPractice).Methods("POST")
	protected.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/{id}", h.AbandonSession).Methods("DELETE")
	protected.HandleFunc("/sessions/{id}/start", h.StartSection).Methods("POST")
	protected.HandleFunc("/sessions/{id}/answer", h.SetAnswer).Methods("PUT")
	protected.HandleFunc("/sessions/{id}/submit", h.Submit).Methods("POST")
	protected.HandleFunc("/sessions/{id}/result", h.GetResult).Methods("GET")
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	snap, err := h.manager.Start(r.Context(), userID, req.TestID)
	if err != nil {
		writeError(w, "StartSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) StartPractice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartPracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	snap, err := h.manager.StartPractice(r.Context(), userID, req.Section, req.Count, req.Page)
	if err != nil {
		writeError(w, "StartPractice", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "GetSession", func(id string, userID int64) (models.SessionSnapshot, error) {
		return h.manager.Get(r.Context(), id, userID)
	})
}

func (h *Handler) StartSection(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "StartSection", func(id string, userID int64) (models.SessionSnapshot, error) {
		return h.manager.StartSection(r.Context(), id, userID)
	})
}

func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	h.withSession(w, r, "SetAnswer", func(id string, userID int64) (models.SessionSnapshot, error) {
		return h.manager.SetAnswer(r.Context(), id, userID, req.Value)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "Submit", func(id string, userID int64) (models.SessionSnapshot, error) {
		return h.manager.Submit(r.Context(), id, userID)
	})
}

func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.manager.Abandon(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeError(w, "AbandonSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	rec, err := h.manager.Result(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, "GetResult", err)
		return
	}

	// Pick up enrichment merged since finalization.
	if rec.ID != 0 && h.results != nil {
		if latest, err := h.results.Get(r.Context(), userID, rec.ID); err == nil {
			rec = latest
		} else {
			logger.Log.Warn("[handler] GetResult: falling back to finalized record",
				zap.Int64("result_id", rec.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, op string, fn func(id string, userID int64) (models.SessionSnapshot, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	snap, err := fn(mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, questionbank.ErrInvalidTestID),
		errors.Is(err, questionbank.ErrUnknownSection):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyAnswer),
		errors.Is(err, ErrMalformedAnswer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInputDisabled),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrNotFinalized),
		errors.Is(err, questionbank.ErrEmptyPool):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("[handler] "+op+" error", zap.Error(err))
		writeJSON(w, status, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
