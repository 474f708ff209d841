package results

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/middleware"
	"github.com/versant-prep/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/results", h.ListResults).Methods("GET")
	protected.HandleFunc("/results/{id}", h.GetResult).Methods("GET")
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	page := intQueryParam(r.URL.Query(), "page", 1)
	pageSize := intQueryParam(r.URL.Query(), "page_size", defaultPageSize)

	resp, err := h.service.List(r.Context(), userID, page, pageSize)
	if err != nil {
		logger.Log.Error("[handler] ListResults error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list results"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid result ID"})
		return
	}

	rec, err := h.service.Get(r.Context(), userID, id)
	if errors.Is(err, ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Result not found"})
		return
	}
	if err != nil {
		logger.Log.Error("[handler] GetResult error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get result"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
