package questionbank

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	pools *Pools
}

func NewHandler(pools *Pools) *Handler {
	return &Handler{pools: pools}
}

func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/bank/stats", h.GetStats).Methods("GET")
}

type StatsResponse struct {
	Sections map[string]int `json:"sections"`
	MaxTests int            `json:"max_tests"`
	TestSize int            `json:"test_size"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	sections := make(map[string]int)
	for kind, n := range h.pools.Stats() {
		sections[string(kind)] = n
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Sections: sections,
		MaxTests: MaxTests,
		TestSize: FullTestSize(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
