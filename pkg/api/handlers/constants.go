package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"constantdb/pkg/constants"
	"constantdb/pkg/storage"
	"constantdb/pkg/utils"
)

// RegisterConstants registers the constant catalog and status routes.
func RegisterConstants(r *mux.Router, reg *storage.Registry) {
	h := &constantsHandler{reg: reg}
	r.HandleFunc("/constants", h.list).Methods(http.MethodGet)
	r.HandleFunc("/constants/{id}/status", h.status).Methods(http.MethodGet)
}

type constantsHandler struct {
	reg *storage.Registry
}

type constantSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Cached      bool   `json:"cached"`
	Digits      int64  `json:"digits,omitempty"`
}

// list handles GET /constants. Every known constant is reported; Available
// marks the ones whose digit file was discovered at startup.
func (h *constantsHandler) list(w http.ResponseWriter, r *http.Request) {
	out := make([]constantSummary, 0, len(constants.All))
	for _, c := range constants.All {
		s := constantSummary{ID: c.ID, Name: c.Name, Symbol: c.Symbol, Description: c.Description}
		if m, err := h.reg.Manager(c.ID); err == nil {
			s.Available = true
			s.Cached = m.HasChunkCache()
			s.Digits = m.DigitCount()
		}
		out = append(out, s)
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Constants []constantSummary `json:"constants"`
	}{Constants: out})
}

// status handles GET /constants/{id}/status with the full storage snapshot.
func (h *constantsHandler) status(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := h.reg.Status(id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, st)
}
