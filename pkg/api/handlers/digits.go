package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"constantdb/pkg/storage"
	"constantdb/pkg/utils"
)

const (
	defaultDigitLength = int64(100)
	defaultMaxResults  = 10
	maxSearchResults   = 1000
	maxSequenceLength  = 100
)

// RegisterDigits registers the digit read and sequence search routes.
func RegisterDigits(r *mux.Router, reg *storage.Registry) {
	h := &digitsHandler{reg: reg}
	r.HandleFunc("/constants/{id}/digits", h.digits).Methods(http.MethodGet)
	r.HandleFunc("/constants/{id}/search", h.search).Methods(http.MethodGet)
}

type digitsHandler struct {
	reg *storage.Registry
}

// digits handles GET /constants/{id}/digits?start=N&length=N&verify=1.
// Responses carry exactly the requested digit count; verify=1 forces a
// cross-source verification for this read.
func (h *digitsHandler) digits(w http.ResponseWriter, r *http.Request) {
	m, err := h.reg.Manager(mux.Vars(r)["id"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	q := r.URL.Query()
	start, ok := utils.QueryInt64(q, "start", 0)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "start must be an integer")
		return
	}
	length, ok := utils.QueryInt64(q, "length", defaultDigitLength)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "length must be an integer")
		return
	}

	digits, err := m.GetDigits(start, length, utils.QueryBool(q, "verify"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Constant string `json:"constant"`
		Start    int64  `json:"start"`
		Length   int64  `json:"length"`
		Digits   string `json:"digits"`
	}{Constant: m.ID(), Start: start, Length: length, Digits: digits})
}

// search handles GET /constants/{id}/search?sequence=141&max_results=N&start_from=N.
func (h *digitsHandler) search(w http.ResponseWriter, r *http.Request) {
	m, err := h.reg.Manager(mux.Vars(r)["id"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	q := r.URL.Query()
	sequence := q.Get("sequence")
	if sequence == "" {
		utils.JSONError(w, http.StatusBadRequest, "sequence query parameter is required")
		return
	}
	if len(sequence) > maxSequenceLength {
		utils.JSONError(w, http.StatusBadRequest, "sequence too long")
		return
	}
	maxResults, ok := utils.QueryInt(q, "max_results", defaultMaxResults)
	if !ok || maxResults > maxSearchResults {
		utils.JSONError(w, http.StatusBadRequest, "max_results must be an integer up to 1000")
		return
	}
	startFrom, ok := utils.QueryInt64(q, "start_from", 0)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "start_from must be an integer")
		return
	}

	positions, err := m.SearchSequence(sequence, maxResults, startFrom)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Constant  string  `json:"constant"`
		Sequence  string  `json:"sequence"`
		Positions []int64 `json:"positions"`
		Count     int     `json:"count"`
	}{Constant: m.ID(), Sequence: sequence, Positions: positions, Count: len(positions)})
}
