package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"constantdb/pkg/storage"
	"constantdb/pkg/utils"
)

// RegisterAdmin registers the cache build and verification routes on the
// admin subrouter.
func RegisterAdmin(r *mux.Router, reg *storage.Registry) {
	h := &adminHandler{reg: reg}
	r.HandleFunc("/cache", h.buildAll).Methods(http.MethodPost)
	r.HandleFunc("/constants/{id}/cache", h.build).Methods(http.MethodPost)
	r.HandleFunc("/constants/{id}/verify", h.verify).Methods(http.MethodGet)
}

type adminHandler struct {
	reg *storage.Registry
}

// build handles POST /admin/constants/{id}/cache?force=1. The build runs
// synchronously; completed chunks survive a client disconnect because the
// request context aborts the build only between chunks.
func (h *adminHandler) build(w http.ResponseWriter, r *http.Request) {
	m, err := h.reg.Manager(mux.Vars(r)["id"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	force := utils.QueryBool(r.URL.Query(), "force")
	res, err := m.BuildCache(r.Context(), force, nil)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

// buildAll handles POST /admin/cache?force=1 across every available constant.
func (h *adminHandler) buildAll(w http.ResponseWriter, r *http.Request) {
	force := utils.QueryBool(r.URL.Query(), "force")
	sum := h.reg.BuildAll(r.Context(), force, nil)
	status := http.StatusOK
	if sum.Failed > 0 {
		status = http.StatusMultiStatus
	}
	_ = utils.JSONWrite(w, status, sum)
}

type verifyResponse struct {
	Constant      string                      `json:"constant"`
	ChunksChecked int                         `json:"chunks_checked"`
	CorruptChunks []storage.ChunkVerification `json:"corrupt_chunks"`
	Healthy       bool                        `json:"healthy"`
}

// verify handles GET /admin/constants/{id}/verify with a full chunk-store
// checksum audit.
func (h *adminHandler) verify(w http.ResponseWriter, r *http.Request) {
	m, err := h.reg.Manager(mux.Vars(r)["id"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	results, err := m.VerifyAllChunks()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	resp := verifyResponse{Constant: m.ID(), ChunksChecked: len(results), CorruptChunks: []storage.ChunkVerification{}}
	for _, v := range results {
		if !v.OK {
			resp.CorruptChunks = append(resp.CorruptChunks, v)
		}
	}
	resp.Healthy = len(resp.CorruptChunks) == 0
	_ = utils.JSONWrite(w, http.StatusOK, resp)
}
