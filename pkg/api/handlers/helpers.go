package handlers

import (
	"errors"
	"net/http"

	"constantdb/pkg/storage"
	"constantdb/pkg/utils"
)

// writeStorageError maps storage-layer failures onto HTTP statuses: unknown
// resources to 404, argument validation to 400, detected corruption to 500
// with an explicit integrity message, everything else to 500.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidRequest):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case storage.IsCorruption(err):
		utils.JSONError(w, http.StatusInternalServerError, "data integrity failure: "+err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
