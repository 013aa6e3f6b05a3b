package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"stockex-offline-sync/internal/remote"
	"stockex-offline-sync/internal/repository"
	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/pkg/apierror"
	"stockex-offline-sync/pkg/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.BadRequest("invalid JSON")
	}
	return nil
}

// writeServiceError maps service and transport errors to API errors.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		transportErr *remote.TransportError
		rejected     *remote.SyncRejected
		storageErr   *repository.StorageError
		apiErr       *apierror.Error
	)

	switch {
	case errors.As(err, &apiErr):
		response.Error(w, apiErr)
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, apierror.BadRequest(err.Error()))
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrSyncInProgress):
		response.Error(w, apierror.Conflict(err.Error()))
	case errors.Is(err, service.ErrOffline):
		response.Error(w, apierror.Offline(""))
	case errors.As(err, &rejected):
		response.Error(w, apierror.BadGateway(rejected.Error()))
	case errors.As(err, &transportErr):
		log.Printf("[Handler] %v", transportErr)
		if transportErr.Offline {
			response.Error(w, apierror.Offline(""))
			return
		}
		response.Error(w, apierror.BadGateway("remote "+transportErr.Op+" failed"))
	case errors.As(err, &storageErr):
		log.Printf("[Handler] %v", storageErr)
		response.Error(w, apierror.InternalError("local storage unavailable"))
	default:
		log.Printf("[Handler] Unexpected error: %v", err)
		response.Error(w, err)
	}
}
