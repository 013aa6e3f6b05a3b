package handler

import (
	"net/http"

	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/pkg/apierror"
	"stockex-offline-sync/pkg/response"
)

// SyncHandler handles sync and connectivity HTTP requests.
type SyncHandler struct {
	coord *service.Coordinator
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(coord *service.Coordinator) *SyncHandler {
	return &SyncHandler{coord: coord}
}

// ConnectivityRequest is the body of POST /api/v1/connectivity.
type ConnectivityRequest struct {
	Online *bool `json:"online"`
}

// SyncNow handles POST /api/v1/sync
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	report, err := h.coord.SyncNow(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, report)
}

// SetConnectivity handles POST /api/v1/connectivity
func (h *SyncHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Online == nil {
		response.Error(w, apierror.ValidationError("invalid request",
			apierror.FieldError{Field: "online", Message: "is required"}))
		return
	}

	h.coord.SetOnline(*req.Online)
	response.OK(w, map[string]interface{}{"online": h.coord.IsOnline()})
}
