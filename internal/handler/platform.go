package handler

import (
	"net/http"
	"time"

	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/strategy"
	"stockex-offline-sync/pkg/apierror"
	"stockex-offline-sync/pkg/response"
)

// PlatformHandler receives platform signals addressed to the cache layer.
type PlatformHandler struct {
	layer *strategy.Layer
}

// NewPlatformHandler creates a new platform handler.
func NewPlatformHandler(layer *strategy.Layer) *PlatformHandler {
	return &PlatformHandler{layer: layer}
}

// BackgroundSyncRequest is the body of POST /api/v1/platform/sync.
type BackgroundSyncRequest struct {
	Tag string `json:"tag"`
}

// BackgroundSync handles POST /api/v1/platform/sync
func (h *PlatformHandler) BackgroundSync(w http.ResponseWriter, r *http.Request) {
	var req BackgroundSyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Tag == "" {
		response.Error(w, apierror.BadRequest("tag is required"))
		return
	}

	if err := h.layer.BackgroundSync(r.Context(), req.Tag); err != nil {
		response.Error(w, apierror.InternalError(err.Error()))
		return
	}
	response.OK(w, map[string]interface{}{
		"tag":     req.Tag,
		"relayed": req.Tag == model.SyncTag,
	})
}

// Message handles POST /api/v1/platform/message
func (h *PlatformHandler) Message(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		response.Error(w, err)
		return
	}
	if msg.Type == "" {
		response.Error(w, apierror.BadRequest("type is required"))
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := h.layer.HandleMessage(r.Context(), msg); err != nil {
		response.Error(w, apierror.InternalError(err.Error()))
		return
	}
	response.OK(w, map[string]interface{}{"type": msg.Type})
}
