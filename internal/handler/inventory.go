package handler

import (
	"net/http"
	"strconv"

	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/repository"
	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/pkg/apierror"
	"stockex-offline-sync/pkg/response"
)

// InventoryHandler handles inventory session HTTP requests.
type InventoryHandler struct {
	coord *service.Coordinator
	store repository.LocalStore
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(coord *service.Coordinator, store repository.LocalStore) *InventoryHandler {
	return &InventoryHandler{
		coord: coord,
		store: store,
	}
}

// StartInventoryRequest is the body of POST /api/v1/inventories.
type StartInventoryRequest struct {
	LocationID int64  `json:"location_id"`
	Date       string `json:"date"`
}

// AddLineRequest is the body of POST /api/v1/inventories/current/lines.
type AddLineRequest struct {
	ProductID int64    `json:"product_id"`
	RealQty   *float64 `json:"real_qty"`
}

// Start handles POST /api/v1/inventories
func (h *InventoryHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartInventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.LocationID <= 0 {
		response.Error(w, apierror.ValidationError("invalid request",
			apierror.FieldError{Field: "location_id", Message: "is required"}))
		return
	}

	inv, err := h.coord.StartInventory(r.Context(), req.LocationID, req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Created(w, inv)
}

// Current handles GET /api/v1/inventories/current
func (h *InventoryHandler) Current(w http.ResponseWriter, r *http.Request) {
	inv := h.coord.CurrentInventory()
	if inv == nil {
		response.Error(w, apierror.NotFound("no active inventory"))
		return
	}
	response.OK(w, inv)
}

// Close handles DELETE /api/v1/inventories/current
func (h *InventoryHandler) Close(w http.ResponseWriter, r *http.Request) {
	inv, err := h.coord.CloseInventory(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, inv)
}

// AddLine handles POST /api/v1/inventories/current/lines
func (h *InventoryHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	var details []apierror.FieldError
	if req.ProductID <= 0 {
		details = append(details, apierror.FieldError{Field: "product_id", Message: "is required"})
	}
	if req.RealQty == nil {
		details = append(details, apierror.FieldError{Field: "real_qty", Message: "is required"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid request", details...))
		return
	}

	result, err := h.coord.AddInventoryLine(r.Context(), req.ProductID, *req.RealQty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, result)
}

// Pending handles GET /api/v1/inventories/pending?page=1&limit=50
func (h *InventoryHandler) Pending(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	if page < 1 || limit < 1 || limit > 500 {
		response.Error(w, apierror.BadRequest("page must be >= 1 and limit between 1 and 500"))
		return
	}

	pending, err := h.store.GetPendingInventories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	total := len(pending)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := pending[start:end]
	if items == nil {
		items = []model.PendingInventory{}
	}
	response.JSONWithMeta(w, http.StatusOK, items, page, limit, int64(total))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
