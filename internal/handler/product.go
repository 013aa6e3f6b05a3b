package handler

import (
	"fmt"
	"net/http"
	"strings"

	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/pkg/apierror"
	"stockex-offline-sync/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product lookup and scan HTTP requests.
type ProductHandler struct {
	coord *service.Coordinator
}

// NewProductHandler creates a new product handler.
func NewProductHandler(coord *service.Coordinator) *ProductHandler {
	return &ProductHandler{coord: coord}
}

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	Code   string `json:"code"`
	Format string `json:"format"`
}

// Search handles GET /api/v1/products/{barcode}
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	barcode := strings.TrimSpace(chi.URLParam(r, "barcode"))
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	product, err := h.coord.SearchProduct(r.Context(), barcode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if product == nil {
		response.Error(w, apierror.NotFound(fmt.Sprintf("Produit non trouvé: %s", barcode)))
		return
	}
	response.OK(w, product)
}

// Scan handles POST /api/v1/scan
func (h *ProductHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.coord.HandleScan(r.Context(), req.Code, req.Format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, result)
}
