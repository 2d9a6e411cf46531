package handler

import (
	"net/http"

	"puppychop-api/internal/converter"
	"puppychop-api/pkg/response"
)

type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// GetCatalog lists the selectable service types, priorities and
// veterinarians in display order.
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Catalog retrieved successfully", converter.CatalogToResponse())
}
