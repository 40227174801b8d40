package api

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/catalog"
)

type productDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ImageURL       string          `json:"image_url"`
	Stock          *int            `json:"stock,omitempty"`
	WarrantyMonths *int            `json:"warranty_months,omitempty"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		ImageURL:       p.ImageURL,
		Stock:          p.Stock,
		WarrantyMonths: p.WarrantyMonths,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	writeJSON(w, r, http.StatusOK, out)
}
