package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/cart"
	"github.com/sellphone/storefront/internal/domain/catalog"
)

type cartLineDTO struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ImageRef       string          `json:"image_ref"`
	Quantity       int             `json:"quantity"`
	Stock          *int            `json:"stock,omitempty"`
	Selected       bool            `json:"selected"`
	WarrantyMonths *int            `json:"warranty_months,omitempty"`
}

type cartViewDTO struct {
	Items            []cartLineDTO   `json:"items"`
	TotalQuantity    int             `json:"total_quantity"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	SelectedQuantity int             `json:"selected_quantity"`
	SelectedPrice    decimal.Decimal `json:"selected_price"`
	AllSelected      bool            `json:"all_selected"`
}

// mutationDTO reports the informational outcome of an add or update.
type mutationDTO struct {
	Clamped  bool `json:"clamped"`
	Quantity int  `json:"quantity"`
}

func toCartView(s *cart.Store) cartViewDTO {
	lines := s.Lines()
	items := make([]cartLineDTO, len(lines))
	for i, l := range lines {
		items[i] = cartLineDTO{
			ProductID:      l.ProductID,
			Name:           l.Name,
			UnitPrice:      l.UnitPrice,
			ImageRef:       l.ImageRef,
			Quantity:       l.Quantity,
			Stock:          l.StockSnapshot,
			Selected:       l.Selected,
			WarrantyMonths: l.WarrantyMonths,
		}
	}
	return cartViewDTO{
		Items:            items,
		TotalQuantity:    s.TotalQuantity(false),
		TotalPrice:       s.TotalPrice(false),
		SelectedQuantity: s.TotalQuantity(true),
		SelectedPrice:    s.TotalPrice(true),
		AllSelected:      s.AllSelected(),
	}
}

// store resolves the request identity's cart store.
func (h *Handler) store(r *http.Request) *cart.Store {
	id := IdentityFromContext(r.Context())
	return h.carts.For(r.Context(), *id)
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toCartView(h.store(r)))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  *int   `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	// Only an absent quantity defaults to one; an explicit zero is invalid
	// and must reach the store's validation.
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	res, err := h.store(r).AddLine(*p, quantity)
	if err != nil {
		status, msg := mapCartError(err)
		writeError(w, r, status, msg)
		return
	}
	writeJSON(w, r, http.StatusOK, mutationDTO{Clamped: res.Clamped, Quantity: res.Quantity})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res := h.store(r).SetQuantity(r.PathValue("id"), req.Quantity)
	writeJSON(w, r, http.StatusOK, mutationDTO{Clamped: res.Clamped, Quantity: res.Quantity})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.store(r).RemoveLine(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.store(r)
	s.ToggleSelected(r.PathValue("id"))
	writeJSON(w, r, http.StatusOK, toCartView(s))
}

func (h *Handler) selectAll(w http.ResponseWriter, r *http.Request) {
	s := h.store(r)
	s.SelectAll()
	writeJSON(w, r, http.StatusOK, toCartView(s))
}

func (h *Handler) deselectAll(w http.ResponseWriter, r *http.Request) {
	s := h.store(r)
	s.DeselectAll()
	writeJSON(w, r, http.StatusOK, toCartView(s))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.store(r).Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	h.carts.SignOut(r.Context(), id.ID)
	w.WriteHeader(http.StatusNoContent)
}

func mapCartError(err error) (int, string) {
	switch {
	case errors.Is(err, cart.ErrUnauthenticated):
		return http.StatusUnauthorized, "sign in to modify the cart"
	case errors.Is(err, cart.ErrInvalidInput):
		return http.StatusBadRequest, "invalid product or quantity"
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, "product out of stock"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
