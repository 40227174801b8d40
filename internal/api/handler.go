// Package api exposes the storefront core over HTTP JSON endpoints. Handlers
// only translate between the wire shapes and the domain operations; every
// business rule lives in the domain packages.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/cart"
	"github.com/sellphone/storefront/internal/domain/catalog"
	"github.com/sellphone/storefront/internal/domain/checkout"
	"github.com/sellphone/storefront/internal/domain/order"
	"github.com/sellphone/storefront/internal/domain/warranty"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	catalog    catalog.Repository
	carts      *cart.Manager
	assembler  *checkout.Assembler
	workflow   *checkout.Workflow
	orders     *order.Service
	warranties warranty.Repository
	security   *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cat catalog.Repository,
	carts *cart.Manager,
	assembler *checkout.Assembler,
	workflow *checkout.Workflow,
	orders *order.Service,
	warranties warranty.Repository,
	security *Security,
) *Handler {
	return &Handler{
		catalog:    cat,
		carts:      carts,
		assembler:  assembler,
		workflow:   workflow,
		orders:     orders,
		warranties: warranties,
		security:   security,
	}
}

// Routes returns the API route set. Everything except the product listing
// requires a resolved identity.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)

	auth := h.security.Require
	mux.Handle("GET /api/cart", auth(h.viewCart))
	mux.Handle("POST /api/cart/items", auth(h.addCartItem))
	mux.Handle("PATCH /api/cart/items/{id}", auth(h.updateCartItem))
	mux.Handle("DELETE /api/cart/items/{id}", auth(h.removeCartItem))
	mux.Handle("POST /api/cart/items/{id}/toggle", auth(h.toggleCartItem))
	mux.Handle("POST /api/cart/select-all", auth(h.selectAll))
	mux.Handle("POST /api/cart/deselect-all", auth(h.deselectAll))
	mux.Handle("DELETE /api/cart", auth(h.clearCart))

	mux.Handle("POST /api/checkout/preview", auth(h.previewCheckout))
	mux.Handle("POST /api/checkout", auth(h.commitCheckout))

	mux.Handle("GET /api/orders", auth(h.listOrders))
	mux.Handle("GET /api/orders/{id}", auth(h.getOrder))
	mux.Handle("POST /api/orders/{id}/complete", auth(h.completeOrder))

	mux.Handle("GET /api/warranties", auth(h.listWarranties))

	mux.Handle("POST /api/signout", auth(h.signOut))

	return mux
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
