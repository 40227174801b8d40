package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/checkout"
	"github.com/sellphone/storefront/internal/domain/order"
)

type shippingDTO struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	District    string `json:"district"`
	Ward        string `json:"ward,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (d shippingDTO) toDomain() order.ShippingInfo {
	return order.ShippingInfo(d)
}

type checkoutRequest struct {
	Shipping      shippingDTO `json:"shipping"`
	PaymentMethod string      `json:"payment_method"`
}

type draftDTO struct {
	PaymentMethodLabel string          `json:"payment_method_label"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ShippingFee        decimal.Decimal `json:"shipping_fee"`
	DepositRequired    decimal.Decimal `json:"deposit_required"`
	AmountDue          decimal.Decimal `json:"amount_due"`
	PaymentStatus      string          `json:"payment_status"`
	Lines              []cartLineDTO   `json:"lines"`
}

func toDraftDTO(d *checkout.Draft) draftDTO {
	lines := make([]cartLineDTO, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = cartLineDTO{
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
	return draftDTO{
		PaymentMethodLabel: d.Method.Label(),
		Subtotal:           d.Subtotal,
		ShippingFee:        d.ShippingFee,
		DepositRequired:    d.DepositRequired,
		AmountDue:          d.AmountDue,
		PaymentStatus:      d.PaymentStatus,
		Lines:              lines,
	}
}

// previewCheckout assembles a draft from the currently selected lines
// without committing anything.
func (h *Handler) previewCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	draft, err := h.assembler.Assemble(req.Shipping.toDomain(), req.PaymentMethod, h.store(r).SelectedLines())
	if err != nil {
		if errors.Is(err, checkout.ErrEmptySelection) {
			writeError(w, r, http.StatusUnprocessableEntity, "no cart lines selected")
			return
		}
		zctx.From(r.Context()).Error("assemble checkout", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, r, http.StatusOK, toDraftDTO(draft))
}

// commitCheckout assembles a draft from the selected lines and runs the
// commit workflow. The selection snapshot taken here is the set that gets
// pruned on success, regardless of later cart activity.
func (h *Handler) commitCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := IdentityFromContext(r.Context())
	store := h.store(r)

	draft, err := h.assembler.Assemble(req.Shipping.toDomain(), req.PaymentMethod, store.SelectedLines())
	if err != nil {
		if errors.Is(err, checkout.ErrEmptySelection) {
			writeError(w, r, http.StatusUnprocessableEntity, "no cart lines selected")
			return
		}
		zctx.From(r.Context()).Error("assemble checkout", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	orderID, err := h.workflow.Commit(r.Context(), draft, id.ID, store)
	if err != nil {
		// Order and warranty write failures both surface as a failed
		// checkout; the workflow has already logged which step broke.
		writeError(w, r, http.StatusBadGateway, "failed to place order, please try again")
		return
	}

	writeJSON(w, r, http.StatusCreated, struct {
		OrderID string `json:"order_id"`
	}{OrderID: orderID})
}
