package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/order"
)

type orderLineDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref"`
}

type orderDTO struct {
	ID                 string          `json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	Lines              []orderLineDTO  `json:"lines"`
	Shipping           shippingDTO     `json:"shipping"`
	PaymentMethodLabel string          `json:"payment_method_label"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	DepositRequired    decimal.Decimal `json:"deposit_required"`
	AmountDue          decimal.Decimal `json:"amount_due"`
	OrderStatus        string          `json:"order_status"`
	PaymentStatus      string          `json:"payment_status"`
}

func toOrderDTO(o *order.Order) orderDTO {
	lines := make([]orderLineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
		}
	}
	return orderDTO{
		ID:                 o.ID,
		CreatedAt:          o.CreatedAt,
		Lines:              lines,
		Shipping:           shippingDTO(o.Shipping),
		PaymentMethodLabel: o.PaymentMethodLabel,
		TotalAmount:        o.TotalAmount,
		DepositRequired:    o.DepositRequired,
		AmountDue:          o.AmountDue,
		OrderStatus:        string(o.OrderStatus),
		PaymentStatus:      o.PaymentStatus,
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	history, err := h.orders.History(r.Context(), id.ID)
	if err != nil {
		zctx.From(r.Context()).Error("list orders", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]orderDTO, len(history))
	for i := range history {
		out[i] = toOrderDTO(&history[i])
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	o, err := h.orders.Get(r.Context(), r.PathValue("id"), id.ID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	o, err := h.orders.MarkCompleted(r.Context(), r.PathValue("id"), id.ID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *order.InvalidTransitionError
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrNotOwner):
		// Not distinguishing "not yours" from "not there" keeps order ids
		// unguessable.
		writeError(w, r, http.StatusNotFound, "order not found")
	case errors.As(err, &transition):
		writeError(w, r, http.StatusConflict, transition.Error())
	default:
		zctx.From(r.Context()).Error("order operation", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
