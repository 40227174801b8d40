package api

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type warrantyDTO struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	PurchaseDate time.Time `json:"purchase_date"`
	PeriodMonths int       `json:"period_months"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
	Status       string    `json:"status"`
}

func (h *Handler) listWarranties(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	list, err := h.warranties.ListByOwner(r.Context(), id.ID)
	if err != nil {
		zctx.From(r.Context()).Error("list warranties", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	out := make([]warrantyDTO, len(list))
	for i, wt := range list {
		out[i] = warrantyDTO{
			ID:           wt.ID,
			OrderID:      wt.OrderID,
			ProductID:    wt.ProductID,
			ProductName:  wt.ProductName,
			PurchaseDate: wt.PurchaseDate,
			PeriodMonths: wt.PeriodMonths,
			ExpiresAt:    wt.ExpiresAt(),
			Expired:      wt.Expired(now),
			Status:       string(wt.Status),
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}
