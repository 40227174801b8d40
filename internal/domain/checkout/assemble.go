package checkout

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sellphone/storefront/internal/domain/cart"
	"github.com/sellphone/storefront/internal/domain/order"
)

// ErrEmptySelection is returned when checkout is attempted with no selected
// cart lines.
var ErrEmptySelection = errors.New("no cart lines selected")

// Draft is the assembled, not-yet-persisted order. It is consumed exactly
// once by the commit workflow and never stored as-is.
type Draft struct {
	Shipping        order.ShippingInfo
	Method          PaymentMethod
	Lines           []cart.Line
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	DepositRequired decimal.Decimal
	AmountDue       decimal.Decimal
	PaymentStatus   string
	OrderStatus     order.Status
}

// Assembler derives checkout totals from selected cart lines. Pure: no
// side effects, no I/O, no re-validation of stock (the cart store already
// enforced that).
type Assembler struct {
	policy Policy
}

// NewAssembler creates an Assembler with the given pricing policy.
func NewAssembler(policy Policy) *Assembler {
	return &Assembler{policy: policy}
}

// Assemble computes the payment-method-specific totals for the selected
// lines. The lines slice is used as given; callers pass a snapshot.
func (a *Assembler) Assemble(shipping order.ShippingInfo, methodID string, lines []cart.Line) (*Draft, error) {
	if len(lines) == 0 {
		return nil, ErrEmptySelection
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	method := ParsePaymentMethod(methodID)
	deposit := method.deposit(subtotal, a.policy)
	amountDue := subtotal.Add(a.policy.ShippingFee).Sub(deposit)

	return &Draft{
		Shipping:        shipping,
		Method:          method,
		Lines:           lines,
		Subtotal:        subtotal,
		ShippingFee:     a.policy.ShippingFee,
		DepositRequired: deposit,
		AmountDue:       amountDue,
		PaymentStatus:   method.initialPaymentStatus(deposit),
		OrderStatus:     order.StatusProcessing,
	}, nil
}
