// Package checkout turns selected cart lines into a persisted order and its
// warranties: a pure assembly step followed by a multi-write commit workflow.
package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy holds the checkout pricing knobs. They are injected rather than
// read from package constants so pricing can change without touching the
// assembler's dispatch.
type Policy struct {
	ShippingFee      decimal.Decimal
	DepositThreshold decimal.Decimal
	DepositAmount    decimal.Decimal
}

// DefaultPolicy returns the current storefront policy: free shipping, and a
// 500,000 deposit on cash-on-delivery orders of 500,000 or more.
func DefaultPolicy() Policy {
	return Policy{
		ShippingFee:      decimal.Zero,
		DepositThreshold: decimal.NewFromInt(500_000),
		DepositAmount:    decimal.NewFromInt(500_000),
	}
}

// PaymentMethod is a closed set of payment variants. Each variant carries
// its own deposit rule and initial payment status, so adding a method means
// adding a type here rather than extending switch statements scattered
// around the checkout flow.
type PaymentMethod interface {
	ID() string
	Label() string

	// deposit returns the up-front amount required for an order subtotal.
	deposit(subtotal decimal.Decimal, p Policy) decimal.Decimal
	// initialPaymentStatus labels the payment state a fresh order starts in.
	initialPaymentStatus(deposit decimal.Decimal) string

	sealed()
}

// ParsePaymentMethod maps a method id to its variant. Unrecognized ids
// produce an Unknown method rather than an error: the order is still
// accepted, with neutral payment fields.
func ParsePaymentMethod(id string) PaymentMethod {
	switch id {
	case "cod":
		return CashOnDelivery{}
	case "bankTransfer":
		return BankTransfer{}
	case "onlineWallet":
		return OnlineWallet{}
	default:
		return Unknown{Raw: id}
	}
}

// CashOnDelivery collects payment at the door, with a deposit required on
// large orders.
type CashOnDelivery struct{}

func (CashOnDelivery) ID() string    { return "cod" }
func (CashOnDelivery) Label() string { return "Cash on delivery" }
func (CashOnDelivery) sealed()       {}

func (CashOnDelivery) deposit(subtotal decimal.Decimal, p Policy) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.DepositThreshold) {
		return p.DepositAmount
	}
	return decimal.Zero
}

func (CashOnDelivery) initialPaymentStatus(deposit decimal.Decimal) string {
	if deposit.IsPositive() {
		return fmt.Sprintf("Awaiting deposit %s", deposit)
	}
	return "Unpaid"
}

// BankTransfer is paid in full up front, pending back-office confirmation.
type BankTransfer struct{}

func (BankTransfer) ID() string    { return "bankTransfer" }
func (BankTransfer) Label() string { return "Bank transfer" }
func (BankTransfer) sealed()       {}

func (BankTransfer) deposit(decimal.Decimal, Policy) decimal.Decimal { return decimal.Zero }

func (BankTransfer) initialPaymentStatus(decimal.Decimal) string {
	return "Paid (pending confirmation)"
}

// OnlineWallet is paid in full up front through an e-wallet provider.
type OnlineWallet struct{}

func (OnlineWallet) ID() string    { return "onlineWallet" }
func (OnlineWallet) Label() string { return "E-wallet" }
func (OnlineWallet) sealed()       {}

func (OnlineWallet) deposit(decimal.Decimal, Policy) decimal.Decimal { return decimal.Zero }

func (OnlineWallet) initialPaymentStatus(decimal.Decimal) string {
	return "Paid (pending confirmation)"
}

// Unknown is the fallback variant for an unrecognized method id.
type Unknown struct {
	Raw string
}

func (u Unknown) ID() string { return u.Raw }

func (Unknown) Label() string { return "Unknown" }
func (Unknown) sealed()       {}

func (Unknown) deposit(decimal.Decimal, Policy) decimal.Decimal { return decimal.Zero }

func (Unknown) initialPaymentStatus(decimal.Decimal) string { return "Unknown" }
