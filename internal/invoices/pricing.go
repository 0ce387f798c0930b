package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

var hundred = decimal.NewFromInt(100)

// LineInput carries the client-supplied inputs for one line item. Derived
// amounts are never accepted from the client; they are computed here.
type LineInput struct {
	ProductID     int64
	ProductName   string
	SKU           string
	Quantity      int64
	UnitPrice     decimal.Decimal
	VATRate       decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// PriceLine validates a line input and computes its derived amounts.
// The withoutVAT flag belongs to the parent invoice and zeroes VAT for every
// line regardless of the supplied rate.
func PriceLine(in LineInput, withoutVAT bool) (LineItem, error) {
	if in.Quantity < 1 {
		return LineItem{}, fmt.Errorf("%w: quantity must be at least 1", httpx.ErrValidation)
	}
	if in.UnitPrice.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: unit price must not be negative", httpx.ErrValidation)
	}
	if in.VATRate.IsNegative() || in.VATRate.GreaterThan(hundred) {
		return LineItem{}, fmt.Errorf("%w: vat rate must be between 0 and 100", httpx.ErrValidation)
	}
	if in.DiscountValue.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: discount value must not be negative", httpx.ErrValidation)
	}

	base := decimal.NewFromInt(in.Quantity).Mul(in.UnitPrice)

	var discount decimal.Decimal
	switch in.DiscountType {
	case DiscountPercentage:
		if in.DiscountValue.GreaterThan(hundred) {
			return LineItem{}, fmt.Errorf("%w: percentage discount must not exceed 100", httpx.ErrValidation)
		}
		discount = base.Mul(in.DiscountValue).Div(hundred)
	case DiscountFlat:
		// A flat discount never pushes the line below zero.
		discount = decimal.Min(in.DiscountValue, base)
	case DiscountNone, "":
		discount = decimal.Zero
	default:
		return LineItem{}, fmt.Errorf("%w: unknown discount type %q", httpx.ErrValidation, in.DiscountType)
	}

	taxableBase := base.Sub(discount)
	vat := decimal.Zero
	if !withoutVAT {
		vat = taxableBase.Mul(in.VATRate).Div(hundred)
	}

	return LineItem{
		ProductID:      in.ProductID,
		ProductName:    in.ProductName,
		SKU:            in.SKU,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		VATRate:        in.VATRate,
		VATAmount:      vat,
		DiscountType:   normaliseDiscountType(in.DiscountType),
		DiscountValue:  in.DiscountValue,
		DiscountAmount: discount,
		LineTotal:      taxableBase.Add(vat),
	}, nil
}

// Totals holds the aggregate amounts derived from an invoice's line items.
type Totals struct {
	Subtotal              decimal.Decimal
	TotalItemDiscount     decimal.Decimal
	TotalVAT              decimal.Decimal
	OverallDiscountAmount decimal.Decimal
	GrandTotal            decimal.Decimal
}

// Aggregate folds priced line items plus the overall discount into invoice
// totals. The overall discount is computed against the pre-VAT figure
// subtotal - totalItemDiscount; a flat overall discount is additionally
// clamped so the grand total cannot go negative.
func Aggregate(items []LineItem, overallType DiscountType, overallValue decimal.Decimal, withoutVAT bool) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, fmt.Errorf("%w: invoice requires at least one line item", httpx.ErrValidation)
	}
	if overallValue.IsNegative() {
		return Totals{}, fmt.Errorf("%w: overall discount value must not be negative", httpx.ErrValidation)
	}

	subtotal := decimal.Zero
	itemDiscount := decimal.Zero
	vat := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromInt(it.Quantity).Mul(it.UnitPrice))
		itemDiscount = itemDiscount.Add(it.DiscountAmount)
		vat = vat.Add(it.VATAmount)
	}
	if withoutVAT {
		vat = decimal.Zero
	}

	preDiscountTotal := subtotal.Sub(itemDiscount)

	var overall decimal.Decimal
	switch overallType {
	case DiscountPercentage:
		if overallValue.GreaterThan(hundred) {
			return Totals{}, fmt.Errorf("%w: percentage discount must not exceed 100", httpx.ErrValidation)
		}
		overall = preDiscountTotal.Mul(overallValue).Div(hundred)
	case DiscountFlat:
		overall = decimal.Min(overallValue, preDiscountTotal.Add(vat))
	case DiscountNone, "":
		overall = decimal.Zero
	default:
		return Totals{}, fmt.Errorf("%w: unknown discount type %q", httpx.ErrValidation, overallType)
	}

	grand := preDiscountTotal.Add(vat).Sub(overall)
	if grand.IsNegative() {
		return Totals{}, fmt.Errorf("%w: grand total must not be negative", httpx.ErrValidation)
	}

	return Totals{
		Subtotal:              subtotal,
		TotalItemDiscount:     itemDiscount,
		TotalVAT:              vat,
		OverallDiscountAmount: overall,
		GrandTotal:            grand,
	}, nil
}

func normaliseDiscountType(t DiscountType) DiscountType {
	if t == "" {
		return DiscountNone
	}
	return t
}
