// Package totals recomputes monetary amounts for document lines and headers.
// The order of operations in ComputeLine is load-bearing for accounting
// correctness and must not be rearranged.
package totals

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var hundred = decimal.NewFromInt(100)

// LineAmounts holds the three computed amounts of one document line.
type LineAmounts struct {
	Net   decimal.Decimal
	VAT   decimal.Decimal
	Gross decimal.Decimal
}

// ComputeLine derives line amounts from quantity, unit net price, discount
// percentage and VAT rate. The discount applies to the unrounded raw net;
// rounding to 2 decimals happens once on the discounted net, then once on
// the VAT amount. An unparseable VAT rate counts as 0%.
func ComputeLine(quantity, unitPrice, discountPercent decimal.Decimal, vatRate string) LineAmounts {
	rawNet := quantity.Mul(unitPrice)
	netAfterDiscount := rawNet.Mul(decimal.NewFromInt(1).Sub(discountPercent.Div(hundred)))
	lineNet := netAfterDiscount.Round(2)
	lineVAT := lineNet.Mul(ParseVATRate(vatRate).Div(hundred)).Round(2)
	return LineAmounts{
		Net:   lineNet,
		VAT:   lineVAT,
		Gross: lineNet.Add(lineVAT),
	}
}

// ParseVATRate converts a stored percentage string such as "23" into a
// decimal rate. Missing or malformed rates are treated as 0%.
func ParseVATRate(rate string) decimal.Decimal {
	if rate == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// HeaderStore is the per-document-table persistence surface the engine sums
// over. Implemented by the offers, invoices and orders repositories.
type HeaderStore interface {
	// SumLines re-sums net/vat/gross over all lines currently persisted for
	// the header. Always a fresh aggregate, never an incremental total.
	SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error)
	// UpdateTotals writes the aggregates onto the header row.
	UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error
}

// NettingStore is the persistence surface for advance netting on final
// invoices. Implemented by the invoices repository.
type NettingStore interface {
	// FinalInvoiceContext returns the gross total and root document id of a
	// FINAL invoice.
	FinalInvoiceContext(ctx context.Context, q db.DBTX, invoiceID int64) (gross decimal.Decimal, rootID int64, err error)
	// SumAdvanceGross sums header gross over ADVANCE invoices in the case,
	// excluding the final invoice itself.
	SumAdvanceGross(ctx context.Context, q db.DBTX, rootID, excludeID int64) (decimal.Decimal, error)
	// UpdateNetting writes advancesTotal and amountDue onto the final invoice.
	UpdateNetting(ctx context.Context, q db.DBTX, invoiceID int64, advancesTotal, amountDue decimal.Decimal) error
}

// Engine recomputes header aggregates and advance netting.
type Engine struct{}

// NewEngine returns a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// RecalculateHeaderTotals re-sums the header's persisted lines and writes the
// aggregates back. Must run after every line insert, update or delete.
func (e *Engine) RecalculateHeaderTotals(ctx context.Context, q db.DBTX, store HeaderStore, headerID int64) error {
	net, vat, gross, err := store.SumLines(ctx, q, headerID)
	if err != nil {
		return err
	}
	return store.UpdateTotals(ctx, q, headerID, net, vat, gross)
}

// RecalculateAdvanceNetting recomputes advancesTotal and amountDue for a
// FINAL invoice from the ADVANCE invoices sharing its root. amountDue never
// goes negative: advances exceeding the gross clamp it to zero.
func (e *Engine) RecalculateAdvanceNetting(ctx context.Context, q db.DBTX, store NettingStore, finalInvoiceID int64) error {
	gross, rootID, err := store.FinalInvoiceContext(ctx, q, finalInvoiceID)
	if err != nil {
		return err
	}
	advances, err := store.SumAdvanceGross(ctx, q, rootID, finalInvoiceID)
	if err != nil {
		return err
	}
	due := gross.Sub(advances).Round(2)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return store.UpdateNetting(ctx, q, finalInvoiceID, advances, due)
}
