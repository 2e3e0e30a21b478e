// Package conversion turns one business document into another: offers into
// proforma, advance and final invoices or into sales and production orders,
// and invoices into their successors within a case. Every conversion is
// idempotent per (source, target type) and runs in one transaction.
package conversion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/offers"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/totals"
)

// Target names a conversion target type.
type Target string

const (
	TargetProforma        Target = "proforma"
	TargetAdvance         Target = "advance"
	TargetFinal           Target = "final"
	TargetCorrection      Target = "correction"
	TargetSalesOrder      Target = "sales_order"
	TargetProductionOrder Target = "production_order"
)

// invoiceDocType maps invoice targets to their document type; order targets
// are absent.
var invoiceDocType = map[Target]invoices.DocType{
	TargetProforma:   invoices.DocTypeProforma,
	TargetAdvance:    invoices.DocTypeAdvance,
	TargetFinal:      invoices.DocTypeFinal,
	TargetCorrection: invoices.DocTypeCorrection,
}

var orderKind = map[Target]orders.Kind{
	TargetSalesOrder:      orders.KindSales,
	TargetProductionOrder: orders.KindProduction,
}

var orderDisplayPrefix = map[orders.Kind]string{
	orders.KindSales:      "SO",
	orders.KindProduction: "PO",
}

// Sequences is the allocator surface the orchestrator needs: raw header and
// line ids plus formatted document numbers, all on the caller's transaction.
type Sequences interface {
	NextRawID(ctx context.Context, q db.DBTX, table string) (int64, error)
	NextNumber(ctx context.Context, q db.DBTX, companyID int64, docType string, date time.Time) (year, month, number int, fullNumber string, err error)
}

// Result reports the outcome of a conversion. CreatedNew is false when the
// idempotency check found an earlier conversion of the same source.
type Result struct {
	DocumentID int64  `json:"document_id"`
	FullNumber string `json:"full_number,omitempty"`
	CreatedNew bool   `json:"created_new"`
}

// Orchestrator executes document conversions.
type Orchestrator struct {
	db        db.DBTX
	txr       db.TxRunner
	offers    offers.Repository
	invoices  invoices.Repository
	sales     orders.Repository
	prod      orders.Repository
	seq       Sequences
	totals    *totals.Engine
	integrity *shared.IntegrityLogger
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator builds an Orchestrator instance.
func NewOrchestrator(
	q db.DBTX,
	txr db.TxRunner,
	offerRepo offers.Repository,
	invoiceRepo invoices.Repository,
	salesRepo, prodRepo orders.Repository,
	seq Sequences,
	engine *totals.Engine,
	integrity *shared.IntegrityLogger,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:        q,
		txr:       txr,
		offers:    offerRepo,
		invoices:  invoiceRepo,
		sales:     salesRepo,
		prod:      prodRepo,
		seq:       seq,
		totals:    engine,
		integrity: integrity,
		logger:    logger,
		now:       time.Now,
	}
}

// ConvertOfferTo converts an offer into the target document type. Repeating
// a finished conversion returns the existing document without side effects.
func (o *Orchestrator) ConvertOfferTo(ctx context.Context, offerID, companyID int64, target Target) (Result, error) {
	if kind, ok := orderKind[target]; ok {
		return o.convertOfferToOrder(ctx, offerID, companyID, kind)
	}
	docType, ok := invoiceDocType[target]
	if !ok {
		return Result{}, shared.Validation("unknown conversion target %q", target)
	}
	if docType == invoices.DocTypeCorrection {
		return Result{}, shared.Validation("a correction is issued from a %s invoice, not from an offer", invoices.DocTypeFinal)
	}
	return o.convertOfferToInvoice(ctx, offerID, companyID, docType)
}

// ConvertInvoiceTo converts an existing invoice into a successor within the
// same case, e.g. proforma to advance or advance to final.
func (o *Orchestrator) ConvertInvoiceTo(ctx context.Context, sourceInvoiceID, companyID int64, target Target) (Result, error) {
	docType, ok := invoiceDocType[target]
	if !ok {
		return Result{}, shared.Validation("invoice conversion target must be an invoice type, got %q", target)
	}

	if existing, err := o.invoices.FindBySource(ctx, o.db, companyID, sourceInvoiceID, docType); err == nil {
		return Result{DocumentID: existing.ID, FullNumber: existing.FullNumber, CreatedNew: false}, nil
	} else if !isNotFound(err) {
		return Result{}, err
	}

	var result Result
	err := o.txr.WithTx(ctx, func(tx db.DBTX) error {
		// Re-check inside the transaction: the loser of a concurrent race
		// observes the winner's row here instead of inserting a duplicate.
		if existing, err := o.invoices.FindBySource(ctx, tx, companyID, sourceInvoiceID, docType); err == nil {
			result = Result{DocumentID: existing.ID, FullNumber: existing.FullNumber, CreatedNew: false}
			return nil
		} else if !isNotFound(err) {
			return err
		}

		src, err := o.invoices.Get(ctx, tx, sourceInvoiceID)
		if err != nil {
			return err
		}
		if src.CompanyID != companyID {
			return shared.NotFound("invoice %d not found for company %d", sourceInvoiceID, companyID)
		}
		if docType == invoices.DocTypeCorrection && src.DocType != invoices.DocTypeFinal {
			return shared.BusinessRule("only a %s invoice can be corrected, invoice %s is %s",
				invoices.DocTypeFinal, src.FullNumber, src.DocType)
		}

		inv, err := o.insertInvoice(ctx, tx, insertInvoiceParams{
			companyID: companyID,
			docType:   docType,
			rootID:    &src.RootDocumentID,
			sourceID:  sourceInvoiceID,
			parentID:  &src.ID,
			customer:  customerSnapshot{src.CustomerName, src.CustomerAddress, src.CustomerTaxID, src.Currency},
			lines:     invoiceLineSources(src.Lines),
		})
		if err != nil {
			return err
		}
		result = Result{DocumentID: inv.ID, FullNumber: inv.FullNumber, CreatedNew: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (o *Orchestrator) convertOfferToInvoice(ctx context.Context, offerID, companyID int64, docType invoices.DocType) (Result, error) {
	if existing, err := o.invoices.FindBySource(ctx, o.db, companyID, offerID, docType); err == nil {
		return Result{DocumentID: existing.ID, FullNumber: existing.FullNumber, CreatedNew: false}, nil
	} else if !isNotFound(err) {
		return Result{}, err
	}

	var result Result
	err := o.txr.WithTx(ctx, func(tx db.DBTX) error {
		if existing, err := o.invoices.FindBySource(ctx, tx, companyID, offerID, docType); err == nil {
			result = Result{DocumentID: existing.ID, FullNumber: existing.FullNumber, CreatedNew: false}
			return nil
		} else if !isNotFound(err) {
			return err
		}

		offer, err := o.offers.Get(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer.CompanyID != companyID {
			return shared.NotFound("offer %d not found for company %d", offerID, companyID)
		}

		// An earlier conversion of the same offer opened the case; later
		// invoice types join it instead of starting a parallel one.
		rootID, err := o.invoices.CaseRootForSource(ctx, tx, companyID, offerID)
		if err != nil {
			return err
		}

		inv, err := o.insertInvoice(ctx, tx, insertInvoiceParams{
			companyID: companyID,
			docType:   docType,
			rootID:    rootID,
			sourceID:  offerID,
			parentID:  nil,
			customer:  customerSnapshot{offer.CustomerName, offer.CustomerAddress, offer.CustomerTaxID, offer.Currency},
			lines:     offerLineSources(offer.Lines),
		})
		if err != nil {
			return err
		}

		// Listings show the offer's converted figure without re-joining
		// invoice lines.
		_, _, gross, err := o.invoices.SumLines(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		if err := o.offers.SetConvertedGross(ctx, tx, offerID, gross); err != nil {
			return err
		}

		result = Result{DocumentID: inv.ID, FullNumber: inv.FullNumber, CreatedNew: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (o *Orchestrator) convertOfferToOrder(ctx context.Context, offerID, companyID int64, kind orders.Kind) (Result, error) {
	repo := o.orderRepo(kind)
	if existing, err := repo.FindBySourceOffer(ctx, o.db, companyID, offerID); err == nil {
		return Result{DocumentID: existing.ID, CreatedNew: false}, nil
	} else if !isNotFound(err) {
		return Result{}, err
	}

	var result Result
	err := o.txr.WithTx(ctx, func(tx db.DBTX) error {
		if existing, err := repo.FindBySourceOffer(ctx, tx, companyID, offerID); err == nil {
			result = Result{DocumentID: existing.ID, CreatedNew: false}
			return nil
		} else if !isNotFound(err) {
			return err
		}

		offer, err := o.offers.Get(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer.CompanyID != companyID {
			return shared.NotFound("offer %d not found for company %d", offerID, companyID)
		}
		if err := lifecycle.EnsureConvertible(lifecycle.FamilyOffer, offer.Status); err != nil {
			return err
		}

		headerTable, lineTable := kind.Tables()
		orderID, err := o.seq.NextRawID(ctx, tx, headerTable)
		if err != nil {
			return err
		}
		orderDate := o.now()
		sourceID := offerID
		order := orders.Order{
			ID:              orderID,
			Kind:            kind,
			CompanyID:       companyID,
			DisplayNumber:   numbering.OfferDisplayNumber(orderDisplayPrefix[kind], orderDate, orderID),
			OrderDate:       orderDate,
			Status:          lifecycle.StatusDraft,
			SourceOfferID:   &sourceID,
			CustomerName:    offer.CustomerName,
			CustomerAddress: offer.CustomerAddress,
			CustomerTaxID:   offer.CustomerTaxID,
			Currency:        offer.Currency,
		}
		if err := repo.Insert(ctx, tx, &order); err != nil {
			return err
		}

		for i, src := range offer.Lines {
			lineID, err := o.seq.NextRawID(ctx, tx, lineTable)
			if err != nil {
				return err
			}
			amounts := totals.ComputeLine(src.Quantity, src.UnitPrice, src.DiscountPercent, src.VATRate)
			line := orders.OrderLine{
				ID:              lineID,
				OrderID:         orderID,
				ProductName:     src.ProductName,
				ProductNameAlt:  src.ProductNameAlt,
				Unit:            src.Unit,
				Quantity:        src.Quantity,
				UnitPrice:       src.UnitPrice,
				DiscountPercent: src.DiscountPercent,
				VATRate:         src.VATRate,
				LineNet:         amounts.Net,
				LineVAT:         amounts.VAT,
				LineGross:       amounts.Gross,
				Position:        i + 1,
			}
			if src.Position > 0 {
				line.Position = src.Position
			}
			if err := repo.InsertLine(ctx, tx, &line); err != nil {
				return err
			}
		}

		if err := o.totals.RecalculateHeaderTotals(ctx, tx, repo, orderID); err != nil {
			return err
		}

		if err := lifecycle.EnsureTransition(lifecycle.FamilyOffer, offer.Status, lifecycle.StatusConverted); err != nil {
			return err
		}
		if err := o.offers.UpdateStatus(ctx, tx, offerID, lifecycle.StatusConverted); err != nil {
			return err
		}

		result = Result{DocumentID: orderID, CreatedNew: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// lineSource is the document-type-independent line snapshot the orchestrator
// copies during a conversion.
type lineSource struct {
	ProductName     string
	ProductNameAlt  string
	Unit            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	VATRate         string
	Position        int
}

type customerSnapshot struct {
	Name     string
	Address  string
	TaxID    string
	Currency string
}

type insertInvoiceParams struct {
	companyID int64
	docType   invoices.DocType
	rootID    *int64
	sourceID  int64
	parentID  *int64
	customer  customerSnapshot
	lines     []lineSource
}

// insertInvoice allocates number and ids, inserts the header plus copied
// lines, recalculates totals and netting, and runs the root self-check.
func (o *Orchestrator) insertInvoice(ctx context.Context, tx db.DBTX, p insertInvoiceParams) (*invoices.Invoice, error) {
	invoiceID, err := o.seq.NextRawID(ctx, tx, "invoices")
	if err != nil {
		return nil, err
	}

	rootID := invoiceID
	if p.rootID != nil {
		rootID = *p.rootID
	}

	// Proforma and final invoices are unique within their case. The source
	// idempotency check already guards new cases; this catches a second
	// entry point into an existing one.
	if p.rootID != nil && (p.docType == invoices.DocTypeProforma || p.docType == invoices.DocTypeFinal) {
		if existing, err := o.invoices.FindInCaseByType(ctx, tx, rootID, p.docType); err == nil {
			return nil, shared.BusinessRule("case %d already holds a %s invoice (%s)", rootID, p.docType, existing.FullNumber)
		} else if !isNotFound(err) {
			return nil, err
		}
	}

	issueDate := o.now()
	year, month, number, fullNumber, err := o.seq.NextNumber(ctx, tx, p.companyID, string(p.docType), issueDate)
	if err != nil {
		return nil, err
	}

	sourceID := p.sourceID
	inv := invoices.Invoice{
		ID:               invoiceID,
		CompanyID:        p.companyID,
		DocType:          p.docType,
		Status:           lifecycle.StatusDraft,
		Number:           number,
		Year:             year,
		Month:            month,
		FullNumber:       fullNumber,
		IssueDate:        issueDate,
		SourceDocumentID: &sourceID,
		ParentDocumentID: p.parentID,
		RootDocumentID:   rootID,
		CustomerName:     p.customer.Name,
		CustomerAddress:  p.customer.Address,
		CustomerTaxID:    p.customer.TaxID,
		Currency:         p.customer.Currency,
	}
	if err := o.invoices.Insert(ctx, tx, &inv); err != nil {
		return nil, err
	}

	for i, src := range p.lines {
		lineID, err := o.seq.NextRawID(ctx, tx, "invoice_lines")
		if err != nil {
			return nil, err
		}
		amounts := totals.ComputeLine(src.Quantity, src.UnitPrice, src.DiscountPercent, src.VATRate)
		line := invoices.InvoiceLine{
			ID:              lineID,
			InvoiceID:       invoiceID,
			ProductName:     src.ProductName,
			ProductNameAlt:  src.ProductNameAlt,
			Unit:            src.Unit,
			Quantity:        src.Quantity,
			UnitPrice:       src.UnitPrice,
			DiscountPercent: src.DiscountPercent,
			VATRate:         src.VATRate,
			LineNet:         amounts.Net,
			LineVAT:         amounts.VAT,
			LineGross:       amounts.Gross,
			Position:        i + 1,
		}
		if src.Position > 0 {
			line.Position = src.Position
		}
		if err := o.invoices.InsertLine(ctx, tx, &line); err != nil {
			return nil, err
		}
	}

	if err := o.totals.RecalculateHeaderTotals(ctx, tx, o.invoices, invoiceID); err != nil {
		return nil, err
	}
	switch p.docType {
	case invoices.DocTypeFinal:
		if err := o.totals.RecalculateAdvanceNetting(ctx, tx, o.invoices, invoiceID); err != nil {
			return nil, err
		}
	case invoices.DocTypeAdvance:
		// A new advance changes what an already-issued final in the same
		// case still owes.
		final, err := o.invoices.FindInCaseByType(ctx, tx, rootID, invoices.DocTypeFinal)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if err == nil {
			if err := o.totals.RecalculateAdvanceNetting(ctx, tx, o.invoices, final.ID); err != nil {
				return nil, err
			}
		}
	}

	// Root self-check: a missing root is logged as an integrity anomaly
	// rather than failing document issuance.
	storedRoot, err := o.invoices.RootOf(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if storedRoot == nil {
		o.integrity.Record(ctx, invoiceID, "missing_root",
			"invoice persisted without root_document_id after conversion")
	}

	return &inv, nil
}

func (o *Orchestrator) orderRepo(kind orders.Kind) orders.Repository {
	if kind == orders.KindProduction {
		return o.prod
	}
	return o.sales
}

func offerLineSources(lines []offers.OfferLine) []lineSource {
	out := make([]lineSource, len(lines))
	for i, l := range lines {
		out[i] = lineSource{
			ProductName:     l.ProductName,
			ProductNameAlt:  l.ProductNameAlt,
			Unit:            l.Unit,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			VATRate:         l.VATRate,
			Position:        l.Position,
		}
	}
	return out
}

func invoiceLineSources(lines []invoices.InvoiceLine) []lineSource {
	out := make([]lineSource, len(lines))
	for i, l := range lines {
		out[i] = lineSource{
			ProductName:     l.ProductName,
			ProductNameAlt:  l.ProductNameAlt,
			Unit:            l.Unit,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			VATRate:         l.VATRate,
			Position:        l.Position,
		}
	}
	return out
}

func isNotFound(err error) bool {
	var de *shared.Error
	return errors.As(err, &de) && de.Kind == shared.KindNotFound
}
