package invoices

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/totals"
)

// IDAllocator issues raw primary-key ids inside the caller's transaction.
type IDAllocator interface {
	NextRawID(ctx context.Context, q db.DBTX, table string) (int64, error)
}

// Service implements invoice reads and draft line editing. Invoices are
// created exclusively by the conversion orchestrator; here only their lines
// can change, and every change re-runs the totals and netting recalculation.
type Service struct {
	db     db.DBTX
	txr    db.TxRunner
	repo   Repository
	ids    IDAllocator
	totals *totals.Engine
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(q db.DBTX, txr db.TxRunner, repo Repository, ids IDAllocator, engine *totals.Engine, logger *slog.Logger) *Service {
	return &Service{db: q, txr: txr, repo: repo, ids: ids, totals: engine, logger: logger}
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, s.db, id)
}

// List returns invoices matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, s.db, req)
}

// GetCase returns all invoices sharing the given invoice's root together
// with the summed advance gross. The case is derived on demand; it is not a
// stored row.
func (s *Service) GetCase(ctx context.Context, invoiceID int64) (*Case, error) {
	inv, err := s.repo.Get(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListCase(ctx, s.db, inv.RootDocumentID)
	if err != nil {
		return nil, err
	}
	advances := decimal.Zero
	for _, m := range members {
		if m.DocType == DocTypeAdvance {
			advances = advances.Add(m.TotalGross)
		}
	}
	return &Case{RootDocumentID: inv.RootDocumentID, Invoices: members, AdvancesTotal: advances}, nil
}

// AddLine appends a line to a draft invoice, re-sums the header totals and
// refreshes the advance netting the change may have touched.
func (s *Service) AddLine(ctx context.Context, invoiceID int64, req CreateInvoiceLineReq) (*Invoice, error) {
	if err := validateLineAmounts(req); err != nil {
		return nil, err
	}
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		inv, err := s.mutableInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}

		lineID, err := s.ids.NextRawID(ctx, tx, "invoice_lines")
		if err != nil {
			return err
		}
		amounts := totals.ComputeLine(req.Quantity, req.UnitPrice, req.DiscountPercent, req.VATRate)

		line := InvoiceLine{
			ID:              lineID,
			InvoiceID:       invoiceID,
			ProductName:     req.ProductName,
			ProductNameAlt:  req.ProductNameAlt,
			Unit:            req.Unit,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			VATRate:         req.VATRate,
			LineNet:         amounts.Net,
			LineVAT:         amounts.VAT,
			LineGross:       amounts.Gross,
			Position:        len(inv.Lines) + 1,
		}
		if req.Position > 0 {
			line.Position = req.Position
		}
		if err := s.repo.InsertLine(ctx, tx, &line); err != nil {
			return err
		}
		return s.afterLineMutation(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, invoiceID)
}

// UpdateLine replaces a line's editable fields and re-runs the recalculation
// chain.
func (s *Service) UpdateLine(ctx context.Context, invoiceID, lineID int64, req CreateInvoiceLineReq) (*Invoice, error) {
	if err := validateLineAmounts(req); err != nil {
		return nil, err
	}
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		inv, err := s.mutableInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		line, err := s.repo.GetLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if line.InvoiceID != invoiceID {
			return shared.NotFound("line %d does not belong to invoice %d", lineID, invoiceID)
		}

		amounts := totals.ComputeLine(req.Quantity, req.UnitPrice, req.DiscountPercent, req.VATRate)

		line.ProductName = req.ProductName
		line.ProductNameAlt = req.ProductNameAlt
		line.Unit = req.Unit
		line.Quantity = req.Quantity
		line.UnitPrice = req.UnitPrice
		line.DiscountPercent = req.DiscountPercent
		line.VATRate = req.VATRate
		line.LineNet = amounts.Net
		line.LineVAT = amounts.VAT
		line.LineGross = amounts.Gross
		if req.Position > 0 {
			line.Position = req.Position
		}
		if err := s.repo.UpdateLine(ctx, tx, line); err != nil {
			return err
		}
		return s.afterLineMutation(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, invoiceID)
}

// DeleteLine removes a line and re-runs the recalculation chain.
func (s *Service) DeleteLine(ctx context.Context, invoiceID, lineID int64) (*Invoice, error) {
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		inv, err := s.mutableInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		line, err := s.repo.GetLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if line.InvoiceID != invoiceID {
			return shared.NotFound("line %d does not belong to invoice %d", lineID, invoiceID)
		}
		if err := s.repo.DeleteLine(ctx, tx, lineID); err != nil {
			return err
		}
		return s.afterLineMutation(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, invoiceID)
}

func (s *Service) mutableInvoice(ctx context.Context, tx db.DBTX, invoiceID int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != lifecycle.StatusDraft {
		return nil, shared.BusinessRule("invoice in status %s cannot be modified; only DRAFT invoices are editable", inv.Status)
	}
	return inv, nil
}

// afterLineMutation re-sums the header and refreshes the netting of the
// case's FINAL invoice: directly when the edited invoice is the final, via a
// lookup when an advance in the case changed.
func (s *Service) afterLineMutation(ctx context.Context, tx db.DBTX, inv *Invoice) error {
	if err := s.totals.RecalculateHeaderTotals(ctx, tx, s.repo, inv.ID); err != nil {
		return err
	}
	switch inv.DocType {
	case DocTypeFinal:
		return s.totals.RecalculateAdvanceNetting(ctx, tx, s.repo, inv.ID)
	case DocTypeAdvance:
		final, err := s.repo.FindInCaseByType(ctx, tx, inv.RootDocumentID, DocTypeFinal)
		if err != nil {
			var de *shared.Error
			if errors.As(err, &de) && de.Kind == shared.KindNotFound {
				return nil
			}
			return err
		}
		return s.totals.RecalculateAdvanceNetting(ctx, tx, s.repo, final.ID)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

func validateLineAmounts(req CreateInvoiceLineReq) error {
	if req.Quantity.IsNegative() || req.UnitPrice.IsNegative() {
		return shared.Validation("quantity and unit price must not be negative")
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(hundred) {
		return shared.Validation("discount percent must be between 0 and 100")
	}
	return nil
}
