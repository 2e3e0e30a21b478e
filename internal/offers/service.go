package offers

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/totals"
)

// displayPrefix is the presentation-only prefix of offer numbers.
const displayPrefix = "OF"

// IDAllocator issues raw primary-key ids inside the caller's transaction.
type IDAllocator interface {
	NextRawID(ctx context.Context, q db.DBTX, table string) (int64, error)
}

// Service implements offer workflows: creation, draft editing under the
// lifecycle guard, and status changes against the transition table.
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

// Create materializes a new draft offer with its lines. Line amounts come
// from the totals engine; the header aggregates are re-summed from the
// persisted lines before commit.
func (s *Service) Create(ctx context.Context, req CreateOfferRequest) (*Offer, error) {
	for _, l := range req.Lines {
		if err := validateLineAmounts(l); err != nil {
			return nil, err
		}
	}

	var offerID int64
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		id, err := s.ids.NextRawID(ctx, tx, "offers")
		if err != nil {
			return err
		}
		offerID = id

		offer := Offer{
			ID:              id,
			CompanyID:       req.CompanyID,
			DisplayNumber:   numbering.OfferDisplayNumber(displayPrefix, req.OfferDate, id),
			OfferDate:       req.OfferDate,
			Status:          lifecycle.StatusDraft,
			CustomerName:    req.CustomerName,
			CustomerAddress: req.CustomerAddress,
			CustomerTaxID:   req.CustomerTaxID,
			Currency:        req.Currency,
			Notes:           req.Notes,
		}
		if err := s.repo.Insert(ctx, tx, &offer); err != nil {
			return err
		}

		for i, lineReq := range req.Lines {
			if err := s.insertLine(ctx, tx, id, lineReq, i+1); err != nil {
				return err
			}
		}

		return s.totals.RecalculateHeaderTotals(ctx, tx, s.repo, id)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, offerID)
}

func (s *Service) insertLine(ctx context.Context, tx db.DBTX, offerID int64, req CreateOfferLineReq, position int) error {
	lineID, err := s.ids.NextRawID(ctx, tx, "offer_lines")
	if err != nil {
		return err
	}
	amounts := totals.ComputeLine(req.Quantity, req.UnitPrice, req.DiscountPercent, req.VATRate)

	line := OfferLine{
		ID:              lineID,
		OfferID:         offerID,
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
		Position:        position,
	}
	if req.Position > 0 {
		line.Position = req.Position
	}
	return s.repo.InsertLine(ctx, tx, &line)
}

// Get returns an offer with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Offer, error) {
	return s.repo.Get(ctx, s.db, id)
}

// List returns offers matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListOffersRequest) ([]Offer, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, s.db, req)
}

// Update edits header fields. Permitted only while the offer is in DRAFT.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOfferRequest) (*Offer, error) {
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		offer, err := s.repo.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureMutable(lifecycle.FamilyOffer, offer.Status); err != nil {
			return err
		}

		updates := make(map[string]any)
		if req.OfferDate != nil {
			updates["offer_date"] = *req.OfferDate
		}
		if req.CustomerName != nil {
			updates["customer_name"] = *req.CustomerName
		}
		if req.CustomerAddress != nil {
			updates["customer_address"] = *req.CustomerAddress
		}
		if req.CustomerTaxID != nil {
			updates["customer_tax_id"] = *req.CustomerTaxID
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if len(updates) == 0 {
			return nil
		}
		return s.repo.UpdateHeader(ctx, tx, id, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, id)
}

// AddLine appends a line to a draft offer and re-sums the header totals.
func (s *Service) AddLine(ctx context.Context, offerID int64, req CreateOfferLineReq) (*Offer, error) {
	if err := validateLineAmounts(req); err != nil {
		return nil, err
	}
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		offer, err := s.repo.Get(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureMutable(lifecycle.FamilyOffer, offer.Status); err != nil {
			return err
		}
		if err := s.insertLine(ctx, tx, offerID, req, len(offer.Lines)+1); err != nil {
			return err
		}
		return s.totals.RecalculateHeaderTotals(ctx, tx, s.repo, offerID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, offerID)
}

// UpdateLine replaces a line's editable fields, recomputes its amounts and
// re-sums the header totals.
func (s *Service) UpdateLine(ctx context.Context, offerID, lineID int64, req CreateOfferLineReq) (*Offer, error) {
	if err := validateLineAmounts(req); err != nil {
		return nil, err
	}
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		offer, err := s.repo.Get(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureMutable(lifecycle.FamilyOffer, offer.Status); err != nil {
			return err
		}
		line, err := s.repo.GetLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if line.OfferID != offerID {
			return shared.NotFound("line %d does not belong to offer %d", lineID, offerID)
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
		return s.totals.RecalculateHeaderTotals(ctx, tx, s.repo, offerID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, offerID)
}

// DeleteLine removes a line from a draft offer and re-sums the header totals.
func (s *Service) DeleteLine(ctx context.Context, offerID, lineID int64) (*Offer, error) {
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		offer, err := s.repo.Get(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureMutable(lifecycle.FamilyOffer, offer.Status); err != nil {
			return err
		}
		line, err := s.repo.GetLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if line.OfferID != offerID {
			return shared.NotFound("line %d does not belong to offer %d", lineID, offerID)
		}
		if err := s.repo.DeleteLine(ctx, tx, lineID); err != nil {
			return err
		}
		return s.totals.RecalculateHeaderTotals(ctx, tx, s.repo, offerID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, offerID)
}

// Accept moves the offer DRAFT -> ACCEPTED.
func (s *Service) Accept(ctx context.Context, id int64) (*Offer, error) {
	return s.transition(ctx, id, lifecycle.StatusAccepted)
}

// Cancel moves the offer to CANCELLED from any state the table allows.
func (s *Service) Cancel(ctx context.Context, id int64) (*Offer, error) {
	return s.transition(ctx, id, lifecycle.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, to lifecycle.Status) (*Offer, error) {
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		offer, err := s.repo.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureTransition(lifecycle.FamilyOffer, offer.Status, to); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, tx, id, to)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, id)
}

var hundred = decimal.NewFromInt(100)

func validateLineAmounts(req CreateOfferLineReq) error {
	if req.Quantity.IsNegative() || req.UnitPrice.IsNegative() {
		return shared.Validation("quantity and unit price must not be negative")
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(hundred) {
		return shared.Validation("discount percent must be between 0 and 100")
	}
	return nil
}
