package orders

import (
	"context"
	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Service implements order reads and status changes. Orders are created
// exclusively by the conversion orchestrator from accepted offers, so there
// is no create path here.
type Service struct {
	db     db.DBTX
	txr    db.TxRunner
	repo   Repository
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(q db.DBTX, txr db.TxRunner, repo Repository, logger *slog.Logger) *Service {
	return &Service{db: q, txr: txr, repo: repo, logger: logger}
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, s.db, id)
}

// List returns orders matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, s.db, req)
}

// Accept moves the order DRAFT -> ACCEPTED.
func (s *Service) Accept(ctx context.Context, id int64) (*Order, error) {
	return s.transition(ctx, id, lifecycle.StatusAccepted)
}

// Cancel moves the order to CANCELLED from any state the table allows.
func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	return s.transition(ctx, id, lifecycle.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, to lifecycle.Status) (*Order, error) {
	err := s.txr.WithTx(ctx, func(tx db.DBTX) error {
		order, err := s.repo.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureTransition(lifecycle.FamilyOrder, order.Status, to); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, tx, id, to)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.db, id)
}
