package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type passthroughRunner struct{}

func (passthroughRunner) WithTx(ctx context.Context, fn func(db.DBTX) error) error {
	return fn(nil)
}

type memoryOrderRepo struct {
	kind   Kind
	orders map[int64]*Order
}

func newMemoryOrderRepo(kind Kind) *memoryOrderRepo {
	return &memoryOrderRepo{kind: kind, orders: make(map[int64]*Order)}
}

func (r *memoryOrderRepo) OrderKind() Kind { return r.kind }

func (r *memoryOrderRepo) Get(ctx context.Context, q db.DBTX, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.NotFound("%s order not found", r.kind)
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOrderRepo) List(ctx context.Context, q db.DBTX, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (r *memoryOrderRepo) FindBySourceOffer(ctx context.Context, q db.DBTX, companyID, offerID int64) (*Order, error) {
	return nil, shared.NotFound("order not found")
}

func (r *memoryOrderRepo) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error {
	o, ok := r.orders[id]
	if !ok {
		return shared.NotFound("order not found")
	}
	o.Status = status
	return nil
}

func (r *memoryOrderRepo) Lines(ctx context.Context, q db.DBTX, orderID int64) ([]OrderLine, error) {
	return nil, nil
}

func (r *memoryOrderRepo) InsertLine(ctx context.Context, q db.DBTX, line *OrderLine) error {
	return nil
}

func (r *memoryOrderRepo) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	return decimal.Zero, decimal.Zero, decimal.Zero, nil
}

func (r *memoryOrderRepo) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	return nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(nil, passthroughRunner{}, repo, logger)
}

func seedOrder(repo *memoryOrderRepo, id int64, status lifecycle.Status) {
	source := int64(1)
	repo.orders[id] = &Order{
		ID:            id,
		Kind:          repo.kind,
		CompanyID:     1,
		DisplayNumber: "SO/03/2026/071",
		OrderDate:     time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC),
		Status:        status,
		SourceOfferID: &source,
		CustomerName:  "Alfa Works Sp. z o.o.",
		Currency:      "PLN",
	}
}

func TestAcceptThenCancel(t *testing.T) {
	repo := newMemoryOrderRepo(KindSales)
	svc := newTestService(repo)
	seedOrder(repo, 1, lifecycle.StatusDraft)

	order, err := svc.Accept(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAccepted, order.Status)

	order, err = svc.Cancel(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusCancelled, order.Status)
}

func TestAcceptOutsideDraftRejected(t *testing.T) {
	repo := newMemoryOrderRepo(KindProduction)
	svc := newTestService(repo)
	seedOrder(repo, 1, lifecycle.StatusCancelled)

	_, err := svc.Accept(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
	require.Contains(t, err.Error(), "CANCELLED")
}

func TestKindTables(t *testing.T) {
	header, lines := KindSales.Tables()
	require.Equal(t, "sales_orders", header)
	require.Equal(t, "sales_order_lines", lines)

	header, lines = KindProduction.Tables()
	require.Equal(t, "production_orders", header)
	require.Equal(t, "production_order_lines", lines)
}
