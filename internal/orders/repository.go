package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository is the orders persistence surface for one order kind. Every
// method runs on the caller's query handle.
type Repository interface {
	OrderKind() Kind
	Get(ctx context.Context, q db.DBTX, id int64) (*Order, error)
	List(ctx context.Context, q db.DBTX, req ListOrdersRequest) ([]Order, int, error)
	// FindBySourceOffer implements the conversion idempotency lookup.
	FindBySourceOffer(ctx context.Context, q db.DBTX, companyID, offerID int64) (*Order, error)
	Insert(ctx context.Context, q db.DBTX, order *Order) error
	UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error

	Lines(ctx context.Context, q db.DBTX, orderID int64) ([]OrderLine, error)
	InsertLine(ctx context.Context, q db.DBTX, line *OrderLine) error

	SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error)
	UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error
}
