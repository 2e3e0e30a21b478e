package offers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository is the offers persistence surface. Every method runs on the
// caller's query handle so nested calls share one transaction.
type Repository interface {
	Get(ctx context.Context, q db.DBTX, id int64) (*Offer, error)
	List(ctx context.Context, q db.DBTX, req ListOffersRequest) ([]Offer, int, error)
	Insert(ctx context.Context, q db.DBTX, offer *Offer) error
	UpdateHeader(ctx context.Context, q db.DBTX, id int64, updates map[string]any) error
	UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error
	SetConvertedGross(ctx context.Context, q db.DBTX, id int64, gross decimal.Decimal) error
	Delete(ctx context.Context, q db.DBTX, id int64) error

	Lines(ctx context.Context, q db.DBTX, offerID int64) ([]OfferLine, error)
	GetLine(ctx context.Context, q db.DBTX, lineID int64) (*OfferLine, error)
	InsertLine(ctx context.Context, q db.DBTX, line *OfferLine) error
	UpdateLine(ctx context.Context, q db.DBTX, line *OfferLine) error
	DeleteLine(ctx context.Context, q db.DBTX, lineID int64) error

	SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error)
	UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error
}
