package invoices

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository is the invoices persistence surface. Every method runs on the
// caller's query handle so nested calls share one transaction.
type Repository interface {
	Get(ctx context.Context, q db.DBTX, id int64) (*Invoice, error)
	List(ctx context.Context, q db.DBTX, req ListInvoicesRequest) ([]Invoice, int, error)
	// FindBySource implements the conversion idempotency lookup: the
	// existing target for this source document and type, or NotFound.
	FindBySource(ctx context.Context, q db.DBTX, companyID, sourceID int64, docType DocType) (*Invoice, error)
	// FindInCaseByType returns the invoice of the given type within a case,
	// or NotFound. Used both for the one-per-case invariants and to locate
	// the FINAL invoice when an advance changes.
	FindInCaseByType(ctx context.Context, q db.DBTX, rootID int64, docType DocType) (*Invoice, error)
	ListCase(ctx context.Context, q db.DBTX, rootID int64) ([]Invoice, error)
	// CaseRootForSource returns the root of the case an earlier conversion
	// of the same source opened, or nil when the source has no case yet.
	CaseRootForSource(ctx context.Context, q db.DBTX, companyID, sourceID int64) (*int64, error)
	Insert(ctx context.Context, q db.DBTX, inv *Invoice) error
	// RootOf re-reads root_document_id from storage for the post-insert
	// consistency self-check.
	RootOf(ctx context.Context, q db.DBTX, id int64) (*int64, error)

	Lines(ctx context.Context, q db.DBTX, invoiceID int64) ([]InvoiceLine, error)
	GetLine(ctx context.Context, q db.DBTX, lineID int64) (*InvoiceLine, error)
	InsertLine(ctx context.Context, q db.DBTX, line *InvoiceLine) error
	UpdateLine(ctx context.Context, q db.DBTX, line *InvoiceLine) error
	DeleteLine(ctx context.Context, q db.DBTX, lineID int64) error

	SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error)
	UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error

	FinalInvoiceContext(ctx context.Context, q db.DBTX, invoiceID int64) (gross decimal.Decimal, rootID int64, err error)
	SumAdvanceGross(ctx context.Context, q db.DBTX, rootID, excludeID int64) (decimal.Decimal, error)
	UpdateNetting(ctx context.Context, q db.DBTX, invoiceID int64, advancesTotal, amountDue decimal.Decimal) error
}
