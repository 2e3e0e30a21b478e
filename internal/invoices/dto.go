package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceLineReq carries decimal amounts straight off the wire so money
// figures never pass through a float.
type CreateInvoiceLineReq struct {
	ProductName     string          `json:"product_name" validate:"required,max=200"`
	ProductNameAlt  string          `json:"product_name_alt" validate:"max=200"`
	Unit            string          `json:"unit" validate:"required,max=20"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRate         string          `json:"vat_rate" validate:"max=6"`
	Position        int             `json:"position" validate:"gte=0"`
}

type ListInvoicesRequest struct {
	CompanyID int64      `json:"company_id" validate:"required,gt=0"`
	DocType   *DocType   `json:"doc_type,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	Limit     int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int        `json:"offset" validate:"gte=0"`
}
