package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
)

// Kind selects which order family a header belongs to. Sales and production
// orders share one shape but live in separate tables.
type Kind string

const (
	KindSales      Kind = "SALES"
	KindProduction Kind = "PRODUCTION"
)

// Tables returns the header and line table names for the kind.
func (k Kind) Tables() (header, lines string) {
	if k == KindProduction {
		return "production_orders", "production_order_lines"
	}
	return "sales_orders", "sales_order_lines"
}

// Order is a sales or production order header, usually materialized from an
// accepted offer. Customer fields are snapshots taken at conversion time.
type Order struct {
	ID              int64            `json:"id" db:"id"`
	Kind            Kind             `json:"kind" db:"-"`
	CompanyID       int64            `json:"company_id" db:"company_id"`
	DisplayNumber   string           `json:"display_number" db:"display_number"`
	OrderDate       time.Time        `json:"order_date" db:"order_date"`
	Status          lifecycle.Status `json:"status" db:"status"`
	SourceOfferID   *int64           `json:"source_offer_id,omitempty" db:"source_offer_id"`
	CustomerName    string           `json:"customer_name" db:"customer_name"`
	CustomerAddress string           `json:"customer_address" db:"customer_address"`
	CustomerTaxID   string           `json:"customer_tax_id" db:"customer_tax_id"`
	Currency        string           `json:"currency" db:"currency"`
	TotalNet        decimal.Decimal  `json:"total_net" db:"total_net"`
	TotalVAT        decimal.Decimal  `json:"total_vat" db:"total_vat"`
	TotalGross      decimal.Decimal  `json:"total_gross" db:"total_gross"`
	Notes           *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
	Lines           []OrderLine      `json:"lines,omitempty" db:"-"`
}

// OrderLine carries a product snapshot plus engine-derived amounts.
type OrderLine struct {
	ID              int64           `json:"id" db:"id"`
	OrderID         int64           `json:"order_id" db:"order_id"`
	ProductName     string          `json:"product_name" db:"product_name"`
	ProductNameAlt  string          `json:"product_name_alt" db:"product_name_alt"`
	Unit            string          `json:"unit" db:"unit"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" db:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	VATRate         string          `json:"vat_rate" db:"vat_rate"`
	LineNet         decimal.Decimal `json:"line_net" db:"line_net"`
	LineVAT         decimal.Decimal `json:"line_vat" db:"line_vat"`
	LineGross       decimal.Decimal `json:"line_gross" db:"line_gross"`
	Position        int             `json:"position" db:"line_no"`
}

type ListOrdersRequest struct {
	CompanyID int64   `json:"company_id" validate:"required,gt=0"`
	Status    *string `json:"status,omitempty"`
	Limit     int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int     `json:"offset" validate:"gte=0"`
}
