package offers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
)

// Offer is a commercial offer header. Customer fields are a snapshot taken
// when the offer is created, not a live foreign key dependency.
type Offer struct {
	ID              int64            `json:"id" db:"id"`
	CompanyID       int64            `json:"company_id" db:"company_id"`
	DisplayNumber   string           `json:"display_number" db:"display_number"`
	OfferDate       time.Time        `json:"offer_date" db:"offer_date"`
	Status          lifecycle.Status `json:"status" db:"status"`
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
	Lines           []OfferLine      `json:"lines,omitempty" db:"-"`
}

// OfferLine carries a product snapshot plus amounts derived by the totals
// engine. The three computed amounts are never edited directly.
type OfferLine struct {
	ID              int64           `json:"id" db:"id"`
	OfferID         int64           `json:"offer_id" db:"offer_id"`
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
