package offers

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOfferRequest struct {
	CompanyID       int64                `json:"company_id" validate:"required,gt=0"`
	OfferDate       time.Time            `json:"offer_date" validate:"required"`
	CustomerName    string               `json:"customer_name" validate:"required,max=200"`
	CustomerAddress string               `json:"customer_address" validate:"max=500"`
	CustomerTaxID   string               `json:"customer_tax_id" validate:"max=30"`
	Currency        string               `json:"currency" validate:"required,len=3"`
	Notes           *string              `json:"notes,omitempty"`
	Lines           []CreateOfferLineReq `json:"lines" validate:"dive"`
}

// CreateOfferLineReq carries decimal amounts straight off the wire so money
// figures never pass through a float.
type CreateOfferLineReq struct {
	ProductName     string          `json:"product_name" validate:"required,max=200"`
	ProductNameAlt  string          `json:"product_name_alt" validate:"max=200"`
	Unit            string          `json:"unit" validate:"required,max=20"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRate         string          `json:"vat_rate" validate:"max=6"`
	Position        int             `json:"position" validate:"gte=0"`
}

type UpdateOfferRequest struct {
	OfferDate       *time.Time `json:"offer_date,omitempty"`
	CustomerName    *string    `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	CustomerAddress *string    `json:"customer_address,omitempty" validate:"omitempty,max=500"`
	CustomerTaxID   *string    `json:"customer_tax_id,omitempty" validate:"omitempty,max=30"`
	Notes           *string    `json:"notes,omitempty"`
}

type ListOffersRequest struct {
	CompanyID int64      `json:"company_id" validate:"required,gt=0"`
	Status    *string    `json:"status,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	Limit     int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int        `json:"offset" validate:"gte=0"`
}
