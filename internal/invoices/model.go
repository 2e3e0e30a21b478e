package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
)

// DocType tags the commercial role of an invoice within a case.
type DocType string

const (
	// DocTypeProforma is a non-binding pre-invoice generated from an
	// accepted offer. At most one per case.
	DocTypeProforma DocType = "FPF"
	// DocTypeAdvance is an invoice for a partial payment within a case.
	DocTypeAdvance DocType = "FVZ"
	// DocTypeFinal closes a case, netting out prior advances. At most one
	// per case.
	DocTypeFinal DocType = "FV"
	// DocTypeCorrection amends an already issued invoice.
	DocTypeCorrection DocType = "FVK"
)

// Invoice is an invoice header. SourceDocumentID points at the offer the
// case started from, ParentDocumentID at the document this one was copied
// from, and RootDocumentID at the earliest ancestor in the case (itself when
// it opened the case).
type Invoice struct {
	ID               int64            `json:"id" db:"id"`
	CompanyID        int64            `json:"company_id" db:"company_id"`
	DocType          DocType          `json:"doc_type" db:"doc_type"`
	Status           lifecycle.Status `json:"status" db:"status"`
	Number           int              `json:"number" db:"number"`
	Year             int              `json:"year" db:"year"`
	Month            int              `json:"month" db:"month"`
	FullNumber       string           `json:"full_number" db:"full_number"`
	IssueDate        time.Time        `json:"issue_date" db:"issue_date"`
	SourceDocumentID *int64           `json:"source_document_id,omitempty" db:"source_document_id"`
	ParentDocumentID *int64           `json:"parent_document_id,omitempty" db:"parent_document_id"`
	RootDocumentID   int64            `json:"root_document_id" db:"root_document_id"`
	CustomerName     string           `json:"customer_name" db:"customer_name"`
	CustomerAddress  string           `json:"customer_address" db:"customer_address"`
	CustomerTaxID    string           `json:"customer_tax_id" db:"customer_tax_id"`
	Currency         string           `json:"currency" db:"currency"`
	TotalNet         decimal.Decimal  `json:"total_net" db:"total_net"`
	TotalVAT         decimal.Decimal  `json:"total_vat" db:"total_vat"`
	TotalGross       decimal.Decimal  `json:"total_gross" db:"total_gross"`
	AdvancesTotal    decimal.Decimal  `json:"advances_total" db:"advances_total"`
	AmountDue        decimal.Decimal  `json:"amount_due" db:"amount_due"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
	Lines            []InvoiceLine    `json:"lines,omitempty" db:"-"`
}

// InvoiceLine carries a product snapshot plus amounts derived by the totals
// engine; the computed amounts are never user-edited.
type InvoiceLine struct {
	ID              int64           `json:"id" db:"id"`
	InvoiceID       int64           `json:"invoice_id" db:"invoice_id"`
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

// Case is the derived grouping of invoices sharing one root document.
type Case struct {
	RootDocumentID int64           `json:"root_document_id"`
	Invoices       []Invoice       `json:"invoices"`
	AdvancesTotal  decimal.Decimal `json:"advances_total"`
}
