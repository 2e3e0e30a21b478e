package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// NewRepository constructs the PostgreSQL backed repository.
func NewRepository() Repository {
	return &repository{}
}

type repository struct{}

const invoiceColumns = `id, company_id, doc_type, status, number, year, month, full_number, issue_date,
source_document_id, parent_document_id, root_document_id, customer_name, customer_address,
customer_tax_id, currency, total_net, total_vat, total_gross, advances_total, amount_due, notes,
created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.DocType, &inv.Status, &inv.Number, &inv.Year, &inv.Month,
		&inv.FullNumber, &inv.IssueDate, &inv.SourceDocumentID, &inv.ParentDocumentID,
		&inv.RootDocumentID, &inv.CustomerName, &inv.CustomerAddress, &inv.CustomerTaxID,
		&inv.Currency, &inv.TotalNet, &inv.TotalVAT, &inv.TotalGross, &inv.AdvancesTotal,
		&inv.AmountDue, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("invoice not found")
		}
		return nil, shared.Persistence(err, "scan invoice")
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, q db.DBTX, id int64) (*Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.Lines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func (r *repository) List(ctx context.Context, q db.DBTX, req ListInvoicesRequest) ([]Invoice, int, error) {
	conditions := "company_id = $1"
	args := []any{req.CompanyID}
	argPos := 2

	if req.DocType != nil {
		conditions += fmt.Sprintf(" AND doc_type = $%d", argPos)
		args = append(args, *req.DocType)
		argPos++
	}
	if req.DateFrom != nil {
		conditions += fmt.Sprintf(" AND issue_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions += fmt.Sprintf(" AND issue_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+conditions, args...).Scan(&total); err != nil {
		return nil, 0, shared.Persistence(err, "count invoices")
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, conditions, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.Persistence(err, "list invoices")
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, shared.Persistence(err, "list invoices")
	}
	return out, total, nil
}

func (r *repository) FindBySource(ctx context.Context, q db.DBTX, companyID, sourceID int64, docType DocType) (*Invoice, error) {
	return scanInvoice(q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE company_id = $1 AND source_document_id = $2 AND doc_type = $3
		 ORDER BY id LIMIT 1`,
		companyID, sourceID, docType))
}

func (r *repository) CaseRootForSource(ctx context.Context, q db.DBTX, companyID, sourceID int64) (*int64, error) {
	var root int64
	err := q.QueryRow(ctx,
		`SELECT root_document_id FROM invoices
		 WHERE company_id = $1 AND source_document_id = $2
		 ORDER BY id LIMIT 1`,
		companyID, sourceID).Scan(&root)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, shared.Persistence(err, "resolve case root")
	}
	return &root, nil
}

func (r *repository) FindInCaseByType(ctx context.Context, q db.DBTX, rootID int64, docType DocType) (*Invoice, error) {
	return scanInvoice(q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE root_document_id = $1 AND doc_type = $2
		 ORDER BY id LIMIT 1`,
		rootID, docType))
}

func (r *repository) ListCase(ctx context.Context, q db.DBTX, rootID int64) ([]Invoice, error) {
	rows, err := q.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE root_document_id = $1 ORDER BY id`, rootID)
	if err != nil {
		return nil, shared.Persistence(err, "list case invoices")
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence(err, "list case invoices")
	}
	return out, nil
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, inv *Invoice) error {
	_, err := q.Exec(ctx, `
		INSERT INTO invoices (id, company_id, doc_type, status, number, year, month, full_number,
			issue_date, source_document_id, parent_document_id, root_document_id, customer_name,
			customer_address, customer_tax_id, currency, total_net, total_vat, total_gross,
			advances_total, amount_due, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, NOW(), NOW())
	`, inv.ID, inv.CompanyID, inv.DocType, inv.Status, inv.Number, inv.Year, inv.Month,
		inv.FullNumber, inv.IssueDate, inv.SourceDocumentID, inv.ParentDocumentID,
		inv.RootDocumentID, inv.CustomerName, inv.CustomerAddress, inv.CustomerTaxID,
		inv.Currency, inv.TotalNet, inv.TotalVAT, inv.TotalGross, inv.AdvancesTotal,
		inv.AmountDue, inv.Notes)
	if err != nil {
		if shared.UniqueViolation(err) {
			return shared.BusinessRule("invoice number %s already issued", inv.FullNumber)
		}
		return shared.Persistence(err, "insert invoice")
	}
	return nil
}

func (r *repository) RootOf(ctx context.Context, q db.DBTX, id int64) (*int64, error) {
	var root *int64
	err := q.QueryRow(ctx, `SELECT root_document_id FROM invoices WHERE id = $1`, id).Scan(&root)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("invoice %d not found", id)
		}
		return nil, shared.Persistence(err, "read invoice root")
	}
	return root, nil
}

const lineColumns = `id, invoice_id, product_name, product_name_alt, unit, quantity, unit_price,
discount_percent, vat_rate, line_net, line_vat, line_gross, line_no`

func scanLine(row pgx.Row) (*InvoiceLine, error) {
	var l InvoiceLine
	err := row.Scan(
		&l.ID, &l.InvoiceID, &l.ProductName, &l.ProductNameAlt, &l.Unit, &l.Quantity,
		&l.UnitPrice, &l.DiscountPercent, &l.VATRate, &l.LineNet, &l.LineVAT, &l.LineGross, &l.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("invoice line not found")
		}
		return nil, shared.Persistence(err, "scan invoice line")
	}
	return &l, nil
}

func (r *repository) Lines(ctx context.Context, q db.DBTX, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no, id`, invoiceID)
	if err != nil {
		return nil, shared.Persistence(err, "list invoice lines")
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence(err, "list invoice lines")
	}
	return lines, nil
}

func (r *repository) GetLine(ctx context.Context, q db.DBTX, lineID int64) (*InvoiceLine, error) {
	return scanLine(q.QueryRow(ctx,
		`SELECT `+lineColumns+` FROM invoice_lines WHERE id = $1`, lineID))
}

func (r *repository) InsertLine(ctx context.Context, q db.DBTX, l *InvoiceLine) error {
	_, err := q.Exec(ctx, `
		INSERT INTO invoice_lines (id, invoice_id, product_name, product_name_alt, unit, quantity,
			unit_price, discount_percent, vat_rate, line_net, line_vat, line_gross, line_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.InvoiceID, l.ProductName, l.ProductNameAlt, l.Unit, l.Quantity,
		l.UnitPrice, l.DiscountPercent, l.VATRate, l.LineNet, l.LineVAT, l.LineGross, l.Position)
	if err != nil {
		return shared.Persistence(err, "insert invoice line")
	}
	return nil
}

func (r *repository) UpdateLine(ctx context.Context, q db.DBTX, l *InvoiceLine) error {
	tag, err := q.Exec(ctx, `
		UPDATE invoice_lines
		SET product_name = $1, product_name_alt = $2, unit = $3, quantity = $4, unit_price = $5,
			discount_percent = $6, vat_rate = $7, line_net = $8, line_vat = $9, line_gross = $10,
			line_no = $11
		WHERE id = $12
	`, l.ProductName, l.ProductNameAlt, l.Unit, l.Quantity, l.UnitPrice,
		l.DiscountPercent, l.VATRate, l.LineNet, l.LineVAT, l.LineGross, l.Position, l.ID)
	if err != nil {
		return shared.Persistence(err, "update invoice line")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice line %d not found", l.ID)
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, q db.DBTX, lineID int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM invoice_lines WHERE id = $1`, lineID)
	if err != nil {
		return shared.Persistence(err, "delete invoice line")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice line %d not found", lineID)
	}
	return nil
}

func (r *repository) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(line_net), 0), COALESCE(SUM(line_vat), 0), COALESCE(SUM(line_gross), 0)
		FROM invoice_lines WHERE invoice_id = $1
	`, headerID).Scan(&net, &vat, &gross)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, shared.Persistence(err, "sum invoice lines")
	}
	return net, vat, gross, nil
}

func (r *repository) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE invoices SET total_net = $1, total_vat = $2, total_gross = $3, updated_at = NOW() WHERE id = $4`,
		net, vat, gross, headerID)
	if err != nil {
		return shared.Persistence(err, "update invoice totals")
	}
	return nil
}

func (r *repository) FinalInvoiceContext(ctx context.Context, q db.DBTX, invoiceID int64) (decimal.Decimal, int64, error) {
	var gross decimal.Decimal
	var rootID int64
	err := q.QueryRow(ctx,
		`SELECT total_gross, root_document_id FROM invoices WHERE id = $1 AND doc_type = $2`,
		invoiceID, DocTypeFinal).Scan(&gross, &rootID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, 0, shared.NotFound("final invoice %d not found", invoiceID)
		}
		return decimal.Zero, 0, shared.Persistence(err, "read final invoice")
	}
	return gross, rootID, nil
}

func (r *repository) SumAdvanceGross(ctx context.Context, q db.DBTX, rootID, excludeID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_gross), 0) FROM invoices
		WHERE root_document_id = $1 AND doc_type = $2 AND id <> $3
	`, rootID, DocTypeAdvance, excludeID).Scan(&sum)
	if err != nil {
		return decimal.Zero, shared.Persistence(err, "sum advance invoices")
	}
	return sum, nil
}

func (r *repository) UpdateNetting(ctx context.Context, q db.DBTX, invoiceID int64, advancesTotal, amountDue decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE invoices SET advances_total = $1, amount_due = $2, updated_at = NOW() WHERE id = $3`,
		advancesTotal, amountDue, invoiceID)
	if err != nil {
		return shared.Persistence(err, "update invoice netting")
	}
	return nil
}
