package offers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// NewRepository constructs the PostgreSQL backed repository.
func NewRepository() Repository {
	return &repository{}
}

type repository struct{}

const offerColumns = `id, company_id, display_number, offer_date, status, customer_name, customer_address,
customer_tax_id, currency, total_net, total_vat, total_gross, notes, created_at, updated_at`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(
		&o.ID, &o.CompanyID, &o.DisplayNumber, &o.OfferDate, &o.Status, &o.CustomerName,
		&o.CustomerAddress, &o.CustomerTaxID, &o.Currency, &o.TotalNet, &o.TotalVAT,
		&o.TotalGross, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("offer not found")
		}
		return nil, shared.Persistence(err, "scan offer")
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, q db.DBTX, id int64) (*Offer, error) {
	o, err := scanOffer(q.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.Lines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *repository) List(ctx context.Context, q db.DBTX, req ListOffersRequest) ([]Offer, int, error) {
	conditions := "company_id = $1"
	args := []any{req.CompanyID}
	argPos := 2

	if req.Status != nil {
		conditions += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions += fmt.Sprintf(" AND offer_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions += fmt.Sprintf(" AND offer_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM offers WHERE `+conditions, args...).Scan(&total); err != nil {
		return nil, 0, shared.Persistence(err, "count offers")
	}

	query := fmt.Sprintf(`SELECT %s FROM offers WHERE %s ORDER BY offer_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		offerColumns, conditions, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.Persistence(err, "list offers")
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, shared.Persistence(err, "list offers")
	}
	return out, total, nil
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, o *Offer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO offers (id, company_id, display_number, offer_date, status, customer_name,
			customer_address, customer_tax_id, currency, total_net, total_vat, total_gross, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`, o.ID, o.CompanyID, o.DisplayNumber, o.OfferDate, o.Status, o.CustomerName,
		o.CustomerAddress, o.CustomerTaxID, o.Currency, o.TotalNet, o.TotalVAT, o.TotalGross, o.Notes)
	if err != nil {
		return shared.Persistence(err, "insert offer")
	}
	return nil
}

func (r *repository) UpdateHeader(ctx context.Context, q db.DBTX, id int64, updates map[string]any) error {
	query := "UPDATE offers SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"offer_date", "customer_name", "customer_address", "customer_tax_id", "notes"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return shared.Persistence(err, "update offer")
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error {
	tag, err := q.Exec(ctx, `UPDATE offers SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return shared.Persistence(err, "update offer status")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("offer %d not found", id)
	}
	return nil
}

func (r *repository) SetConvertedGross(ctx context.Context, q db.DBTX, id int64, gross decimal.Decimal) error {
	_, err := q.Exec(ctx, `UPDATE offers SET total_gross = $1, updated_at = NOW() WHERE id = $2`, gross, id)
	if err != nil {
		return shared.Persistence(err, "write back offer gross")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, q db.DBTX, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return shared.Persistence(err, "delete offer")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("offer %d not found", id)
	}
	return nil
}

const lineColumns = `id, offer_id, product_name, product_name_alt, unit, quantity, unit_price,
discount_percent, vat_rate, line_net, line_vat, line_gross, line_no`

func scanLine(row pgx.Row) (*OfferLine, error) {
	var l OfferLine
	err := row.Scan(
		&l.ID, &l.OfferID, &l.ProductName, &l.ProductNameAlt, &l.Unit, &l.Quantity,
		&l.UnitPrice, &l.DiscountPercent, &l.VATRate, &l.LineNet, &l.LineVAT, &l.LineGross, &l.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("offer line not found")
		}
		return nil, shared.Persistence(err, "scan offer line")
	}
	return &l, nil
}

func (r *repository) Lines(ctx context.Context, q db.DBTX, offerID int64) ([]OfferLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+lineColumns+` FROM offer_lines WHERE offer_id = $1 ORDER BY line_no, id`, offerID)
	if err != nil {
		return nil, shared.Persistence(err, "list offer lines")
	}
	defer rows.Close()

	var lines []OfferLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence(err, "list offer lines")
	}
	return lines, nil
}

func (r *repository) GetLine(ctx context.Context, q db.DBTX, lineID int64) (*OfferLine, error) {
	return scanLine(q.QueryRow(ctx,
		`SELECT `+lineColumns+` FROM offer_lines WHERE id = $1`, lineID))
}

func (r *repository) InsertLine(ctx context.Context, q db.DBTX, l *OfferLine) error {
	_, err := q.Exec(ctx, `
		INSERT INTO offer_lines (id, offer_id, product_name, product_name_alt, unit, quantity,
			unit_price, discount_percent, vat_rate, line_net, line_vat, line_gross, line_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.OfferID, l.ProductName, l.ProductNameAlt, l.Unit, l.Quantity,
		l.UnitPrice, l.DiscountPercent, l.VATRate, l.LineNet, l.LineVAT, l.LineGross, l.Position)
	if err != nil {
		return shared.Persistence(err, "insert offer line")
	}
	return nil
}

func (r *repository) UpdateLine(ctx context.Context, q db.DBTX, l *OfferLine) error {
	tag, err := q.Exec(ctx, `
		UPDATE offer_lines
		SET product_name = $1, product_name_alt = $2, unit = $3, quantity = $4, unit_price = $5,
			discount_percent = $6, vat_rate = $7, line_net = $8, line_vat = $9, line_gross = $10,
			line_no = $11
		WHERE id = $12
	`, l.ProductName, l.ProductNameAlt, l.Unit, l.Quantity, l.UnitPrice,
		l.DiscountPercent, l.VATRate, l.LineNet, l.LineVAT, l.LineGross, l.Position, l.ID)
	if err != nil {
		return shared.Persistence(err, "update offer line")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("offer line %d not found", l.ID)
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, q db.DBTX, lineID int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM offer_lines WHERE id = $1`, lineID)
	if err != nil {
		return shared.Persistence(err, "delete offer line")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("offer line %d not found", lineID)
	}
	return nil
}

func (r *repository) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(line_net), 0), COALESCE(SUM(line_vat), 0), COALESCE(SUM(line_gross), 0)
		FROM offer_lines WHERE offer_id = $1
	`, headerID).Scan(&net, &vat, &gross)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, shared.Persistence(err, "sum offer lines")
	}
	return net, vat, gross, nil
}

func (r *repository) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE offers SET total_net = $1, total_vat = $2, total_gross = $3, updated_at = NOW() WHERE id = $4`,
		net, vat, gross, headerID)
	if err != nil {
		return shared.Persistence(err, "update offer totals")
	}
	return nil
}
