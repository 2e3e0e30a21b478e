package orders

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

// NewRepository constructs the PostgreSQL backed repository for one kind.
func NewRepository(kind Kind) Repository {
	header, lines := kind.Tables()
	return &repository{kind: kind, headerTable: header, lineTable: lines}
}

type repository struct {
	kind        Kind
	headerTable string
	lineTable   string
}

func (r *repository) OrderKind() Kind { return r.kind }

const orderColumns = `id, company_id, display_number, order_date, status, source_offer_id, customer_name,
customer_address, customer_tax_id, currency, total_net, total_vat, total_gross, notes, created_at, updated_at`

func (r *repository) scanOrder(row pgx.Row) (*Order, error) {
	o := Order{Kind: r.kind}
	err := row.Scan(
		&o.ID, &o.CompanyID, &o.DisplayNumber, &o.OrderDate, &o.Status, &o.SourceOfferID,
		&o.CustomerName, &o.CustomerAddress, &o.CustomerTaxID, &o.Currency,
		&o.TotalNet, &o.TotalVAT, &o.TotalGross, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("%s order not found", r.kind)
		}
		return nil, shared.Persistence(err, "scan order")
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, q db.DBTX, id int64) (*Order, error) {
	o, err := r.scanOrder(q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, orderColumns, r.headerTable), id))
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

func (r *repository) List(ctx context.Context, q db.DBTX, req ListOrdersRequest) ([]Order, int, error) {
	conditions := "company_id = $1"
	args := []any{req.CompanyID}
	argPos := 2
	if req.Status != nil {
		conditions += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.headerTable, conditions)
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, shared.Persistence(err, "count orders")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, r.headerTable, conditions, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.Persistence(err, "list orders")
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, shared.Persistence(err, "list orders")
	}
	return out, total, nil
}

func (r *repository) FindBySourceOffer(ctx context.Context, q db.DBTX, companyID, offerID int64) (*Order, error) {
	return r.scanOrder(q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE company_id = $1 AND source_offer_id = $2 ORDER BY id LIMIT 1`,
			orderColumns, r.headerTable),
		companyID, offerID))
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, company_id, display_number, order_date, status, source_offer_id,
			customer_name, customer_address, customer_tax_id, currency, total_net, total_vat,
			total_gross, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`, r.headerTable), o.ID, o.CompanyID, o.DisplayNumber, o.OrderDate, o.Status, o.SourceOfferID,
		o.CustomerName, o.CustomerAddress, o.CustomerTaxID, o.Currency,
		o.TotalNet, o.TotalVAT, o.TotalGross, o.Notes)
	if err != nil {
		return shared.Persistence(err, "insert order")
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error {
	tag, err := q.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2`, r.headerTable),
		status, id)
	if err != nil {
		return shared.Persistence(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("%s order %d not found", r.kind, id)
	}
	return nil
}

const orderLineColumns = `id, order_id, product_name, product_name_alt, unit, quantity, unit_price,
discount_percent, vat_rate, line_net, line_vat, line_gross, line_no`

func (r *repository) Lines(ctx context.Context, q db.DBTX, orderID int64) ([]OrderLine, error) {
	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE order_id = $1 ORDER BY line_no, id`, orderLineColumns, r.lineTable),
		orderID)
	if err != nil {
		return nil, shared.Persistence(err, "list order lines")
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		err := rows.Scan(
			&l.ID, &l.OrderID, &l.ProductName, &l.ProductNameAlt, &l.Unit, &l.Quantity,
			&l.UnitPrice, &l.DiscountPercent, &l.VATRate, &l.LineNet, &l.LineVAT, &l.LineGross, &l.Position,
		)
		if err != nil {
			return nil, shared.Persistence(err, "scan order line")
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence(err, "list order lines")
	}
	return lines, nil
}

func (r *repository) InsertLine(ctx context.Context, q db.DBTX, l *OrderLine) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, order_id, product_name, product_name_alt, unit, quantity, unit_price,
			discount_percent, vat_rate, line_net, line_vat, line_gross, line_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.lineTable), l.ID, l.OrderID, l.ProductName, l.ProductNameAlt, l.Unit, l.Quantity,
		l.UnitPrice, l.DiscountPercent, l.VATRate, l.LineNet, l.LineVAT, l.LineGross, l.Position)
	if err != nil {
		return shared.Persistence(err, "insert order line")
	}
	return nil
}

func (r *repository) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	err = q.QueryRow(ctx, fmt.Sprintf(`
		SELECT COALESCE(SUM(line_net), 0), COALESCE(SUM(line_vat), 0), COALESCE(SUM(line_gross), 0)
		FROM %s WHERE order_id = $1
	`, r.lineTable), headerID).Scan(&net, &vat, &gross)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, shared.Persistence(err, "sum order lines")
	}
	return net, vat, gross, nil
}

func (r *repository) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	_, err := q.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET total_net = $1, total_vat = $2, total_gross = $3, updated_at = NOW() WHERE id = $4`,
			r.headerTable),
		net, vat, gross, headerID)
	if err != nil {
		return shared.Persistence(err, "update order totals")
	}
	return nil
}
