// Package numbering issues primary-key identifiers and human-facing document
// numbers for tables without native auto-increment.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// allocatableTables lists every table the allocator may issue raw ids for.
// Table names are interpolated into SQL, so membership here is mandatory.
var allocatableTables = map[string]bool{
	"offers":                 true,
	"offer_lines":            true,
	"invoices":               true,
	"invoice_lines":          true,
	"sales_orders":           true,
	"sales_order_lines":      true,
	"production_orders":      true,
	"production_order_lines": true,
}

// driftTables have historically received out-of-band inserts that bypassed
// the counter. Before issuing an id for one of these, the allocator verifies
// the locked counter against the live max(id) and bumps it when behind.
var driftTables = map[string]bool{
	"offers":        true,
	"offer_lines":   true,
	"invoices":      true,
	"invoice_lines": true,
}

// Allocator issues collision-free ids and sequential document numbers.
// Every method runs on the caller's query handle; when that handle is a
// transaction, the counter update commits or rolls back with it.
type Allocator struct {
	logger    *slog.Logger
	integrity *shared.IntegrityLogger
}

// NewAllocator returns a new Allocator.
func NewAllocator(logger *slog.Logger, integrity *shared.IntegrityLogger) *Allocator {
	return &Allocator{logger: logger, integrity: integrity}
}

// NextRawID returns the next primary-key value for table. The counter row is
// locked for the duration of the caller's transaction, so two concurrent
// calls for the same table serialize instead of racing.
func (a *Allocator) NextRawID(ctx context.Context, q db.DBTX, table string) (int64, error) {
	if !allocatableTables[table] {
		return 0, shared.Validation("no id sequence registered for table %q", table)
	}

	const lockCounter = `SELECT next_value FROM sequence_counters WHERE table_name = $1 FOR UPDATE`

	var value int64
	err := q.QueryRow(ctx, lockCounter, table).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		seed, seedErr := a.maxID(ctx, q, table)
		if seedErr != nil {
			return 0, seedErr
		}
		// Two sessions can both miss the row on first use. DO NOTHING keeps
		// the loser alive; the re-read below blocks on the winner's lock the
		// same way every later call does.
		if _, err := q.Exec(ctx,
			`INSERT INTO sequence_counters (table_name, next_value)
			 VALUES ($1, $2) ON CONFLICT (table_name) DO NOTHING`,
			table, seed+1,
		); err != nil {
			return 0, shared.Persistence(err, fmt.Sprintf("seed id counter for %s", table))
		}
		err = q.QueryRow(ctx, lockCounter, table).Scan(&value)
	}
	if err != nil {
		return 0, shared.Persistence(err, fmt.Sprintf("lock id counter for %s", table))
	}

	if driftTables[table] {
		maxID, err := a.maxID(ctx, q, table)
		if err != nil {
			return 0, err
		}
		if maxID >= value {
			corrected := maxID + 1
			a.logger.Warn("id counter drift corrected",
				slog.String("table", table),
				slog.Int64("counter", value),
				slog.Int64("max_id", maxID),
			)
			if a.integrity != nil {
				a.integrity.Record(ctx, maxID, "sequence_drift",
					fmt.Sprintf("counter for %s at %d behind max id %d", table, value, maxID))
			}
			value = corrected
		}
	}

	if _, err := q.Exec(ctx,
		`UPDATE sequence_counters SET next_value = $1 WHERE table_name = $2`,
		value+1, table,
	); err != nil {
		return 0, shared.Persistence(err, fmt.Sprintf("advance id counter for %s", table))
	}
	return value, nil
}

func (a *Allocator) maxID(ctx context.Context, q db.DBTX, table string) (int64, error) {
	var maxID int64
	// table is validated against allocatableTables before reaching here.
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) FROM %s`, table)).Scan(&maxID)
	if err != nil {
		return 0, shared.Persistence(err, fmt.Sprintf("read max id of %s", table))
	}
	return maxID, nil
}

// NextDocumentNumber atomically increments and returns the per
// (company, document type, year, month) counter. The upsert is the sole
// serialization point: concurrent callers block on the counter row and
// observe strictly increasing values with no duplicates.
func (a *Allocator) NextDocumentNumber(ctx context.Context, q db.DBTX, companyID int64, docType string, year, month int) (int, error) {
	var number int
	err := q.QueryRow(ctx, `
		INSERT INTO document_counters (company_id, doc_type, year, month, next_value)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (company_id, doc_type, year, month)
		DO UPDATE SET next_value = document_counters.next_value + 1
		RETURNING next_value
	`, companyID, docType, year, month).Scan(&number)
	if err != nil {
		return 0, shared.Persistence(err, fmt.Sprintf("next %s number for company %d", docType, companyID))
	}
	return number, nil
}

// NextNumber allocates the next document number for the date's period and
// returns it together with the formatted full number.
func (a *Allocator) NextNumber(ctx context.Context, q db.DBTX, companyID int64, docType string, date time.Time) (year, month, number int, fullNumber string, err error) {
	year = date.Year()
	month = int(date.Month())
	number, err = a.NextDocumentNumber(ctx, q, companyID, docType, year, month)
	if err != nil {
		return 0, 0, 0, "", err
	}
	return year, month, number, FormatFullNumber(docType, year, month, number), nil
}

// FormatFullNumber renders the canonical document number string.
func FormatFullNumber(docType string, year, month, number int) string {
	return fmt.Sprintf("%s/%d/%02d/%06d", docType, year, month, number)
}

// OfferDisplayNumber computes the presentation-only offer number from the
// offer date and its raw sequence. Offers carry no stored counter of their
// own; the day-and-sequence suffix keeps the figure unique within a day.
func OfferDisplayNumber(prefix string, date time.Time, sequence int64) string {
	return fmt.Sprintf("%s/%02d/%d/%02d%d", prefix, int(date.Month()), date.Year(), date.Day(), sequence)
}
