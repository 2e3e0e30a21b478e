package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityLogger records detected-but-tolerated data anomalies into the
// append-only integrity_log table. Writes are best effort: a failed insert is
// logged and swallowed so a diagnostic can never abort the business
// transaction that surfaced it.
type IntegrityLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityLogger returns a new IntegrityLogger.
func NewIntegrityLogger(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityLogger {
	return &IntegrityLogger{pool: pool, logger: logger}
}

// Record persists one anomaly entry.
func (l *IntegrityLogger) Record(ctx context.Context, documentID int64, issue, detail string) {
	if l == nil {
		return
	}
	l.logger.Warn("integrity anomaly",
		slog.Int64("document_id", documentID),
		slog.String("issue", issue),
		slog.String("detail", detail),
	)
	if l.pool == nil {
		return
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO integrity_log (entry_id, document_id, issue, detail, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), documentID, issue, detail, time.Now(),
	)
	if err != nil {
		l.logger.Error("write integrity log", slog.Any("error", err))
	}
}
