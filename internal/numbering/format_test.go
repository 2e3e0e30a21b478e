package numbering

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatFullNumber(t *testing.T) {
	require.Equal(t, "FV/2026/03/000042", FormatFullNumber("FV", 2026, 3, 42))
	require.Equal(t, "FPF/2025/12/000001", FormatFullNumber("FPF", 2025, 12, 1))
	require.Equal(t, "FVZ/2026/01/001205", FormatFullNumber("FVZ", 2026, 1, 1205))
}

func TestOfferDisplayNumber(t *testing.T) {
	date := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "OF/03/2026/07315", OfferDisplayNumber("OF", date, 315))

	// Single-digit days keep their leading zero; the sequence is appended
	// unpadded.
	date = time.Date(2025, time.November, 23, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "SO/11/2025/231", OfferDisplayNumber("SO", date, 1))
}

func TestNextRawIDRejectsUnknownTable(t *testing.T) {
	a := NewAllocator(testLogger(), nil)
	_, err := a.NextRawID(context.Background(), nil, "customers; DROP TABLE offers")
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
