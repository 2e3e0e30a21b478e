package totals

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLineRoundingOrder(t *testing.T) {
	// 3 x 10.555 with 10% discount: raw net 31.665, discounted 28.4985,
	// rounded once to 28.50. VAT 23% of the rounded net: 6.555 -> 6.56.
	got := ComputeLine(dec("3"), dec("10.555"), dec("10"), "23")
	require.True(t, got.Net.Equal(dec("28.50")), "net = %s", got.Net)
	require.True(t, got.VAT.Equal(dec("6.56")), "vat = %s", got.VAT)
	require.True(t, got.Gross.Equal(dec("35.06")), "gross = %s", got.Gross)
}

func TestComputeLineRoundsHalfAwayFromZero(t *testing.T) {
	// 2.005 must round to 2.01, not 2.00 as banker's rounding would give.
	got := ComputeLine(dec("1"), dec("2.005"), dec("0"), "")
	require.True(t, got.Net.Equal(dec("2.01")), "net = %s", got.Net)
	require.True(t, got.VAT.IsZero())
	require.True(t, got.Gross.Equal(dec("2.01")))
}

func TestComputeLineZeroQuantity(t *testing.T) {
	got := ComputeLine(decimal.Zero, dec("99.99"), dec("15"), "23")
	require.True(t, got.Net.IsZero())
	require.True(t, got.VAT.IsZero())
	require.True(t, got.Gross.IsZero())
}

func TestComputeLineFullDiscount(t *testing.T) {
	got := ComputeLine(dec("4"), dec("25"), dec("100"), "23")
	require.True(t, got.Net.IsZero())
	require.True(t, got.VAT.IsZero())
	require.True(t, got.Gross.IsZero())
}

func TestParseVATRate(t *testing.T) {
	require.True(t, ParseVATRate("23").Equal(dec("23")))
	require.True(t, ParseVATRate("8").Equal(dec("8")))
	require.True(t, ParseVATRate("").IsZero())
	require.True(t, ParseVATRate("zw").IsZero())
	require.True(t, ParseVATRate("n/a").IsZero())
}

func TestGrossEqualsNetPlusVAT(t *testing.T) {
	cases := []struct {
		qty, price, disc string
		rate             string
	}{
		{"1", "0.01", "0", "23"},
		{"1000", "123.456", "2.5", "8"},
		{"0.5", "19.99", "33.33", "5"},
		{"7", "10.555", "10", "23"},
	}
	for _, c := range cases {
		got := ComputeLine(dec(c.qty), dec(c.price), dec(c.disc), c.rate)
		require.True(t, got.Gross.Equal(got.Net.Add(got.VAT)),
			"%s x %s: gross %s != net %s + vat %s", c.qty, c.price, got.Gross, got.Net, got.VAT)
	}
}

type memoryHeaderStore struct {
	lines   map[int64][]LineAmounts
	headers map[int64][3]decimal.Decimal
}

func newMemoryHeaderStore() *memoryHeaderStore {
	return &memoryHeaderStore{
		lines:   make(map[int64][]LineAmounts),
		headers: make(map[int64][3]decimal.Decimal),
	}
}

func (s *memoryHeaderStore) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	net, vat, gross = decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range s.lines[headerID] {
		net = net.Add(l.Net)
		vat = vat.Add(l.VAT)
		gross = gross.Add(l.Gross)
	}
	return net, vat, gross, nil
}

func (s *memoryHeaderStore) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	s.headers[headerID] = [3]decimal.Decimal{net, vat, gross}
	return nil
}

func TestRecalculateHeaderTotals(t *testing.T) {
	store := newMemoryHeaderStore()
	store.lines[1] = []LineAmounts{
		ComputeLine(dec("3"), dec("10.555"), dec("10"), "23"),
		ComputeLine(dec("2"), dec("50"), dec("0"), "8"),
	}

	engine := NewEngine()
	require.NoError(t, engine.RecalculateHeaderTotals(context.Background(), nil, store, 1))

	got := store.headers[1]
	require.True(t, got[0].Equal(dec("128.50")), "net = %s", got[0])
	require.True(t, got[1].Equal(dec("14.56")), "vat = %s", got[1])
	require.True(t, got[2].Equal(dec("143.06")), "gross = %s", got[2])
}

type memoryNettingStore struct {
	gross    decimal.Decimal
	rootID   int64
	advances decimal.Decimal

	gotAdvances decimal.Decimal
	gotDue      decimal.Decimal
}

func (s *memoryNettingStore) FinalInvoiceContext(ctx context.Context, q db.DBTX, invoiceID int64) (decimal.Decimal, int64, error) {
	return s.gross, s.rootID, nil
}

func (s *memoryNettingStore) SumAdvanceGross(ctx context.Context, q db.DBTX, rootID, excludeID int64) (decimal.Decimal, error) {
	return s.advances, nil
}

func (s *memoryNettingStore) UpdateNetting(ctx context.Context, q db.DBTX, invoiceID int64, advancesTotal, amountDue decimal.Decimal) error {
	s.gotAdvances = advancesTotal
	s.gotDue = amountDue
	return nil
}

func TestRecalculateAdvanceNetting(t *testing.T) {
	store := &memoryNettingStore{gross: dec("1000"), rootID: 7, advances: dec("350")}
	engine := NewEngine()
	require.NoError(t, engine.RecalculateAdvanceNetting(context.Background(), nil, store, 9))
	require.True(t, store.gotAdvances.Equal(dec("350")))
	require.True(t, store.gotDue.Equal(dec("650")), "due = %s", store.gotDue)
}

func TestRecalculateAdvanceNettingClampsAtZero(t *testing.T) {
	store := &memoryNettingStore{gross: dec("500"), rootID: 7, advances: dec("620")}
	engine := NewEngine()
	require.NoError(t, engine.RecalculateAdvanceNetting(context.Background(), nil, store, 9))
	require.True(t, store.gotAdvances.Equal(dec("620")))
	require.True(t, store.gotDue.IsZero(), "due = %s", store.gotDue)
}
