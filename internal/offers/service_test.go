package offers

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/totals"
)

type passthroughRunner struct{}

func (passthroughRunner) WithTx(ctx context.Context, fn func(db.DBTX) error) error {
	return fn(nil)
}

type sequentialIDs struct {
	next map[string]int64
}

func (s *sequentialIDs) NextRawID(ctx context.Context, q db.DBTX, table string) (int64, error) {
	if s.next == nil {
		s.next = make(map[string]int64)
	}
	s.next[table]++
	return s.next[table], nil
}

type memoryOfferRepo struct {
	offers map[int64]*Offer
	lines  map[int64]*OfferLine
}

func newMemoryOfferRepo() *memoryOfferRepo {
	return &memoryOfferRepo{
		offers: make(map[int64]*Offer),
		lines:  make(map[int64]*OfferLine),
	}
}

func (r *memoryOfferRepo) Get(ctx context.Context, q db.DBTX, id int64) (*Offer, error) {
	o, ok := r.offers[id]
	if !ok {
		return nil, shared.NotFound("offer not found")
	}
	cp := *o
	lines, _ := r.Lines(ctx, q, id)
	cp.Lines = lines
	return &cp, nil
}

func (r *memoryOfferRepo) List(ctx context.Context, q db.DBTX, req ListOffersRequest) ([]Offer, int, error) {
	var out []Offer
	for _, o := range r.offers {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (r *memoryOfferRepo) Insert(ctx context.Context, q db.DBTX, offer *Offer) error {
	cp := *offer
	r.offers[offer.ID] = &cp
	return nil
}

func (r *memoryOfferRepo) UpdateHeader(ctx context.Context, q db.DBTX, id int64, updates map[string]any) error {
	o, ok := r.offers[id]
	if !ok {
		return shared.NotFound("offer not found")
	}
	for col, val := range updates {
		switch col {
		case "offer_date":
			o.OfferDate = val.(time.Time)
		case "customer_name":
			o.CustomerName = val.(string)
		case "customer_address":
			o.CustomerAddress = val.(string)
		case "customer_tax_id":
			o.CustomerTaxID = val.(string)
		case "notes":
			s := val.(string)
			o.Notes = &s
		}
	}
	return nil
}

func (r *memoryOfferRepo) UpdateStatus(ctx context.Context, q db.DBTX, id int64, status lifecycle.Status) error {
	o, ok := r.offers[id]
	if !ok {
		return shared.NotFound("offer not found")
	}
	o.Status = status
	return nil
}

func (r *memoryOfferRepo) SetConvertedGross(ctx context.Context, q db.DBTX, id int64, gross decimal.Decimal) error {
	o, ok := r.offers[id]
	if !ok {
		return shared.NotFound("offer not found")
	}
	o.TotalGross = gross
	return nil
}

func (r *memoryOfferRepo) Delete(ctx context.Context, q db.DBTX, id int64) error {
	delete(r.offers, id)
	return nil
}

func (r *memoryOfferRepo) Lines(ctx context.Context, q db.DBTX, offerID int64) ([]OfferLine, error) {
	var out []OfferLine
	for _, l := range r.lines {
		if l.OfferID == offerID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memoryOfferRepo) GetLine(ctx context.Context, q db.DBTX, lineID int64) (*OfferLine, error) {
	l, ok := r.lines[lineID]
	if !ok {
		return nil, shared.NotFound("line not found")
	}
	cp := *l
	return &cp, nil
}

func (r *memoryOfferRepo) InsertLine(ctx context.Context, q db.DBTX, line *OfferLine) error {
	cp := *line
	r.lines[line.ID] = &cp
	return nil
}

func (r *memoryOfferRepo) UpdateLine(ctx context.Context, q db.DBTX, line *OfferLine) error {
	cp := *line
	r.lines[line.ID] = &cp
	return nil
}

func (r *memoryOfferRepo) DeleteLine(ctx context.Context, q db.DBTX, lineID int64) error {
	delete(r.lines, lineID)
	return nil
}

func (r *memoryOfferRepo) SumLines(ctx context.Context, q db.DBTX, headerID int64) (net, vat, gross decimal.Decimal, err error) {
	net, vat, gross = decimal.Zero, decimal.Zero, decimal.Zero
	lines, _ := r.Lines(ctx, q, headerID)
	for _, l := range lines {
		net = net.Add(l.LineNet)
		vat = vat.Add(l.LineVAT)
		gross = gross.Add(l.LineGross)
	}
	return net, vat, gross, nil
}

func (r *memoryOfferRepo) UpdateTotals(ctx context.Context, q db.DBTX, headerID int64, net, vat, gross decimal.Decimal) error {
	o, ok := r.offers[headerID]
	if !ok {
		return shared.NotFound("offer not found")
	}
	o.TotalNet, o.TotalVAT, o.TotalGross = net, vat, gross
	return nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(nil, passthroughRunner{}, repo, &sequentialIDs{}, totals.NewEngine(), logger)
}

func testCreateRequest() CreateOfferRequest {
	return CreateOfferRequest{
		CompanyID:    1,
		OfferDate:    time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC),
		CustomerName: "Alfa Works Sp. z o.o.",
		Currency:     "PLN",
		Lines: []CreateOfferLineReq{
			{ProductName: "Steel bracket", Unit: "pcs", Quantity: decimal.RequireFromString("3"), UnitPrice: decimal.RequireFromString("10.555"), DiscountPercent: decimal.RequireFromString("10"), VATRate: "23"},
			{ProductName: "Assembly", Unit: "h", Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("50"), VATRate: "8"},
		},
	}
}

func TestCreateComputesLineAmountsAndTotals(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusDraft, offer.Status)
	require.Len(t, offer.Lines, 2)

	first := offer.Lines[0]
	require.True(t, first.LineNet.Equal(decimal.RequireFromString("28.50")), "net = %s", first.LineNet)
	require.True(t, first.LineVAT.Equal(decimal.RequireFromString("6.56")), "vat = %s", first.LineVAT)
	require.True(t, first.LineGross.Equal(decimal.RequireFromString("35.06")))

	require.True(t, offer.TotalNet.Equal(decimal.RequireFromString("128.50")), "total net = %s", offer.TotalNet)
	require.True(t, offer.TotalVAT.Equal(decimal.RequireFromString("14.56")))
	require.True(t, offer.TotalGross.Equal(decimal.RequireFromString("143.06")))
}

func TestCreateAssignsDisplayNumber(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "OF/03/2026/071", offer.DisplayNumber)
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	req := testCreateRequest()
	req.Lines[0].Quantity = decimal.RequireFromString("-1")
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Empty(t, repo.offers)
}

func TestCreateRejectsDiscountOverHundred(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	req := testCreateRequest()
	req.Lines[0].DiscountPercent = decimal.RequireFromString("120")
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Empty(t, repo.offers)
}

func TestAddLineResumsHeader(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)

	offer, err = svc.AddLine(context.Background(), offer.ID, CreateOfferLineReq{
		ProductName: "Packaging", Unit: "pcs", Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("12"), VATRate: "23",
	})
	require.NoError(t, err)
	require.Len(t, offer.Lines, 3)
	require.True(t, offer.TotalNet.Equal(decimal.RequireFromString("140.50")), "total net = %s", offer.TotalNet)
	require.True(t, offer.TotalGross.Equal(decimal.RequireFromString("157.82")), "total gross = %s", offer.TotalGross)
}

func TestDeleteLineResumsHeader(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)

	offer, err = svc.DeleteLine(context.Background(), offer.ID, offer.Lines[1].ID)
	require.NoError(t, err)
	require.Len(t, offer.Lines, 1)
	require.True(t, offer.TotalNet.Equal(decimal.RequireFromString("28.50")))
	require.True(t, offer.TotalGross.Equal(decimal.RequireFromString("35.06")))
}

func TestMutationRejectedOutsideDraft(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), offer.ID)
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), offer.ID, CreateOfferLineReq{
		ProductName: "Late addition", Unit: "pcs", Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("5"),
	})
	require.Error(t, err)
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
	require.Contains(t, err.Error(), "ACCEPTED")
}

func TestTransitionTableEnforced(t *testing.T) {
	repo := newMemoryOfferRepo()
	svc := newTestService(repo)

	offer, err := svc.Create(context.Background(), testCreateRequest())
	require.NoError(t, err)

	offer, err = svc.Accept(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAccepted, offer.Status)

	// Accepting twice is not in the transition table.
	_, err = svc.Accept(context.Background(), offer.ID)
	require.Error(t, err)
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))

	offer, err = svc.Cancel(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusCancelled, offer.Status)

	_, err = svc.Accept(context.Background(), offer.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CANCELLED")
}
