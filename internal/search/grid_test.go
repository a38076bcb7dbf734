package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQuoter serves canned quotes keyed by leg and counts invocations.
// Keys missing from quotes fall back to the fallback quote; a nil
// fallback means "no eligible offer".
type mockQuoter struct {
	mu       sync.Mutex
	quotes   map[LegKey]*LegQuote
	errs     map[LegKey]error
	fallback *LegQuote
	calls    map[LegKey]int
}

func newMockQuoter() *mockQuoter {
	return &mockQuoter{
		quotes: make(map[LegKey]*LegQuote),
		errs:   make(map[LegKey]error),
		calls:  make(map[LegKey]int),
	}
}

func (m *mockQuoter) QuoteOneWay(ctx context.Context, origin, destination, date, cabin string) (*LegQuote, error) {
	key := LegKey{Origin: origin, Destination: destination, Date: date, Cabin: cabin}

	m.mu.Lock()
	m.calls[key]++
	m.mu.Unlock()

	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	q, ok := m.quotes[key]
	if !ok {
		q = m.fallback
	}
	if q == nil {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func quote(amount string, stops int) *LegQuote {
	return &LegQuote{
		Amount:  decimal.RequireFromString(amount),
		OfferID: "off_" + amount,
		Stops:   stops,
	}
}

func day(s string) time.Time {
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func testParams(start, end string) GridParams {
	return GridParams{
		RunID:         "run-test",
		Window:        Window{Start: day(start), End: day(end)},
		Bounds:        TripBounds{MinDays: 3, MaxDays: 14},
		Origin:        "ORD",
		Destination:   "LHR",
		OutboundCabin: "business",
		ReturnCabin:   "premium_economy",
		Threshold:     decimal.NewFromInt(2500),
		Concurrency:   1,
	}
}

func TestGridRunRespectsBounds(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("500.00", 0)

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-15"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)

	end := day("2026-03-15")
	for _, row := range res.Rows {
		out := day(row.OutDate)
		ret := day(row.RetDate)
		tripDays := int(ret.Sub(out).Hours() / 24)
		assert.GreaterOrEqual(t, tripDays, 3, "row %s->%s under min trip length", row.OutDate, row.RetDate)
		assert.LessOrEqual(t, tripDays, 14, "row %s->%s over max trip length", row.OutDate, row.RetDate)
		assert.False(t, ret.After(end), "row %s->%s returns past window end", row.OutDate, row.RetDate)
	}
}

func TestGridRunSingleCombination(t *testing.T) {
	// One outbound date with one valid return: the outbound leg has a
	// nonstop at $1000, the return leg only a one-stop at $900.
	q := newMockQuoter()
	q.quotes[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-01", Cabin: "business"}] = quote("1000.00", 0)
	q.quotes[LegKey{Origin: "LHR", Destination: "ORD", Date: "2026-03-04", Cabin: "premium_economy"}] = quote("900.00", 1)

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-04"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "2026-03-01", row.OutDate)
	assert.Equal(t, "2026-03-04", row.RetDate)
	assert.True(t, row.Total.Equal(decimal.NewFromInt(1900)), "total = %s", row.Total)
	assert.Equal(t, 0, row.OutQuote.Stops)
	assert.Equal(t, 1, row.RetQuote.Stops)

	// Under the 2500 threshold, so it must alert.
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, row, res.Alerts[0])
}

func TestGridRunFetchesEachLegOnce(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("500.00", 0)

	params := testParams("2026-03-01", "2026-03-10")
	params.Bounds = TripBounds{MinDays: 1, MaxDays: 3}

	grid := NewGrid(q, params)
	_, err := grid.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, q.calls)
	for key, n := range q.calls {
		assert.Equal(t, 1, n, "leg %s fetched %d times", key, n)
	}
}

func TestGridRunSkipsPairsWithAbsentLeg(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("500.00", 0)
	// No eligible return fare on this date.
	q.quotes[LegKey{Origin: "LHR", Destination: "ORD", Date: "2026-03-08", Cabin: "premium_economy"}] = nil

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-10"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)

	for _, row := range res.Rows {
		assert.NotEqual(t, "2026-03-08", row.RetDate)
	}
}

func TestGridRunUpstreamErrorAborts(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("500.00", 0)
	q.errs[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-02", Cabin: "business"}] = eris.New("status 500")

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-10"))
	res, err := grid.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestGridRunThresholdPartition(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("1400.00", 0) // every total is 2800, above the threshold

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-08"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Rows)
	assert.Empty(t, res.Alerts)
}

func TestGridRunThresholdIsStrict(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("1250.00", 0) // totals land exactly on the threshold

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-08"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Rows)
	assert.Empty(t, res.Alerts, "a total equal to the threshold must not alert")
}

func TestGridRunSortedByTotal(t *testing.T) {
	q := newMockQuoter()
	q.fallback = quote("1000.00", 0)
	// Make later outbound dates cheaper so upstream order differs from
	// the final ordering.
	q.quotes[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-03", Cabin: "business"}] = quote("600.00", 0)
	q.quotes[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-02", Cabin: "business"}] = quote("800.00", 0)

	grid := NewGrid(q, testParams("2026-03-01", "2026-03-10"))
	res, err := grid.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)

	for i := 1; i < len(res.Rows); i++ {
		prev, cur := res.Rows[i-1], res.Rows[i]
		cmp := prev.Total.Cmp(cur.Total)
		assert.LessOrEqual(t, cmp, 0, "rows out of order at %d", i)
		if cmp == 0 {
			assert.LessOrEqual(t, prev.OutDate+prev.RetDate, cur.OutDate+cur.RetDate)
		}
	}
}

func TestGridRunEmptyReturnRange(t *testing.T) {
	// MinDays pushes every return date past the window end.
	q := newMockQuoter()
	q.fallback = quote("500.00", 0)

	params := testParams("2026-03-01", "2026-03-02")
	grid := NewGrid(q, params)
	res, err := grid.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Alerts)
	assert.Empty(t, q.calls, "no legs should be fetched for an empty grid")
}

func TestGridRunInvalidWindow(t *testing.T) {
	q := newMockQuoter()
	params := testParams("2026-03-10", "2026-03-01")
	grid := NewGrid(q, params)
	_, err := grid.Run(context.Background())
	require.Error(t, err)
}

func TestGridRunIdempotent(t *testing.T) {
	build := func() *mockQuoter {
		q := newMockQuoter()
		q.fallback = quote("900.00", 0)
		q.quotes[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-04", Cabin: "business"}] = quote("700.00", 1)
		q.quotes[LegKey{Origin: "LHR", Destination: "ORD", Date: "2026-03-09", Cabin: "premium_economy"}] = nil
		return q
	}

	first, err := NewGrid(build(), testParams("2026-03-01", "2026-03-12")).Run(context.Background())
	require.NoError(t, err)
	second, err := NewGrid(build(), testParams("2026-03-01", "2026-03-12")).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Alerts, second.Alerts)
}

func TestGridRunConcurrencyPreservesResults(t *testing.T) {
	build := func(concurrency int) (*mockQuoter, GridParams) {
		q := newMockQuoter()
		q.fallback = quote("900.00", 0)
		q.quotes[LegKey{Origin: "ORD", Destination: "LHR", Date: "2026-03-05", Cabin: "business"}] = quote("650.00", 0)
		params := testParams("2026-03-01", "2026-03-12")
		params.Concurrency = concurrency
		return q, params
	}

	qSeq, pSeq := build(1)
	sequential, err := NewGrid(qSeq, pSeq).Run(context.Background())
	require.NoError(t, err)

	qPar, pPar := build(8)
	parallel, err := NewGrid(qPar, pPar).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sequential.Rows, parallel.Rows)
	assert.Equal(t, sequential.Alerts, parallel.Alerts)

	for key, n := range qPar.calls {
		assert.Equal(t, 1, n, "leg %s fetched %d times under concurrency", key, n)
	}
}
