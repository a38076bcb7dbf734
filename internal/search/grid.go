package search

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GridParams describes one grid search run.
type GridParams struct {
	RunID         string
	Window        Window
	Bounds        TripBounds
	Origin        string
	Destination   string
	OutboundCabin string
	ReturnCabin   string
	Threshold     decimal.Decimal
	// Concurrency bounds the number of in-flight leg fetches during the
	// prefetch phase. 1 means strictly sequential.
	Concurrency int
}

// Grid enumerates every valid (outbound, return) date pair in the
// window and assembles combined fare rows. One Grid instance owns its
// cache and is discarded at the end of the run.
type Grid struct {
	params GridParams
	cache  *QuoteCache
	quoter Quoter
}

// NewGrid creates a Grid over the given quoter with a fresh cache.
func NewGrid(quoter Quoter, params GridParams) *Grid {
	if params.Concurrency < 1 {
		params.Concurrency = 1
	}
	return &Grid{
		params: params,
		cache:  NewQuoteCache(),
		quoter: quoter,
	}
}

type datePair struct {
	out time.Time
	ret time.Time
}

// Run executes the full grid search. Any upstream failure aborts the
// run; a leg with no eligible offer only skips its date pairs.
func (g *Grid) Run(ctx context.Context) (*RunResult, error) {
	p := g.params
	if p.Window.Start.After(p.Window.End) {
		return nil, eris.New("grid: window start is after window end")
	}

	log := zap.L().With(zap.String("run_id", p.RunID))

	pairs, keys := g.enumerate()
	log.Info("grid enumerated",
		zap.Int("pairs", len(pairs)),
		zap.Int("distinct_legs", len(keys)),
		zap.String("window_start", p.Window.Start.Format(DateFormat)),
		zap.String("window_end", p.Window.End.Format(DateFormat)),
	)

	if err := g.prefetch(ctx, keys); err != nil {
		return nil, err
	}

	rows, err := g.assemble(ctx, pairs)
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c < 0
		}
		if rows[i].OutDate != rows[j].OutDate {
			return rows[i].OutDate < rows[j].OutDate
		}
		return rows[i].RetDate < rows[j].RetDate
	})

	var alerts []CombinedRow
	for _, row := range rows {
		if row.Total.LessThan(p.Threshold) {
			alerts = append(alerts, row)
		}
	}

	log.Info("grid search complete",
		zap.Int("rows", len(rows)),
		zap.Int("alerts", len(alerts)),
		zap.Int("cached_legs", g.cache.Len()),
	)

	return &RunResult{
		RunID:     p.RunID,
		Generated: time.Now().UTC().Format(DateFormat),
		Threshold: p.Threshold,
		Rows:      rows,
		Alerts:    alerts,
	}, nil
}

// enumerate walks the outbound window and builds the valid date pairs
// plus the distinct leg keys they require. The return range clamps to
// the window end, so outbound dates near the end naturally produce a
// narrower or empty range.
func (g *Grid) enumerate() ([]datePair, []LegKey) {
	p := g.params

	var pairs []datePair
	seen := make(map[LegKey]struct{})
	var keys []LegKey

	addKey := func(k LegKey) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	for out := p.Window.Start; !out.After(p.Window.End); out = out.AddDate(0, 0, 1) {
		retMin := out.AddDate(0, 0, p.Bounds.MinDays)
		retMax := out.AddDate(0, 0, p.Bounds.MaxDays)
		if retMax.After(p.Window.End) {
			retMax = p.Window.End
		}

		for ret := retMin; !ret.After(retMax); ret = ret.AddDate(0, 0, 1) {
			pairs = append(pairs, datePair{out: out, ret: ret})
			addKey(g.outKey(out))
			addKey(g.retKey(ret))
		}
	}

	return pairs, keys
}

// prefetch resolves every distinct leg through the cache with bounded
// concurrency. The singleflight in the cache keeps the fetch-per-key
// count at one even when the limit exceeds the key count.
func (g *Grid) prefetch(ctx context.Context, keys []LegKey) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.params.Concurrency)

	for _, key := range keys {
		key := key
		eg.Go(func() error {
			_, err := g.cache.GetOrFetch(egCtx, key, g.fetchFor(key))
			return err
		})
	}

	return eg.Wait()
}

// assemble does a sequential second pass over the grid so row order
// (and therefore the final sorted output) is deterministic regardless
// of prefetch concurrency. Every lookup is a cache hit at this point.
func (g *Grid) assemble(ctx context.Context, pairs []datePair) ([]CombinedRow, error) {
	var rows []CombinedRow
	for _, pair := range pairs {
		outKey := g.outKey(pair.out)
		retKey := g.retKey(pair.ret)

		outQuote, err := g.cache.GetOrFetch(ctx, outKey, g.fetchFor(outKey))
		if err != nil {
			return nil, err
		}
		retQuote, err := g.cache.GetOrFetch(ctx, retKey, g.fetchFor(retKey))
		if err != nil {
			return nil, err
		}
		if outQuote == nil || retQuote == nil {
			continue
		}

		rows = append(rows, CombinedRow{
			OutDate:   outKey.Date,
			RetDate:   retKey.Date,
			OutAmount: outQuote.Amount,
			RetAmount: retQuote.Amount,
			Total:     outQuote.Amount.Add(retQuote.Amount).Round(2),
			OutQuote:  outQuote,
			RetQuote:  retQuote,
		})
	}
	return rows, nil
}

func (g *Grid) outKey(d time.Time) LegKey {
	return LegKey{
		Origin:      g.params.Origin,
		Destination: g.params.Destination,
		Date:        d.Format(DateFormat),
		Cabin:       g.params.OutboundCabin,
	}
}

func (g *Grid) retKey(d time.Time) LegKey {
	return LegKey{
		Origin:      g.params.Destination,
		Destination: g.params.Origin,
		Date:        d.Format(DateFormat),
		Cabin:       g.params.ReturnCabin,
	}
}

func (g *Grid) fetchFor(key LegKey) func(ctx context.Context) (*LegQuote, error) {
	return func(ctx context.Context) (*LegQuote, error) {
		return g.quoter.QuoteOneWay(ctx, key.Origin, key.Destination, key.Date, key.Cabin)
	}
}
