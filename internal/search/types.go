package search

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/farewatch/farewatch/pkg/duffel"
)

// DateFormat is the calendar date layout used throughout the search.
const DateFormat = "2006-01-02"

// Window is the calendar range within which outbound dates are
// considered. Start must not be after End.
type Window struct {
	Start time.Time
	End   time.Time
}

// TripBounds constrains the return date relative to the outbound date.
type TripBounds struct {
	MinDays int
	MaxDays int
}

// LegKey uniquely identifies a one-way search.
type LegKey struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
	Cabin       string
}

func (k LegKey) String() string {
	return k.Origin + "|" + k.Destination + "|" + k.Date + "|" + k.Cabin
}

// LegQuote is the winning offer selected for one leg. A nil *LegQuote
// means no eligible offer existed for that leg.
type LegQuote struct {
	Amount  decimal.Decimal
	OfferID string
	Stops   int
	Offer   *duffel.Offer
}

// CombinedRow pairs an outbound and a return quote for one date
// combination. Rows are immutable after creation and ordered by Total
// ascending.
type CombinedRow struct {
	OutDate   string
	RetDate   string
	OutAmount decimal.Decimal
	RetAmount decimal.Decimal
	Total     decimal.Decimal // rounded to 2 decimals
	OutQuote  *LegQuote
	RetQuote  *LegQuote
}

// RunResult is the final output of one grid search run. Alerts is the
// subset of Rows with Total strictly below the threshold, sorted
// ascending like Rows.
type RunResult struct {
	RunID     string
	Generated string
	Threshold decimal.Decimal
	Rows      []CombinedRow
	Alerts    []CombinedRow
}

// Top returns the first n rows (fewer if the result is smaller).
func (r *RunResult) Top(n int) []CombinedRow {
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	return r.Rows[:n]
}
