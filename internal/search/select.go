package search

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/farewatch/farewatch/pkg/duffel"
)

// SelectionPolicy controls which offer wins a one-way search.
type SelectionPolicy struct {
	Currency          string
	PreferNonstop     bool
	MaxStopsPreferred int
	MaxStopsFallback  int
}

// OfferStops returns the connection count of the first slice of a
// one-way offer.
func OfferStops(o *duffel.Offer) int {
	if len(o.Slices) == 0 {
		return 0
	}
	return o.Slices[0].Stops()
}

// SelectCheapest picks the cheapest offer in the configured currency,
// preferring low stop counts when the policy asks for it. The fallback
// degrades in three tiers: preferred stop limit, fallback stop limit,
// then the full currency-filtered set, so a date is never dropped just
// because nonstop is unavailable. Returns nil when no offer matches the
// currency. Ties keep the first offer in upstream order.
func SelectCheapest(offers []duffel.Offer, policy SelectionPolicy) *LegQuote {
	var filtered []*duffel.Offer
	for i := range offers {
		if offers[i].TotalCurrency == policy.Currency {
			filtered = append(filtered, &offers[i])
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	candidates := filtered
	if policy.PreferNonstop {
		preferred := withMaxStops(filtered, policy.MaxStopsPreferred)
		if len(preferred) > 0 {
			candidates = preferred
		} else if fallback := withMaxStops(filtered, policy.MaxStopsFallback); len(fallback) > 0 {
			candidates = fallback
		}
	}

	var best *LegQuote
	for _, o := range candidates {
		amount, err := decimal.NewFromString(o.TotalAmount)
		if err != nil {
			zap.L().Warn("search: skipping offer with unparseable amount",
				zap.String("offer_id", o.ID),
				zap.String("total_amount", o.TotalAmount),
			)
			continue
		}
		if best == nil || amount.LessThan(best.Amount) {
			best = &LegQuote{
				Amount:  amount,
				OfferID: o.ID,
				Stops:   OfferStops(o),
				Offer:   o,
			}
		}
	}
	return best
}

func withMaxStops(offers []*duffel.Offer, maxStops int) []*duffel.Offer {
	var out []*duffel.Offer
	for _, o := range offers {
		if OfferStops(o) <= maxStops {
			out = append(out, o)
		}
	}
	return out
}
