package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farewatch/farewatch/pkg/duffel"
)

// Quoter resolves one one-way leg to its winning quote, or nil when no
// eligible offer exists.
type Quoter interface {
	QuoteOneWay(ctx context.Context, origin, destination, date, cabin string) (*LegQuote, error)
}

// DuffelQuoter quotes a leg with two upstream calls: create a search,
// then list its offers. This is the expensive path the cache guards.
type DuffelQuoter struct {
	client     duffel.Client
	policy     SelectionPolicy
	offerLimit int
}

// NewDuffelQuoter creates a quoter over a Duffel client.
func NewDuffelQuoter(client duffel.Client, policy SelectionPolicy, offerLimit int) *DuffelQuoter {
	return &DuffelQuoter{
		client:     client,
		policy:     policy,
		offerLimit: offerLimit,
	}
}

// QuoteOneWay searches one leg and selects the cheapest matching offer.
// Upstream failures are fatal for the caller; no retry is attempted.
func (q *DuffelQuoter) QuoteOneWay(ctx context.Context, origin, destination, date, cabin string) (*LegQuote, error) {
	requestID, err := q.client.CreateOfferRequest(ctx, duffel.OfferRequestParams{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: date,
		CabinClass:    cabin,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "quote %s-%s %s", origin, destination, date)
	}

	offers, err := q.client.ListOffers(ctx, requestID, q.offerLimit)
	if err != nil {
		return nil, eris.Wrapf(err, "quote %s-%s %s", origin, destination, date)
	}

	quote := SelectCheapest(offers, q.policy)
	if quote == nil {
		zap.L().Debug("no eligible offer for leg",
			zap.String("origin", origin),
			zap.String("destination", destination),
			zap.String("date", date),
			zap.String("cabin", cabin),
			zap.Int("offers", len(offers)),
		)
	}
	return quote, nil
}
