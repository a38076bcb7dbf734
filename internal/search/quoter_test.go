package search

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farewatch/farewatch/pkg/duffel"
)

// mockDuffel is a canned duffel.Client.
type mockDuffel struct {
	createParams []duffel.OfferRequestParams
	createErr    error
	listedID     string
	listedLimit  int
	listErr      error
	offers       []duffel.Offer
}

func (m *mockDuffel) CreateOfferRequest(ctx context.Context, params duffel.OfferRequestParams) (string, error) {
	m.createParams = append(m.createParams, params)
	if m.createErr != nil {
		return "", m.createErr
	}
	return "orq_123", nil
}

func (m *mockDuffel) ListOffers(ctx context.Context, offerRequestID string, limit int) ([]duffel.Offer, error) {
	m.listedID = offerRequestID
	m.listedLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.offers, nil
}

func TestQuoteOneWay(t *testing.T) {
	client := &mockDuffel{
		offers: []duffel.Offer{
			mkOffer("off_exp", "1200.00", "USD", 1),
			mkOffer("off_cheap", "950.50", "USD", 1),
		},
	}
	q := NewDuffelQuoter(client, usdPolicy(true), 30)

	got, err := q.QuoteOneWay(context.Background(), "ORD", "LHR", "2026-09-14", "business")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "off_cheap", got.OfferID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("950.50")))

	require.Len(t, client.createParams, 1)
	assert.Equal(t, duffel.OfferRequestParams{
		Origin:        "ORD",
		Destination:   "LHR",
		DepartureDate: "2026-09-14",
		CabinClass:    "business",
	}, client.createParams[0])
	assert.Equal(t, "orq_123", client.listedID)
	assert.Equal(t, 30, client.listedLimit)
}

func TestQuoteOneWayNoEligibleOffer(t *testing.T) {
	client := &mockDuffel{
		offers: []duffel.Offer{mkOffer("off_gbp", "800.00", "GBP", 1)},
	}
	q := NewDuffelQuoter(client, usdPolicy(true), 30)

	got, err := q.QuoteOneWay(context.Background(), "ORD", "LHR", "2026-09-14", "business")
	require.NoError(t, err)
	assert.Nil(t, got, "currency mismatch is an absent quote, not an error")
}

func TestQuoteOneWayCreateError(t *testing.T) {
	client := &mockDuffel{createErr: eris.New("status 401")}
	q := NewDuffelQuoter(client, usdPolicy(true), 30)

	_, err := q.QuoteOneWay(context.Background(), "ORD", "LHR", "2026-09-14", "business")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORD-LHR 2026-09-14")
}

func TestQuoteOneWayListError(t *testing.T) {
	client := &mockDuffel{listErr: eris.New("status 500")}
	q := NewDuffelQuoter(client, usdPolicy(true), 30)

	_, err := q.QuoteOneWay(context.Background(), "ORD", "LHR", "2026-09-14", "business")
	require.Error(t, err)
}
