// Package duffel provides a client for the Duffel flight search API.
package duffel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.duffel.com"
	apiVersion     = "v2"
)

// Client defines the Duffel operations used by the fare search.
type Client interface {
	// CreateOfferRequest submits a one-way search for a single adult
	// passenger and returns the offer request ID.
	CreateOfferRequest(ctx context.Context, params OfferRequestParams) (string, error)
	// ListOffers retrieves the offers computed for an offer request,
	// capped at limit.
	ListOffers(ctx context.Context, offerRequestID string, limit int) ([]Offer, error)
}

// OfferRequestParams describes a one-way slice to search.
type OfferRequestParams struct {
	Origin        string
	Destination   string
	DepartureDate string // YYYY-MM-DD
	CabinClass    string // "business", "premium_economy", ...
}

// APIError is returned when Duffel responds with a non-success status.
// It carries the status code and raw body for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("duffel: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles outgoing calls to the given rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Duffel API client authenticated with a static
// bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type offerRequestSlice struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type offerRequestPassenger struct {
	Type string `json:"type"`
}

type offerRequestBody struct {
	Data struct {
		Slices     []offerRequestSlice     `json:"slices"`
		Passengers []offerRequestPassenger `json:"passengers"`
		CabinClass string                  `json:"cabin_class"`
	} `json:"data"`
}

type offerRequestResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type listOffersResponse struct {
	Data []Offer `json:"data"`
}

func (c *httpClient) CreateOfferRequest(ctx context.Context, params OfferRequestParams) (string, error) {
	var body offerRequestBody
	body.Data.Slices = []offerRequestSlice{{
		Origin:        params.Origin,
		Destination:   params.Destination,
		DepartureDate: params.DepartureDate,
	}}
	body.Data.Passengers = []offerRequestPassenger{{Type: "adult"}}
	body.Data.CabinClass = params.CabinClass

	payload, err := json.Marshal(body)
	if err != nil {
		return "", eris.Wrap(err, "duffel: marshal offer request")
	}

	// return_offers makes Duffel compute offers inline so the follow-up
	// list call sees a complete result set.
	reqURL := c.baseURL + "/air/offer_requests?return_offers=true"

	respBody, err := c.do(ctx, http.MethodPost, reqURL, payload)
	if err != nil {
		return "", eris.Wrap(err, "duffel: create offer request")
	}

	var result offerRequestResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "duffel: unmarshal offer request response")
	}
	if result.Data.ID == "" {
		return "", eris.New("duffel: offer request response missing id")
	}

	return result.Data.ID, nil
}

func (c *httpClient) ListOffers(ctx context.Context, offerRequestID string, limit int) ([]Offer, error) {
	q := url.Values{}
	q.Set("offer_request_id", offerRequestID)
	q.Set("limit", strconv.Itoa(limit))
	reqURL := c.baseURL + "/air/offers?" + q.Encode()

	respBody, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "duffel: list offers")
	}

	var result listOffersResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "duffel: unmarshal offers response")
	}

	return result.Data, nil
}

// do executes one authenticated request and returns the response body.
// Non-2xx statuses become an *APIError.
func (c *httpClient) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "duffel: rate limiter wait")
		}
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, eris.Wrap(err, "duffel: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Duffel-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duffel: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duffel: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
