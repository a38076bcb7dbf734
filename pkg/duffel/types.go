package duffel

// Offer is a priced, bookable itinerary proposal returned for a search.
// Offers are read-only once decoded.
type Offer struct {
	ID            string  `json:"id"`
	TotalAmount   string  `json:"total_amount"`
	TotalCurrency string  `json:"total_currency"`
	Slices        []Slice `json:"slices"`
}

// Slice is one directional portion of an itinerary, composed of one or
// more flight segments. A one-way offer has a single slice.
type Slice struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment is a single flight from one airport to another. Multiple
// segments in a slice indicate connections.
type Segment struct {
	Origin           Airport `json:"origin"`
	Destination      Airport `json:"destination"`
	DepartingAt      string  `json:"departing_at"`
	ArrivingAt       string  `json:"arriving_at"`
	MarketingCarrier Carrier `json:"marketing_carrier"`
	FlightNumber     string  `json:"marketing_flight_number"`
}

// Airport identifies an airport by IATA code.
type Airport struct {
	IATACode string `json:"iata_code"`
}

// Carrier identifies an operating or marketing airline.
type Carrier struct {
	Name     string `json:"name"`
	IATACode string `json:"iata_code"`
}

// Stops returns the number of connections in a slice.
func (s Slice) Stops() int {
	if len(s.Segments) == 0 {
		return 0
	}
	return len(s.Segments) - 1
}
