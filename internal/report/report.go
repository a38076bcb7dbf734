// Package report renders and persists the results of a grid search run.
package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/farewatch/farewatch/internal/search"
	"github.com/farewatch/farewatch/pkg/duffel"
)

// TopN is the number of rows shown in the console summary and snapshot.
const TopN = 5

// Reporter renders run results for the console, Slack, and disk.
type Reporter struct {
	preferNonstop bool
	outCabinLabel string
	retCabinLabel string
	printer       *message.Printer
}

// NewReporter creates a Reporter. The cabin class identifiers are
// turned into display labels ("premium_economy" -> "Premium Economy").
func NewReporter(preferNonstop bool, outboundCabin, returnCabin string) *Reporter {
	return &Reporter{
		preferNonstop: preferNonstop,
		outCabinLabel: cabinLabel(outboundCabin),
		retCabinLabel: cabinLabel(returnCabin),
		printer:       message.NewPrinter(language.English),
	}
}

func cabinLabel(cabin string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(cabin, "_", " "))
}

// Summary renders the top rows as one line per combination for
// operator logs.
func (r *Reporter) Summary(res *search.RunResult) string {
	var b strings.Builder
	b.WriteString("Top 5 cheapest mixed-cabin combos:\n")
	for _, row := range res.Top(TopN) {
		b.WriteString(r.printer.Sprintf(
			"%s -> %s | Out $%.2f + Back $%.2f = $%.2f | Out stops: %d, Back stops: %d\n",
			row.OutDate, row.RetDate,
			row.OutAmount.InexactFloat64(), row.RetAmount.InexactFloat64(), row.Total.InexactFloat64(),
			row.OutQuote.Stops, row.RetQuote.Stops,
		))
	}
	return b.String()
}

// AlertMessage renders the Slack notification for the cheapest
// under-threshold combination. Returns "" when there are no alerts.
func (r *Reporter) AlertMessage(res *search.RunResult) string {
	if len(res.Alerts) == 0 {
		return ""
	}
	best := res.Alerts[0]

	outText := r.formatLeg("Outbound", r.outCabinLabel, best.OutQuote)
	retText := r.formatLeg("Return", r.retCabinLabel, best.RetQuote)

	var b strings.Builder
	b.WriteString(r.printer.Sprintf("✈️ *Deal found under $%.0f* — *$%.2f total*\n",
		res.Threshold.InexactFloat64(), best.Total.InexactFloat64()))
	b.WriteString(r.printer.Sprintf("Dates: %s → %s\n\n", best.OutDate, best.RetDate))
	b.WriteString(outText)
	b.WriteString("\n\n")
	b.WriteString(retText)
	b.WriteString("\n\n")
	b.WriteString(r.printer.Sprintf("Offer IDs: out `%s` / back `%s`",
		best.OutQuote.OfferID, best.RetQuote.OfferID))
	return b.String()
}

// formatLeg renders one leg of the winning combination.
func (r *Reporter) formatLeg(title, cabinLabel string, quote *search.LegQuote) string {
	s := summarizeOffer(quote.Offer)

	stopsText := "Nonstop"
	if s.Stops == 1 {
		stopsText = "1 stop"
	} else if s.Stops > 1 {
		stopsText = r.printer.Sprintf("%d stops", s.Stops)
	}

	preferenceNote := ""
	if r.preferNonstop && s.Stops > 0 {
		preferenceNote = " _(nonstop not available; best alternative)_"
	}

	airlines := "Unknown"
	if len(s.Airlines) > 0 {
		airlines = strings.Join(s.Airlines, ", ")
	}
	flights := "Unknown"
	if len(s.Flights) > 0 {
		flights = strings.Join(s.Flights, ", ")
	}

	return r.printer.Sprintf(
		"*%s* (%s) — *$%.2f*%s\n%s → %s | %s → %s\n%s | Duration %s\nAirline(s): %s\nFlights: %s",
		title, cabinLabel, quote.Amount.InexactFloat64(), preferenceNote,
		s.Origin, s.Destination, s.Depart, s.Arrive,
		stopsText, s.Duration,
		airlines, flights,
	)
}

// legSummary is the display view of a one-way offer.
type legSummary struct {
	Origin      string
	Destination string
	Depart      string
	Arrive      string
	Stops       int
	Duration    string
	Airlines    []string
	Flights     []string
}

// summarizeOffer extracts displayable fields from a one-way offer.
// Assumes a single slice.
func summarizeOffer(offer *duffel.Offer) legSummary {
	if offer == nil || len(offer.Slices) == 0 || len(offer.Slices[0].Segments) == 0 {
		duration := "N/A"
		if offer != nil && len(offer.Slices) > 0 && offer.Slices[0].Duration != "" {
			duration = offer.Slices[0].Duration
		}
		return legSummary{
			Origin:      "?",
			Destination: "?",
			Depart:      "?",
			Arrive:      "?",
			Duration:    duration,
		}
	}

	slice := offer.Slices[0]
	segments := slice.Segments
	first := segments[0]
	last := segments[len(segments)-1]

	var airlines, flights []string
	seen := make(map[string]struct{})
	for _, seg := range segments {
		name := carrierName(seg)
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			airlines = append(airlines, name)
		}
		flights = append(flights, flightDesignator(seg))
	}

	duration := slice.Duration
	if duration == "" {
		duration = "N/A"
	}

	return legSummary{
		Origin:      first.Origin.IATACode,
		Destination: last.Destination.IATACode,
		Depart:      formatTime(first.DepartingAt),
		Arrive:      formatTime(last.ArrivingAt),
		Stops:       slice.Stops(),
		Duration:    duration,
		Airlines:    airlines,
		Flights:     flights,
	}
}

// formatTime trims an ISO timestamp to "YYYY-MM-DD HH:MM".
func formatTime(iso string) string {
	s := strings.Replace(iso, "T", " ", 1)
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}

func carrierName(seg duffel.Segment) string {
	if seg.MarketingCarrier.Name != "" {
		return seg.MarketingCarrier.Name
	}
	if seg.MarketingCarrier.IATACode != "" {
		return seg.MarketingCarrier.IATACode
	}
	return "Unknown airline"
}

func flightDesignator(seg duffel.Segment) string {
	code := seg.MarketingCarrier.IATACode
	num := seg.FlightNumber
	if code != "" && num != "" {
		return code + num
	}
	if num != "" {
		return num
	}
	return "Flight"
}
