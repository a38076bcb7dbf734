package report

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/farewatch/farewatch/internal/search"
)

// SnapshotRow is the persisted view of one fare combination.
type SnapshotRow struct {
	OutDate    string          `json:"out_date"`
	RetDate    string          `json:"ret_date"`
	OutAmount  decimal.Decimal `json:"out_amount"`
	RetAmount  decimal.Decimal `json:"ret_amount"`
	Total      decimal.Decimal `json:"total"`
	OutOfferID string          `json:"out_offer_id"`
	RetOfferID string          `json:"ret_offer_id"`
	OutStops   int             `json:"out_stops"`
	RetStops   int             `json:"ret_stops"`
}

// Snapshot is the document written to disk after every run.
type Snapshot struct {
	RunID     string          `json:"run_id"`
	Generated string          `json:"generated"`
	Threshold decimal.Decimal `json:"threshold"`
	Top5      []SnapshotRow   `json:"top5"`
	Alerts    []SnapshotRow   `json:"alerts"`
}

func snapshotRow(row search.CombinedRow) SnapshotRow {
	return SnapshotRow{
		OutDate:    row.OutDate,
		RetDate:    row.RetDate,
		OutAmount:  row.OutAmount,
		RetAmount:  row.RetAmount,
		Total:      row.Total,
		OutOfferID: row.OutQuote.OfferID,
		RetOfferID: row.RetQuote.OfferID,
		OutStops:   row.OutQuote.Stops,
		RetStops:   row.RetQuote.Stops,
	}
}

// BuildSnapshot converts a run result into its persisted form.
func BuildSnapshot(res *search.RunResult) Snapshot {
	snap := Snapshot{
		RunID:     res.RunID,
		Generated: res.Generated,
		Threshold: res.Threshold,
		Top5:      []SnapshotRow{},
		Alerts:    []SnapshotRow{},
	}
	for _, row := range res.Top(TopN) {
		snap.Top5 = append(snap.Top5, snapshotRow(row))
	}
	for _, row := range res.Alerts {
		snap.Alerts = append(snap.Alerts, snapshotRow(row))
	}
	return snap
}

// WriteSnapshot serializes the run result as indented JSON at path,
// overwriting any prior snapshot.
func (r *Reporter) WriteSnapshot(path string, res *search.RunResult) error {
	data, err := json.MarshalIndent(BuildSnapshot(res), "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal snapshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write snapshot %s", path)
	}
	return nil
}

// WriteXLSX exports the full fare grid (every combination, not just the
// top rows) as a single-sheet spreadsheet.
func (r *Reporter) WriteXLSX(path string, res *search.RunResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("fares")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, title := range []string{
		"out_date", "ret_date", "out_amount", "ret_amount", "total",
		"out_stops", "ret_stops", "out_offer_id", "ret_offer_id",
	} {
		header.AddCell().Value = title
	}

	for _, row := range res.Rows {
		xr := sheet.AddRow()
		xr.AddCell().Value = row.OutDate
		xr.AddCell().Value = row.RetDate
		xr.AddCell().Value = row.OutAmount.StringFixed(2)
		xr.AddCell().Value = row.RetAmount.StringFixed(2)
		xr.AddCell().Value = row.Total.StringFixed(2)
		xr.AddCell().SetInt(row.OutQuote.Stops)
		xr.AddCell().SetInt(row.RetQuote.Stops)
		xr.AddCell().Value = row.OutQuote.OfferID
		xr.AddCell().Value = row.RetQuote.OfferID
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save xlsx %s", path)
	}
	return nil
}
