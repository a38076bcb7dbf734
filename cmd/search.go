package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/farewatch/farewatch/internal/report"
	"github.com/farewatch/farewatch/internal/search"
	"github.com/farewatch/farewatch/pkg/duffel"
	"github.com/farewatch/farewatch/pkg/slack"
)

var (
	searchSnapshotPath string
	searchXLSXPath     string
	searchNoNotify     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one fare grid search and report the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		runID := uuid.NewString()
		log := zap.L().With(zap.String("run_id", runID))

		client := duffel.NewClient(cfg.Duffel.Token,
			duffel.WithBaseURL(cfg.Duffel.BaseURL),
			duffel.WithRateLimit(rate.Limit(cfg.Duffel.RateLimit), cfg.Duffel.RateBurst),
		)

		policy := search.SelectionPolicy{
			Currency:          cfg.Search.Currency,
			PreferNonstop:     cfg.Search.PreferNonstop,
			MaxStopsPreferred: cfg.Search.MaxStopsPreferred,
			MaxStopsFallback:  cfg.Search.MaxStopsFallback,
		}
		quoter := search.NewDuffelQuoter(client, policy, cfg.Search.OfferLimit)

		today := time.Now().UTC().Truncate(24 * time.Hour)
		grid := search.NewGrid(quoter, search.GridParams{
			RunID: runID,
			Window: search.Window{
				Start: today.AddDate(0, 0, cfg.Search.StartDaysOut),
				End:   today.AddDate(0, 0, cfg.Search.EndDaysOut),
			},
			Bounds: search.TripBounds{
				MinDays: cfg.Search.MinTripDays,
				MaxDays: cfg.Search.MaxTripDays,
			},
			Origin:        cfg.Search.Origin,
			Destination:   cfg.Search.Destination,
			OutboundCabin: cfg.Search.OutboundCabin,
			ReturnCabin:   cfg.Search.ReturnCabin,
			Threshold:     decimal.NewFromFloat(cfg.Search.Threshold),
			Concurrency:   cfg.Search.Concurrency,
		})

		result, err := grid.Run(ctx)
		if err != nil {
			var apiErr *duffel.APIError
			if errors.As(err, &apiErr) {
				log.Error("upstream request failed",
					zap.Int("status", apiErr.StatusCode),
					zap.String("body", apiErr.Body),
				)
			}
			return err
		}

		reporter := report.NewReporter(cfg.Search.PreferNonstop, cfg.Search.OutboundCabin, cfg.Search.ReturnCabin)

		fmt.Print(reporter.Summary(result))

		// Persist the snapshot before attempting delivery so a webhook
		// failure never loses results.
		snapshotPath := cfg.Output.SnapshotPath
		if searchSnapshotPath != "" {
			snapshotPath = searchSnapshotPath
		}
		if err := reporter.WriteSnapshot(snapshotPath, result); err != nil {
			return err
		}
		log.Info("snapshot written", zap.String("path", snapshotPath))

		xlsxPath := cfg.Output.XLSXPath
		if searchXLSXPath != "" {
			xlsxPath = searchXLSXPath
		}
		if xlsxPath != "" {
			if err := reporter.WriteXLSX(xlsxPath, result); err != nil {
				return err
			}
			log.Info("xlsx export written", zap.String("path", xlsxPath))
		}

		if msg := reporter.AlertMessage(result); msg != "" {
			fmt.Println(msg)
			if !searchNoNotify {
				notifier := slack.NewNotifier(cfg.Slack.WebhookURL)
				if err := notifier.Notify(ctx, msg); err != nil {
					log.Error("slack notification failed", zap.Error(err))
				} else if notifier.Enabled() {
					log.Info("slack notification sent")
				}
			}
		}

		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchSnapshotPath, "snapshot", "", "override the snapshot output path")
	searchCmd.Flags().StringVar(&searchXLSXPath, "xlsx", "", "also export the full fare grid as a spreadsheet")
	searchCmd.Flags().BoolVar(&searchNoNotify, "no-notify", false, "skip Slack delivery even when a webhook is configured")
	rootCmd.AddCommand(searchCmd)
}
