package main

import (
	"encoding/json"
	"fmt"
	"io"

	"beermap/internal/feed"
	"beermap/internal/keys"
	"beermap/internal/snapshot"
	"beermap/pkg/geo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchFormat string

var fetchCmd = &cobra.Command{
	Use:   "fetch [shops|events]",
	Short: "Fetch and validate one feed and print the records",
	Long: `Fetches a feed once, bypassing the session cache, and prints the validated
records. Shops are printed newest first.

Examples:
  beermap fetch shops
  beermap fetch shops --format geojson
  beermap fetch events`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"shops", "events"},
	RunE: func(cmd *cobra.Command, args []string) error {
		which := "shops"
		if len(args) == 1 {
			which = args[0]
		}
		client := feed.NewClient(cfg.HTTP.Timeout, logger.Named("feed"))
		out := cmd.OutOrStdout()

		switch which {
		case "shops":
			shops, err := feed.NewShopSource(client, cfg.DataURL).Load(cmd.Context())
			if err != nil {
				return err
			}
			shops = snapshot.SortShops(shops)
			logger.Info("feed fetched", zap.String("list", keys.ShopList), zap.Int("count", len(shops)))
			if fetchFormat == "geojson" {
				return writeJSON(out, geo.Project(shops))
			}
			return writeJSON(out, shops)
		case "events":
			events, err := feed.NewEventSource(client, cfg.EventDataURL).Load(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("feed fetched", zap.String("list", keys.EventList), zap.Int("count", len(events)))
			if fetchFormat == "geojson" {
				return writeJSON(out, geo.Project(events))
			}
			return writeJSON(out, events)
		}
		return fmt.Errorf("unknown feed %q, want shops or events", which)
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", "json", "Output format: json or geojson")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
