package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/catalog-api/app/observability/metrics"
	"github.com/FACorreiaa/catalog-api/internal/api/catalog"
	"github.com/FACorreiaa/catalog-api/internal/container"
	"github.com/FACorreiaa/catalog-api/internal/export"
)

type exportOptions struct {
	collection string
	format     string
	name       string
	out        string
}

// NewExportCmd writes a filtered catalog collection to a file without going
// through the HTTP API.
func NewExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a catalog collection as json, csv or excel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, _, err := container.NewStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := metrics.New()
			if err != nil {
				return err
			}
			engine := catalog.NewEngine(store, m, cfg.Catalog.ExportLimit, logger)
			path, n, err := runExport(ctx, engine, opts, time.Now())
			if err != nil {
				return err
			}
			logger.Info("Export written", slog.String("file", path), slog.Int("records", n))
			cmd.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.collection, "collection", catalog.CollectionBrand, "brand or merchant")
	cmd.Flags().StringVar(&opts.format, "format", "csv", "json, csv or excel")
	cmd.Flags().StringVar(&opts.name, "name", "", "name or manufacturer filter")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file (default <collection>s_<timestamp>.<ext>, - for stdout)")
	return cmd
}

func runExport(ctx context.Context, engine catalog.Service, opts exportOptions, now time.Time) (string, int, error) {
	switch opts.collection {
	case catalog.CollectionBrand, catalog.CollectionMerchant:
	default:
		return "", 0, fmt.Errorf("unknown collection %q", opts.collection)
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return "", 0, err
	}

	records, err := engine.ExportSet(ctx, opts.collection, opts.name)
	if err != nil {
		return "", 0, err
	}

	path := opts.out
	if path == "" {
		path = export.Filename(opts.collection+"s", format, now)
	}
	if path == "-" {
		return path, len(records), export.Write(os.Stdout, records, format, sheetName(opts.collection))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	if err := export.Write(f, records, format, sheetName(opts.collection)); err != nil {
		f.Close()
		return "", 0, err
	}
	return path, len(records), f.Close()
}

func sheetName(collection string) string {
	if collection == catalog.CollectionMerchant {
		return "Merchants"
	}
	return "Brands"
}
