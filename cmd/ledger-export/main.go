package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ledger/internal/cli"
	"ledger/internal/client"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	mem "ledger/internal/sheets/memory"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the rows instead of writing to Google Sheets")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall export timeout")
	flag.Parse()

	cli.LoadEnvFile()
	var extra []func(*config.Config) error
	if !*dryRun {
		extra = append(extra, (*config.Config).ValidateExport)
	}
	cfg, logger := cli.LoadAndValidateConfig(extra...)
	logger = logger.WithComponent(applog.ComponentSheets)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	src := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger))

	var dst sheets.RowWriter
	preview := mem.New(cfg.GoogleSheetName)
	if *dryRun {
		dst = preview
	} else {
		c, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		dst = c
	}

	start := time.Now()
	res, err := sheets.Export(ctx, src, dst)
	if err != nil {
		logger.Error("Export failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export complete",
		applog.FieldOperation, applog.OpExport,
		"rows", res.Rows,
		"range", res.Ref,
		"dry_run", *dryRun,
		"duration", time.Since(start).String())

	if *dryRun {
		for _, row := range preview.Rows() {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
	}
}
