package main

import (
	"fmt"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/drive"
	"github.com/andresuchdata/thawflow/pkg/logger"
	"github.com/urfave/cli/v2"
)

func runMigrate(c *cli.Context) error {
	// opening the gateway already applied the migrations
	logger.Log.Info().Msg("schema is up to date")
	return nil
}

func runUpsertProduct(c *cli.Context) error {
	if err := requireArgs(c, "sku"); err != nil {
		return err
	}
	p, err := domain.NewProduct(c.Args().First(), c.String("name"), c.String("category"))
	if err != nil {
		return err
	}
	if err := appFrom(c).Gateway.UpsertProduct(c.Context, p); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	logger.Log.Info().Str("sku", p.SKU).Str("name", p.Name).Msg("product saved")
	return nil
}

func runImportSales(c *cli.Context) error {
	if err := requireArgs(c, "file"); err != nil {
		return err
	}
	imp := appFrom(c).Importer
	for _, path := range c.Args().Slice() {
		res, err := imp.ImportSalesFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		logger.Log.Info().Str("file", path).Interface("result", res).Msg("sales imported")
	}
	return nil
}

func runImportForecasts(c *cli.Context) error {
	if err := requireArgs(c, "file"); err != nil {
		return err
	}
	imp := appFrom(c).Importer
	for _, path := range c.Args().Slice() {
		res, err := imp.ImportForecastsFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		logger.Log.Info().Str("file", path).Interface("result", res).Msg("forecasts imported")
	}
	return nil
}

func runDrivePull(c *cli.Context) error {
	cfg := config.Load().Drive

	svc, err := drive.NewService(c.Context, cfg.CredentialsJSON)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Drive service: %w", err)
	}

	salesFolder := c.String("sales-folder")
	if path := c.String("folder-path"); path != "" {
		salesFolder, err = svc.FindFolderByPath(c.Context, path)
		if err != nil {
			return err
		}
	}
	if salesFolder == "" && c.String("forecast-folder") == "" {
		return cli.Exit("no drive folder configured", 2)
	}

	puller := drive.NewPuller(drive.NewDownloader(svc, cfg.DownloadDir), appFrom(c).Importer, salesFolder, c.String("forecast-folder"))
	res, err := puller.Pull(c.Context)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDaily(c *cli.Context) error {
	inv := appFrom(c).Inventory
	if sku := c.String("sku"); sku != "" {
		res, err := inv.TriggerWithdrawal(c.Context, sku)
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	report, err := inv.RunDailyAllSkus(c.Context)
	if err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		logger.Log.Warn().Int("failures", len(report.Failures)).Msg("some products failed")
	}
	return printJSON(report)
}

func runAdvance(c *cli.Context) error {
	report, err := appFrom(c).Inventory.AdvanceLifecycle(c.Context)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runSale(c *cli.Context) error {
	date := appFrom(c).Inventory.Today()
	if raw := c.String("date"); raw != "" {
		d, err := domain.ParseDay(raw)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --date: %v", err), 2)
		}
		date = d
	}

	alloc, err := appFrom(c).Inventory.RegisterSale(c.Context, c.String("sku"), date, c.Float64("qty"))
	if err != nil {
		return err
	}
	if alloc.InsufficientStock() {
		logger.Log.Warn().Str("sku", alloc.SKU).Str("shortfall", alloc.Shortfall.String()).Msg("insufficient stock")
	}
	return printJSON(alloc)
}

func runListBatches(c *cli.Context) error {
	batches, err := appFrom(c).Gateway.ListBatches(c.Context, c.String("sku"))
	if err != nil {
		return err
	}

	if raw := c.String("status"); raw != "" {
		status, ok := domain.ParseBatchStatus(raw)
		if !ok {
			return cli.Exit(fmt.Sprintf("unknown status %q", raw), 2)
		}
		filtered := batches[:0]
		for _, b := range batches {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
		batches = filtered
	}
	return printJSON(batches)
}

func runRunControl(c *cli.Context) error {
	gw := appFrom(c).Gateway
	routine := c.String("routine")

	if raw := c.String("set"); raw != "" {
		d, err := domain.ParseDay(raw)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --set: %v", err), 2)
		}
		if err := gw.SetRunControl(c.Context, routine, d); err != nil {
			return err
		}
		logger.Log.Info().Str("routine", routine).Str("last_run", raw).Msg("run control updated")
	}

	rc, err := gw.GetRunControl(c.Context, routine)
	if err != nil {
		return err
	}
	if rc == nil {
		rc = &domain.RunControl{RoutineName: routine}
	}
	return printJSON(rc)
}
