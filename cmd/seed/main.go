package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/thawflow/internal/app"
	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/pkg/logger"
	"github.com/urfave/cli/v2"
)

type ctxKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (overrides DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newBackendFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "backend",
		Usage:   "Store backend: postgres or memory",
		Value:   app.BackendPostgres,
		EnvVars: []string{"STORE_BACKEND"},
	}
}

func newSKUFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "sku",
		Usage:    "Product SKU",
		Required: required,
	}
}

// initApp builds the application from config plus flag overrides and stores
// it in the command context.
func initApp(c *cli.Context) error {
	cfg := config.Load()
	if url := c.String("db-url"); url != "" {
		cfg.Database.URL = url
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Database.Backend = backend
	}

	a, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}

	c.Context = context.WithValue(c.Context, ctxKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(ctxKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(ctxKey{}).(*app.App)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withApp(cmd *cli.Command) *cli.Command {
	cmd.Flags = append([]cli.Flag{newDBURLFlag(), newBackendFlag()}, cmd.Flags...)
	cmd.Before = initApp
	cmd.After = closeApp
	return cmd
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	cliApp := &cli.App{
		Name:  "seed",
		Usage: "Load data into the thaw planner and run its daily routines",
		Commands: []*cli.Command{
			withApp(&cli.Command{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: runMigrate,
			}),
			withApp(&cli.Command{
				Name:      "product",
				Usage:     "Create or update a product",
				ArgsUsage: "<sku>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Product name"},
					&cli.StringFlag{Name: "category", Usage: "Product category"},
				},
				Action: runUpsertProduct,
			}),
			withApp(&cli.Command{
				Name:      "import-sales",
				Usage:     "Import daily sales CSV exports",
				ArgsUsage: "<file.csv>...",
				Action:    runImportSales,
			}),
			withApp(&cli.Command{
				Name:      "import-forecasts",
				Usage:     "Import sku,date,quantity forecast files",
				ArgsUsage: "<file.csv>...",
				Action:    runImportForecasts,
			}),
			withApp(&cli.Command{
				Name:  "drive-pull",
				Usage: "Download and import sales and forecast sheets from Google Drive",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sales-folder", Usage: "Drive folder ID with sales exports", EnvVars: []string{"DRIVE_SALES_FOLDER_ID"}},
					&cli.StringFlag{Name: "forecast-folder", Usage: "Drive folder ID with forecasts", EnvVars: []string{"DRIVE_FORECAST_FOLDER_ID"}},
					&cli.StringFlag{Name: "folder-path", Usage: "Resolve the sales folder by path instead of ID"},
				},
				Action: runDrivePull,
			}),
			withApp(&cli.Command{
				Name:   "daily",
				Usage:  "Run the daily withdrawal for every product, or one with --sku",
				Flags:  []cli.Flag{newSKUFlag(false)},
				Action: runDaily,
			}),
			withApp(&cli.Command{
				Name:   "advance",
				Usage:  "Advance the lifecycle of every open batch",
				Action: runAdvance,
			}),
			withApp(&cli.Command{
				Name:  "sale",
				Usage: "Register a sale and allocate it to batches",
				Flags: []cli.Flag{
					newSKUFlag(true),
					&cli.Float64Flag{Name: "qty", Usage: "Quantity sold", Required: true},
					&cli.StringFlag{Name: "date", Usage: "Sale date (YYYY-MM-DD), defaults to today"},
				},
				Action: runSale,
			}),
			withApp(&cli.Command{
				Name:  "batches",
				Usage: "List a product's batches",
				Flags: []cli.Flag{
					newSKUFlag(true),
					&cli.StringFlag{Name: "status", Usage: "Only batches in this status"},
				},
				Action: runListBatches,
			}),
			withApp(&cli.Command{
				Name:  "runs",
				Usage: "Show or reset the last run date of a routine",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "routine", Usage: "Routine name", Value: cfg.Engine.DailyRoutineName},
					&cli.StringFlag{Name: "set", Usage: "Overwrite the last run date (YYYY-MM-DD)"},
				},
				Action: runRunControl,
			}),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func requireArgs(c *cli.Context, what string) error {
	if c.NArg() == 0 {
		return cli.Exit(fmt.Sprintf("at least one %s is required", what), 2)
	}
	return nil
}
