package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tracker/internal/api"
	"github.com/mtlprog/tracker/internal/config"
	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/export"
	"github.com/mtlprog/tracker/internal/ledger"
	"github.com/mtlprog/tracker/internal/logging"
	"github.com/mtlprog/tracker/internal/portfolio"
	"github.com/mtlprog/tracker/internal/report"
	"github.com/mtlprog/tracker/internal/worker"
)

const dateLayout = "2006-01-02"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("tracker failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newCLI(out io.Writer) *cli.App {
	assetFlags := []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "asset type: house, gold, coin or stock", Required: true},
		&cli.StringFlag{Name: "brand", Aliases: []string{"b"}, Usage: "gold brand or coin symbol"},
		&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "gold unit: chi or luong"},
		&cli.StringFlag{Name: "quantity", Aliases: []string{"q"}, Value: "0"},
		&cli.StringFlag{Name: "date", Usage: "entry date as YYYY-MM-DD, default today"},
	}

	return &cli.App{
		Name:                 "tracker",
		Usage:                "track purchases and sales of property, gold, coins and stocks",
		Writer:               out,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("env-file"))
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, cfg.LogFormat)
			c.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with the refresh and export workers",
				Action: withApp(serve),
			},
			{
				Name:  "add",
				Usage: "record a purchase",
				Flags: append(assetFlags,
					&cli.StringFlag{Name: "origin", Usage: "unit purchase price", Value: "0"},
					&cli.StringFlag{Name: "current", Usage: "unit current price, quoted from the oracle when omitted"},
				),
				Action: withApp(addPurchase),
			},
			{
				Name:  "sell",
				Usage: "record a sale",
				Flags: append(assetFlags,
					&cli.StringFlag{Name: "price", Usage: "unit sell price", Value: "0"},
				),
				Action: withApp(addSale),
			},
			{
				Name:   "refresh",
				Usage:  "re-price held gold and coins from the oracles",
				Action: withApp(refresh),
			},
			{
				Name:   "totals",
				Usage:  "print totals per asset type as JSON",
				Action: withApp(totals),
			},
			{
				Name:      "remaining",
				Usage:     "print remaining quantity per dimension as JSON",
				ArgsUsage: "TYPE",
				Action:    withApp(remaining),
			},
			{
				Name:  "summary",
				Usage: "render a portfolio summary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "style", Usage: "glamour style, default auto"},
					&cli.BoolFlag{Name: "raw", Usage: "print markdown without rendering"},
				},
				Action: withApp(summary),
			},
			{
				Name:  "export",
				Usage: "write the ledger as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, default stdout"},
				},
				Action: withApp(exportJSON),
			},
			{
				Name:      "import",
				Usage:     "load a ledger JSON file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Value: string(ledger.ImportReplace), Usage: "replace or merge"},
				},
				Action: withApp(importJSON),
			},
			{
				Name:  "gold-prices",
				Usage: "show current gold dealer prices",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "style", Usage: "glamour style, default auto"},
				},
				Action: withApp(goldPrices),
			},
			{
				Name:  "xlsx",
				Usage: "write the ledger as an Excel workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "portfolio.xlsx"},
				},
				Action: withApp(exportXLSX),
			},
		},
	}
}

func withApp(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, ok := c.App.Metadata["config"].(config.Config)
		if !ok {
			return errors.New("configuration not loaded")
		}
		a, err := newApp(c.Context, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func serve(c *cli.Context, a *app) error {
	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	refreshWorker := worker.NewRefreshWorker(a.portfolio, a.cfg.RefreshWorkerInterval)
	go refreshWorker.Run(ctx)

	writers, err := a.exportWriters(ctx)
	if err != nil {
		return err
	}
	if len(writers) > 0 {
		exportWorker := worker.NewExportWorker(export.NewService(a.ledger, writers...), a.cfg.ExportWorkerInterval)
		go exportWorker.Run(ctx)
	} else {
		slog.Info("no export writers configured, export worker disabled")
	}

	if a.cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, mutating endpoints are unprotected")
	}

	srv := api.NewServer(a.cfg.HTTPPort, api.NewHandler(a.ledger, a.portfolio, a.oracle), a.cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func assetFromFlags(c *cli.Context) (domain.Asset, error) {
	t, err := domain.ParseAssetType(c.String("type"))
	if err != nil {
		return nil, err
	}
	unit, err := domain.ParseQuantityUnit(c.String("unit"))
	if err != nil {
		return nil, err
	}
	return domain.NewAsset(t, c.String("brand"), unit)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

func addPurchase(c *cli.Context, a *app) error {
	asset, err := assetFromFlags(c)
	if err != nil {
		return err
	}
	date, err := parseDate(c.String("date"))
	if err != nil {
		return err
	}

	req := portfolio.PurchaseRequest{
		Asset:       asset,
		Quantity:    domain.SafeParse(c.String("quantity")),
		OriginValue: domain.SafeParse(c.String("origin")),
		Date:        date,
	}
	if c.IsSet("current") {
		req.CurrentValue = decimal.NewNullDecimal(domain.SafeParse(c.String("current")))
	}

	id, err := a.portfolio.AddPurchase(c.Context, req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "purchase %d recorded\n", id)
	return err
}

func addSale(c *cli.Context, a *app) error {
	asset, err := assetFromFlags(c)
	if err != nil {
		return err
	}
	date, err := parseDate(c.String("date"))
	if err != nil {
		return err
	}

	id, err := a.ledger.AddSale(c.Context, asset, domain.SafeParse(c.String("quantity")), domain.SafeParse(c.String("price")), date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "sale %d recorded\n", id)
	return err
}

func refresh(c *cli.Context, a *app) error {
	result, err := a.portfolio.Refresh(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "quoted %d of %d, updated %d entries\n", result.Priced, result.Requested, result.Updated)
	return err
}

func totals(c *cli.Context, a *app) error {
	t, err := a.ledger.TotalsByType(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, t)
}

func remaining(c *cli.Context, a *app) error {
	t, err := domain.ParseAssetType(c.Args().First())
	if err != nil {
		return err
	}
	r, err := a.ledger.RemainingByDimension(c.Context, t)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, r)
}

func summary(c *cli.Context, a *app) error {
	doc, err := a.ledger.Document(c.Context)
	if err != nil {
		return err
	}

	t := ledger.ComputeTotals(doc)
	s := report.Summary{
		Totals:    t,
		Overview:  ledger.ComputeOverview(t),
		Remaining: map[domain.AssetType]map[string]decimal.Decimal{},
	}
	for _, typ := range domain.AssetTypes() {
		if typ.Dimensioned() {
			s.Remaining[typ] = ledger.ComputeRemaining(doc, typ)
		}
	}

	return render(c, report.Markdown(s), c.Bool("raw"))
}

func goldPrices(c *cli.Context, a *app) error {
	return render(c, report.GoldBoardMarkdown(a.oracle.GoldBoard(c.Context)), false)
}

func render(c *cli.Context, md string, raw bool) error {
	if !raw {
		rendered, err := report.Render(md, c.String("style"))
		if err != nil {
			return err
		}
		md = rendered
	}
	_, err := io.WriteString(c.App.Writer, md)
	return err
}

func exportJSON(c *cli.Context, a *app) error {
	data, err := a.ledger.Export(c.Context)
	if err != nil {
		return err
	}
	if path := c.String("out"); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		slog.Info("ledger exported", "path", path)
		return nil
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func importJSON(c *cli.Context, a *app) error {
	mode, err := ledger.ParseImportMode(c.String("mode"))
	if err != nil {
		return err
	}
	path := c.Args().First()
	if path == "" {
		return errors.New("import needs a FILE argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return a.ledger.Import(c.Context, data, mode)
}

func exportXLSX(c *cli.Context, a *app) error {
	path := c.String("out")
	if err := export.NewService(a.ledger, export.NewXLSXWriter(path)).Export(c.Context); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.App.Writer, "workbook written to %s\n", path)
	return err
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
