package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	catalogapp "github.com/3btraders/ims/internal/application/catalog"
	reportapp "github.com/3btraders/ims/internal/application/report"
	"github.com/3btraders/ims/internal/domain/catalog"
	domainreport "github.com/3btraders/ims/internal/domain/report"
	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/config"
	"github.com/3btraders/ims/internal/infrastructure/gateway"
	"github.com/3btraders/ims/internal/infrastructure/logger"
	"github.com/3btraders/ims/internal/infrastructure/printing"
	"github.com/3btraders/ims/internal/infrastructure/storage"
)

func main() {
	// Parse flags
	var (
		configPath string
		logLevel   string
		shop       string
		start      string
		end        string
		reportType string
		archive    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to ims.toml (default: ./ims.toml or ./config/ims.toml)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.StringVar(&shop, "shop", "", "Shop ID or name")
	flag.StringVar(&start, "start", "", "Period start date (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "", "Period end date (YYYY-MM-DD)")
	flag.StringVar(&reportType, "type", string(domainreport.TypeSummary), "Report type: summary, detailed, financial")
	flag.BoolVar(&archive, "archive", false, "Upload exported PDFs to the configured S3 bucket")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Load configuration
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command == "files" {
		files, err := printing.NewFileSystemStorage(cfg.Printing.OutputDir, log)
		if err != nil {
			log.Fatal("Failed to open report directory", zap.Error(err))
		}
		if err := printFiles(ctx, files); err != nil {
			log.Fatal("Listing reports failed", zap.Error(err))
		}
		return
	}

	client, err := gateway.NewClient(cfg.Gateway, cfg.Session.CookieName, gateway.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create backend client", zap.Error(err))
	}
	if cfg.Session.Email == "" {
		log.Fatal("No session email configured; set IMS_SESSION_EMAIL and IMS_SESSION_PASSWORD")
	}
	if err := client.Login(ctx, cfg.Session.Email, cfg.Session.Password); err != nil {
		log.Fatal("Login failed", zap.String("email", cfg.Session.Email), zap.Error(err))
	}
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			log.Warn("Logout failed", zap.Error(err))
		}
	}()

	catalogService := catalogapp.NewService(client, nil, log)
	snapshot, err := catalogService.Refresh(ctx)
	if err != nil {
		log.Fatal("Catalog load failed", zap.Error(err))
	}

	switch command {
	case "shops":
		printShops(snapshot)

	case "generate", "export":
		shopID, err := resolveShop(snapshot, shop)
		if err != nil {
			log.Fatal("Invalid shop", zap.String("shop", shop), zap.Error(err))
		}
		opts := []reportapp.Option{reportapp.WithLogger(log)}
		if command == "export" {
			renderer, err := exportOptions(ctx, cfg, log, archive, &opts)
			if err != nil {
				log.Fatal("Failed to set up report export", zap.Error(err))
			}
			defer func() { _ = renderer.Close() }()
		}
		reports := reportapp.NewService(client, catalogService, opts...)

		doc, err := reports.Generate(ctx, reportapp.GenerateRequest{
			ShopID: shopID,
			Period: shared.Period{Start: start, End: end},
			Type:   domainreport.Type(reportType),
		})
		if err != nil {
			log.Fatal("Report generation failed", zap.Error(err))
		}
		if command == "generate" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				log.Fatal("Writing report failed", zap.Error(err))
			}
			return
		}

		res, err := reports.Export(ctx, doc)
		if err != nil {
			log.Fatal("Report export failed", zap.Error(err))
		}
		fmt.Printf("%s (%d pages, %d bytes)\n", res.File.Path, res.Pages, res.File.Size)
		if res.Archived != nil {
			fmt.Printf("archived: s3://%s/%s\n", res.Archived.Bucket, res.Archived.Key)
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// resolveShop matches ref against shop IDs, then names ignoring case.
func resolveShop(c *catalog.Catalog, ref string) (shared.ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", shared.ErrSelectionRequired
	}
	if s, ok := c.Shop(ref); ok {
		return shared.ID(s.ID), nil
	}
	for _, s := range c.Shops() {
		if strings.EqualFold(s.Name, ref) {
			return shared.ID(s.ID), nil
		}
	}
	return "", shared.ErrNotFound.WithMessage("Shop not found")
}

func exportOptions(ctx context.Context, cfg *config.Config, log *zap.Logger, archive bool, opts *[]reportapp.Option) (*printing.ChromedpRenderer, error) {
	layout, err := printing.NewLayout(cfg.Printing.Currency)
	if err != nil {
		return nil, err
	}
	files, err := printing.NewFileSystemStorage(cfg.Printing.OutputDir, log)
	if err != nil {
		return nil, err
	}
	if archive {
		a, err := storage.NewS3ReportArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		*opts = append(*opts, reportapp.WithArchive(a))
	}
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfigFrom(cfg.Printing, log))
	*opts = append(*opts, reportapp.WithExport(layout, renderer, files))
	return renderer, nil
}

func printShops(c *catalog.Catalog) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tPRODUCTS")
	for _, s := range c.Shops() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.Name, s.Location, s.ProductCount())
	}
	_ = w.Flush()
}

func printFiles(ctx context.Context, files *printing.FileSystemStorage) error {
	list, err := files.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	for _, f := range list {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func printUsage() {
	fmt.Println(`IMS Report Tool

Usage:
  imsreport [flags] <command>

Commands:
  shops       List shops in the catalog
  generate    Generate a report and print it as JSON
  export      Generate a report and export it to PDF
  files       List exported PDFs

Flags:
  -config string      Path to ims.toml
  -shop string        Shop ID or name
  -start string       Period start date (YYYY-MM-DD)
  -end string         Period end date (YYYY-MM-DD)
  -type string        Report type: summary, detailed, financial (default: summary)
  -archive            Upload exported PDFs to the configured S3 bucket
  -log-level string   Log level: debug, info, warn, error (default: warn)

Environment Variables:
  IMS_GATEWAY_BASE_URL, IMS_SESSION_EMAIL, IMS_SESSION_PASSWORD

Examples:
  imsreport -shop "Kigali Central" -start 2025-01-01 -end 2025-01-31 export`)
}
