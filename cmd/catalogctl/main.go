// Command catalogctl applies the JSON seed files to the catalog store:
//
//	catalogctl seed   import only into empty tables
//	catalogctl sync   merge into the store, keeping edited characteristics
//	catalogctl reset  empty both tables and import again
//
// The structured report is printed to stdout; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"catalog-cms/internal/config"
	"catalog-cms/internal/events"
	"catalog-cms/internal/ingest"
	"catalog-cms/internal/logger"
	"catalog-cms/internal/mirror"
	"catalog-cms/internal/service"
	"catalog-cms/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitPartial
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("catalogctl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: catalogctl [flags] seed|sync|reset")
		flags.PrintDefaults()
	}

	flags.String("driver", "", "storage driver: sqlite, postgres or json")
	flags.String("db-path", "", "sqlite database file")
	flags.String("json-dir", "", "directory of the json store")
	flags.String("products", "", "products seed file")
	flags.String("articles", "", "articles seed file")
	flags.Bool("mirror", true, "regenerate the export files after the import")
	strict := flags.Bool("strict", false, "exit with status 3 when any record failed")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}
	mode := service.ImportMode(flags.Arg(0))
	switch mode {
	case service.ModeSeed, service.ModeSync, service.ModeReset:
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", flags.Arg(0))
		flags.Usage()
		return exitUsage
	}

	for key, name := range map[string]string{
		"DB_DRIVER":      "driver",
		"DB_PATH":        "db-path",
		"DB_JSON_DIR":    "json-dir",
		"PRODUCTS_FILE":  "products",
		"ARTICLES_FILE":  "articles",
		"MIRROR_ENABLED": "mirror",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(stderr, "failed to bind flag %s: %v\n", name, err)
			return exitError
		}
	}

	cfg := config.Load()
	log := logger.NewConsole(cfg.Server.Env, zapcore.AddSync(stderr))
	defer log.Sync()

	report, err := apply(ctx, cfg, mode, log)
	if report != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			log.Error("Failed to print report", zap.Error(encErr))
		}
	}
	if err != nil {
		log.Error("Import failed", zap.Error(err))
		return exitError
	}
	if *strict && len(report.Failed) > 0 {
		return exitPartial
	}
	return exitOK
}

func apply(ctx context.Context, cfg *config.Config, mode service.ImportMode, log *zap.Logger) (*service.Report, error) {
	batch, err := ingest.LoadBatch(cfg.Data.ProductsFile, cfg.Data.ArticlesFile)
	if err != nil {
		return nil, err
	}

	stores, err := storage.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	imports := service.NewImportService(stores.Products, stores.Articles, events.Nop, log)

	var report *service.Report
	switch mode {
	case service.ModeSeed:
		report, err = imports.Seed(ctx, batch)
	case service.ModeReset:
		report, err = imports.Reset(ctx, batch)
	default:
		report, err = imports.Sync(ctx, batch)
	}
	if err != nil {
		return report, err
	}

	if cfg.Data.MirrorEnabled {
		// No server-side subscriber is listening in this process.
		writer := mirror.NewWriter(cfg.Data.MirrorDir, cfg.Data.MirrorFlat)
		if err := mirror.NewSubscriber(writer, stores.Products, stores.Articles, log).RefreshAll(ctx); err != nil {
			log.Error("Failed to regenerate export", zap.Error(err))
		}
	}
	return report, nil
}
