package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-ototahmin"
	"github.com/goliatone/go-ototahmin/internal/config"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/renderers/tui"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	locale := flag.String("locale", "", "interface locale (tr or en)")
	service := flag.String("service", "", "prediction backend root URL")
	catalogSrc := flag.String("catalog", "", "reference data URL or file path")
	vocabulary := flag.String("vocabulary", "", "request vocabulary (english or turkish)")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	override(&cfg.Locale, *locale)
	override(&cfg.ServiceURL, *service)
	override(&cfg.CatalogURL, *catalogSrc)
	override(&cfg.Vocabulary, *vocabulary)
	override(&cfg.Log.Level, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Prompts own stdout; diagnostics go to stderr.
	logger := cfg.NewLogger(os.Stderr, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Error("ototahmin-cli failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	contract, err := ototahmin.LoadContract(ctx)
	if err != nil {
		return err
	}
	catalogURL, predictURL, err := cfg.Endpoints(contract)
	if err != nil {
		return err
	}
	source, err := catalog.ParseSource(catalogURL)
	if err != nil {
		return err
	}

	app, err := ototahmin.New(ctx,
		ototahmin.WithContract(contract),
		ototahmin.WithCatalogSource(source),
		ototahmin.WithPredictURL(predictURL),
		ototahmin.WithLocale(cfg.Locale),
		ototahmin.WithVocabulary(cfg.Vocabulary),
		ototahmin.WithReloadPolicy(cfg.Policy()),
		ototahmin.WithRequestTimeout(cfg.RequestTimeout),
		ototahmin.WithCurrencySuffix(cfg.CurrencySuffix),
		ototahmin.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		logger.Warn("continuing without reference data", "error", err)
	}

	renderer, err := tui.New(app.Session, app.Form,
		tui.WithLogger(logger),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! ", ResultPrefix: "→ "}),
	)
	if err != nil {
		return err
	}
	return renderer.Run(ctx)
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}
