package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/goliatone/go-ototahmin"
	"github.com/goliatone/go-ototahmin/internal/config"
	"github.com/goliatone/go-ototahmin/pkg/audit"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/mid"
	"github.com/goliatone/go-ototahmin/pkg/renderers/web"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	addr := flag.String("addr", "", "listen address")
	locale := flag.String("locale", "", "interface locale (tr or en)")
	service := flag.String("service", "", "prediction backend root URL")
	catalogSrc := flag.String("catalog", "", "reference data URL or file path")
	templatesDir := flag.String("templates", "", "directory with templates/page.tpl overriding the embedded page")
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
	override(&cfg.Web.Addr, *addr)
	override(&cfg.Locale, *locale)
	override(&cfg.ServiceURL, *service)
	override(&cfg.CatalogURL, *catalogSrc)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout, "json")
	slog.SetDefault(logger)

	if err := run(cfg, *templatesDir, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, templatesDir string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	opts := []ototahmin.Option{
		ototahmin.WithContract(contract),
		ototahmin.WithCatalogSource(source),
		ototahmin.WithPredictURL(predictURL),
		ototahmin.WithLocale(cfg.Locale),
		ototahmin.WithVocabulary(cfg.Vocabulary),
		ototahmin.WithReloadPolicy(cfg.Policy()),
		ototahmin.WithRequestTimeout(cfg.RequestTimeout),
		ototahmin.WithCurrencySuffix(cfg.CurrencySuffix),
		ototahmin.WithLogger(logger),
	}

	// --- Optional audit trail ---
	if cfg.Audit.NATSURL != "" {
		pub, err := audit.ConnectNATS(cfg.Audit.NATSURL, cfg.Audit.Subject)
		if err != nil {
			logger.Warn("audit disabled", "error", err)
		} else {
			defer pub.Close()
			opts = append(opts, ototahmin.WithPublisher(pub))
			logger.Info("audit enabled", "subject", pub.Subject())
		}
	}

	app, err := ototahmin.New(ctx, opts...)
	if err != nil {
		return err
	}
	// The page is usable before the catalog arrives.
	go app.Start(ctx)

	webOpts := []web.Option{
		web.WithLogger(logger),
		web.WithRateLimit(rate.Limit(cfg.Web.RateLimit), cfg.Web.RateBurst),
		web.WithThemeTokens(cfg.Web.ThemeTokens),
	}
	if cfg.Web.Theme != "" || cfg.Web.ThemeVariant != "" {
		name := cfg.Web.Theme
		if name == "" {
			name = web.DefaultThemeName
		}
		webOpts = append(webOpts, web.WithTheme(name, cfg.Web.ThemeVariant))
	}
	if templatesDir != "" {
		webOpts = append(webOpts, web.WithTemplatesFS(os.DirFS(templatesDir)))
	}
	renderer, err := web.New(app.Session, app.Form, webOpts...)
	if err != nil {
		return err
	}

	handler := mid.Chain(renderer.Handler(),
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.Web.CORSOrigin),
		mid.OTel("ototahmin-web"),
	)

	srv := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Addr, "locale", app.Form.Locale)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}
