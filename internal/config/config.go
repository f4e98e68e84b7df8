// Package config loads the runtime settings shared by the ototahmin binaries:
// defaults first, then an optional YAML file, then OTOTAHMIN_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ototahmin/pkg/audit"
	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
	"github.com/goliatone/go-ototahmin/pkg/predict"
)

const (
	// DefaultServiceURL is the prediction backend the original web client
	// talks to.
	DefaultServiceURL = "https://flask-backend-793109096440.europe-west1.run.app"

	envPrefix = "OTOTAHMIN_"

	ReloadKeep       = "keep"
	ReloadRevalidate = "revalidate"
)

// Config holds every setting the binaries read.
type Config struct {
	// ServiceURL is the backend root; endpoint paths come from the contract.
	ServiceURL string `yaml:"service_url"`
	// CatalogURL overrides the reference data location. It may be a URL or a
	// local file path.
	CatalogURL string `yaml:"catalog_url"`
	// PredictURL overrides the prediction endpoint.
	PredictURL string `yaml:"predict_url"`

	Locale         string        `yaml:"locale"`
	Vocabulary     string        `yaml:"vocabulary"`
	CurrencySuffix string        `yaml:"currency_suffix"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReloadPolicy   string        `yaml:"reload_policy"`

	Log   LogConfig   `yaml:"log"`
	Web   WebConfig   `yaml:"web"`
	Audit AuditConfig `yaml:"audit"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// WebConfig configures the HTTP server of ototahmin-web.
type WebConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"`
	// RateLimit is the number of predictions allowed per second; zero
	// disables limiting.
	RateLimit    float64           `yaml:"rate_limit"`
	RateBurst    int               `yaml:"rate_burst"`
	Theme        string            `yaml:"theme"`
	ThemeVariant string            `yaml:"theme_variant"`
	ThemeTokens  map[string]string `yaml:"theme_tokens"`
}

// AuditConfig enables publishing prediction outcomes to NATS.
type AuditConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Default returns the settings used when nothing is configured. The
// vocabulary is Turkish because the default backend expects Turkish keys.
func Default() Config {
	return Config{
		ServiceURL:     DefaultServiceURL,
		Locale:         model.DefaultLocale,
		Vocabulary:     predict.VocabularyTurkish,
		CurrencySuffix: predict.DefaultSuffix,
		ReloadPolicy:   ReloadKeep,
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			Addr:      "127.0.0.1:8080",
			RateBurst: 1,
		},
		Audit: AuditConfig{
			Subject: audit.DefaultSubject,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path (".env" when empty) into the
// process environment without overriding variables that are already set. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, target *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*target = strings.TrimSpace(v)
		}
	}
	str("SERVICE_URL", &c.ServiceURL)
	str("CATALOG_URL", &c.CatalogURL)
	str("PREDICT_URL", &c.PredictURL)
	str("LOCALE", &c.Locale)
	str("VOCABULARY", &c.Vocabulary)
	str("CURRENCY_SUFFIX", &c.CurrencySuffix)
	str("RELOAD_POLICY", &c.ReloadPolicy)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("WEB_ADDR", &c.Web.Addr)
	str("CORS_ORIGIN", &c.Web.CORSOrigin)
	str("THEME", &c.Web.Theme)
	str("THEME_VARIANT", &c.Web.ThemeVariant)
	str("NATS_URL", &c.Audit.NATSURL)
	str("NATS_SUBJECT", &c.Audit.Subject)

	if v, ok := lookup(envPrefix + "REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := lookup(envPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("config: %sRATE_LIMIT: %w", envPrefix, err)
		}
		c.Web.RateLimit = f
	}
	if v, ok := lookup(envPrefix + "RATE_BURST"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sRATE_BURST: %w", envPrefix, err)
		}
		c.Web.RateBurst = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.ServiceURL == "" && (c.CatalogURL == "" || c.PredictURL == "") {
		add("service_url is required unless catalog_url and predict_url are both set")
	}
	if c.ServiceURL != "" {
		if err := checkHTTPURL(c.ServiceURL); err != nil {
			add("service_url: %v", err)
		}
	}
	if c.PredictURL != "" {
		if err := checkHTTPURL(c.PredictURL); err != nil {
			add("predict_url: %v", err)
		}
	}
	if !supportedLocale(c.Locale) {
		add("unsupported locale %q (want one of %s)", c.Locale, strings.Join(model.Locales(), ", "))
	}
	switch strings.ToLower(c.Vocabulary) {
	case "", predict.VocabularyEnglish, predict.VocabularyTurkish, "en", "tr":
	default:
		add("unknown vocabulary %q", c.Vocabulary)
	}
	switch strings.ToLower(c.ReloadPolicy) {
	case "", ReloadKeep, ReloadRevalidate:
	default:
		add("unknown reload_policy %q", c.ReloadPolicy)
	}
	if c.RequestTimeout < 0 {
		add("request_timeout must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Web.RateLimit < 0 || c.Web.RateBurst < 0 {
		add("web rate limit and burst must not be negative")
	}
	if c.Audit.NATSURL != "" && strings.TrimSpace(c.Audit.Subject) == "" {
		add("audit.subject is required with audit.nats_url")
	}
	return errors.Join(errs...)
}

// Endpoints resolves the reference data and prediction locations. Explicit
// URLs win; otherwise the contract paths are joined onto ServiceURL.
func (c Config) Endpoints(contract *openapi.Contract) (catalogURL, predictURL string, err error) {
	catalogURL, predictURL = c.CatalogURL, c.PredictURL
	if catalogURL != "" && predictURL != "" {
		return catalogURL, predictURL, nil
	}
	if contract == nil {
		return "", "", errors.New("config: contract is required to resolve endpoints")
	}
	base := strings.TrimRight(c.ServiceURL, "/")
	if catalogURL == "" {
		ep, ok := contract.Endpoint(openapi.OperationReferenceData)
		if !ok {
			return "", "", errors.New("config: contract has no reference data operation")
		}
		catalogURL = base + ep.Path
	}
	if predictURL == "" {
		ep, ok := contract.Endpoint(openapi.OperationPredict)
		if !ok {
			return "", "", errors.New("config: contract has no prediction operation")
		}
		predictURL = base + ep.Path
	}
	return catalogURL, predictURL, nil
}

// Policy maps ReloadPolicy onto the cascade policy.
func (c Config) Policy() cascade.ReloadPolicy {
	if strings.EqualFold(c.ReloadPolicy, ReloadRevalidate) {
		return cascade.ReloadRevalidate
	}
	return cascade.ReloadKeep
}

// NewLogger builds the slog logger described by Log. defaultFormat applies
// when no format is configured.
func (c Config) NewLogger(w io.Writer, defaultFormat string) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(c.Log.Format)
	if format == "" {
		format = defaultFormat
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(raw) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func supportedLocale(tag string) bool {
	if tag == "" {
		return true
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	for _, locale := range model.Locales() {
		if tag == locale {
			return true
		}
	}
	return false
}

func checkHTTPURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
