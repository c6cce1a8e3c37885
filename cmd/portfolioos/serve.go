package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"portfolioos/internal/bot"
	"portfolioos/internal/catalog"
	"portfolioos/internal/config"
	"portfolioos/internal/contact"
	"portfolioos/internal/history"
	"portfolioos/internal/metrics"
	"portfolioos/internal/notify"
	"portfolioos/internal/ratelimit"
	"portfolioos/internal/security"
	"portfolioos/internal/server"
	"portfolioos/internal/telemetry"
	"portfolioos/pkg/fileutil"
)

// CatalogFileName is searched for in the default config locations when no
// catalog path is configured.
const CatalogFileName = "catalog.yaml"

// telemetryShutdownTimeout bounds the final metrics flush.
const telemetryShutdownTimeout = 5 * time.Second

var (
	envFile     string
	catalogFile string
	logFile     string
	logLevel    string
	host        string
	port        int
	rateLimit   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio server",
	Long: `Start the HTTP server for the portfolio page, the project API and the contact form.

Settings come from the environment (and the .env file when present). Flags
override the matching environment variables.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&catalogFile, "catalog", "c", "", "Path to catalog.yaml (overrides CATALOG_FILE)")
	serveCmd.Flags().StringVar(&logFile, "log", "", "Also write logs to this file (overrides LOG_FILE)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	serveCmd.Flags().StringVar(&host, "host", "", "Host to bind to (overrides HOST)")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Requests per minute per client (overrides RATE_LIMIT_PER_MINUTE)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, source, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Error("catalog.load_failed", "error", err)
		return err
	}
	logger.Info("catalog.loaded", "source", source, "projects", registry.Count())

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    "portfolioos",
		ServiceVersion: version,
	})
	if err != nil {
		logger.Error("telemetry.setup_failed", "error", err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry.shutdown_failed", "error", err)
		}
	}()

	counters := metrics.NewRegistry(time.Now())
	counters.SetSink(tel)

	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	if notifier.Enabled() {
		logger.Info("telegram.notify.enabled", "token", security.RedactToken(cfg.TelegramToken))
	} else {
		logger.Warn("telegram.notify.disabled", "reason", "TELEGRAM_TOKEN or TELEGRAM_CHAT_ID not set")
	}

	ledger := history.NewHistory(history.DefaultCapacity)

	var adminBot *bot.Bot
	if cfg.WebhookEnabled() {
		adminBot = bot.New(bot.Config{
			Notifier: notifier,
			Catalog:  registry,
			Metrics:  counters,
			Ledger:   ledger,
			AdminIDs: cfg.AdminIDs,
			Logger:   logger,
			Secrets:  []string{cfg.TelegramToken, cfg.WebhookSecret},
		})
		if len(cfg.AdminIDs) == 0 {
			logger.Warn("bot.no_admins", "detail", "ADMIN_IDS is empty, every command will be ignored")
		}
	}

	srv, err := server.New(server.Options{
		Catalog:       registry,
		Metrics:       counters,
		Limiter:       ratelimit.New(cfg.RateLimitPerMinute, ratelimit.WithMaxKeys(cfg.RateLimitMaxClients)),
		Contact:       contact.NewService(notifier, counters, ledger, logger),
		Logger:        logger,
		Bot:           adminBot,
		WebhookSecret: cfg.WebhookSecret,
		NotifyAPIURL:  cfg.TelegramAPIURL,
		OTelEnabled:   tel.Enabled(),

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	if err != nil {
		logger.Error("server.init_failed", "error", err)
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	logger.Info("portfolio_os.starting",
		"addr", cfg.Addr(),
		"rate_limit", cfg.RateLimitPerMinute,
		"version", version)

	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		logger.Error("server.failed", "error", err)
		return err
	}

	return nil
}

// applyServeFlags copies explicitly set flags over the environment values.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.CatalogFile = catalogFile
	}
	if flags.Changed("log") {
		cfg.LogFile = logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimitPerMinute = rateLimit
	}
}

// loadCatalog loads the catalog file at path, or the first catalog.yaml in
// the default locations. With neither, the built-in catalog is used.
func loadCatalog(path string) (*catalog.Registry, string, error) {
	resolved, err := fileutil.ResolveConfig(path, CatalogFileName)
	if err != nil {
		return nil, "", err
	}
	if resolved == "" {
		return catalog.Default(), "built-in", nil
	}

	registry, err := catalog.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return registry, resolved, nil
}

func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	notifier, err := notify.New(notify.Options{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
		APIURL: cfg.TelegramAPIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	return notifier, nil
}

// setupLogging configures a JSON slog logger writing to stdout and, when
// logPath is set, to that file as well. The returned func closes the file.
func setupLogging(logPath string, level slog.Level) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), closeFn, nil
}
