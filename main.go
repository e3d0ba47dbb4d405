package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"zillow-scraper/config"
	"zillow-scraper/utils"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0

	switch cmd := os.Args[1]; cmd {
	case "help", "-h", "--help":
		usage(os.Stdout)
	case "pages", "details", "all", "report":
		code = run(ctx, cmd, os.Args[2:])
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		code = 2
	}

	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `usage: zillow-scraper <command> [flags]

commands:
  pages     walk the search catalog and write the base dataset
  details   enrich the base dataset from listing detail pages (resumable)
  all       pages, then details
  report    print insights over the enriched dataset

Run "zillow-scraper <command> -h" for flags. Every flag also has an
environment variable; a .env file and a YAML file (-config) are read too.
`)
}

func run(ctx context.Context, cmd string, args []string) int {
	cfg, err := config.Load(configPathFromArgs(args))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.String("config", "", "YAML config file (env: CONFIG_FILE)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Search catalog URL of page 1 (env: BASE_URL)")
	fs.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "Page cap, 0 walks until the catalog ends (env: MAX_PAGES)")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Attempts per URL (env: MAX_RETRIES)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Timeout per attempt (env: REQUEST_TIMEOUT)")
	fs.DurationVar(&cfg.PageDelay, "page-delay", cfg.PageDelay, "Pause between search pages (env: PAGE_DELAY)")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", cfg.RateLimitRPS, "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "Single proxy endpoint host:port (env: PROXY)")
	fs.StringVar(&cfg.ProxyFile, "proxy-file", cfg.ProxyFile, "Newline-delimited proxy pool file (env: PROXY_FILE)")
	fs.StringVar(&cfg.FetchMode, "fetch-mode", cfg.FetchMode, "http or browser (env: FETCH_MODE)")
	fs.StringVar(&cfg.BaseCSVPath, "base-csv", cfg.BaseCSVPath, "Base dataset path (env: BASE_CSV_PATH)")
	fs.StringVar(&cfg.EnrichedCSVPath, "enriched-csv", cfg.EnrichedCSVPath, "Enriched dataset path (env: ENRICHED_CSV_PATH)")
	fs.StringVar(&cfg.CheckpointMode, "checkpoint-mode", cfg.CheckpointMode, "rewrite or append (env: CHECKPOINT_MODE)")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "Attempt log file, empty for stdout only (env: LOG_PATH)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env: LOG_LEVEL)")
	fs.BoolVar(&cfg.PostgresEnabled, "postgres", cfg.PostgresEnabled, "Mirror datasets into PostgreSQL (env: POSTGRES_ENABLED)")
	source := fs.String("source", "csv", "report input: csv or postgres")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	if cmd == "report" && *source != "csv" && *source != "postgres" {
		_, _ = fmt.Fprintf(os.Stderr, "config error: unknown report source %q\n", *source)
		return 2
	}

	outputs := []io.Writer{os.Stdout}
	if cfg.LogPath != "" {
		if dir := filepath.Dir(cfg.LogPath); dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "config error: open log file: %v\n", err)
			return 2
		}
		defer logFile.Close()
		outputs = append(outputs, logFile)
	}
	logger := utils.NewLogger(outputs...).With("run", uuid.NewString()[:8])
	if !logger.SetLevel(cfg.LogLevel) {
		logger.Warn("Unknown log level %q, keeping info", cfg.LogLevel)
	}
	if !cfg.EnvFileLoaded {
		logger.Debug("[config] No .env file found, using environment and defaults")
	}

	a := newApp(cfg, logger)
	defer a.close()

	logger.Info("=== Zillow scraper: %s ===", cmd)
	switch cmd {
	case "pages":
		err = a.pages(ctx)
	case "details":
		err = a.details(ctx)
	case "all":
		if err = a.pages(ctx); err == nil {
			err = a.details(ctx)
		}
	case "report":
		err = a.report(ctx, *source)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		logger.Warn("Interrupted; everything persisted so far is kept. Re-run the same command to resume.")
		return 130
	default:
		logger.Error("%s failed: %v", cmd, err)
		return 1
	}
}

// configPathFromArgs finds -config before the flag set is built, since the
// file supplies the flag defaults.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
