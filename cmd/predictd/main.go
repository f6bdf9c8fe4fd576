package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"predictd/internal/config"
	"predictd/internal/httpapi"
	"predictd/internal/journal"
	"predictd/internal/logging"
	"predictd/internal/manager"
)

const shutdownTimeout = 5 * time.Second

// flags holds command-line overrides. Only flags that were set on the command
// line are applied over the config file and environment.
type flags struct {
	configPath       string
	addr             string
	modelsDir        string
	modelPath        string
	metadataPath     string
	hostedModelURL   string
	workers          int
	maxQueueDepth    int
	maxWaitMS        int
	predictTimeoutMS int
	maxBodyBytes     int64
	watch            bool
	cacheDir         string
	journalPath      string
	logLevel         string
	logFormat        string
	logFile          string
	requestLog       string
	corsOrigins      string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "predictd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("predictd", flag.ContinueOnError)
	var f flags
	// Flags with environment variable defaults
	fs.StringVar(&f.configPath, "config", os.Getenv("PREDICTD_CONFIG"), "Config file (.yaml, .json or .toml)")
	fs.StringVar(&f.addr, "addr", config.DefaultAddr, "HTTP listen address")
	fs.StringVar(&f.modelsDir, "models-dir", "", "Directory of model bundles, one service per bundle")
	fs.StringVar(&f.modelPath, "model-path", "", "Single model bundle served at /predict")
	fs.StringVar(&f.metadataPath, "metadata-path", "", "Metadata overlay applied to bundles")
	fs.StringVar(&f.hostedModelURL, "hosted-model-url", "", "Hosted model proxied at /predict")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent predictions per service (0=default)")
	fs.IntVar(&f.maxQueueDepth, "max-queue-depth", 0, "Requests admitted per service before 429 (0=default)")
	fs.IntVar(&f.maxWaitMS, "max-wait-ms", 0, "Max wait for a worker slot in ms (0=default)")
	fs.IntVar(&f.predictTimeoutMS, "predict-timeout-ms", 0, "Per-request predict timeout in ms (0=none)")
	fs.Int64Var(&f.maxBodyBytes, "max-body-bytes", 0, "Request body limit in bytes (0=default)")
	fs.BoolVar(&f.watch, "watch", false, "Reload bundles when their files change")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "Directory for bundles fetched over HTTP")
	fs.StringVar(&f.journalPath, "journal", "", "SQLite prediction journal path (empty disables)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error|off")
	fs.StringVar(&f.logFormat, "log-format", "", "json|console")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	fs.StringVar(&f.requestLog, "request-log", "", "Default per-request log level: off|error|info|debug")
	fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := resolveConfig(fs, f)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	specs, err := cfg.ServiceSpecs()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer store.Close()
	}

	mcfg := manager.ManagerConfig{
		Services:      specs,
		Workers:       cfg.Workers,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		DrainTimeout:  cfg.DrainTimeout(),
		Watch:         cfg.Watch,
		CacheDir:      cfg.CacheDir,
		Logger:        &logger,
		Publisher:     manager.LogPublisher{Log: logger},
	}
	if store != nil {
		mcfg.Recorder = store
	}
	mgr, err := manager.NewWithConfig(mcfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(ctx)
	httpapi.SetDefaultLogLevel(cfg.Log.Requests)
	httpapi.SetPredictTimeout(cfg.PredictTimeout())
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	if store != nil {
		httpapi.SetJournal(store)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Int("services", len(specs)).Msg("predictd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Failed services stay mounted and answer 503; keep serving the rest.
	if err := mgr.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("some services failed to load")
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err, ok := <-serveErr:
		if ok && err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// resolveConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order.
func resolveConfig(fs *flag.FlagSet, f flags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		c, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "addr":
			cfg.Addr = f.addr
		case "models-dir":
			cfg.ModelsDir = f.modelsDir
		case "model-path":
			cfg.ModelPath = f.modelPath
		case "metadata-path":
			cfg.MetadataPath = f.metadataPath
		case "hosted-model-url":
			cfg.HostedModelURL = f.hostedModelURL
		case "workers":
			cfg.Workers = f.workers
		case "max-queue-depth":
			cfg.MaxQueueDepth = f.maxQueueDepth
		case "max-wait-ms":
			cfg.MaxWaitMS = f.maxWaitMS
		case "predict-timeout-ms":
			cfg.PredictTimeoutMS = f.predictTimeoutMS
		case "max-body-bytes":
			cfg.MaxBodyBytes = f.maxBodyBytes
		case "watch":
			cfg.Watch = f.watch
		case "cache-dir":
			cfg.CacheDir = f.cacheDir
		case "journal":
			cfg.JournalPath = f.journalPath
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		case "log-file":
			cfg.Log.File = f.logFile
		case "request-log":
			cfg.Log.Requests = f.requestLog
		case "cors-origins":
			cfg.CORS.Origins = splitCSV(f.corsOrigins)
			cfg.CORS.Enabled = len(cfg.CORS.Origins) > 0
		}
	})
	cfg.ApplyDefaults()
	return cfg, nil
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
