package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"progcal/internal/capture"
	"progcal/internal/catalog"
	"progcal/internal/config"
	"progcal/internal/grid"
	appLog "progcal/internal/log"
	"progcal/internal/model"
	"progcal/internal/recur"
	"progcal/internal/register"
	"progcal/internal/termview"
	"progcal/internal/web"
)

const shutdownTimeout = 10 * time.Second

type flagConfig struct {
	configPath string
	listen     string
	print      string
	snapshot   string
	month      string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.Configure(appLog.Format(conf.LogFormat), appLog.Level(conf.LogLevel))
	defer appLog.Sync()

	appLog.Info("progcal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"catalog_path", conf.CatalogPath,
		"catalog_url", conf.CatalogURL != "",
		"registration_url", conf.RegistrationURL != "",
		"overlap_policy", conf.OverlapPolicy,
		"show_overflow_events", conf.ShowOverflowEvents,
	)

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	programs, err := loadCatalog(ctx, conf)
	if err != nil {
		appLog.Error("failed to load catalog", err)
		os.Exit(1)
	}

	if flags.print != "" {
		if err := printMonth(conf, programs, loc, flags.print); err != nil {
			appLog.Error("print failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, conf, programs, loc, flags); err != nil {
		appLog.Error("progcal stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("progcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./progcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.print, "print", "", "Print the grid for YYYY-MM (or \"now\") to the terminal and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG of the month view to this path and exit")
	flag.StringVar(&cfg.month, "month", "", "Month for -snapshot as YYYY-MM (default: current month)")

	flag.Parse()

	return cfg
}

// loadCatalog prefers the remote catalog, then a file, then the embedded
// default.
func loadCatalog(ctx context.Context, conf *config.Config) ([]model.Program, error) {
	var (
		res    catalog.Result
		err    error
		source string
	)
	switch {
	case conf.CatalogURL != "":
		source = "url"
		res, err = catalog.NewFetcher(conf.CatalogCacheDir).Fetch(ctx, conf.CatalogURL)
	case conf.CatalogPath != "":
		source = conf.CatalogPath
		res, err = catalog.LoadFile(conf.CatalogPath)
	default:
		source = "embedded"
		res, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}
	if len(res.Programs) == 0 {
		return nil, errors.New("catalog contains no usable programs")
	}
	appLog.Info("catalog loaded", "source", source, "programs", len(res.Programs), "skipped", len(res.Skipped))
	return res.Programs, nil
}

func resolveMonth(raw string, loc *time.Location) (model.Month, error) {
	if raw == "" || raw == "now" {
		return model.MonthOf(time.Now().In(loc)), nil
	}
	return model.ParseMonth(raw)
}

func printMonth(conf *config.Config, programs []model.Program, loc *time.Location, raw string) error {
	m, err := resolveMonth(raw, loc)
	if err != nil {
		return err
	}
	mapper := recur.Mapper{Policy: recur.ParsePolicy(conf.OverlapPolicy)}
	view := grid.Render(programs, mapper, m, time.Now().In(loc), grid.WithOverflowEvents(conf.ShowOverflowEvents))
	return termview.Print(os.Stdout, view)
}

// run serves HTTP until ctx is cancelled. With -snapshot it captures one
// month once the server is up and returns.
func run(ctx context.Context, conf *config.Config, programs []model.Program, loc *time.Location, flags flagConfig) error {
	submitter := register.NewHTTPSubmitter(conf.RegistrationURL, conf.SubmitTimeout())
	sessions := register.NewSessions(submitter, conf.SessionTTL())

	srv, err := web.NewServer(conf, programs, sessions)
	if err != nil {
		return err
	}

	sched, err := startScheduler(conf, loc, srv, sessions)
	if err != nil {
		return err
	}
	defer func() {
		<-sched.Stop().Done()
	}()

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var runErr error
	if flags.snapshot != "" {
		runErr = snapshot(ctx, conf, loc, flags)
	} else {
		select {
		case <-ctx.Done():
			appLog.Info("signal received, shutting down")
		case err := <-serverErrCh:
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server shutdown failed", err)
	} else {
		appLog.Info("server shutdown complete")
	}
	return runErr
}

func startScheduler(conf *config.Config, loc *time.Location, srv *web.Server, sessions *register.Sessions) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(conf.CacheResetCron, srv.ResetCache); err != nil {
		return nil, fmt.Errorf("cache_reset_cron %q: %w", conf.CacheResetCron, err)
	}
	if _, err := c.AddFunc(conf.SessionPruneCron, func() {
		sessions.Prune(time.Now())
	}); err != nil {
		return nil, fmt.Errorf("session_prune_cron %q: %w", conf.SessionPruneCron, err)
	}

	c.Start()
	appLog.Info("scheduler started", "cache_reset", conf.CacheResetCron, "session_prune", conf.SessionPruneCron)
	return c, nil
}

func snapshot(ctx context.Context, conf *config.Config, loc *time.Location, flags flagConfig) error {
	m, err := resolveMonth(flags.month, loc)
	if err != nil {
		return err
	}
	if err := waitHealthy(ctx, "http://"+conf.Listen+"/health"); err != nil {
		return err
	}
	return capture.MonthPNG(ctx, capture.Options{
		BaseURL:    "http://" + conf.Listen,
		Month:      m,
		OutputPath: flags.snapshot,
	})
}

// waitHealthy polls url until it answers 200 or a few seconds pass.
func waitHealthy(ctx context.Context, url string) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s not ready", url)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
