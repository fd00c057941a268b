// Command probed runs a compliance-probe collection cache: it loads
// configuration, starts the item cache's worker, wires up any enabled
// ingest sources and the bundled filesystem/package probe, serves the
// HTTP status/metrics/alerts API, and on SIGINT/SIGTERM drains the
// cache before exiting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"probevault/internal/alerts"
	"probevault/internal/api"
	"probevault/internal/config"
	"probevault/internal/filter"
	"probevault/internal/icache"
	"probevault/internal/ingest"
	"probevault/internal/logging"
	"probevault/internal/metrics"
	"probevault/internal/probe"
	"probevault/internal/probeitem"
	"probevault/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath  = flag.String("config", "probevault.yaml", "path to config file")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("probed version %s\n", Version)
		os.Exit(0)
	}

	path := config.ResolvePath(*configPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "probed: failed to write default config: %v\n", err)
			os.Exit(1)
		}
	}

	cfgManager, err := config.NewManager(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probed: failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, Version)
	logger.Info("probed starting", "version", Version, "config", path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := icache.New(icache.Options{
		QueueCapacity: cfg.Cache.QueueCapacity,
		IndexCapacity: cfg.Cache.IndexCapacity,
		Logger:        logger,
	})

	dest := probeitem.NewSliceCollectedObject()
	metricsStore := metrics.NewStore(cfg.Metrics.StoreLimit)
	alertsStore := alerts.NewStore(cfg.Alerts.StoreLimit)

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			logger.Error("storage schema init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	filterSet := filter.Build(filter.Config{
		ExcludePathPrefixes: cfg.Filter.ExcludePathPrefixes,
		ExcludePackageNames: cfg.Filter.ExcludePackageNames,
		MinFileSize:         cfg.Filter.MinFileSize,
	})

	sink := &ingest.Sink{Cache: cache, Dest: dest, Filter: filterSet, Logger: logger}
	ingest.StartREST(ctx, cfgManager, sink, logger)
	ingest.StartFileTail(ctx, cfgManager, sink, logger)
	ingest.StartKafka(ctx, cfgManager, sink, logger)

	control := &runControl{cache: cache, dest: dest, filterSet: filterSet, cfg: cfgManager, logger: logger}
	apiServer := startAPI(ctx, cfgManager, cache, metricsStore, alertsStore, control, logger, Version)
	_ = apiServer

	stopWatch := make(chan struct{})
	go cfgManager.Watch(30*time.Second, func(*config.Config) {
		logger.Info("config reloaded")
	}, func(err error) {
		logger.Warn("config reload failed", "err", err)
	}, stopWatch)
	defer close(stopWatch)

	go reportLoop(ctx, cache, metricsStore, alertsStore, logger)

	if cfg.Probe.Enabled {
		control.runOnce()
	}
	if cfg.Probe.Interval > 0 {
		go probeLoop(ctx, cfgManager, control, logger)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, draining cache")

	var released int
	freed := make(chan struct{})
	go func() {
		cache.Free(func(icache.Item) { released++ })
		close(freed)
	}()
	select {
	case <-freed:
		logger.Info("cache drained", "released", released, "stats", cache.Stats())
	case <-time.After(cfg.Cache.ShutdownDrainMax):
		logger.Warn("cache drain timed out, exiting without waiting for the worker",
			"limit", cfg.Cache.ShutdownDrainMax)
	}

	if store != nil {
		persistItems(context.Background(), store, dest.Items, logger)
	}
}

func probeLoop(ctx context.Context, cfgManager *config.Manager, control *runControl, logger *slog.Logger) {
	for {
		interval := cfgManager.Get().Probe.Interval
		if interval <= 0 {
			interval = time.Hour
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			control.runOnce()
		}
	}
}

func reportLoop(ctx context.Context, cache *icache.Cache, metricsStore *metrics.Store, alertsStore *alerts.Store, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := cache.Stats()
			metricsStore.Record(stats)
			if stats.WorkerDead {
				alertsStore.Add(alerts.Alert{
					Timestamp: time.Now().UTC(),
					Severity:  alerts.SeverityCritical,
					Type:      "worker_dead",
					Message:   "icache worker has stopped",
				})
				logger.Error("icache worker dead", "err", cache.Err())
				return
			}
			if stats.QueueDepth >= stats.QueueCapacity {
				alertsStore.Add(alerts.Alert{
					Timestamp: time.Now().UTC(),
					Severity:  alerts.SeverityWarning,
					Type:      "queue_saturated",
					Message:   "work queue at capacity, producers are back-pressured",
				})
			}
			logger.Debug("cache report", "summary", metricsStore.Summary())
		}
	}
}

func persistItems(ctx context.Context, store storage.Store, items []icache.Item, logger *slog.Logger) {
	for _, item := range items {
		var kind string
		switch item.(type) {
		case *probeitem.FileItem:
			kind = string(probeitem.KindFile)
		case *probeitem.PackageItem:
			kind = string(probeitem.KindPackage)
		default:
			kind = "unknown"
		}
		rec := storage.ItemRecord{
			Stamp:       item.Stamp(),
			Kind:        kind,
			Fingerprint: item.Fingerprint(),
			Payload:     item,
			FirstSeen:   time.Now().UTC(),
		}
		if err := store.SaveItem(ctx, rec); err != nil {
			logger.Warn("persist item failed", "stamp", rec.Stamp, "err", err)
		}
	}
}

// runControl implements api.RunControl, wiring admin-triggered reruns
// and filter updates to the bundled probe.
type runControl struct {
	cache     *icache.Cache
	dest      *probeitem.SliceCollectedObject
	filterSet *filter.Set
	cfg       *config.Manager
	logger    *slog.Logger
}

func (c *runControl) RunNow() {
	c.runOnce()
}

func (c *runControl) UpdateFilter(fc config.FilterConfig) {
	*c.filterSet = *filter.Build(filter.Config{
		ExcludePathPrefixes: fc.ExcludePathPrefixes,
		ExcludePackageNames: fc.ExcludePackageNames,
		MinFileSize:         fc.MinFileSize,
	})
}

func (c *runControl) runOnce() {
	probeCfg := c.cfg.Get().Probe
	packages := make([]probeitem.PackageItem, 0, len(probeCfg.Packages))
	for _, name := range probeCfg.Packages {
		packages = append(packages, probeitem.PackageItem{Name: name})
	}
	run := &probe.Run{
		Cache:    c.cache,
		Dest:     c.dest,
		Filters:  c.filterSet,
		Root:     probeCfg.Root,
		Packages: packages,
		Logger:   c.logger,
	}
	res, err := run.Execute()
	if err != nil {
		c.logger.Error("probe run failed", "err", err)
		return
	}
	c.logger.Info("probe run complete",
		"observed", res.Observed, "filtered", res.Filtered,
		"accepted", res.Accepted, "failed", res.Failed)
}

func startAPI(ctx context.Context, cfgManager *config.Manager, cache *icache.Cache, metricsStore *metrics.Store, alertsStore *alerts.Store, control api.RunControl, logger *slog.Logger, version string) *http.Server {
	return api.Start(ctx, cfgManager, cache, metricsStore, alertsStore, control, logger, version)
}
