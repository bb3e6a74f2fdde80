package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-pulse/internal/config"
	"github.com/samvad-hq/samvad-pulse/internal/logger"
	"github.com/samvad-hq/samvad-pulse/internal/probe"
	"github.com/samvad-hq/samvad-pulse/internal/storage"
	"github.com/samvad-hq/samvad-pulse/pkg/checks"
	"github.com/samvad-hq/samvad-pulse/pkg/requester"
	"github.com/samvad-hq/samvad-pulse/pkg/sinks"
	"github.com/samvad-hq/samvad-pulse/pkg/targets"
)

// Monitor represents the pulse monitoring runtime. It manages the probe
// loop, coordinating between the target registry, the probe service, and
// the alert sinks. It also handles storage initialization and cleanup.
type Monitor struct {
	cfg           *config.Config
	fanout        *sinks.Fanout
	probeService  *probe.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewMonitor builds a monitor runtime from config files.
func NewMonitor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The shared session used by every probe and ad-hoc request.
	requester.Configure(requester.SessionConfig{Timeout: cfg.RequestTimeout})
	requester.SetLogger(log)

	if err := targets.LoadTargets(cfg.TargetsFile); err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	targetList := targets.Targets()
	targetIDs := make([]string, 0, len(targetList))
	for _, t := range targetList {
		targetIDs = append(targetIDs, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(targetIDs),
		"ids":   targetIDs,
	})

	sinkReg, err := sinks.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabledSinks := sinkReg.Enabled()
	if len(enabledSinks) == 0 {
		return nil, fmt.Errorf("no sinks configured")
	}

	sinkClients, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabledSinks, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	fanout := sinks.NewFanout(sinkClients)
	sinkSummaries := make([]map[string]string, 0, len(enabledSinks))
	for _, sinkCfg := range enabledSinks {
		sinkSummaries = append(sinkSummaries, map[string]string{
			"id":   sinkCfg.ID,
			"type": sinkCfg.Type,
		})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})

	storeOpts := storage.Options{
		SampleTTL:       cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"history_ttl_seconds":      int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	probeService := probe.NewService(checks.DefaultRegistry(), fanout, log, store)

	return &Monitor{
		cfg:           cfg,
		fanout:        fanout,
		probeService:  probeService,
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
	}, nil
}

// Run starts the probe loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil || m.probeService == nil {
		return fmt.Errorf("monitor is not initialized")
	}
	defer m.closeStore()
	tgts := m.applyDefaults(targets.Targets())
	if len(tgts) == 0 {
		m.log.WarnObj("no targets configured; monitor idle", "targets_file", m.cfg.TargetsFile)
		<-ctx.Done()
		return ctx.Err()
	}

	m.log.InfoObj("monitor loop starting", "monitor_state", map[string]any{
		"targets_count":  len(tgts),
		"sinks_count":    m.fanout.Size(),
		"probe_interval": m.probeInterval.String(),
	})

	if err := m.runOnce(ctx, tgts); err != nil {
		m.log.ErrorObj("initial probe pass failed", "error", err)
	}

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("monitor loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := m.runOnce(ctx, tgts); err != nil {
				m.log.ErrorObj("scheduled probe pass failed", "error", err)
			}
		}
	}
}

// runOnce performs a single probe pass across all targets.
func (m *Monitor) runOnce(ctx context.Context, tgts []targets.Target) error {
	start := time.Now()
	m.log.InfoObj("probe pass started", "pass_meta", map[string]any{
		"targets_count": len(tgts),
		"started_at":    start.UTC(),
	})
	if err := m.probeService.Run(ctx, tgts); err != nil {
		return err
	}
	m.log.InfoObj("probe pass completed", "pass_meta", map[string]any{
		"targets_count": len(tgts),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// applyDefaults fills per-target settings from the global config. Targets
// that do not set their own retry budget inherit max_retries.
func (m *Monitor) applyDefaults(tgts []targets.Target) []targets.Target {
	for i := range tgts {
		if tgts[i].Retries == 0 {
			tgts[i].Retries = m.cfg.MaxRetries
		}
	}
	return tgts
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (m *Monitor) closeStore() {
	if m == nil || m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		m.log.ErrorObj("storage close failed", "error", err)
	}
}
