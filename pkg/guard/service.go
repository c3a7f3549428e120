// Package guard wires the capture pipeline together: watcher, coalescer,
// dispatcher, engine, staging registry, audit log, and catalog. One Service
// owns the whole lifecycle from startup validation to the shutdown grace
// period.
package guard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcastle/filetrap/pkg/filetrap/auditlog"
	"github.com/rcastle/filetrap/pkg/filetrap/config"
	"github.com/rcastle/filetrap/pkg/filetrap/logging"
	"github.com/rcastle/filetrap/pkg/filetrap/output"
	"github.com/rcastle/filetrap/pkg/filetrap/types"
	"github.com/rcastle/filetrap/pkg/guard/capture"
	"github.com/rcastle/filetrap/pkg/guard/catalog"
	"github.com/rcastle/filetrap/pkg/guard/coalesce"
	"github.com/rcastle/filetrap/pkg/guard/staging"
	"github.com/rcastle/filetrap/pkg/guard/watcher"
)

// Directory names under the backup root.
const (
	StagingDirName = "_staging"
	LogsDirName    = "_logs"
)

// defaultSweepInterval is how often pending paths are checked for staleness.
const defaultSweepInterval = 50 * time.Millisecond

// defaultShutdownGrace bounds how long Run waits for in-flight captures
// after the context is cancelled. Captures still running afterwards are
// orphaned; partially written destinations are left as-is.
const defaultShutdownGrace = 10 * time.Second

// Service runs the capture pipeline for one watch root.
type Service struct {
	cfg       *config.Config
	window    time.Duration
	watcher   *watcher.Watcher
	coalescer *coalesce.Coalescer
	inflight  *capture.InFlight
	engine    *capture.Engine
	registry  *staging.Registry
	audit     *auditlog.Log
	catalog   *catalog.Catalog
	reporter  *output.Reporter
	logger    *logging.Logger

	sweepInterval time.Duration
	shutdownGrace time.Duration

	wg sync.WaitGroup
}

// New builds a Service from validated configuration. cat may be nil when the
// catalog is unavailable; history is then simply not recorded.
func New(cfg *config.Config, cat *catalog.Catalog, reporter *output.Reporter) (*Service, error) {
	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	store, err := staging.NewStore(filepath.Join(cfg.BackupRoot, StagingDirName))
	if err != nil {
		return nil, err
	}

	audit, err := auditlog.New(filepath.Join(cfg.BackupRoot, LogsDirName))
	if err != nil {
		return nil, err
	}

	registry := staging.NewRegistry()
	engine := capture.NewEngine(capture.Config{
		WatchRoot:   cfg.WatchRoot,
		BackupRoot:  cfg.BackupRoot,
		MaxFileSize: maxSize,
		MaxRetries:  cfg.MaxRetries,
	}, store, registry)

	// The backup root is ignored wholesale so captures of captures can never
	// feed back into the pipeline when it nests inside the watched tree.
	w, err := watcher.New(cfg.Exclude, cfg.BackupRoot)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:           cfg,
		window:        time.Duration(cfg.DebounceMS) * time.Millisecond,
		watcher:       w,
		coalescer:     coalesce.New(),
		inflight:      capture.NewInFlight(),
		engine:        engine,
		registry:      registry,
		audit:         audit,
		catalog:       cat,
		reporter:      reporter,
		logger:        logging.Get("guard"),
		sweepInterval: defaultSweepInterval,
		shutdownGrace: defaultShutdownGrace,
	}, nil
}

// Run watches the tree until ctx is cancelled, then waits out the shutdown
// grace period for in-flight captures.
func (s *Service) Run(ctx context.Context) error {
	if err := s.watcher.Watch(s.cfg.WatchRoot); err != nil {
		return err
	}
	defer s.watcher.Close()

	s.reporter.Banner(s.cfg.WatchRoot, s.cfg.BackupRoot)
	s.logger.Info("guard started",
		"watch_root", s.cfg.WatchRoot,
		"backup_root", s.cfg.BackupRoot,
		"debounce_ms", s.cfg.DebounceMS)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.watcher.Run(gctx, s.handleEvent)
		return nil
	})

	g.Go(func() error {
		s.sweepLoop(gctx)
		return nil
	})

	err := g.Wait()

	// New dispatch has stopped with the sweep loop; give in-flight captures
	// a bounded chance to finish.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownGrace):
		s.logger.Warn("shutdown grace period expired, orphaning in-flight captures",
			"active", s.inflight.Active())
	}

	s.logger.Info("guard stopped")
	return err
}

// handleEvent routes one watcher event. Deletions bypass the debounce path
// entirely; everything else restarts the path's quiet window.
func (s *Service) handleEvent(ev types.ChangeEvent) {
	if ev.Kind == types.KindDeleted {
		s.coalescer.Forget(ev.Path)
		s.handleDeleted(ev.Path)
		return
	}

	s.coalescer.Observe(ev.Path, ev.ObservedAt)
}

// sweepLoop periodically promotes stabilized paths to capture dispatch.
func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, path := range s.coalescer.TakeStale(now, s.window) {
				s.dispatch(path)
			}
		}
	}
}

// dispatch claims the path and runs the capture on its own goroutine. A
// second dispatch for a path already in flight is a no-op.
func (s *Service) dispatch(path string) {
	if !s.inflight.TryClaim(path) {
		s.logger.Debug("capture already in progress", "path", path)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Release(path)
		s.runCapture(path)
	}()
}

// runCapture executes one claimed capture and reports its outcome.
func (s *Service) runCapture(path string) {
	res, err := s.engine.Capture(path)
	switch {
	case err == nil && res == nil:
		// Diverted to recovery mid-capture; the recovery goroutine reports.

	case err == nil:
		s.record(*res)
		s.reporter.Captured(*res)
		s.logger.Info("capture finished",
			"path", path, "dest", res.DestPath, "size", res.SizeBytes)

	case errors.Is(err, capture.ErrSourceVanished), errors.Is(err, capture.ErrFileTooLarge):
		s.logger.Info("capture skipped", "path", path, "reason", err)
		s.reporter.Skipped(path, err)

	default:
		s.logger.Error("capture failed", "path", path, "error", err)
		s.reporter.Failed(path, err)
	}
}

// handleDeleted reacts to a deletion notification. If a staging entry is
// still active for the path, its content is salvaged as a recovered
// artifact; otherwise nothing is recoverable and the deletion is only noted.
func (s *Service) handleDeleted(path string) {
	entry, ok := s.registry.Take(path)
	if !ok {
		s.logger.Debug("nothing recoverable for deleted path", "path", path)
		s.reporter.Deleted(path)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		res, err := s.engine.Recover(entry)
		if err != nil {
			s.logger.Error("recovery failed", "path", path, "error", err)
			s.reporter.Failed(path, err)
			return
		}

		s.record(res)
		s.reporter.Recovered(res)
		s.logger.Info("recovered deleted file",
			"path", path, "dest", res.DestPath, "size", res.SizeBytes)
	}()
}

// record persists a finalized capture. Both sinks are best-effort: a write
// failure must never abort the capture that produced the record.
func (s *Service) record(res types.CaptureResult) {
	if err := s.audit.Append(res); err != nil {
		s.logger.Warn("audit log write failed", "dest", res.DestPath, "error", err)
	}

	if s.catalog != nil {
		if err := s.catalog.Put(res); err != nil {
			s.logger.Warn("catalog write failed", "dest", res.DestPath, "error", err)
		}
	}
}
