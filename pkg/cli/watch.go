package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/cache"
	"github.com/platinummonkey/protorules/pkg/observability"
)

func newWatchCommand(streams Streams) *Command {
	cmd := &Command{
		Name:        "watch",
		Description: "Recompile protobuf files in a directory whenever they change",
		Flags:       flag.NewFlagSet("watch", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(streams.Err)

	var cf compilerFlags
	cf.register(cmd.Flags)
	dir := cmd.Flags.String("dir", ".", "Directory containing protobuf files")
	metricsAddr := cmd.Flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	rescan := cmd.Flags.String("rescan", "", "Cron schedule for full directory rescans, e.g. \"@every 5m\"")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if info, err := os.Stat(*dir); err != nil || !info.IsDir() {
			return fmt.Errorf("not a directory: %s", *dir)
		}

		cfg, err := cf.load(cmd.Flags)
		if err != nil {
			return err
		}
		if *metricsAddr != "" {
			cfg.Observability.MetricsEnabled = true
			cfg.Observability.MetricsAddr = *metricsAddr
		}
		if *rescan != "" {
			cfg.Watch.Rescan = *rescan
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		svc, err := newService(ctx, cfg, streams)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			svc.close(ctx)
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := setupWatcher(watcher, *dir); err != nil {
			watcher.Close()
			svc.close(ctx)
			return fmt.Errorf("failed to setup watcher: %w", err)
		}

		var server *http.Server
		if cfg.Observability.MetricsEnabled {
			mux := http.NewServeMux()
			observability.RegisterMetricsEndpoint(mux, svc.registry)
			var bound net.Addr
			server, bound, err = svc.listen(cfg.Observability.MetricsAddr, "metrics", mux)
			if err != nil {
				watcher.Close()
				svc.close(ctx)
				return err
			}
			svc.log.Infof("Serving metrics on %s/metrics", bound)
		}

		shutdown := observability.NewShutdownManager(svc.logger, server, 5*time.Second)
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return watcher.Close()
		})
		defer svc.close(ctx)

		w := &schemaWatcher{cache: svc.cache, log: svc.log, panicLogger: svc.logger}
		w.scan(ctx, *dir)

		if cfg.Watch.Rescan != "" {
			scheduler := cron.New()
			if _, err := scheduler.AddFunc(cfg.Watch.Rescan, func() {
				defer observability.RecoverPanic(svc.logger, "rescan")
				svc.log.Debug("Rescanning proto files")
				w.scan(ctx, *dir)
			}); err != nil {
				_ = shutdown.Shutdown(ctx)
				return fmt.Errorf("invalid rescan schedule: %w", err)
			}
			scheduler.Start()
			shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
				select {
				case <-scheduler.Stop().Done():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			svc.log.Infof("Rescanning %s on schedule %q", *dir, cfg.Watch.Rescan)
		}

		svc.log.Infof("Started watching for proto file changes in %s", *dir)

		err = w.run(ctx, watcher)
		if shutdownErr := shutdown.Shutdown(ctx); shutdownErr != nil {
			svc.log.WithError(shutdownErr).Warn("Shutdown incomplete")
		}
		return err
	}

	return cmd
}

// schemaWatcher recompiles proto files through the cache as they change
type schemaWatcher struct {
	cache       *cache.CompiledCache
	log         *logrus.Entry
	panicLogger *observability.Logger
}

// run processes watcher events until ctx is cancelled
func (w *schemaWatcher) run(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopped watching")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("Watcher error")
		}
	}
}

func (w *schemaWatcher) handle(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	defer observability.RecoverPanic(w.panicLogger, "watch event")

	// Only care about write and create events for .proto files
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && filepath.Ext(event.Name) == ".proto" {
		w.recompile(ctx, event.Name)
	}

	// Also watch new directories
	if event.Op&fsnotify.Create != 0 {
		fi, err := os.Stat(event.Name)
		if err == nil && fi.IsDir() {
			w.log.WithField("dir", event.Name).Info("New directory")
			if err := setupWatcher(watcher, event.Name); err != nil {
				w.log.WithError(err).Error("Error watching new directory")
			}
		}
	}
}

// scan compiles every proto file already present under root
func (w *schemaWatcher) scan(ctx context.Context, root string) {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".proto" {
			w.recompile(ctx, path)
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Warn("Error scanning for existing proto files")
	}
}

func (w *schemaWatcher) recompile(ctx context.Context, path string) {
	entry := w.log.WithField("file", path)

	source, err := os.ReadFile(path)
	if err != nil {
		entry.WithError(err).Error("Failed to read proto file")
		return
	}

	set, err := w.cache.Get(ctx, string(source))
	var parseErr *protobuf.SchemaParseError
	if errors.As(err, &parseErr) {
		// The cache parses sources without their path
		entry.WithFields(logrus.Fields{
			"line":   parseErr.Line,
			"column": parseErr.Column,
		}).WithError(parseErr.Cause()).Errorf("Compilation failed at %s:%d:%d", path, parseErr.Line, parseErr.Column)
		return
	}
	if err != nil {
		entry.WithError(err).Error("Compilation failed")
		return
	}

	stats := w.cache.Stats()
	entry.WithFields(logrus.Fields{
		"messages":   set.Names(),
		"cache_hits": stats.Hits,
	}).Info("Compiled schema")
}

// setupWatcher recursively adds all directories to the watcher
func setupWatcher(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
