// Package server implements the development server: it serves the build
// output over HTTP, owns the build pipeline and the file watcher, and keeps
// the site reachable while a rebuild is rewriting the tree underneath it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"github.com/stanza-dev/stanza/internal/build"
	"github.com/stanza-dev/stanza/internal/config"
	"github.com/stanza-dev/stanza/internal/logging"
	"github.com/stanza-dev/stanza/internal/watcher"
)

// Source file extensions that affect build output and therefore qualify
// for rebuild triggers.
var watchedExtensions = []string{".html", ".css", ".js", ".go"}

// Builder runs one site build. *build.Pipeline is the production
// implementation; tests substitute their own.
type Builder interface {
	Run(ctx context.Context) build.Outcome
}

// DevServer serves the build root with hot reload. Rebuilds run on a single
// worker goroutine behind a one-deep pending slot: triggers arriving while
// a build is in flight coalesce into at most one follow-up build.
type DevServer struct {
	cfg     *config.Config
	logger  logging.Logger
	builder Builder
	watcher *watcher.FileWatcher

	httpServer *http.Server

	pending chan struct{}

	clients      map[*websocket.Conn]struct{}
	clientsMutex sync.Mutex

	rebuildWG    sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a development server for the given configuration.
func New(cfg *config.Config, logger logging.Logger) *DevServer {
	srv := &DevServer{
		cfg:     cfg,
		logger:  logger.WithComponent("server"),
		builder: build.New(cfg, logger),
		pending: make(chan struct{}, 1),
		clients: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/__stanza/reload", srv.handleReload)
	mux.HandleFunc("/", srv.handleSite)
	srv.httpServer = &http.Server{Handler: mux}

	return srv
}

// Start runs the initial build (unless skipped), starts the watcher, binds
// the listener, and serves until the context is cancelled. It returns once
// serving has stopped.
func (s *DevServer) Start(ctx context.Context) error {
	if !s.cfg.Development.SkipInitialBuild {
		s.logger.Info(ctx, "building site on startup")
		outcome := s.builder.Run(ctx)
		if !outcome.Success {
			s.logger.Warn(ctx, nil, "initial build failed, serving whatever is present")
		}
	}

	if err := s.checkBuildDir(ctx); err != nil {
		return err
	}

	if s.cfg.Development.HotReload {
		if err := s.setupWatcher(ctx); err != nil {
			// Hot reload is a convenience; the server still works without it.
			s.logger.Warn(ctx, err, "could not set up file watching, hot reload disabled")
			s.watcher = nil
		}
	}

	s.rebuildWG.Add(1)
	go s.rebuildLoop(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use, try a different port or stop the other server: %w", s.cfg.Server.Port, err)
		}
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	s.logger.Info(ctx, "development server running",
		"url", fmt.Sprintf("http://%s", ln.Addr()),
		"build_dir", s.cfg.Site.BuildDir,
		"hot_reload", s.watcher != nil)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown tears the server down in order: stop the watcher so no new
// triggers arrive, wait for any in-flight rebuild to finish, then close the
// HTTP listener and the reload sockets.
func (s *DevServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.watcher != nil {
			if stopErr := s.watcher.Stop(); stopErr != nil {
				s.logger.Warn(ctx, stopErr, "stopping file watcher")
			}
		}

		s.rebuildWG.Wait()
		s.closeClients()

		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// checkBuildDir verifies the build root exists; a missing homepage is only
// worth a warning.
func (s *DevServer) checkBuildDir(ctx context.Context) error {
	info, err := os.Stat(s.cfg.Site.BuildDir)
	if err != nil {
		return fmt.Errorf("build directory %q not found, run a build first: %w", s.cfg.Site.BuildDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q exists but is not a directory", s.cfg.Site.BuildDir)
	}
	if _, err := os.Stat(filepath.Join(s.cfg.Site.BuildDir, "index.html")); err != nil {
		s.logger.Warn(ctx, nil, "no index.html in build directory, the site may not have a homepage")
	}
	return nil
}

func (s *DevServer) setupWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.cfg.Development.Debounce)
	if err != nil {
		return err
	}

	fw.AddFilter(watcher.ExcludeDirFilter(s.cfg.Site.BuildDir))
	fw.AddFilter(watcher.ExtensionFilter(watchedExtensions...))

	for _, root := range []string{s.cfg.Site.PagesDir, s.cfg.Site.TemplatesDir, s.cfg.Site.DataDir} {
		if err := fw.AddRecursive(root); err != nil {
			fw.Stop()
			return fmt.Errorf("watching %s: %w", root, err)
		}
		s.logger.Info(ctx, "watching for changes", "dir", root)
	}

	fw.Start(ctx)
	s.watcher = fw
	return nil
}

// rebuildLoop is the single rebuild worker. Watcher triggers are folded
// into the one-deep pending slot, so at most one build runs at a time and
// at most one follow-up is queued behind it.
func (s *DevServer) rebuildLoop(ctx context.Context) {
	defer s.rebuildWG.Done()

	var triggers <-chan watcher.ChangeEvent
	if s.watcher != nil {
		triggers = s.watcher.Triggers()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			s.logger.Info(ctx, "change detected, rebuilding", "path", ev.Path, "event", ev.Type.String())
			s.requestRebuild()
		case <-s.pending:
			outcome := s.builder.Run(ctx)
			if outcome.Success {
				s.logger.Info(ctx, "site rebuilt")
				s.broadcastReload(ctx)
			} else {
				s.logger.Warn(ctx, nil, "site rebuild failed")
			}
		}
	}
}

// requestRebuild records a rebuild request in the pending slot. If a
// request is already queued the new one coalesces into it.
func (s *DevServer) requestRebuild() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}
