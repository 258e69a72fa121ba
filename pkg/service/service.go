// Package service is the heartx translation backend: it turns operator
// phrases into commands (LLM first, phrase table second), simulates their
// output and keeps an in-memory history that browsers and terminals can
// stream.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/miniheartx/heartx/pkg/audit"
	"github.com/miniheartx/heartx/pkg/bus"
	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/providers"
	"github.com/miniheartx/heartx/pkg/session"
)

const (
	DefaultHistoryLimit = 50
	DefaultLLMTimeout   = 8 * time.Second
	maxRequestBody      = 64 << 10
	shutdownGrace       = 5 * time.Second
)

type Options struct {
	Listen         string
	AllowedOrigins []string
	// HistoryLimit is the default page size of GET /api/history.
	HistoryLimit int
	// CatalogPath, when set, is loaded at start and watched for edits.
	CatalogPath string
	Catalog     *catalog.Catalog
	// TranscriptPath, when set, receives every entry as JSONL.
	TranscriptPath string
	// Provider is nil for rules-only translation.
	Provider   providers.LLMProvider
	LLMTimeout time.Duration
	Now        func() time.Time
	NewID      func() string
}

type Service struct {
	opts     Options
	catalog  atomic.Pointer[catalog.Catalog]
	provider providers.LLMProvider
	history  *session.History
	bus      *bus.EntryBus
	hub      *hub
}

func New(opts Options) (*Service, error) {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "cmd_" + uuid.NewString() }
	}

	cat := opts.Catalog
	if opts.CatalogPath != "" {
		loaded, err := catalog.Load(opts.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	if cat == nil {
		cat = catalog.Default()
	}

	s := &Service{
		opts:     opts,
		provider: opts.Provider,
		history:  session.NewHistory(),
		bus:      bus.NewEntryBus(),
		hub:      newHub(opts.AllowedOrigins),
	}
	s.catalog.Store(cat)
	return s, nil
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog.Load()
}

func (s *Service) setCatalog(c *catalog.Catalog) {
	s.catalog.Store(c)
}

func (s *Service) History() *session.History {
	return s.history
}

// Run listens on Options.Listen until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server, the stream broadcaster and the catalog
// watcher on ln until ctx ends or one of them fails.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	var sink *audit.JSONLSink
	if s.opts.TranscriptPath != "" {
		var err error
		if sink, err = audit.NewJSONLSink(s.opts.TranscriptPath); err != nil {
			ln.Close()
			return err
		}
		defer sink.Close()
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoCF("service", "Listening", map[string]interface{}{
			"addr":     ln.Addr().String(),
			"provider": providerName(s.provider),
		})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.hub.closeAll()
		s.bus.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		for {
			e, ok := s.bus.Consume(gctx)
			if !ok {
				break
			}
			s.hub.broadcast(e)
			if sink != nil {
				_ = sink.Write("service", e)
			}
		}
		if sink != nil {
			for _, e := range s.bus.Drain() {
				_ = sink.Write("service", e)
			}
		}
		return nil
	})

	if s.opts.CatalogPath != "" {
		g.Go(func() error {
			if err := watchCatalogFile(gctx, s.opts.CatalogPath, s.setCatalog); err != nil {
				// Keep serving the catalog loaded at start.
				logger.WarnCF("service", "Catalog watcher stopped", map[string]interface{}{"error": err.Error()})
			}
			return nil
		})
	}

	err := g.Wait()
	logger.InfoCF("service", "Stopped", nil)
	return err
}

var watchCatalogFile = catalog.Watch

func providerName(p providers.LLMProvider) string {
	if p == nil {
		return "rules"
	}
	return fmt.Sprintf("%T", p)
}
