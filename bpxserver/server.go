// Package bpxserver assembles the BPX core into a runnable server:
// configuration, a builder, a request entry point, and the periodic
// session-cleanup loop described in spec § 4.7.
package bpxserver

import (
	"sync"
	"time"

	"github.com/buyukakyuz/bpx"
	"github.com/buyukakyuz/bpx/diff"
	"github.com/buyukakyuz/bpx/pipeline"
	"github.com/buyukakyuz/bpx/protocol"
	"github.com/buyukakyuz/bpx/resource"
	"github.com/buyukakyuz/bpx/state"
)

// Server is a thin façade over the pipeline: it owns the cleanup task
// driven by config.CleanupInterval and exposes HandleRequest as the
// single entry point.
type Server struct {
	config    bpx.Config
	sessions  state.Store
	resources resource.Store
	engine    diff.Engine
	pipeline  *pipeline.Pipeline

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// Builder configures a Server before construction, mirroring the
// teacher's own builder-style New(config...) constructors.
type Builder struct {
	config    *bpx.Config
	sessions  state.Store
	resources resource.Store
	engine    diff.Engine
	logger    pipeline.Logger
}

// NewBuilder starts a fresh Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the server configuration.
func (b *Builder) WithConfig(cfg bpx.Config) *Builder {
	b.config = &cfg
	return b
}

// WithSessions sets the session store implementation.
func (b *Builder) WithSessions(s state.Store) *Builder {
	b.sessions = s
	return b
}

// WithResources sets the resource store implementation.
func (b *Builder) WithResources(r resource.Store) *Builder {
	b.resources = r
	return b
}

// WithEngine sets the diff engine implementation.
func (b *Builder) WithEngine(e diff.Engine) *Builder {
	b.engine = e
	return b
}

// WithLogger sets the pipeline's diagnostic logger.
func (b *Builder) WithLogger(l pipeline.Logger) *Builder {
	b.logger = l
	return b
}

// Build assembles a Server, defaulting unset fields: DefaultConfig,
// an in-memory session store using the config's session TTL (no
// capacity bound, no background sweep of its own), an in-memory resource
// store, and the default line-level diff engine.
func (b *Builder) Build() (*Server, error) {
	cfg := bpx.DefaultConfig()
	if b.config != nil {
		cfg = *b.config
	}

	sessions := b.sessions
	if sessions == nil {
		sessions = state.NewInMemoryStore(cfg.SessionTTL, 0)
	}

	resources := b.resources
	if resources == nil {
		resources = resource.New()
	}

	engine := b.engine
	if engine == nil {
		engine = diff.NewLineEngineWithRatio(cfg.ClampedMinCompressionRatio())
	}

	p := pipeline.New(cfg, sessions, resources, engine)
	if b.logger != nil {
		p.Logger = b.logger
	}

	return &Server{
		config:    cfg,
		sessions:  sessions,
		resources: resources,
		engine:    engine,
		pipeline:  p,
	}, nil
}

// HandleRequest runs the request pipeline.
func (s *Server) HandleRequest(req *protocol.Request) (*protocol.Response, error) {
	return s.pipeline.HandleRequest(req)
}

// Config returns the server's configuration.
func (s *Server) Config() bpx.Config {
	return s.config
}

// Resources returns the resource store, so external collaborators can
// publish and mutate current content.
func (s *Server) Resources() resource.Store {
	return s.resources
}

// Sessions returns the session store, for diagnostics such as /stats.
func (s *Server) Sessions() state.Store {
	return s.sessions
}

// CleanupExpiredSessions performs one TTL sweep immediately.
func (s *Server) CleanupExpiredSessions() {
	s.sessions.CleanupExpired()
}

// StartCleanupLoop launches a goroutine that calls
// CleanupExpiredSessions every config.CleanupInterval, until Stop is
// called.
func (s *Server) StartCleanupLoop() {
	if s.config.CleanupInterval <= 0 {
		return
	}
	s.stopCleanup = make(chan struct{})
	ticker := time.NewTicker(s.config.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CleanupExpiredSessions()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

// Stop ends the cleanup loop, if running.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
		}
	})
}
