package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

// HTTPModule mounts its routes on the shared router.
type HTTPModule interface {
	RegisterRoutes(r chi.Router)
}

// GRPCModule registers its services on the shared gRPC server.
type GRPCModule interface {
	RegisterGRPCService(server *grpc.Server)
}

type Option func(*Micro)

// Micro runs lifecycles, an HTTP server and an optional gRPC server until the
// context is cancelled.
type Micro struct {
	config      *Config
	logger      Logger
	middleware  []func(http.Handler) http.Handler
	httpPortKey string
	httpModules []HTTPModule
	grpcPortKey string
	grpcModules []GRPCModule
	lifecycles  []interface{}
	healthName  string
}

func WithConfig(cfg *Config) Option {
	return func(m *Micro) { m.config = cfg }
}

func WithLogger(logger Logger) Option {
	return func(m *Micro) { m.logger = logger }
}

func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(m *Micro) { m.middleware = append(m.middleware, mw...) }
}

func WithHTTPServerModules(portKey string, modules ...HTTPModule) Option {
	return func(m *Micro) {
		m.httpPortKey = portKey
		m.httpModules = append(m.httpModules, modules...)
	}
}

func WithGRPCServerModules(portKey string, modules ...GRPCModule) Option {
	return func(m *Micro) {
		m.grpcPortKey = portKey
		m.grpcModules = append(m.grpcModules, modules...)
	}
}

// WithLifecycle accepts values implementing Starter, Stopper or both.
// They start in order and stop in reverse order.
func WithLifecycle(items ...interface{}) Option {
	return func(m *Micro) { m.lifecycles = append(m.lifecycles, items...) }
}

func WithHealthChecks(name string) Option {
	return func(m *Micro) { m.healthName = name }
}

func NewMicro(opts ...Option) *Micro {
	m := &Micro{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = NewNoopLogger()
	}
	return m
}

func (m *Micro) Run(ctx context.Context) error {
	started, err := m.start(ctx)
	if err != nil {
		m.stop(started)
		return err
	}
	defer m.stop(started)

	var lis net.Listener
	if len(m.grpcModules) > 0 {
		addr := m.config.GetStringOrDef(m.grpcPortKey, ":9090")
		lis, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("cannot listen on %s: %w", addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	if len(m.httpModules) > 0 {
		addr := m.config.GetStringOrDef(m.httpPortKey, ":8080")
		httpServer = &http.Server{
			Addr:              addr,
			Handler:           m.router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			m.logger.Info("http server listening", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	var grpcServer *grpc.Server
	if lis != nil {
		grpcServer = grpc.NewServer()
		for _, mod := range m.grpcModules {
			mod.RegisterGRPCService(grpcServer)
		}
		g.Go(func() error {
			m.logger.Info("grpc server listening", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				m.logger.Error("http shutdown failed", "error", err)
			}
		}
		if grpcServer != nil {
			stopGRPC(shutdownCtx, grpcServer)
		}
		return nil
	})

	return g.Wait()
}

// Handler returns the HTTP handler Run would serve.
func (m *Micro) Handler() http.Handler {
	return m.router()
}

func (m *Micro) router() chi.Router {
	r := chi.NewRouter()
	r.Use(m.middleware...)
	if m.healthName != "" {
		name := m.healthName
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			RespondJSON(w, http.StatusOK, map[string]string{"service": name, "status": "ok"})
		})
	}
	for _, mod := range m.httpModules {
		mod.RegisterRoutes(r)
	}
	return r
}

func (m *Micro) start(ctx context.Context) ([]interface{}, error) {
	var started []interface{}
	for _, item := range m.lifecycles {
		if s, ok := item.(Starter); ok {
			if err := s.Start(ctx); err != nil {
				return started, fmt.Errorf("lifecycle start failed: %w", err)
			}
		}
		started = append(started, item)
	}
	return started, nil
}

func (m *Micro) stop(started []interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(started) - 1; i >= 0; i-- {
		if s, ok := started[i].(Stopper); ok {
			if err := s.Stop(ctx); err != nil {
				m.logger.Error("lifecycle stop failed", "error", err)
			}
		}
	}
}

// stopGRPC drains in-flight RPCs and forces the stop once ctx expires,
// since open server streams never finish on their own.
func stopGRPC(ctx context.Context, server *grpc.Server) {
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		server.Stop()
	}
}
