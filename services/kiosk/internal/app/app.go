// Package app wires the kiosk service together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/kiosk/pkg"
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/catalog"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/changestream"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/mongo"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/notify"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/order"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/payment"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/realtime"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/session"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/stats"
	"github.com/go-chi/chi/v5"
)

const (
	AppName    = "kiosk"
	AppVersion = "0.1.0"
)

// sessionStore is what the session collection backends provide: direct
// reads and writes plus a change feed.
type sessionStore interface {
	session.Store
	changestream.Source[session.Record]
}

// Storage groups the persistence the service runs on.
type Storage struct {
	Catalog  catalog.Stores
	Orders   *entity.Store[order.Order]
	Sessions sessionStore
	Counter  stats.Counter
	// Lifecycle is started before anything else, if set.
	Lifecycle interface{}
}

// App encapsulates the kiosk service application.
type App struct {
	config     *core.Config
	logger     core.Logger
	shutdown   context.CancelCauseFunc
	storage    *Storage
	readers    payment.ReaderClient
	micro      *core.Micro
	channel    *realtime.Channel
	bridge     *changestream.Bridge[session.Record]
	lifecycles []interface{}
}

type Option func(*App)

// WithStorage replaces the storage selected by db.driver.
func WithStorage(s *Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithReaderClient replaces the card reader network client.
func WithReaderClient(c payment.ReaderClient) Option {
	return func(a *App) { a.readers = c }
}

// New creates the application. shutdown is called with the cause when a
// component hits an unrecoverable condition.
func New(config *core.Config, logger core.Logger, shutdown context.CancelCauseFunc, opts ...Option) *App {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	a := &App{config: config, logger: logger, shutdown: shutdown}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize sets up all dependencies and components.
func (a *App) Initialize(ctx context.Context) error {
	if a.storage == nil {
		storage, err := NewStorage(a.config, a.logger)
		if err != nil {
			return err
		}
		a.storage = storage
	}
	if a.storage.Lifecycle != nil {
		a.lifecycles = append(a.lifecycles, a.storage.Lifecycle)
	}
	a.lifecycles = append(a.lifecycles, core.LifecycleHooks{OnStart: a.bootstrapAdmin})

	relay, err := a.relay(ctx)
	if err != nil {
		return err
	}
	hub := realtime.NewHub(a.logger)
	a.channel = realtime.NewChannel(hub, relay, a.logger)
	a.lifecycles = append(a.lifecycles, a.channel)

	reporter := core.NewLogReporter(a.logger)
	notifier := notify.NewNotifier(a.channel, a.logger)
	a.storage.Catalog.Notify(notifier)
	a.storage.Orders.SetHooks(notify.For(notifier, event.EntityOrder, order.ToPublic))

	a.bridge = changestream.NewBridge[session.Record]("sessions", a.storage.Sessions, session.Hooks(notifier), a.logger,
		changestream.WithPolicy(changestream.Policy{
			InitialDelay: a.config.GetDurationOrDef("changestream.initial.delay", changestream.DefaultPolicy().InitialDelay),
			MaxRetries:   a.config.GetIntOrDef("changestream.max.retries", changestream.DefaultPolicy().MaxRetries),
		}),
		changestream.WithReporter(reporter),
		changestream.WithShutdown(func(err error) {
			if a.shutdown != nil {
				a.shutdown(err)
			}
		}),
	)
	a.lifecycles = append(a.lifecycles, a.bridge)

	if a.readers == nil {
		a.readers = payment.NewSumUpClient(payment.SumUpConfigFrom(a.config), a.logger)
	}

	sessions := authn.NewSessionManager(a.storage.Sessions, a.config, a.logger)
	orders := order.NewService(order.ServiceDeps{
		Orders:   a.storage.Orders,
		Catalog:  a.storage.Catalog,
		Checkout: a.readers,
		Emitter:  a.channel,
	}, a.logger)
	reconciler := payment.NewReconciler(a.storage.Orders, a.channel, a.logger)

	refresh := catalog.NewRefreshHandler(a.channel, a.storage.Catalog.Kiosks, a.logger)
	readers := payment.NewReaderHandler(a.readers, a.storage.Catalog.Kiosks, a.logger)
	ws := realtime.NewWSHandler(hub, authn.RealtimeAuthorizer, a.logger)

	modules := []core.HTTPModule{
		authn.NewHandler(sessions, a.storage.Catalog, a.logger),
		catalog.NewModule(a.storage.Catalog, authn.RequireAuthenticated, authn.RequireAdmin, a.logger, refresh.Routes, readers.Routes),
		order.NewHandler(orders, a.logger),
		payment.NewHandler(reconciler, payment.HandlerOptions{
			Debug:    a.config.GetBoolOrDef("debug.endpoints", false),
			Reporter: reporter,
		}, a.logger),
		stats.NewHandler(stats.NewService(a.storage.Counter, a.logger), a.logger),
		adminOnly{session.NewHandler(a.storage.Sessions, a.logger)},
		routes(func(r chi.Router) { r.Handle("/ws", ws) }),
	}

	stack := core.DefaultStack(core.StackOptions{Logger: a.logger})
	stack = append(stack, sessions.Middleware)

	a.micro = core.NewMicro(
		core.WithConfig(a.config),
		core.WithLogger(a.logger),
		core.WithHTTPMiddleware(stack...),
		core.WithHTTPServerModules("web.port", modules...),
		core.WithGRPCServerModules("grpc.port", realtime.NewEventStreamServer(hub, a.logger)),
		core.WithLifecycle(a.lifecycles...),
		core.WithHealthChecks(AppName),
	)
	return nil
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	_, err := catalog.BootstrapAdmin(ctx, a.storage.Catalog.Admins,
		a.config.GetStringOrDef("admin.bootstrap.username", ""),
		a.config.GetStringOrDef("admin.bootstrap.password", ""),
		a.logger)
	return err
}

// Run blocks until ctx is done or a server fails.
func (a *App) Run(ctx context.Context) error {
	if a.micro == nil {
		return fmt.Errorf("%s is not initialized", AppName)
	}
	a.logger.Info("starting", "app", AppName, "version", AppVersion)
	return a.micro.Run(ctx)
}

// Handler serves the HTTP routes, available after Initialize.
func (a *App) Handler() http.Handler {
	return a.micro.Handler()
}

func (a *App) relay(ctx context.Context) (realtime.Relay, error) {
	prefix := a.config.GetStringOrDef("realtime.prefix", "kiosk")
	adapter := a.config.GetStringOrDef("realtime.adapter", "memory")

	switch adapter {
	case "memory":
		return nil, nil
	case "nats":
		url := a.config.GetStringOrDef("nats.url", "nats://localhost:4222")
		publisher, err := pkg.NewNATSPublisher(url)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to NATS publisher: %w", err)
		}
		subscriber, err := pkg.NewNATSSubscriber(url, a.logger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("cannot connect to NATS subscriber: %w", err)
		}
		a.lifecycles = append(a.lifecycles, core.LifecycleHooks{
			OnStop: func(context.Context) error {
				_ = subscriber.Close()
				return publisher.Close()
			},
		})
		return realtime.NewBusRelay(publisher, subscriber, prefix, a.logger), nil
	case "jetstream":
		stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:        a.config.GetStringOrDef("nats.url", "nats://localhost:4222"),
			StreamName: a.config.GetStringOrDef("nats.stream", "KIOSK_REALTIME"),
			Subjects:   []string{realtime.Topic(prefix)},
			MaxAge:     a.config.GetDurationOrDef("nats.stream.max.age", time.Minute),
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("cannot open NATS stream: %w", err)
		}
		a.lifecycles = append(a.lifecycles, core.LifecycleHooks{
			OnStop: func(context.Context) error { return stream.Close() },
		})
		return realtime.NewBusRelay(stream, stream, prefix, a.logger), nil
	case "redis":
		url := a.config.GetStringOrDef("redis.url", "redis://localhost:6379/0")
		bus, err := pkg.NewRedisPubSub(ctx, url, a.logger)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to Redis: %w", err)
		}
		a.lifecycles = append(a.lifecycles, core.LifecycleHooks{
			OnStop: func(context.Context) error { return bus.Close() },
		})
		return realtime.NewBusRelay(bus, bus, prefix, a.logger), nil
	}
	return nil, fmt.Errorf("unknown realtime adapter %q", adapter)
}

// NewStorage builds the storage selected by db.driver: mongo or memory.
func NewStorage(config *core.Config, logger core.Logger) (*Storage, error) {
	driver := config.GetStringOrDef("db.driver", "mongo")
	switch driver {
	case "memory":
		orders := entity.NewStore[order.Order]("order", entity.NewMemoryBackend[order.Order](), logger)
		return &Storage{
			Catalog:  catalog.NewMemoryStores(),
			Orders:   orders,
			Sessions: session.NewMemoryStore(),
			Counter:  stats.NewStoreCounter(orders),
		}, nil
	case "mongo":
		client := mongo.NewClient(config, logger)
		return &Storage{
			Catalog:   MongoCatalog(client, logger),
			Orders:    entity.NewStore[order.Order]("order", mongo.NewBackend[order.Order](client, mongo.Orders), logger),
			Sessions:  mongo.NewSessionStore(client),
			Counter:   mongo.NewStatsCounter(client),
			Lifecycle: client,
		}, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", driver)
}

// MongoCatalog backs every catalog store with its collection.
func MongoCatalog(client *mongo.Client, logger core.Logger) catalog.Stores {
	return catalog.Stores{
		Activities: entity.NewStore[catalog.Activity]("activity", mongo.NewBackend[catalog.Activity](client, mongo.Activities), logger),
		Rooms:      entity.NewStore[catalog.Room]("room", mongo.NewBackend[catalog.Room](client, mongo.Rooms), logger),
		Products:   entity.NewStore[catalog.Product]("product", mongo.NewBackend[catalog.Product](client, mongo.Products), logger),
		Kiosks:     entity.NewStore[catalog.Kiosk]("kiosk", mongo.NewBackend[catalog.Kiosk](client, mongo.Kiosks), logger),
		Admins:     entity.NewStore[catalog.Admin]("admin", mongo.NewBackend[catalog.Admin](client, mongo.Admins), logger),
	}
}

type routes func(r chi.Router)

func (f routes) RegisterRoutes(r chi.Router) { f(r) }

type adminOnly struct {
	core.HTTPModule
}

func (m adminOnly) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAdmin)
		m.HTTPModule.RegisterRoutes(r)
	})
}
