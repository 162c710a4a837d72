// Package app assembles the service from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/api/routes"
	"smartbin-api-server/internal/auth"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/metrics"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/mqtt"
	"smartbin-api-server/internal/notify"
	"smartbin-api-server/internal/s3"
	"smartbin-api-server/internal/services"
	"smartbin-api-server/internal/socket"
	"smartbin-api-server/internal/telemetry"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Stores groups the repositories of every collection.
type Stores struct {
	Bins         database.Repository[models.Bin]
	Alerts       database.Repository[models.Alert]
	Users        database.Repository[models.User]
	CleaningLogs database.Repository[models.CleaningLog]
	Shifts       database.Repository[models.ShiftLog]
}

func memoryStores() Stores {
	return Stores{
		Bins:         database.NewMemoryRepository[models.Bin](database.BinsCollection),
		Alerts:       database.NewMemoryRepository[models.Alert](database.AlertsCollection),
		Users:        database.NewMemoryRepository[models.User](database.UsersCollection),
		CleaningLogs: database.NewMemoryRepository[models.CleaningLog](database.CleaningLogsCollection),
		Shifts:       database.NewMemoryRepository[models.ShiftLog](database.ShiftLogsCollection),
	}
}

func mongoStores(db *mongo.Database) Stores {
	return Stores{
		Bins:         database.NewCollection[models.Bin](db, database.BinsCollection),
		Alerts:       database.NewCollection[models.Alert](db, database.AlertsCollection),
		Users:        database.NewCollection[models.User](db, database.UsersCollection),
		CleaningLogs: database.NewCollection[models.CleaningLog](db, database.CleaningLogsCollection),
		Shifts:       database.NewCollection[models.ShiftLog](db, database.ShiftLogsCollection),
	}
}

// App owns every long-lived component.
type App struct {
	cfg    config.Config
	log    zerolog.Logger
	stores Stores
	hasher auth.PasswordHasher

	Bins    *services.BinService
	Alerts  *services.AlertService
	Users   *services.UserService
	Metrics *metrics.Metrics

	router     *gin.Engine
	subscriber *mqtt.Subscriber
	watchdog   *telemetry.Watchdog
	nats       *notify.NATSPublisher
	mongo      *mongo.Client
}

// New connects to the configured backends and wires the services. Optional
// integrations (MQTT, NATS, S3, the watchdog) are only built when enabled.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, hasher: auth.NewBcryptHasher(auth.DefaultBcryptCost)}

	switch cfg.Storage.Driver {
	case DriverMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		a.stores = memoryStores()
	case DriverMongo, "":
		client, db, err := database.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		a.mongo = client
		a.stores = mongoStores(db)
		log.Info().Str("db", cfg.Mongo.DBName).Msg("connected to mongo")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Metrics = metrics.New()
	hub := socket.NewHub(log)
	notifiers := notify.Multi{hub}
	if cfg.NATS.Enabled {
		publisher, err := notify.ConnectNATS(cfg.NATS, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.nats = publisher
		notifiers = append(notifiers, publisher)
	}

	var uploader services.PhotoUploader
	if cfg.S3.Enabled {
		u, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, err
		}
		uploader = u
	}

	a.Bins = services.NewBinService(a.stores.Bins)
	a.Alerts = services.NewAlertService(a.stores.Alerts)
	a.Users = services.NewUserService(a.stores.Users, a.hasher, tokens)

	rules := telemetry.NewRuleEngine(telemetry.RuleConfigFrom(cfg.Rules))
	pipeline := telemetry.NewPipeline(a.Bins, a.Alerts, rules, notifiers, a.Metrics, log)

	if cfg.MQTT.Enabled {
		a.subscriber = mqtt.NewSubscriber(cfg.MQTT, pipeline, a.Metrics, log)
	}
	if cfg.Rules.ConnectionLostAfter > 0 {
		a.watchdog = telemetry.NewWatchdog(a.Bins, a.Alerts, notifiers, a.Metrics,
			cfg.Rules.ConnectionLostAfter, cfg.Rules.WatchdogInterval, log)
	}

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	a.router = routes.SetupRouter(routes.Deps{
		Tokens:       tokens,
		Bins:         a.Bins,
		Alerts:       a.Alerts,
		Users:        a.Users,
		CleaningLogs: services.NewCleaningLogService(a.stores.CleaningLogs, a.stores.Bins, uploader, log),
		Shifts:       services.NewShiftLogService(a.stores.Shifts, a.stores.Users, a.stores.Bins),
		Pipeline:     pipeline,
		Hub:          hub,
		Metrics:      a.Metrics,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Log:          log,
	})
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// SeedAdmin creates the configured administrator if it does not exist yet.
func (a *App) SeedAdmin(ctx context.Context) error {
	return database.SeedAdmin(ctx, a.stores.Users, a.hasher, a.cfg.Seed, a.log)
}

func (a *App) SeedBins(ctx context.Context, count int) (int, error) {
	bins, err := a.Bins.Seed(ctx, count)
	if err != nil {
		return 0, err
	}
	a.log.Info().Int("count", len(bins)).Msg("bins seeded")
	return len(bins), nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled or
// one of them fails. Backends are closed before it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		a.log.Info().Msg("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})
	if a.subscriber != nil {
		g.Go(func() error { return a.subscriber.Run(gctx) })
	}
	if a.watchdog != nil {
		g.Go(func() error { return a.watchdog.Run(gctx) })
	}

	return g.Wait()
}

// Close releases backend connections. It is safe to call more than once.
func (a *App) Close() {
	if a.nats != nil {
		a.nats.Close()
		a.nats = nil
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mongo disconnect failed")
		}
		a.mongo = nil
	}
}
