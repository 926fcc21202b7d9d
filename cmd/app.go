package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/audit"
	"github.com/frahmantamala/subscription-billing/internal/clock"
	"github.com/frahmantamala/subscription-billing/internal/confirmation"
	"github.com/frahmantamala/subscription-billing/internal/contract"
	contractPostgres "github.com/frahmantamala/subscription-billing/internal/contract/postgres"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/entity"
	entityPostgres "github.com/frahmantamala/subscription-billing/internal/entity/postgres"
	"github.com/frahmantamala/subscription-billing/internal/notification"
	"github.com/frahmantamala/subscription-billing/internal/observability/metrics"
	"github.com/frahmantamala/subscription-billing/internal/payment"
	paymentPostgres "github.com/frahmantamala/subscription-billing/internal/payment/postgres"
	"github.com/frahmantamala/subscription-billing/internal/user"
	userPostgres "github.com/frahmantamala/subscription-billing/internal/user/postgres"
)

// application holds the wired billing components shared by the server and
// the CLI commands.
type application struct {
	Config *internal.Config
	Logger *slog.Logger

	SQL  *sqlx.DB
	Gorm *gorm.DB

	Registry     *prometheus.Registry
	Bus          *events.EventBus
	Recorder     *audit.Recorder
	Notifier     *notification.Store
	Dispatcher   *notification.Dispatcher
	Emitter      *notification.Emitter
	Ledger       *payment.Ledger
	Status       *paymentPostgres.StatusReader
	Orchestrator *confirmation.Orchestrator
}

func newApplication(cfg *internal.Config, lg *slog.Logger) (*application, error) {
	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg.Observability.Logging.Level)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	app := &application{
		Config:   cfg,
		Logger:   lg,
		SQL:      sqlDB,
		Gorm:     gormDB,
		Registry: prometheus.NewRegistry(),
		Bus:      events.NewEventBus(lg),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clk := clock.SystemClock{}
	billing := cfg.Billing

	app.Recorder = audit.NewRecorder(gormDB, billing.SystemActorID, billing.SystemActorIP, lg)
	app.Recorder.Subscribe(app.Bus)

	app.Notifier = notification.NewStore(gormDB)
	policy := notification.EmissionPolicy{
		SkipImmediateEmission: billing.SkipImmediateEmission,
		Environment:           billing.Environment,
	}
	var queue notification.Queue
	if billing.IsProduction() {
		app.Dispatcher = notification.NewDispatcher(app.Notifier, notification.DispatcherConfig{
			MaxWorkers: cfg.Notification.MaxWorkers,
			QueueSize:  cfg.Notification.QueueSize,
		}, lg)
		queue = app.Dispatcher
	}
	app.Emitter = notification.NewEmitter(app.Notifier, queue, policy, lg)

	app.Ledger = payment.NewLedger(paymentPostgres.NewPaymentRepository(gormDB), clk, lg)
	app.Status = paymentPostgres.NewStatusReader(sqlDB)

	acceptor := contract.NewAcceptor(contractPostgres.NewContractRepository(gormDB), clk, lg)
	provisioner := user.NewProvisioner(userPostgres.NewUserRepository(gormDB), cfg.Security.BCryptCost, billing.PasswordDigits, lg)
	activator := entity.NewActivator(entityPostgres.NewEntityRepository(gormDB), provisioner, clk, billing.SystemActorID, lg)

	app.Orchestrator = confirmation.NewOrchestrator(confirmation.Dependencies{
		Ledger:    app.Ledger,
		Contracts: acceptor,
		Entities:  activator,
		Reminders: app.Emitter,
		Publisher: app.Bus,
		Metrics:   metrics.NewConfirmationMetrics(app.Registry),
		Clock:     clk,
	}, confirmation.Options{
		SystemActor:    contract.Actor{ID: billing.SystemActorID, IP: billing.SystemActorIP},
		PasswordDigits: billing.PasswordDigits,
	}, lg)

	return app, nil
}

// Close drains queued notifications and pending event handlers before
// closing the database.
func (a *application) Close(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		if a.Dispatcher != nil {
			a.Dispatcher.Shutdown()
		}
		a.Bus.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("shutdown timeout reached, pending notifications or audit entries may be lost")
	}

	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
