// Package wire assembles the application object graph. There are no
// package-level singletons: callers construct an App, pass it down, and
// close it when done.
package wire

import (
	"database/sql"
	"time"

	"github.com/example/cadence/internal/adapters/sqlite"
	"github.com/example/cadence/internal/app"
	"github.com/example/cadence/internal/async"
	"github.com/example/cadence/internal/config"
	"github.com/example/cadence/internal/db"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// App holds the assembled services and the resources they share.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	Coordinator *async.Coordinator

	Rules   primary.RuleService
	Chains  primary.ChainService
	Stats   primary.StatsService
	Porting primary.PortingService

	AuditRepo secondary.AuditLogRepository
}

// NewApp loads the configuration from the default directory and assembles
// the application against the configured database.
func NewApp() (*App, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	return NewAppWithConfig(cfg, cfg.DatabasePath(dir))
}

// NewAppWithConfig assembles the application with an explicit config and
// database path. Tests use this with a temporary database.
func NewAppWithConfig(cfg *config.Config, dbPath string) (*App, error) {
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	coord := async.NewCoordinator(async.Config{
		DefaultTimeout:    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		DefaultRetryCount: cfg.RetryCount,
	})

	ruleRepo := sqlite.NewRuleRepository(conn)
	usageRepo := sqlite.NewUsageRepository(conn)
	chainRepo := sqlite.NewChainRepository(conn)
	auditRepo := sqlite.NewAuditLogRepository(conn)
	logWriter := sqlite.NewLogWriterAdapter(auditRepo)

	return &App{
		Config:      cfg,
		DB:          conn,
		Coordinator: coord,
		Rules:       app.NewRuleService(ruleRepo, usageRepo, logWriter, coord, cfg.SimilarityThreshold, time.Duration(cfg.DebounceMS)*time.Millisecond),
		Chains:      app.NewChainService(chainRepo, logWriter),
		Stats:       app.NewStatsService(ruleRepo, usageRepo),
		Porting:     app.NewPortingService(ruleRepo, usageRepo, logWriter),
		AuditRepo:   auditRepo,
	}, nil
}

// Close releases the app's resources: the coordinator drains its queue
// first, then the database handle closes.
func (a *App) Close() error {
	a.Coordinator.Close()
	return a.DB.Close()
}
