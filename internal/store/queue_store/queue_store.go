// Package queue_store is the JobQueue: the durable, row-locked store of
// queued jobs that backs the worker-facing match-making and lease protocol.
// It implements store.Store against either Postgres (real row locks via
// "FOR UPDATE") or SQLite (no row locks, so a process-local mutex serializes
// the same critical sections), matching the teacher's postgres_store
// package but generalized to the two deployment targets the spec calls out.
package queue_store

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store/ctxkey"
	"github.com/jackc/pgx/v4/log/logrusadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// QueueStore is the gorm-backed store.Store implementation. A single type
// serves both backends; which one is live is decided once in Initialize
// from the QUEUE_DB_URL scheme.
type QueueStore struct{}

// AppQueue is the package-level singleton, mirroring the teacher's
// PostgresStore var so store.AppStore = queue_store.AppQueue reads the
// same way cmd/serve.go wires it up.
var AppQueue = QueueStore{}

var (
	db      *gorm.DB
	pgxPool *pgxpool.Pool

	// isSQLite is true when QUEUE_DB_URL resolved to the SQLite driver; pop
	// and status-update critical sections then take mu instead of relying on
	// "SELECT ... FOR UPDATE", which SQLite treats as a no-op.
	isSQLite bool
	mu       sync.Mutex
)

// GetDB returns the underlying gorm connection, used by the transaction
// middleware to open per-request transactions.
func (QueueStore) GetDB() *gorm.DB { return db }

// GetTxContextKey exposes the transaction context key for middleware.
func GetTxContextKey() interface{} { return ctxkey.TxKey() }

// dbFromContext returns the transaction stashed in ctx by the transaction
// middleware, falling back to the package-level connection outside a
// request (e.g. from the TimeoutSupervisor).
func dbFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(ctxkey.TxKey()).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// withLock serializes fn against the process-local mutex when running
// against SQLite, where "SELECT ... FOR UPDATE" provides no real locking.
// On Postgres it runs fn unguarded; the row lock taken inside fn's
// transaction does the serializing there.
func withLock(fn func() error) error {
	if !isSQLite {
		return fn()
	}
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Initialize opens the backing database, resolving the driver from the
// QUEUE_DB_URL scheme, and brings the schema up to date. It mirrors the
// teacher's PostgresDbStore.Initialize retry loop for Postgres, and adds
// the SQLite path the spec requires as a first-class deployment target.
func (s QueueStore) Initialize() (func(), error) {
	uri := config.QueueDBURL

	if strings.HasPrefix(uri, "file:") || strings.Contains(uri, ".db") || uri == ":memory:" {
		isSQLite = true
		return s.initializeSQLite(uri)
	}
	return s.initializePostgres(uri)
}

func (s QueueStore) initializeSQLite(uri string) (func(), error) {
	gormDB, err := gorm.Open(sqlite.Open(uri), &gorm.Config{Logger: getLogger(), NowFunc: utcNow})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite queue store: %w", err)
	}
	db = gormDB
	if err := s.migrateSQL(); err != nil {
		return nil, err
	}
	logging.Log.WithField("driver", "sqlite").Info("queue store initialized")
	return func() {}, nil
}

func (s QueueStore) initializePostgres(uri string) (func(), error) {
	maxRetries := config.DBConnectMaxRetries
	retryInterval := time.Duration(config.DBConnectRetryIntervalSecond) * time.Second

	pgxpoolConfig, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing QUEUE_DB_URL: %w", err)
	}
	logrusLogger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.JSONFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.ErrorLevel,
		ExitFunc:  os.Exit,
	}
	pgxpoolConfig.ConnConfig.Logger = logrusadapter.NewLogger(logrusLogger)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pgxPool, err = pgxpool.ConnectConfig(context.Background(), pgxpoolConfig)
		if err == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("connecting to queue database after %d attempts: %w", maxRetries, err)
		}
		logging.Log.WithError(err).Warnf("queue database connection attempt %d/%d failed, retrying in %v", attempt, maxRetries, retryInterval)
		time.Sleep(retryInterval)
	}

	gormDB, err := gorm.Open(postgres.Open(uri), &gorm.Config{Logger: getLogger(), NowFunc: utcNow})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("opening gorm over pgx pool: %w", err)
	}
	db = gormDB
	if err := s.migrateSQL(); err != nil {
		pgxPool.Close()
		return nil, err
	}
	logging.Log.WithField("driver", "postgres").Info("queue store initialized")
	return func() { pgxPool.Close() }, nil
}

func (s QueueStore) migrateSQL() error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	dialect := "postgres"
	if isSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect %s: %w", dialect, err)
	}
	goose.SetBaseFS(Migrations)
	return goose.Up(sqlDB, "migrations")
}

func utcNow() time.Time { return time.Now().UTC() }

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Duration(config.SQLLoggerSlowSQLSeconds) * time.Second,
			LogLevel:                  logLevelFromString(config.SQLLoggerLevel),
			IgnoreRecordNotFoundError: config.SQLLoggerIgnoreRecordNotFound,
			Colorful:                  config.SQLLoggerColorfulLogs,
		},
	)
}

func logLevelFromString(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Error
	}
}
