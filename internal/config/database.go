package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"codebuddy/internal/logger"
	"codebuddy/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	statePingTimeout = 2 * time.Second
)

// State is the connection signal reported to diagnostics.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

var errNotConnected = errors.New("database not connected")

// DatabaseConfig describes how to reach the database.
type DatabaseConfig struct {
	Driver         string
	URL            string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	TimeZone       string
	ConnectTimeout time.Duration
}

// DSN builds the driver specific data source name.
// A postgres:// URL is converted to key/value form.
func (d DatabaseConfig) DSN() (string, error) {
	switch d.Driver {
	case DriverPostgres:
		if d.URL != "" {
			dsn, err := pq.ParseURL(d.URL)
			if err != nil {
				return "", fmt.Errorf("parse DATABASE_URL: %w", err)
			}
			return dsn, nil
		}
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
		), nil
	case DriverSQLite:
		if d.URL != "" {
			return d.URL, nil
		}
		return d.Name + ".db", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
}

// Connector owns the process-wide database handle.
type Connector struct {
	cfg DatabaseConfig
	log *logrus.Logger
	db  *gorm.DB
}

func NewConnector(cfg DatabaseConfig, log *logrus.Logger) *Connector {
	return &Connector{cfg: cfg, log: log}
}

// Connect opens the pool, verifies it with a ping, migrates every model
// and seeds the default badges.
func (c *Connector) Connect(ctx context.Context) (*gorm.DB, error) {
	dsn, err := c.cfg.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	if c.cfg.Driver == DriverSQLite {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.GormLogger(c.log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql pool: %w", err)
	}
	if c.cfg.Driver == DriverSQLite {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	c.db = db
	c.log.WithFields(logrus.Fields{
		"driver": c.cfg.Driver,
	}).Info("Database connected")
	return db, nil
}

// Migrate applies the schema and seeds reference data.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Question{},
		&models.DailyQuestion{},
		&models.Progress{},
		&models.Badge{},
		&models.UserBadge{},
		&models.InterviewSession{},
		&models.InterviewResponse{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	for _, badge := range models.DefaultBadges() {
		b := badge
		if err := db.Where(models.Badge{Code: b.Code}).FirstOrCreate(&b).Error; err != nil {
			return fmt.Errorf("seed badge %s: %w", b.Code, err)
		}
	}
	return nil
}

// DB returns the connected handle, or nil before Connect succeeds.
func (c *Connector) DB() *gorm.DB {
	return c.db
}

// State pings the pool and reports whether it is usable right now.
func (c *Connector) State() State {
	if err := c.ping(); err != nil {
		return StateDisconnected
	}
	return StateConnected
}

func (c *Connector) ping() error {
	if c.db == nil {
		return errNotConnected
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), statePingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the pool. Safe to call when never connected.
func (c *Connector) Close() error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
