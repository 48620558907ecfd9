package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"promogen/settings"
)

// Store interactions 与 marked_images 两张表的读写
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open 建立连接池，不检查连通性，连通性由 WaitReady 负责
func Open(cfg settings.DBConfig) (*Store, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "mysql":
		driverName, dsn = "mysql", cfg.MySQLDSN()
	case "sqlite":
		driverName, dsn = "sqlite", cfg.DSN
		if dsn == "" {
			dsn = "file:promogen.db?_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite 单写者，内存库也只能用一个连接
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return &Store{db: db, driver: cfg.Driver}, nil
}

// New 打开并等待就绪后建表，测试与 migrate 命令使用
func New(ctx context.Context, cfg settings.DBConfig) (*Store, error) {
	s, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.WaitReady(ctx, cfg.ReadyTimeout); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// WaitReady 指数退避重试直到数据库可用，超过 timeout 返回最后一次错误
func (s *Store) WaitReady(ctx context.Context, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	return backoff.RetryNotify(func() error {
		return s.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		zap.L().Info("database not available yet, waiting...",
			zap.Duration("retry_in", next), zap.Error(err))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate 建表，可重复执行
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == "mysql" {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close 关闭连接池
func (s *Store) Close() error {
	return s.db.Close()
}

// insert 在事务中执行一条插入语句并返回自增 ID
func (s *Store) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		generation_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		image_url VARCHAR(512) NOT NULL,
		metadata JSON NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uk_generation_id (generation_id),
		KEY idx_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS marked_images (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		image_url VARCHAR(512) NOT NULL,
		result BOOLEAN NOT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generation_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user_id ON interactions (user_id)`,
	`CREATE TABLE IF NOT EXISTS marked_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		result BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_marked_images_user_id ON marked_images (user_id)`,
}
