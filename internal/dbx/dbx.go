// Package dbx provides tiny DB helpers shared by repositories: opening a
// gorm handle for the configured dialect, and running a function inside a
// transaction.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/filex"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool settings applied to every opened handle.
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open connects to the database and verifies the connection. dialect is
// "sqlite" or "postgres"; for sqlite the DSN is a file path or URI.
func Open(dialect, dsn string, l gormlogger.Interface) (*gorm.DB, error) {
	var d gorm.Dialector

	switch dialect {
	case "sqlite":
		if path := filex.SQLitePath(dsn); path != "" {
			if _, err := filex.EnsureParentDir(path); err != nil {
				return nil, fmt.Errorf("db dir error: %w", err)
			}
		}
		d = sqlite.Open(dsn)
	case "postgres":
		d = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedDialect, dialect)
	}

	cfg := &gorm.Config{}
	if l != nil {
		cfg.Logger = l
	}

	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db pool error: %w", err)
	}

	if dialect == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
	}
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx *gorm.DB) error {
//	    return users.NewGormRepository(tx).Delete(ctx, id)
//	})
func WithTx(ctx context.Context, db *gorm.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx *gorm.DB) error) (err error) {
	tx := db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit().Error
	}()

	err = fn(ctx, tx)
	return err
}
