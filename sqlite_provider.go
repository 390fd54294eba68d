package yoyo

import (
	"context"
	"database/sql"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"

	_ "github.com/mattn/go-sqlite3"
)

func init() {
	providers["sqlite"] = &sqliteProvider{}
}

type sqliteProvider struct {
	defaultProvider
}

func (p *sqliteProvider) driverName() string { return "sqlite3" }

func (p *sqliteProvider) dsn(uri *DatabaseURI) (string, error) {
	if uri.Database == "" {
		return "", errDatabaseNotProvided
	}
	return uri.Database, nil
}

func (p *sqliteProvider) hasTableQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (p *sqliteProvider) placeholders() sq.PlaceholderFormat { return sq.Question }

func (p *sqliteProvider) transactionalDDL() bool { return true }

// lock uses the lock table as SQLite has no advisory locks: holding the lock
// is owning the single row with locked = 1.
func (p *sqliteProvider) lock(ctx context.Context, conn *sql.Conn, tables lockTables, timeout time.Duration) error {
	query, args, err := sq.Insert(tables.lockTable).
		Columns("locked", "ctime", "pid").
		Values(1, time.Now().UTC(), os.Getpid()).
		ToSql()
	if err != nil {
		return err
	}
	return pollLock(ctx, timeout, func() (bool, error) {
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			// the row already exists: another migrator holds the lock
			return false, nil
		}
		return true, nil
	})
}

func (p *sqliteProvider) unlock(ctx context.Context, conn *sql.Conn, tables lockTables) error {
	query, args, err := sq.Delete(tables.lockTable).
		Where(sq.Eq{"locked": 1, "pid": os.Getpid()}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, query, args...)
	return err
}
