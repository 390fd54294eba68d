package yoyo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	createMigrationTableSQL = "CREATE TABLE %s (id VARCHAR(255) NOT NULL PRIMARY KEY, ctime TIMESTAMP)"
	createLockTableSQL      = "CREATE TABLE %s (locked INTEGER NOT NULL PRIMARY KEY, ctime TIMESTAMP, pid INTEGER NOT NULL)"
)

// AppliedMigration is one row of the applied-set table.
type AppliedMigration struct {
	ID    string
	CTime time.Time
}

// Backend wraps a single database connection and exposes the primitives the
// executor drives: transactions, savepoints, the applied-set table and the
// cross-process advisory lock.
//
// The connection is pinned for the lifetime of the backend so savepoints,
// session locks and transaction state all happen on one session. Callable
// steps receive the same connection and must not close it.
type Backend struct {
	provider

	db     *sql.DB
	conn   *sql.Conn
	uri    *DatabaseURI
	config *Config
	log    *logrus.Logger

	locked        bool
	inTransaction bool
}

// GetBackend connects to the database described by uri and prepares the
// migration and lock tables.
func GetBackend(ctx context.Context, uri string, config *Config) (*Backend, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	p, ok := providers[parsed.Scheme]
	if !ok {
		return nil, errors.Errorf("unknown database engine %s", parsed.Scheme)
	}
	if parsed.Driver != "" && !p.supportsDriver(parsed.Driver) {
		return nil, errors.Errorf("unknown driver %s for engine %s", parsed.Driver, parsed.Scheme)
	}

	dsn, err := p.dsn(parsed)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(p.driverName(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "can't open database")
	}

	b, err := newBackend(ctx, db, p, parsed, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func newBackend(ctx context.Context, db *sql.DB, p provider, uri *DatabaseURI, config *Config) (*Backend, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to database")
	}

	b := &Backend{
		provider: p,
		db:       db,
		conn:     conn,
		uri:      uri,
		config:   config,
		log:      config.logger(),
	}

	if err = b.ensureTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the pinned connection and the underlying pool.
func (b *Backend) Close() error {
	if err := b.conn.Close(); err != nil {
		b.db.Close()
		return errors.Wrap(err, "can't close database connection")
	}
	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "can't close database")
	}
	return nil
}

// Connection returns the live connection owned by the backend. It is handed
// to callable steps for the duration of their execution.
func (b *Backend) Connection() *sql.Conn {
	return b.conn
}

// TransactionalDDL reports whether the engine can roll back DDL statements
// inside a transaction.
func (b *Backend) TransactionalDDL() bool {
	return b.transactionalDDL()
}

func (b *Backend) migrationTable() string { return b.config.migrationTable() }

func (b *Backend) lockTables() lockTables {
	return lockTables{
		migrationTable: b.config.migrationTable(),
		lockTable:      b.config.lockTable(),
	}
}

func (b *Backend) execute(ctx context.Context, query string, args ...interface{}) error {
	b.log.Debugf(" - executing %s", query)
	_, err := b.conn.ExecContext(ctx, query, args...)
	return err
}

func (b *Backend) begin(ctx context.Context) error {
	if err := b.execute(ctx, "BEGIN"); err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	b.inTransaction = true
	return nil
}

func (b *Backend) commit(ctx context.Context) error {
	if err := b.execute(ctx, "COMMIT"); err != nil {
		return errors.Wrap(err, "can't commit transaction")
	}
	b.inTransaction = false
	return nil
}

func (b *Backend) rollback(ctx context.Context) error {
	if err := b.execute(ctx, "ROLLBACK"); err != nil {
		return errors.Wrap(err, "can't roll back transaction")
	}
	b.inTransaction = false
	return nil
}

func (b *Backend) savepoint(ctx context.Context, name string) error {
	return b.execute(ctx, "SAVEPOINT "+name)
}

func (b *Backend) releaseSavepoint(ctx context.Context, name string) error {
	return b.execute(ctx, "RELEASE SAVEPOINT "+name)
}

func (b *Backend) rollbackToSavepoint(ctx context.Context, name string) error {
	return b.execute(ctx, "ROLLBACK TO SAVEPOINT "+name)
}

func (b *Backend) hasTable(ctx context.Context, table string) (bool, error) {
	query, err := b.placeholders().ReplacePlaceholders(b.hasTableQuery())
	if err != nil {
		return false, err
	}
	var name string
	err = b.conn.QueryRowContext(ctx, query, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "can't check table %s", table)
	}
	return true, nil
}

func (b *Backend) ensureTables(ctx context.Context) error {
	for _, t := range []struct {
		name      string
		createSQL string
	}{
		{b.config.migrationTable(), createMigrationTableSQL},
		{b.config.lockTable(), createLockTableSQL},
	} {
		exists, err := b.hasTable(ctx, t.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err = b.execute(ctx, fmt.Sprintf(t.createSQL, t.name)); err != nil {
			return errors.Wrapf(err, "can't create table %s", t.name)
		}
	}
	return nil
}

// ListApplied returns the applied-set in application order.
func (b *Backend) ListApplied(ctx context.Context) ([]AppliedMigration, error) {
	query, args, err := sq.Select("id", "ctime").
		From(b.migrationTable()).
		OrderBy("ctime").
		PlaceholderFormat(b.placeholders()).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := b.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "can't list applied migrations")
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var a AppliedMigration
		if err = rows.Scan(&a.ID, &a.CTime); err != nil {
			return nil, errors.Wrap(err, "can't scan applied migration row")
		}
		applied = append(applied, a)
	}
	return applied, rows.Err()
}

func (b *Backend) isApplied(ctx context.Context, id string) (bool, error) {
	query, args, err := sq.Select("COUNT(1)").
		From(b.migrationTable()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(b.placeholders()).
		ToSql()
	if err != nil {
		return false, err
	}
	var count int
	if err = b.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "can't check whether %s is applied", id)
	}
	return count > 0, nil
}

func (b *Backend) recordApplied(ctx context.Context, id string) error {
	query, args, err := sq.Insert(b.migrationTable()).
		Columns("id", "ctime").
		Values(id, time.Now().UTC()).
		PlaceholderFormat(b.placeholders()).
		ToSql()
	if err != nil {
		return err
	}
	if err = b.execute(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "can't record migration %s as applied", id)
	}
	return nil
}

func (b *Backend) unrecordApplied(ctx context.Context, id string) error {
	query, args, err := sq.Delete(b.migrationTable()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(b.placeholders()).
		ToSql()
	if err != nil {
		return err
	}
	if err = b.execute(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "can't remove migration %s from the applied set", id)
	}
	return nil
}

// Lock acquires the cross-process advisory lock. The timeout comes from the
// configuration; zero waits indefinitely.
func (b *Backend) Lock(ctx context.Context) error {
	if b.locked {
		return nil
	}
	var timeout time.Duration
	if b.config != nil {
		timeout = b.config.LockTimeout
	}
	if err := b.lock(ctx, b.conn, b.lockTables(), timeout); err != nil {
		if err == ErrLockTimeout {
			return err
		}
		return errors.Wrap(err, "can't acquire migration lock")
	}
	b.locked = true
	return nil
}

// Unlock releases the advisory lock. It is safe to call when the lock is
// not held.
func (b *Backend) Unlock(ctx context.Context) error {
	if !b.locked {
		return nil
	}
	if err := b.unlock(ctx, b.conn, b.lockTables()); err != nil {
		return errors.Wrap(err, "can't release migration lock")
	}
	b.locked = false
	return nil
}
