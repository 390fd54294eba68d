package yoyo

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var providers = make(map[string]provider)

// provider supplies the engine specific pieces the backend composes:
// connection strings, capability flags and the advisory lock protocol.
type provider interface {
	driverName() string
	dsn(uri *DatabaseURI) (string, error)
	hasTableQuery() string
	placeholders() sq.PlaceholderFormat
	// transactionalDDL reports whether DDL statements can be rolled back
	// inside a transaction on this engine.
	transactionalDDL() bool
	supportsDriver(name string) bool
	lock(ctx context.Context, conn *sql.Conn, tables lockTables, timeout time.Duration) error
	unlock(ctx context.Context, conn *sql.Conn, tables lockTables) error
}

// lockTables carries the table names the lock protocol may need.
type lockTables struct {
	migrationTable string
	lockTable      string
}

type defaultProvider struct{}

func (p *defaultProvider) hasTableQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_name = ?"
}

func (p *defaultProvider) supportsDriver(name string) bool {
	return false
}

const lockPollInterval = 100 * time.Millisecond

// pollLock calls try until it acquires the lock, the timeout expires or ctx
// is cancelled. A zero timeout means wait indefinitely.
func pollLock(ctx context.Context, timeout time.Duration, try func() (bool, error)) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		acquired, err := try()
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// ProviderExists checks if the specified database engine is supported.
func ProviderExists(engine string) bool {
	_, ok := providers[engine]
	return ok
}

// Providers returns the list of supported database engines.
func Providers() []string {
	var engines []string
	for engine := range providers {
		engines = append(engines, engine)
	}
	return engines
}
