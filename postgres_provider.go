package yoyo

import (
	"context"
	"database/sql"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	_ "github.com/lib/pq"
)

func init() {
	providers["postgresql"] = &postgresProvider{}
}

type postgresProvider struct {
	defaultProvider
}

func (p *postgresProvider) driverName() string { return "postgres" }

func (p *postgresProvider) dsn(uri *DatabaseURI) (string, error) {
	if uri.Database == "" {
		return "", errDatabaseNotProvided
	}

	kvs := []string{"dbname=" + uri.Database}
	if uri.Username != "" {
		kvs = append(kvs, "user="+uri.Username)
	}
	if uri.Password != "" {
		kvs = append(kvs, "password="+uri.Password)
	}
	if uri.Hostname != "" {
		kvs = append(kvs, "host="+uri.Hostname)
	}
	if uri.Port != 0 {
		kvs = append(kvs, "port="+strconv.Itoa(uri.Port))
	}
	for k, v := range uri.Args {
		kvs = append(kvs, k+"="+v)
	}

	return strings.Join(kvs, " "), nil
}

func (p *postgresProvider) placeholders() sq.PlaceholderFormat { return sq.Dollar }

func (p *postgresProvider) transactionalDDL() bool { return true }

// lockKey derives the session advisory lock key from the migration table
// name, so migrators using different tables do not contend.
func (p *postgresProvider) lockKey(tables lockTables) int64 {
	h := fnv.New64a()
	h.Write([]byte(tables.migrationTable))
	return int64(h.Sum64())
}

func (p *postgresProvider) lock(ctx context.Context, conn *sql.Conn, tables lockTables, timeout time.Duration) error {
	key := p.lockKey(tables)
	if timeout == 0 {
		_, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", key)
		return err
	}
	return pollLock(ctx, timeout, func() (bool, error) {
		var acquired bool
		err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired)
		return acquired, err
	})
}

func (p *postgresProvider) unlock(ctx context.Context, conn *sql.Conn, tables lockTables) error {
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", p.lockKey(tables))
	return err
}
