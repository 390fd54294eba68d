package yoyo

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	sq "github.com/Masterminds/squirrel"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	providers["mysql"] = &mysqlProvider{}
}

type mysqlProvider struct {
	defaultProvider
}

func (p *mysqlProvider) driverName() string { return "mysql" }

// supportsDriver accepts the mysqldb suffix, so mysql+mysqldb URIs written
// for other implementations keep working.
func (p *mysqlProvider) supportsDriver(name string) bool {
	return name == "mysqldb"
}

func (p *mysqlProvider) dsn(uri *DatabaseURI) (string, error) {
	if uri.Database == "" {
		return "", errDatabaseNotProvided
	}

	var userinfo string
	if uri.Username != "" {
		userinfo = uri.Username
		if uri.Password != "" {
			userinfo += ":" + uri.Password
		}
		userinfo += "@"
	}

	// socket only URIs (mysql://user@/db?unix_socket=...) select a unix
	// domain socket address instead of tcp
	var address string
	if socket, ok := uri.Args["unix_socket"]; ok {
		address = fmt.Sprintf("unix(%s)", socket)
	} else {
		host := uri.Hostname
		if host == "" {
			host = "127.0.0.1"
		}
		port := uri.Port
		if port == 0 {
			port = 3306
		}
		address = fmt.Sprintf("tcp(%s:%d)", host, port)
	}

	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("multiStatements", "true")
	for k, v := range uri.Args {
		if k == "unix_socket" {
			continue
		}
		params.Set(k, v)
	}

	return fmt.Sprintf("%s%s/%s?%s", userinfo, address, uri.Database, params.Encode()), nil
}

func (p *mysqlProvider) placeholders() sq.PlaceholderFormat { return sq.Question }

// transactionalDDL is false for MySQL: DDL statements cause an implicit
// commit, so the outer transaction can not undo them.
func (p *mysqlProvider) transactionalDDL() bool { return false }

func (p *mysqlProvider) lockName(tables lockTables) string {
	return "yoyo:" + tables.migrationTable
}

func (p *mysqlProvider) lock(ctx context.Context, conn *sql.Conn, tables lockTables, timeout time.Duration) error {
	// GET_LOCK interprets a negative timeout as wait forever
	seconds := -1
	if timeout > 0 {
		seconds = int(timeout / time.Second)
		if seconds == 0 {
			seconds = 1
		}
	}
	var acquired sql.NullInt64
	err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", p.lockName(tables), seconds).Scan(&acquired)
	if err != nil {
		return err
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		return ErrLockTimeout
	}
	return nil
}

func (p *mysqlProvider) unlock(ctx context.Context, conn *sql.Conn, tables lockTables) error {
	_, err := conn.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", p.lockName(tables))
	return err
}
