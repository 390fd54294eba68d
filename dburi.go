package yoyo

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DatabaseURI is the parsed form of a database connection string in the
// scheme[+driver]://[user[:password]@][host][:port]/database[?k=v&...]
// format. Username and password are percent-decoded, so both may contain
// characters such as @ and :.
type DatabaseURI struct {
	Scheme   string
	Driver   string
	Username string
	Password string
	Hostname string
	Port     int
	Database string
	Args     map[string]string
}

// schemeAliases maps alternative scheme spellings to the canonical engine.
var schemeAliases = map[string]string{
	"postgres":   "postgresql",
	"psql":       "postgresql",
	"postgresql": "postgresql",
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// ParseURI parses a database connection string.
//
// The scheme may carry a +driver suffix (e.g. mysql+mysqldb) selecting an
// alternate driver for the same engine. For sqlite the three slash form
// denotes a relative path, the four slash form an absolute one:
//
//	sqlite:///relative.db
//	sqlite:////var/lib/app/absolute.db
func ParseURI(s string) (*DatabaseURI, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(err, "can't parse database URI %s", s)
	}
	if u.Scheme == "" {
		return nil, errors.Errorf("no scheme specified in database URI %s", s)
	}

	scheme := strings.ToLower(u.Scheme)
	var driver string
	if i := strings.Index(scheme, "+"); i != -1 {
		scheme, driver = scheme[:i], scheme[i+1:]
	}
	canonical, ok := schemeAliases[scheme]
	if !ok {
		return nil, errors.Errorf("unknown database scheme %s", scheme)
	}

	uri := &DatabaseURI{
		Scheme: canonical,
		Driver: driver,
		Args:   map[string]string{},
	}

	if u.User != nil {
		uri.Username = u.User.Username()
		uri.Password, _ = u.User.Password()
	}
	uri.Hostname = u.Hostname()
	if p := u.Port(); p != "" {
		uri.Port, err = strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "can't parse port in database URI %s", s)
		}
	}

	// sqlite:///x.db is the relative path x.db, sqlite:////x.db the
	// absolute path /x.db; for the other engines the database is simply
	// the path with its leading slash removed.
	uri.Database = strings.TrimPrefix(u.Path, "/")

	for k, vs := range u.Query() {
		if len(vs) > 0 {
			uri.Args[k] = vs[0]
		}
	}

	return uri, nil
}
