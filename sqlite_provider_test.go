package yoyo

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SQLiteProvider_DSN(t *testing.T) {
	p := &sqliteProvider{}

	_, err := p.dsn(&DatabaseURI{})
	assert.Equal(t, errDatabaseNotProvided, err)

	dsn, err := p.dsn(&DatabaseURI{Database: "relative.db"})
	require.NoError(t, err)
	assert.Equal(t, "relative.db", dsn)

	dsn, err = p.dsn(&DatabaseURI{Database: "/var/lib/app/absolute.db"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/app/absolute.db", dsn)
}

func Test_SQLiteProvider_Capabilities(t *testing.T) {
	p := &sqliteProvider{}
	assert.Equal(t, "sqlite3", p.driverName())
	assert.Equal(t, sq.Question, p.placeholders())
	assert.True(t, p.transactionalDDL())
	assert.Contains(t, p.hasTableQuery(), "sqlite_master")
}

func Test_Providers_Registry(t *testing.T) {
	for _, engine := range []string{"postgresql", "mysql", "sqlite"} {
		assert.True(t, ProviderExists(engine), engine)
	}
	assert.False(t, ProviderExists("nosql"))
	assert.Len(t, Providers(), 3)
}
