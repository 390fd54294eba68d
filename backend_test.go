package yoyo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hasTableSQL = "SELECT table_name FROM information_schema.tables WHERE table_name = ?"

func Test_NewBackend_CreatesTables(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	mock.ExpectQuery(hasTableSQL).WithArgs("_yoyo_migration").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec("CREATE TABLE _yoyo_migration (id VARCHAR(255) NOT NULL PRIMARY KEY, ctime TIMESTAMP)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(hasTableSQL).WithArgs("_yoyo_lock").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec("CREATE TABLE _yoyo_lock (locked INTEGER NOT NULL PRIMARY KEY, ctime TIMESTAMP, pid INTEGER NOT NULL)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := newBackend(context.Background(), db, &testProvider{ddl: true}, nil, &Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_NewBackend_TablesExist(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	mock.ExpectQuery(hasTableSQL).WithArgs("_yoyo_migration").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("_yoyo_migration"))
	mock.ExpectQuery(hasTableSQL).WithArgs("_yoyo_lock").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("_yoyo_lock"))

	b, err := newBackend(context.Background(), db, &testProvider{ddl: true}, nil, &Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Backend_CustomMigrationTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	mock.ExpectQuery(hasTableSQL).WithArgs("schema_history").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("schema_history"))
	mock.ExpectQuery(hasTableSQL).WithArgs("_yoyo_lock").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("_yoyo_lock"))

	b, err := newBackend(context.Background(), db, &testProvider{ddl: true}, nil, &Config{MigrationTable: "schema_history"})
	require.NoError(t, err)
	defer b.Close()

	mock.ExpectExec("INSERT INTO schema_history (id,ctime) VALUES (?,?)").
		WithArgs("0001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, b.recordApplied(context.Background(), "0001"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Backend_AppliedSet(t *testing.T) {
	b, mock := newMockBackend(t, true)
	ctx := context.Background()

	mock.ExpectExec(insertSQL).WithArgs("0001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, b.recordApplied(ctx, "0001"))

	mock.ExpectQuery(isAppliedSQL).WithArgs("0001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	applied, err := b.isApplied(ctx, "0001")
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectQuery(listAppliedSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ctime"}).AddRow("0001", mockTime))
	rows, err := b.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0001", rows[0].ID)
	assert.Equal(t, mockTime, rows[0].CTime)

	mock.ExpectExec(deleteSQL).WithArgs("0001").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, b.unrecordApplied(ctx, "0001"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Backend_SQLiteLock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)

	config := &Config{}
	b := &Backend{
		provider: &sqliteProvider{},
		db:       db,
		conn:     conn,
		config:   config,
		log:      config.logger(),
	}
	defer b.Close()

	mock.ExpectExec("INSERT INTO _yoyo_lock (locked,ctime,pid) VALUES (?,?,?)").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, b.Lock(context.Background()))

	// locking again while held is a no-op
	require.NoError(t, b.Lock(context.Background()))

	mock.ExpectExec("DELETE FROM _yoyo_lock WHERE locked = ? AND pid = ?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, b.Unlock(context.Background()))
	require.NoError(t, b.Unlock(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PollLock(t *testing.T) {
	err := pollLock(context.Background(), 0, func() (bool, error) { return true, nil })
	assert.NoError(t, err)

	err = pollLock(context.Background(), 50*time.Millisecond, func() (bool, error) { return false, nil })
	assert.Equal(t, ErrLockTimeout, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pollLock(ctx, 0, func() (bool, error) { return false, nil })
	assert.Equal(t, context.Canceled, err)
}
