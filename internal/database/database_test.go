package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/config"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		config  config.DatabaseConfig
		want    string
		wantErr string
	}{
		{
			name:   "password and sslmode",
			config: config.DatabaseConfig{Host: "db", Port: "5432", User: "capsule", Password: "p@ss", Name: "timecapsule", SSLMode: "disable"},
			want:   "postgres://capsule:p%40ss@db:5432/timecapsule?application_name=timecapsule&sslmode=disable",
		},
		{
			name:   "no password, no sslmode",
			config: config.DatabaseConfig{Host: "db", Port: "5432", User: "capsule", Name: "timecapsule"},
			want:   "postgres://capsule@db:5432/timecapsule?application_name=timecapsule",
		},
		{
			name:    "missing host and name",
			config:  config.DatabaseConfig{Port: "5432", User: "capsule"},
			wantErr: "missing [host name]",
		},
		{
			name:    "empty config",
			wantErr: "missing [host port user name]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPostgresDSN(tt.config)
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// stubOpen makes NewPostgres hand out db instead of dialing.
func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, err }
	t.Cleanup(func() { sqlOpen = orig })
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host:               "db",
		Port:               "5432",
		User:               "capsule",
		Password:           "pass",
		Name:               "timecapsule",
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 300,
		ConnMaxIdleTimeSec: 60,
	}

	t.Run("success applies pool settings", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)
		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), conf)
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 10, got.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping error closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "db ping: ping failed")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled context aborts the ping", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectClose()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := NewPostgres(ctx, conf)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorContains(t, err, "db ping")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("slow ping is bounded", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		orig := pingTimeout
		pingTimeout = 20 * time.Millisecond
		t.Cleanup(func() { pingTimeout = orig })
		mock.ExpectPing().WillDelayFor(time.Second)

		start := time.Now()
		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "db ping")
		assert.Nil(t, got)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("invalid config never opens", func(t *testing.T) {
		stubOpen(t, nil, errors.New("must not be called"))

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, got)
	})
}
