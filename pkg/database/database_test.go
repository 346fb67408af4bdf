package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.DatabaseConfig
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{
			name:       "postgres url wins",
			cfg:        config.DatabaseConfig{Driver: "postgres", URL: "postgres://u:p@db/app", Host: "ignored"},
			wantDriver: DriverPostgres,
			wantDSN:    "postgres://u:p@db/app",
		},
		{
			name:       "postgres fields",
			cfg:        config.DatabaseConfig{Driver: "postgres", Host: "db", User: "app", Password: "pw", Name: "autopilot"},
			wantDriver: DriverPostgres,
			wantDSN:    "host=db port=5432 user=app password=pw dbname=autopilot sslmode=disable",
		},
		{
			name:       "sqlite path",
			cfg:        config.DatabaseConfig{Driver: "sqlite", Path: "/tmp/a.db"},
			wantDriver: DriverSQLite,
			wantDSN:    "file:/tmp/a.db?_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29",
		},
		{
			name:    "unknown driver",
			cfg:     config.DatabaseConfig{Driver: "oracle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := DSN(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestSQLiteMigrate(t *testing.T) {
	db, err := New(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	// second call is a no-op
	require.NoError(t, db.Migrate(ctx))

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)

	for _, table := range []string{"accounts", "projects", "affiliate_links", "content_records", "jobs", "blog_posts"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}

	q := "SELECT id FROM jobs WHERE status = $1 AND account_id = $2"
	assert.Equal(t, q, pg.Rebind(q))
	assert.Equal(t, "SELECT id FROM jobs WHERE status = ?1 AND account_id = ?2", lite.Rebind(q))
}
