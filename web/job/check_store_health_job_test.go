package job

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steams-social/steams-api/config"
	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/util/metrics"
)

func TestCheckStoreHealthJob(t *testing.T) {
	cfg := &config.Store{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "health.db")}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	j := NewCheckStoreHealthJob(db, client)
	j.Run()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreUp.WithLabelValues("database")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreUp.WithLabelValues("redis")))

	mr.Close()
	j.Run()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StoreUp.WithLabelValues("redis")))
	assert.False(t, j.up["redis"])

	require.NoError(t, sqlDB.Close())
	j.Run()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StoreUp.WithLabelValues("database")))
}

func TestCheckStoreHealthJobWithoutRedis(t *testing.T) {
	j := NewCheckStoreHealthJob(nil, nil)
	j.Run()
	assert.Empty(t, j.up)
}
