// Package job provides the scheduled background jobs of the API server.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/util/metrics"
)

// CheckStoreHealthJob pings the database and, when one is configured, the
// redis holding the rate limit counters.
type CheckStoreHealthJob struct {
	db      *gorm.DB
	redis   redis.UniversalClient
	timeout time.Duration

	mu sync.Mutex
	up map[string]bool
}

func NewCheckStoreHealthJob(db *gorm.DB, client redis.UniversalClient) *CheckStoreHealthJob {
	return &CheckStoreHealthJob{
		db:      db,
		redis:   client,
		timeout: 5 * time.Second,
		up:      make(map[string]bool),
	}
}

// Here Run is an interface method of the Job interface
func (j *CheckStoreHealthJob) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if j.db != nil {
		j.report("database", j.pingDB(ctx))
	}
	if j.redis != nil {
		j.report("redis", j.redis.Ping(ctx).Err())
	}
}

func (j *CheckStoreHealthJob) pingDB(ctx context.Context) error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// report logs only on state changes.
func (j *CheckStoreHealthJob) report(store string, err error) {
	up := err == nil
	was, seen := j.up[store]
	j.up[store] = up
	if up {
		metrics.StoreUp.WithLabelValues(store).Set(1)
		if seen && !was {
			logger.Infof("%s is reachable again", store)
		}
		return
	}
	metrics.StoreUp.WithLabelValues(store).Set(0)
	if !seen || was {
		logger.Warningf("%s health check failed: %v", store, err)
	}
}
