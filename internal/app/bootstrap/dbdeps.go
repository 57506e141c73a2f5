// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"sync"

	"github.com/sparktrack/sparktrack/internal/app/system/metrics"
	"github.com/sparktrack/sparktrack/internal/app/system/ratelimit"
	"github.com/sparktrack/sparktrack/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Metrics is shared by the formation service, the sweeper and /metrics.
	Metrics *metrics.Formation

	// bg is created in ConnectDB so that every hook sees the same value.
	bg *background
}

// background tracks what Startup and BuildHandler start so Shutdown can
// stop it.
type background struct {
	mu      sync.Mutex
	sweeper *workers.InvitationSweeper
	limiter *ratelimit.Limiter
}

func (b *background) setSweeper(w *workers.InvitationSweeper) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweeper = w
}

func (b *background) setLimiter(l *ratelimit.Limiter) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiter = l
}

// stop halts the sweeper and the limiter's cleanup loop. Safe to call twice.
func (b *background) stop() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sweeper != nil {
		b.sweeper.Stop()
		b.sweeper = nil
	}
	if b.limiter != nil {
		b.limiter.Stop()
		b.limiter = nil
	}
}
