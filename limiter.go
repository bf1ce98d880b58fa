package pynector

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pynector/pynector-go/internal/concurrency/distributed"
)

// NewRedisLimiter returns a Limiter enforced across every process
// sharing client and name, for callers whose batch concurrency budget
// spans more than one process (several workers issuing batches against
// one upstream). holderTTL bounds how long a crashed holder's slot
// stays consumed before it is reclaimed; zero or negative values pick
// the package defaults. Pass the result to BatchRequest via
// WithLimiter.
func NewRedisLimiter(client *redis.Client, name string, capacity int, holderTTL time.Duration) Limiter {
	return distributed.NewLimiter(client, name, capacity, holderTTL, 0).Scoped()
}
