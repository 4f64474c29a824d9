package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// startLimiter enforces a per-identity limit on session creation, separate
// from the global request limit on the router.
type startLimiter struct {
	perMinute int

	mu       sync.Mutex
	limiters map[string]*identityLimiter
}

type identityLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newStartLimiter(perMinute int) *startLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &startLimiter{
		perMinute: perMinute,
		limiters:  make(map[string]*identityLimiter),
	}
}

func (sl *startLimiter) allow(identity string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := time.Now()
	for key, entry := range sl.limiters {
		if now.Sub(entry.lastAccess) > limiterIdleTTL {
			delete(sl.limiters, key)
		}
	}

	entry, ok := sl.limiters[identity]
	if !ok {
		entry = &identityLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(sl.perMinute)/60.0), sl.perMinute),
		}
		sl.limiters[identity] = entry
	}
	entry.lastAccess = now

	return entry.limiter.Allow()
}

// limitStarts wraps a handler with the per-identity creation limit. It runs
// after withIdentity so the identity is always present.
func (a *API) limitStarts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := identityFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, errNoIdentity)
			return
		}
		if !a.starts.allow(user.ID.String()) {
			respondError(w, http.StatusTooManyRequests, errors.New("too many session starts"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
