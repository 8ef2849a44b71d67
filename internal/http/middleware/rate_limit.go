package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
)

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// limiterPool keeps one token bucket per key. Keys are user ids, so the
// pool grows with the number of distinct submitters.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg RateLimitConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 0.5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 3
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

// RateLimitPerUser throttles authenticated callers by user id and anonymous
// ones by client IP. Mount it after RequireAuth.
func RateLimitPerUser(cfg RateLimitConfig, m *observability.Metrics) gin.HandlerFunc {
	pool := &limiterPool{cfg: cfg}
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor := ctxutil.ActorFrom(c.Request.Context()); actor.Authenticated() {
			key = actor.UserID.String()
		}
		l := pool.get(key)
		if l.Allow() {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.IncRateLimited(route)
		wait := 1 / float64(l.Limit())
		c.Header("Retry-After", strconv.Itoa(int(wait)+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"message": "too many requests, slow down", "code": "rate_limited"},
		})
	}
}
