package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agentmarket/popsim/backend/utils"
	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const trackedClients = 4096

// RateLimiter keeps one token bucket per client key. The least recently
// seen clients are evicted once trackedClients is exceeded.
type RateLimiter struct {
	mu      sync.Mutex
	clients *lru.Cache
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows limit requests per window with a burst of limit.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	clients, _ := lru.New(trackedClients) // size is a positive constant
	return &RateLimiter{
		clients: clients,
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(key); ok {
		return v.(*rate.Limiter).Allow()
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(key, l)
	return l.Allow()
}

// RateLimit middleware limits requests per IP address
func RateLimit(limit int, window time.Duration) fiber.Handler {
	limiter := NewRateLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		ip := utils.GetIPAddress(c)
		if !limiter.Allow(ip) {
			slog.Warn("Rate limit exceeded",
				slog.String("type", "sys"),
				slog.String("ip", ip),
				slog.String("path", c.Path()),
				slog.Int("limit", limit),
				slog.Duration("window", window))
			return utils.SendError(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many requests. Please try again later.", nil)
		}
		return c.Next()
	}
}

// APIRateLimit middleware limits API requests
func APIRateLimit() fiber.Handler {
	return RateLimit(120, time.Minute)
}
