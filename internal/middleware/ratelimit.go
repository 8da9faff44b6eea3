package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP), first line of defense for all API endpoints
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Plan endpoint limits (per IP): planning stats every candidate file,
	// so it is the most expensive read path
	PlanMax        int
	PlanExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 300/min = 5 req/sec; tools batch several calls per step
		GlobalAPIMax:        300,
		GlobalAPIExpiration: 1 * time.Minute,

		// Planning: 60/min = 1 req/sec average
		PlanMax:        60,
		PlanExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PLAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.PlanMax = n
		}
	}

	return config
}

// GlobalAPIRateLimiter applies the per-IP global limit to all API routes
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}

// PlanRateLimiter guards the inclusion-planning endpoint
func PlanRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.PlanMax,
		Expiration: config.PlanExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "plan:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Plan endpoint limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many planning requests. Please wait before retrying.",
				"retry_after": int(config.PlanExpiration.Seconds()),
			})
		},
	})
}
