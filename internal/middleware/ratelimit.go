package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit applies a fixed-window limit per authenticated user (falling
// back to the client IP before auth runs). A nil Redis client disables
// limiting entirely, and Redis errors fail open so a cache outage never
// takes bookings down with it.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	if rdb == nil || limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		actor, _ := c.Locals("user_id").(string)
		if actor == "" {
			actor = c.IP()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", c.Route().Path, actor)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			_ = rdb.Expire(ctx, key, window).Err()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			ttl, err := rdb.TTL(ctx, key).Result()
			if err == nil && ttl > 0 {
				c.Set("Retry-After", strconv.Itoa(int(ttl/time.Second)+1))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}

		return c.Next()
	}
}
