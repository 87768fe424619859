package middleware

import (
	"PaintVisualizer/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"math"
	"net/http"
	"strconv"
	"sync"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

// RateLimit is the per-client token bucket put in front of the visualization
// route. Every accepted request fans out to detector and synthesizer calls.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

var DefaultRateLimit = RateLimit{PerSecond: 0.5, Burst: 5}

type rateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     *sync.RWMutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
		mutex:     &sync.RWMutex{},
	}
}

func (r *rateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exist := r.bucket[ip]; !exist {
		r.bucket[ip] = rate.NewLimiter(r.rate, r.burstSize)
	}

	return r.bucket[ip]
}

// retryAfter reports how long until the next token, in whole seconds.
func retryAfter(limiter *rate.Limiter) int {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return 1
	}
	delay := reservation.Delay()
	reservation.Cancel()

	seconds := int(math.Ceil(delay.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	limiter := m.rateLimitter.GetLimiterFrom(clientIP)

	if !limiter.Allow() {
		wait := retryAfter(limiter)
		m.log.WithFields(logrus.Fields{
			"request_id":  m.GetRequestID(ctx),
			"ip":          clientIP,
			"retry_after": wait,
		}).Warn("Rate limit exceeded")

		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(wait))
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": ErrTooManyRequests.Error(),
			"code":  "RATE_LIMITED",
		})
	}

	return ctx.Next()
}
