package config

import (
	"os"
	"strconv"

	"PaintVisualizer/internal/middleware"
)

// LoadRateLimit reads RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST. Missing or
// non-positive values keep the defaults.
func LoadRateLimit() middleware.RateLimit {
	limit := middleware.DefaultRateLimit

	if v, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_PER_SECOND"), 64); err == nil && v > 0 {
		limit.PerSecond = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST")); err == nil && v > 0 {
		limit.Burst = v
	}

	return limit
}
