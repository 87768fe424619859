package config

import (
	"testing"

	"PaintVisualizer/internal/middleware"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimit(t *testing.T) {
	cases := map[string]struct {
		perSecond string
		burst     string
		want      middleware.RateLimit
	}{
		"defaults":        {want: middleware.DefaultRateLimit},
		"configured":      {perSecond: "2.5", burst: "10", want: middleware.RateLimit{PerSecond: 2.5, Burst: 10}},
		"invalid ignored": {perSecond: "fast", burst: "-3", want: middleware.DefaultRateLimit},
		"zero ignored":    {perSecond: "0", burst: "0", want: middleware.DefaultRateLimit},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("RATE_LIMIT_PER_SECOND", tc.perSecond)
			t.Setenv("RATE_LIMIT_BURST", tc.burst)

			assert.Equal(t, tc.want, LoadRateLimit())
		})
	}
}
