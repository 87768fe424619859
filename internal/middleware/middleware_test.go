package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	contextPkg "PaintVisualizer/pkg/context"
	jwtPkg "PaintVisualizer/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", "middleware-secret")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := New(logger)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/admin", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		admin, err := jwtPkg.GetAdmin(c)
		if err != nil {
			return err
		}
		return c.SendString(admin.ID)
	})
	return app
}

func bearer(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	signed, _, err := jwtPkg.Sign(claims, time.Hour)
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestTokenMiddleware(t *testing.T) {
	app := newProtectedApp(t)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"no role", bearer(t, map[string]interface{}{"id": "u-1"}), fiber.StatusForbidden},
		{"admin", bearer(t, map[string]interface{}{"id": "u-1", "role": "admin"}), fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newProtectedApp(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(RequestIDKey, "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDKey))
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody("/api/v1/visualizations", `{"color_hex":"#1F2937","image_base64":"AAAA","token":"t"}`)

	assert.Contains(t, got, `"image_base64":"[OMITTED]"`)
	assert.Contains(t, got, `"token":"[SECRET]"`)
	assert.Contains(t, got, `"color_hex":"#1F2937"`)
	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody("/", "--boundary"))
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := &middleware{rateLimitter: newRateLimiter(1, 1), log: logger}

	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, first.StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get(fiber.HeaderRetryAfter))

	var body map[string]string
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestRateLimitOptionSetsBucket(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := New(logger, WithRateLimit(RateLimit{PerSecond: 0.01, Burst: 2})).(*middleware)

	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	statuses := make([]int, 0, 3)
	var last *http.Response
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		last = resp
	}

	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
	retry, err := strconv.Atoi(last.Header.Get(fiber.HeaderRetryAfter))
	require.NoError(t, err)
	assert.Greater(t, retry, 1)
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	app := fiber.New()
	app.Use(NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(contextPkg.GetRequestID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDKey, "bad id with spaces")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	id := resp.Header.Get(RequestIDKey)
	assert.Len(t, id, 26)
	assert.NotEqual(t, "bad id with spaces", id)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, id, string(body))
}
