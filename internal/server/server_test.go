package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"medivault-api/internal/appointment"
	"medivault-api/internal/auth"
	"medivault-api/internal/config"
	"medivault-api/internal/handler"
	"medivault-api/internal/middleware"
	"medivault-api/internal/store"
	"medivault-api/internal/telemetry"
)

func testEcho(t *testing.T) *echo.Echo {
	t.Helper()
	mem := store.NewMemory()
	accounts := auth.NewAccounts(mem, "server-test-secret-0123456789abcd", time.Minute, time.Hour, zerolog.Nop())
	svc := appointment.NewService(mem, mem, nil, nil, zerolog.Nop())
	cfg := &config.Config{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}
	return New(cfg, zerolog.Nop(), handler.New(svc, accounts, mem), middleware.NewRateLimiter(100, 100), telemetry.NewMetrics())
}

func TestNew_RequestIDAndCORS(t *testing.T) {
	h := HTTPHandler(testEcho(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNew_BodyLimit(t *testing.T) {
	e := testEcho(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(make([]byte, 2<<20)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestIPExtractor(t *testing.T) {
	req := func(remote, xff string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		r.Header.Set(echo.HeaderXForwardedFor, xff)
		r.Header.Set(echo.HeaderXRealIP, xff)
		return r
	}

	direct := ipExtractor(nil)
	assert.Equal(t, "198.51.100.7", direct(req("198.51.100.7:4000", "10.0.0.1")))

	proxied := ipExtractor([]string{"192.0.2.0/24"})
	assert.Equal(t, "203.0.113.5", proxied(req("192.0.2.10:4000", "203.0.113.5")))
	assert.Equal(t, "198.51.100.7", proxied(req("198.51.100.7:4000", "203.0.113.5")),
		"forwarded header from an untrusted peer is ignored")
}
