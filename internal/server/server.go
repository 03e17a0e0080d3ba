package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"medivault-api/internal/config"
	"medivault-api/internal/grpcweb"
	"medivault-api/internal/handler"
	"medivault-api/internal/middleware"
	"medivault-api/internal/telemetry"
)

const bodyLimit = "1M"

// New assembles the HTTP app: global middleware, /metrics and the /api routes.
func New(cfg *config.Config, log zerolog.Logger, h *handler.Handler, rl *middleware.RateLimiter, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(cfg.IsProduction(), log)
	e.IPExtractor = ipExtractor(cfg.TrustedProxies)

	e.Use(middleware.Recovery(log))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(log))
	e.Use(middleware.Metrics(metrics))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	h.RegisterRoutes(e.Group("/api"), middleware.RateLimitHTTP(rl))
	return e
}

// ipExtractor takes the client address from the socket unless the peer is
// one of the trusted proxy ranges, in which case X-Forwarded-For is read.
// Rate limiting keys on this address.
func ipExtractor(proxies []string) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, p := range proxies {
		if _, n, err := net.ParseCIDR(p); err == nil {
			opts = append(opts, echo.TrustIPRange(n))
		}
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// HTTPHandler wraps e with request tracing. When bridge is set, gRPC-Web
// calls are routed to it instead of e.
func HTTPHandler(e *echo.Echo, bridge *grpcweb.Bridge) http.Handler {
	var h http.Handler = e
	if bridge != nil {
		prefix := grpcweb.Prefix()
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				bridge.ServeHTTP(w, r)
				return
			}
			e.ServeHTTP(w, r)
		})
	}
	return otelhttp.NewHandler(h, "medivault-http")
}
