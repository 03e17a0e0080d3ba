package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Observer receives request outcomes. *telemetry.Metrics implements it.
type Observer interface {
	ObserveHTTP(method, route, status string, d time.Duration)
	ObserveGRPC(method, code string)
}

// Metrics records by route template, not raw path, to keep cardinality bounded.
// It must run inside Logger so the status is final.
func Metrics(o Observer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			o.ObserveHTTP(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}

func UnaryMetrics(o Observer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		resp, err := next(ctx, req)
		o.ObserveGRPC(info.FullMethod, status.Code(err).String())
		return resp, err
	}
}
