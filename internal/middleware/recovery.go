package middleware

import (
	"context"
	"fmt"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medivault-api/internal/apperr"
)

func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logPanic(logger, r, c.Response().Header().Get(echo.HeaderXRequestID))
					err = apperr.Internal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}

func UnaryRecovery(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, r, info.FullMethod)
				err = status.Error(codes.Internal, "Server error")
			}
		}()
		return next(ctx, req)
	}
}

func logPanic(logger zerolog.Logger, r any, where string) {
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	logger.Error().
		Str("at", where).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(stack[:n])).
		Msg("panic recovered")
}
