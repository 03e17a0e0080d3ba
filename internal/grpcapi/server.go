package grpcapi

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"medivault-api/internal/middleware"
)

// NewServer builds a grpc.Server with the interceptor chain and h registered.
// obs may be nil.
func NewServer(h *Handler, v middleware.Verifier, rl *middleware.RateLimiter, obs middleware.Observer, log zerolog.Logger) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		middleware.UnaryRecovery(log),
		middleware.UnaryLogger(log),
	}
	if obs != nil {
		chain = append(chain, middleware.UnaryMetrics(obs))
	}
	chain = append(chain,
		middleware.RateLimit(rl),
		middleware.Auth(v),
	)

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)
	srv.RegisterService(&ServiceDesc, h)
	return srv
}
