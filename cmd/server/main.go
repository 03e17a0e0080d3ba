package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medivault-api/internal/appointment"
	"medivault-api/internal/auth"
	"medivault-api/internal/cache"
	"medivault-api/internal/config"
	"medivault-api/internal/events"
	"medivault-api/internal/grpcapi"
	"medivault-api/internal/grpcweb"
	"medivault-api/internal/handler"
	"medivault-api/internal/lifecycle"
	"medivault-api/internal/middleware"
	"medivault-api/internal/server"
	"medivault-api/internal/store"
	"medivault-api/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medivault",
		Short:        "MediVault appointment API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "medivault").Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// backend is everything the server needs from persistence.
type backend interface {
	appointment.Store
	appointment.Directory
	auth.AccountStore
	handler.Pinger
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to postgres")

	m, err := store.NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// newDoctorCache returns a nil cache when REDIS_URL is unset. The returned
// func closes the Redis client.
func newDoctorCache(ctx context.Context, cfg *config.Config, dir cache.Directory, logger zerolog.Logger) (*cache.Doctors, func() error, error) {
	if cfg.RedisURL == "" {
		return nil, func() error { return nil }, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, doctor cache will fall through")
	}
	return cache.NewDoctors(dir, rdb, cfg.DoctorCacheTTL, logger), rdb.Close, nil
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "medivault-api",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error().Err(err).Msg("flush traces")
		}
	}()

	metrics := telemetry.NewMetrics()

	// storage
	var st backend
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		st = store.NewMemory()
	default:
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		st = store.New(pool)
	}

	accounts := auth.NewAccounts(st, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)

	var users appointment.Directory = st
	doctors, closeCache, err := newDoctorCache(ctx, cfg, st, logger)
	if err != nil {
		return err
	}
	if doctors != nil {
		defer closeCache()
		doctors.WithRecorder(metrics)
		accounts.OnUserCreated(doctors.UserCreated)
		users = doctors
		logger.Info().Dur("ttl", cfg.DoctorCacheTTL).Msg("doctor cache enabled")
	}

	var pub events.Publisher = events.Nop{}
	if brokers := events.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, 0, logger).WithRecorder(metrics)
		pubCtx, cancelPub := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			kp.Run(pubCtx)
			close(done)
		}()
		defer func() {
			cancelPub()
			<-done
			if err := kp.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}()
		pub = kp
		logger.Info().Strs("brokers", brokers).Msg("publishing appointment events")
	}

	engine := lifecycle.New(cfg.StrictTransitions)
	svc := appointment.NewService(st, users, engine, pub, logger)

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	rl.OnLimit(metrics.RateLimited)
	go rl.Run(ctx)

	// grpc, plus a grpc-web bridge on the http port for browsers
	grpcSrv := grpcapi.NewServer(grpcapi.NewHandler(svc, accounts), accounts, rl, metrics, logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	bridge, err := grpcweb.New("127.0.0.1:"+cfg.GRPCPort, cfg.CORSOrigins, logger)
	if err != nil {
		return err
	}
	defer bridge.Close()

	// http
	e := server.New(cfg, logger, handler.New(svc, accounts, st), rl, metrics)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.HTTPHandler(e, bridge),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("port", cfg.GRPCPort).Msg("grpc listening")
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err = <-errCh:
		logger.Error().Err(err).Msg("server failed, shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(sctx); serr != nil {
		logger.Error().Err(serr).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()
	return err
}
