package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Aswinikumar555/ai-customer-support/internal/adapter/llm"
	"github.com/Aswinikumar555/ai-customer-support/internal/config"
	"github.com/Aswinikumar555/ai-customer-support/internal/lock"
	"github.com/Aswinikumar555/ai-customer-support/internal/logger"
	"github.com/Aswinikumar555/ai-customer-support/internal/observability"
	"github.com/Aswinikumar555/ai-customer-support/internal/repository"
	"github.com/Aswinikumar555/ai-customer-support/internal/service"
	handler "github.com/Aswinikumar555/ai-customer-support/internal/transport/http"
	"github.com/Aswinikumar555/ai-customer-support/internal/transport/rpc"
	"github.com/Aswinikumar555/ai-customer-support/internal/transport/ws"
	"github.com/Aswinikumar555/ai-customer-support/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Chat service stopped with error")
	}
	log.Info().Msg("Chat service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Int("http_port", cfg.HTTPPort).
		Int("internal_port", cfg.InternalPort).
		Str("storage_driver", cfg.StorageDriver).
		Str("llm_base_url", cfg.LLMBaseURL).
		Str("llm_model", cfg.LLMModel).
		Msg("Starting chat service")

	shutdownTracing, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	// Unreachable storage is fatal in every environment.
	store, err := repository.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := lock.NewRedisLocker(ctx, cfg.RedisURL, cfg.LockTTL, cfg.LockWait(), log)
		if err != nil {
			return err
		}
		defer redisLocker.Close()
		locker = redisLocker
		log.Info().Msg("Using Redis conversation locks")
	}

	policyEngine, err := policy.NewDefaultEngine(ctx)
	if err != nil {
		return err
	}

	hub := ws.NewHub(log)
	svc := service.New(store, llm.NewCompletionClient(cfg, log), locker, policyEngine, cfg,
		service.WithLogger(log),
		service.WithNotifier(hub),
	)

	wsServer := ws.NewServer(hub, svc, cfg.WSPingInterval, cfg.MessageMaxChars, log)
	publicServer := handler.NewPublicServer(svc, wsServer, cfg.JWTSecret, log)
	internalServer := handler.NewInternalServer(svc, log)

	var rpcServer *rpc.Server
	if cfg.RPCAddr != "" {
		rpcServer, err = rpc.NewServer(svc, log)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Msg("Public API started")
		return serve(publicServer, cfg.Addr())
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.InternalAddr()).Msg("Internal API started")
		return serve(internalServer, cfg.InternalAddr())
	})
	if rpcServer != nil {
		g.Go(func() error {
			log.Info().Str("addr", cfg.RPCAddr).Msg("RPC server started")
			return rpcServer.Start(cfg.RPCAddr)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down chat service...")

		// Replies that are already being generated get the time to arrive and
		// be persisted before storage closes.
		sctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout())
		defer cancel()

		var errs []error
		if err := publicServer.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		if rpcServer != nil {
			if err := rpcServer.Shutdown(sctx); err != nil {
				errs = append(errs, err)
			}
		}
		// WebSocket and RPC exchanges are invisible to the HTTP server.
		if err := svc.Drain(sctx); err != nil {
			log.Error().Err(err).Msg("Chat exchanges still running at shutdown")
			errs = append(errs, err)
		}
		if err := internalServer.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func serve(e *echo.Echo, addr string) error {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
