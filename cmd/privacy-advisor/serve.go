package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"privacy-advisor/cache"
	"privacy-advisor/config"
	"privacy-advisor/engine"
	"privacy-advisor/geo"
	"privacy-advisor/kvstore"
	"privacy-advisor/kvstore/pgstore"
	"privacy-advisor/kvstore/redisstore"
	"privacy-advisor/logging"
	"privacy-advisor/middleware/ratelimit"
	"privacy-advisor/middleware/ratelimit/application"
	"privacy-advisor/middleware/ratelimit/domain"
	"privacy-advisor/middleware/ratelimit/infra"
	"privacy-advisor/relay"
	"privacy-advisor/server"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const statsScope = "analyze"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis ping error: %w", err)
		}
	}

	var (
		admitter relay.Admitter
		stats    server.StatsReader
	)
	if cfg.RateLimit.Enabled {
		limiter := application.Service{
			Policy: domain.Policy{Limit: cfg.RateLimit.Max, Window: cfg.RateLimit.Window},
			Scope:  statsScope,
		}
		switch cfg.RateLimit.Backend {
		case "redis":
			limiter.Counter = infra.NewRedisCounter(rdb)
		default:
			counter := infra.NewMemoryCounter()
			counter.StartJanitor(ctx, cfg.RateLimit.Window)
			limiter.Counter = counter
		}

		if st := cfg.RateLimit.Stats; st.Enabled {
			switch st.Backend {
			case "redis":
				redisStats := infra.NewRedisStatsStore(
					rdb,
					infra.WithStatsPrefix(st.Prefix),
					infra.WithStatsTTL(st.TTL),
					infra.WithStatsBucket(st.Bucket),
					infra.WithStatsTrackKeys(st.TrackKeys),
				)
				limiter.Stats = redisStats
				stats = redisStats
			default:
				mem := infra.NewMemoryStatsStore(infra.WithTrackKeys(st.TrackKeys))
				limiter.Stats = mem
				stats = mem
			}
		}
		admitter = limiter
	}

	var results relay.ResultCache
	if cfg.Cache.Enabled {
		store, closeStore, err := openCacheStore(ctx, cfg, rdb)
		if err != nil {
			return err
		}
		defer closeStore()
		results = cache.New(
			store,
			cache.WithPrefix(cfg.Cache.Prefix),
			cache.WithFreshness(cfg.Cache.Freshness),
		)
	}

	var resolver geo.Resolver
	if cfg.GeoIP.DBPath != "" {
		db, err := geo.Open(cfg.GeoIP.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		resolver = db
	}

	svc := relay.New(relay.Config{
		Engine:    engine.NewPacer(newEngine(cfg.Engine), cfg.Engine.MinInterval, 1),
		Admitter:  admitter,
		Cache:     results,
		Logger:    log,
		MaxTokens: cfg.Engine.MaxTokens,
	})

	srv := server.New(server.Options{
		Analyzer: svc,
		KeyFunc: ratelimit.DefaultKeyFunc(ratelimit.KeyOptions{
			Header:             cfg.RateLimit.KeyHeader,
			TrustXForwardedFor: cfg.RateLimit.TrustXFF,
			UseRemoteAddr:      cfg.RateLimit.UseRemoteAddr,
		}),
		Geo:   resolver,
		Stats: stats,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Concurrency.Max,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.Concurrency.AcquireTimeout,
		},
		AllowOrigin: cfg.CORS.AllowOrigin,
		Logger:      log,
	})

	// Uma análise com busca na web leva bem mais que 30s.
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("relay listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("engine", cfg.Engine.Provider),
		zap.Bool("engine_configured", cfg.Engine.APIKey != ""),
	)
	log.Info("rate limit",
		zap.Bool("enabled", cfg.RateLimit.Enabled),
		zap.Int("max", cfg.RateLimit.Max),
		zap.Duration("window", cfg.RateLimit.Window),
		zap.String("backend", cfg.RateLimit.Backend),
		zap.String("key_header", cfg.RateLimit.KeyHeader),
		zap.Bool("trust_xff", cfg.RateLimit.TrustXFF),
	)
	log.Info("cache",
		zap.Bool("enabled", cfg.Cache.Enabled),
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("freshness", cfg.Cache.Freshness),
	)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newEngine(cfg config.EngineConfig) engine.Engine {
	switch cfg.Provider {
	case "gemini":
		var hc *http.Client
		if cfg.Timeout > 0 {
			hc = &http.Client{Timeout: cfg.Timeout}
		}
		return engine.NewGeminiClient(engine.GeminiConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: hc,
		})
	default:
		return engine.NewAnthropicClient(engine.AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	}
}

func openCacheStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (kvstore.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		return redisstore.New(rdb, redisstore.WithTTL(cfg.Cache.Freshness)), func() {}, nil
	case "postgres":
		pg, err := pgstore.Connect(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return kvstore.NewMemoryStore(), func() {}, nil
	}
}
