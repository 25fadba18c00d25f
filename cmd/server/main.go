// Command server starts the ReelShare API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reelshare/internal/api"
	"reelshare/internal/auth"
	"reelshare/internal/imagekit"
	"reelshare/internal/observability/logging"
	"reelshare/internal/observability/metrics"
	"reelshare/internal/server"
	"reelshare/internal/storage"
)

func main() {
	// Missing .env is fine; the environment itself still applies.
	_ = godotenv.Load()

	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionSecret := flag.String("session-secret", "", "secret used to sign session tokens")
	sessionTTL := flag.Duration("session-ttl", 0, "session token lifetime")
	imagekitPublicKey := flag.String("imagekit-public-key", "", "ImageKit public API key")
	imagekitPrivateKey := flag.String("imagekit-private-key", "", "ImageKit private API key")
	imagekitEndpoint := flag.String("imagekit-url-endpoint", "", "ImageKit URL endpoint serving uploaded media")
	uploadAuthTTL := flag.Duration("upload-auth-ttl", 0, "lifetime of signed upload credentials")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	corsOrigins := flag.String("cors-origins", "", "comma separated browser origins allowed to call the API")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	trustForwarded := flag.Bool("rate-trust-forwarded-headers", false, "trust proxy-provided client IP headers")
	trustedProxies := flag.String("rate-trusted-proxies", "", "comma separated CIDR blocks or IPs of trusted proxies")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	flag.Parse()

	logger := logging.New(logging.Config{Level: firstNonEmpty(*logLevel, os.Getenv("REELSHARE_LOG_LEVEL"))})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("REELSHARE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("REELSHARE_ADDR"))

	secret := firstNonEmpty(*sessionSecret, os.Getenv("REELSHARE_SESSION_SECRET"))
	if secret == "" {
		logger.Error("session secret is required: set --session-secret or REELSHARE_SESSION_SECRET")
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager(secret, resolveDuration(*sessionTTL, "REELSHARE_SESSION_TTL", 0))
	if err != nil {
		logger.Error("failed to configure session tokens", "error", err)
		os.Exit(1)
	}

	signer, err := imagekit.NewSigner(imagekit.Config{
		PublicKey:   firstNonEmpty(*imagekitPublicKey, os.Getenv("REELSHARE_IMAGEKIT_PUBLIC_KEY")),
		PrivateKey:  firstNonEmpty(*imagekitPrivateKey, os.Getenv("REELSHARE_IMAGEKIT_PRIVATE_KEY")),
		URLEndpoint: firstNonEmpty(*imagekitEndpoint, os.Getenv("REELSHARE_IMAGEKIT_URL_ENDPOINT")),
		UploadTTL:   resolveDuration(*uploadAuthTTL, "REELSHARE_UPLOAD_AUTH_TTL", 0),
	})
	if err != nil {
		logger.Error("failed to configure upload signing", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("REELSHARE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" && driver != "postgres" {
		logger.Error("production mode requires the postgres datastore driver", "driver", driver)
		os.Exit(1)
	}

	var opener storage.Opener
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("REELSHARE_DATA"))
		opener = func(ctx context.Context) (storage.Repository, error) {
			return storage.NewJSONRepository(dataFile)
		}
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.Option
		maxConns := resolveInt(*postgresMaxConns, "REELSHARE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "REELSHARE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "REELSHARE_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "REELSHARE_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "REELSHARE_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "REELSHARE_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("REELSHARE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		opener = func(ctx context.Context) (storage.Repository, error) {
			return storage.NewPostgresRepository(ctx, postgresDefaultDSN, pgOptions...)
		}
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}

	gateway := storage.NewGateway(opener)
	if err := probeDatastore(gateway, serverMode, logger); err != nil {
		os.Exit(1)
	}

	handler := api.NewHandler(gateway, tokens)
	handler.Signer = signer
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Metrics = recorder

	rateCfg := server.RateLimitConfig{
		GlobalRPS:             resolveFloat(*globalRPS, "REELSHARE_RATE_GLOBAL_RPS"),
		GlobalBurst:           resolveInt(*globalBurst, "REELSHARE_RATE_GLOBAL_BURST"),
		LoginLimit:            resolveInt(*loginLimit, "REELSHARE_RATE_LOGIN_LIMIT"),
		LoginWindow:           resolveDuration(*loginWindow, "REELSHARE_RATE_LOGIN_WINDOW", time.Minute),
		TrustForwardedHeaders: resolveBool(*trustForwarded, "REELSHARE_RATE_TRUST_FORWARDED_HEADERS"),
		TrustedProxies:        splitAndTrim(firstNonEmpty(*trustedProxies, os.Getenv("REELSHARE_RATE_TRUSTED_PROXIES"))),
		RedisAddr:             firstNonEmpty(*redisAddr, os.Getenv("REELSHARE_RATE_REDIS_ADDR")),
		RedisPassword:         firstNonEmpty(*redisPassword, os.Getenv("REELSHARE_RATE_REDIS_PASSWORD")),
		RedisTimeout:          resolveDuration(*redisTimeout, "REELSHARE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("REELSHARE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("REELSHARE_TLS_KEY")),
		},
		RateLimit: rateCfg,
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("REELSHARE_CORS_ORIGINS"))),
		},
		Security: server.SecurityConfig{
			MediaOrigin: mediaOrigin(signer.URLEndpoint()),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("ReelShare API listening", "addr", listenAddr, "mode", serverMode, "storage_driver", driver)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	if err := gateway.Close(ctx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}

	logger.Info("server stopped")
}

// probeDatastore connects eagerly so misconfiguration surfaces at boot. In
// development an unreachable datastore only warns, since the gateway retries
// on first use.
func probeDatastore(gateway *storage.Gateway, mode string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := gateway.Connect(ctx)
	if err == nil {
		err = repo.Ping(ctx)
	}
	if err == nil {
		return nil
	}
	if mode == "production" {
		logger.Error("datastore unreachable", "error", err)
		return err
	}
	logger.Warn("datastore unreachable, will retry on first request", "error", err)
	return nil
}

func mediaOrigin(endpoint string) string {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, "://", 2)
	if len(parts) != 2 {
		return trimmed
	}
	host := parts[1]
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	return parts[0] + "://" + host
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "", fmt.Errorf("no datastore configured: provide --storage-driver json or configure Postgres via REELSHARE_POSTGRES_DSN, DATABASE_URL, or --postgres-dsn")
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("REELSHARE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
