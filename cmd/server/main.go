// Command server starts the CineVault catalog HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cinevault/internal/api"
	"cinevault/internal/auth"
	"cinevault/internal/observability/logging"
	"cinevault/internal/server"
	"cinevault/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	dataPath := flag.String("data", "", "path to the JSON datastore")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	jwtSecret := flag.String("jwt-secret", "", "secret used to sign bearer tokens")
	tokenTTL := flag.Duration("token-ttl", 0, "issued token lifetime")
	uploadDir := flag.String("upload-dir", "", "directory for poster uploads")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	flag.Parse()

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CINEVAULT_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CINEVAULT_LOG_FORMAT")),
	})

	// The signing secret has no default; the process refuses to start without it.
	secret := firstNonEmpty(*jwtSecret, os.Getenv("CINEVAULT_JWT_SECRET"))
	if strings.TrimSpace(secret) == "" {
		logger.Error("CINEVAULT_JWT_SECRET is required")
		os.Exit(1)
	}
	ttl := resolveDuration(*tokenTTL, "CINEVAULT_TOKEN_TTL", auth.DefaultTokenTTL)
	tokens, err := auth.NewTokenManager([]byte(secret), ttl)
	if err != nil {
		logger.Error("failed to configure token manager", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := resolveStorageDriver(*storageDriver, os.Getenv("CINEVAULT_STORAGE_DRIVER"), firstNonEmpty(*postgresDSN, os.Getenv("CINEVAULT_POSTGRES_DSN")))
	var store storage.Repository
	switch driver {
	case "json":
		dataFile := firstNonEmpty(*dataPath, os.Getenv("CINEVAULT_DATA"), "cinevault.json")
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		dsn := firstNonEmpty(*postgresDSN, os.Getenv("CINEVAULT_POSTGRES_DSN"))
		if dsn == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		store, err = storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:             dsn,
			MaxConnections:  int32(resolveInt(*postgresMaxConns, "CINEVAULT_POSTGRES_MAX_CONNS")),
			MinConnections:  int32(resolveInt(*postgresMinConns, "CINEVAULT_POSTGRES_MIN_CONNS")),
			ApplicationName: firstNonEmpty(*postgresAppName, os.Getenv("CINEVAULT_POSTGRES_APP_NAME"), "cinevault"),
		})
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, tokens)
	handler.Logger = logging.WithComponent(logger, "api")
	handler.UploadDir = firstNonEmpty(*uploadDir, os.Getenv("CINEVAULT_UPLOAD_DIR"))

	listenAddr := firstNonEmpty(*addr, os.Getenv("CINEVAULT_ADDR"), ":8080")
	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CINEVAULT_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CINEVAULT_TLS_KEY")),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	logger.Info("CineVault API listening", "addr", listenAddr, "storage_driver", driver)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func resolveInt(flagValue int, envName string) int {
	if flagValue > 0 {
		return flagValue
	}
	if raw := strings.TrimSpace(os.Getenv(envName)); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return value
		}
	}
	return flagValue
}

func resolveDuration(flagValue time.Duration, envName string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if raw := strings.TrimSpace(os.Getenv(envName)); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			return value
		}
	}
	return fallback
}

// resolveStorageDriver picks the datastore driver: an explicit flag or env
// value wins, then a configured Postgres DSN implies postgres, otherwise the
// JSON file store is used.
func resolveStorageDriver(flagValue, envValue, dsn string) string {
	driver := strings.ToLower(strings.TrimSpace(flagValue))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envValue))
	}
	if driver == "" {
		if strings.TrimSpace(dsn) != "" {
			return "postgres"
		}
		return "json"
	}
	return driver
}
