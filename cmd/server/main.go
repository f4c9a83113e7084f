package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/chirpy/internal/authkit"
	"github.com/tyemirov/chirpy/internal/storage"
	"github.com/tyemirov/chirpy/internal/web"
	webassets "github.com/tyemirov/chirpy/web"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

const defaultDatabaseURL = "sqlite:file:chirpy?mode=memory&cache=shared"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "chirpy",
		Short:   "Chirpy API: accounts, chirps, JWT access tokens and refresh tokens",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for access tokens")
	rootCmd.Flags().Duration("access_token_ttl", authkit.DefaultAccessTokenTTL, "Access token TTL")
	rootCmd.Flags().Duration("refresh_token_ttl", authkit.DefaultRefreshTokenTTL, "Refresh token TTL")
	rootCmd.Flags().String("polka_key", "", "API key expected on Polka webhooks")
	rootCmd.Flags().String("platform", "", "Deployment platform; only \"dev\" allows /admin/reset")
	rootCmd.Flags().String("database_url", defaultDatabaseURL, "Database URL (postgres:// or sqlite:)")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")

	for _, name := range []string{
		"listen_addr",
		"jwt_signing_key",
		"access_token_ttl",
		"refresh_token_ttl",
		"polka_key",
		"platform",
		"database_url",
		"enable_cors",
		"cors_allowed_origins",
	} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	viper.SetEnvPrefix("CHIRPY")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidAccessTokenTTL   = "config.invalid_access_token_ttl"
	configCodeInvalidRefreshTokenTTL  = "config.invalid_refresh_token_ttl"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeDatabaseOpen            = "config.database_open"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads the auth configuration from flags and CHIRPY_* variables.
func LoadServerConfig() (authkit.ServerConfig, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	accessTokenTTL := authkit.DefaultAccessTokenTTL
	if viper.IsSet("access_token_ttl") {
		accessTokenTTL = viper.GetDuration("access_token_ttl")
	}
	if accessTokenTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTokenTTL, "access_token_ttl must be greater than zero")
	}

	refreshTokenTTL := authkit.DefaultRefreshTokenTTL
	if viper.IsSet("refresh_token_ttl") {
		refreshTokenTTL = viper.GetDuration("refresh_token_ttl")
	}
	if refreshTokenTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTokenTTL, "refresh_token_ttl must be greater than zero")
	}

	return authkit.ServerConfig{
		JWTSigningKey:   []byte(jwtSigningKey),
		JWTIssuer:       "chirpy",
		AccessTokenTTL:  accessTokenTTL,
		RefreshTokenTTL: refreshTokenTTL,
		PolkaAPIKey:     viper.GetString("polka_key"),
		Platform:        viper.GetString("platform"),
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}
	if commandContext == nil {
		commandContext = context.Background()
	}

	listenAddr := viper.GetString("listen_addr")
	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		databaseURL = defaultDatabaseURL
	}
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")

	if serverConfig.PolkaAPIKey == "" {
		logger.Warn("polka_key is empty; every webhook will be rejected",
			zap.String("code", "config.missing_polka_key"))
	}

	database, databaseErr := storage.Open(commandContext, databaseURL, logger)
	if databaseErr != nil {
		return fmt.Errorf("%s: %w", configCodeDatabaseOpen, databaseErr)
	}
	defer func() { _ = database.Close() }()

	metricsRecorder := authkit.NewCounterMetrics()
	policy, policyErr := authkit.NewPolicy(serverConfig, database, database,
		authkit.WithClock(authkit.NewSystemClock()),
		authkit.WithLogger(logger),
		authkit.WithMetrics(metricsRecorder),
	)
	if policyErr != nil {
		return policyErr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	if err := web.MountApp(router, webassets.App()); err != nil {
		return err
	}
	authkit.MountAuthRoutes(router, policy, logger)
	web.MountRoutes(router, policy, database, logger)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("addr", listenAddr),
		zap.String("driver", database.Driver()),
		zap.String("platform", serverConfig.Platform))
	serveErr := serveHTTP(server)
	logger.Info("auth metrics", zap.Any("counters", metricsRecorder.Snapshot()))
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", serveErr)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		fields := []zap.Field{
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		}
		if contextGin.Writer.Status() >= http.StatusBadRequest {
			logger.Warn("http", fields...)
			return
		}
		logger.Info("http", fields...)
	}
}
