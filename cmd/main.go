package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nstrokin/authd/internal/api/http/router"
	httpServer "github.com/nstrokin/authd/internal/api/http/server"
	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/config"
	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/rate"
	"github.com/nstrokin/authd/internal/repository/postgres"
	"github.com/nstrokin/authd/internal/service"
	"github.com/nstrokin/authd/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	clk := clock.Real{}

	userRepo := postgres.NewUserRepository(db, cfg.Bcrypt.Cost)
	roleRepo := postgres.NewRoleRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)

	signer, err := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.DurationDays, clk)
	if err != nil {
		logger.Fatal("failed to configure token signer", "error", err)
	}
	refreshFactory := token.NewRefreshFactory(cfg.Refresh.TTLDays, clk)

	tokenService := service.NewTokenService(refreshFactory, refreshTokenRepo, clk, logger)

	var limiter service.LoginLimiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		limiter = rate.NewLoginLimiter(redisClient, cfg.Login.MaxAttempts, time.Duration(cfg.Login.WindowSeconds)*time.Second)
	}

	authService := service.NewAuth(userRepo, roleRepo, signer, tokenService, limiter, clk, logger, cfg.Refresh.OnRegister)

	e := router.New(authService, signer, logger)
	server := httpServer.New(e, fmt.Sprintf(":%s", cfg.HTTP.Port))
	if cfg.HTTP.EnableHTTPS {
		server = server.WithTLS(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s *httpServer.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(server)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", server.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
