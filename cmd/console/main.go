package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xela07ax/rp-community-console/internal/access"
	"github.com/xela07ax/rp-community-console/internal/audit"
	"github.com/xela07ax/rp-community-console/internal/connectors"
	"github.com/xela07ax/rp-community-console/internal/console/handler"
	"github.com/xela07ax/rp-community-console/internal/console/server"
	"github.com/xela07ax/rp-community-console/internal/console/service"
	"github.com/xela07ax/rp-community-console/internal/infra"
	infraauth "github.com/xela07ax/rp-community-console/internal/infra/auth"
	"github.com/xela07ax/rp-community-console/internal/notify"
	"github.com/xela07ax/rp-community-console/internal/repository/postgres"
	"github.com/xela07ax/rp-community-console/internal/workflow"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	repo, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres pool", zap.Error(err))
	}
	if err := repo.Ping(ctx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	cancel()
	defer repo.Close()

	// 3. Ключи RS256
	pubKey, err := infraauth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse public key", zap.Error(err))
	}
	privKey, err := infraauth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse private key", zap.Error(err))
	}
	validator := infraauth.NewBaseValidator(pubKey)

	// 4. Директория ролей (Discord) с оберткой надежности
	var directory access.RoleDirectory
	if cfg.Discord.UseMock {
		logger.Warn("discord directory is mocked; role checks use static data")
		directory = &connectors.MockDirectory{Members: map[string][]string{}}
	} else {
		discord := connectors.NewDiscordConnector(cfg.Discord.BaseURL, cfg.Discord.GuildID, cfg.Discord.Token)
		directory = connectors.NewReliableDirectory(discord)
	}
	evaluator := access.NewEvaluator(directory, rdb, cfg.Workflow.RoleCacheTTL, logger)

	// 5. Аудит переходов (батчи в Postgres)
	trail := audit.NewTrail(repo, logger, cfg.Workflow.AuditBufferSize, cfg.Workflow.AuditFlushInterval)
	trail.Start()

	// 6. Метрики
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	// 7. Слои (Dependency Injection)
	engine := workflow.NewEngine(evaluator)
	dispatcher := notify.NewDispatcher(rdb, logger)

	responseService := service.NewResponseService(
		repo, repo, engine, dispatcher, trail, metrics, logger, cfg.Workflow.ConflictRetries)
	formService := service.NewFormService(repo, rdb, logger)
	authService := service.NewAuthService(repo, validator, privKey, cfg.Auth.TokenTTL)

	srvHandler := server.NewConsoleServer(
		cfg,
		logger,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewFormHandler(formService),
		handler.NewResponseHandler(responseService),
		reg,
	)

	// 8. HTTP Server
	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      srvHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("console API stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Дожимаем буфер аудита (Drain Pattern)
	trail.Stop()
	logger.Info("console API exited properly")
}

func buildLogger(cfg infra.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
