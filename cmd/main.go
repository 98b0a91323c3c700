package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/futsal-hq/match-tracker/config"
	"github.com/futsal-hq/match-tracker/db"
	"github.com/futsal-hq/match-tracker/handlers"
	"github.com/futsal-hq/match-tracker/live"
	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
	api "github.com/futsal-hq/match-tracker/routes"
	"github.com/futsal-hq/match-tracker/services"
	"github.com/futsal-hq/match-tracker/storage"
)

const monitorInterval = 60 * time.Second // How often the live-match monitor runs

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	eventRepo := repositories.NewPostgresMatchEventRepository(dbConn)
	statRepo := repositories.NewPostgresPlayerStatRepository(dbConn)
	logger.Info("Repositories initialized")

	// Один locker на процесс: все live-операции над матчем сериализуются через него.
	matchLocker := services.NewMatchLocker()

	// Инициализация сервисов
	authService := services.NewAuthService(cfg.OperatorName, cfg.OperatorPasswordHash)
	teamService := services.NewTeamService(teamRepo, cloudflareUploader)
	playerService := services.NewPlayerService(playerRepo, teamRepo)
	matchService := services.NewMatchService(matchRepo, teamRepo, eventRepo, statRepo, matchLocker)
	liveService := services.NewLiveMatchService(matchRepo, playerRepo, eventRepo, statRepo, matchLocker, wsHub)
	lineupService := services.NewLineupService(matchRepo, playerRepo, matchLocker, wsHub)
	logger.Info("Services initialized")

	// Монитор идущих матчей: периодически пишет в лог, какие матчи в эфире
	// и сколько зрителей подключено к каждой комнате.
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		logger.Info("live match monitor started", slog.Duration("interval", monitorInterval))

		for range ticker.C {
			matches, err := matchService.ListMatches(context.Background())
			if err != nil {
				logger.Error("monitor: failed to list matches", slog.Any("error", err))
				continue
			}
			for _, m := range matches {
				if m.Status != models.MatchStatusInProgress {
					continue
				}
				logger.Info("live match",
					slog.Int("match_id", m.ID),
					slog.Int("half", m.CurrentHalf),
					slog.Int("home_score", m.HomeScore),
					slog.Int("away_score", m.AwayScore),
					slog.Int("viewers", wsHub.RoomSize(m.ID)),
				)
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	teamHandler := handlers.NewTeamHandler(teamService, playerService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	matchHandler := handlers.NewMatchHandler(matchService)
	liveHandler := handlers.NewLiveMatchHandler(liveService, lineupService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, matchService, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		[]byte(cfg.JWTSecretKey),
		authHandler,
		teamHandler,
		playerHandler,
		matchHandler,
		liveHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
