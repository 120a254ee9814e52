// Package app assembles the service from configuration. Both the HTTP
// server and the Lambda entrypoint build through here.
package app

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"

	"mockmate-backend/internal/config"
	"mockmate-backend/internal/database"
	"mockmate-backend/internal/handlers"
	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/router"
	"mockmate-backend/internal/services"
	"mockmate-backend/internal/taxonomy"
	"mockmate-backend/internal/websocket"
)

const balanceCacheTTL = 5 * time.Minute

type App struct {
	Router *chi.Mux
	Hub    *websocket.Hub
}

// Build connects to Postgres and Redis, applies migrations and wires every
// layer. The returned func releases everything Build opened.
func Build(cfg *config.Config) (*App, func(), error) {
	log := logger.L()
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	closers = append(closers, pool.Close)
	log.Info("postgres connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	closers = append(closers, redisClients.Close)
	log.Info("redis connected")

	if err := database.RunMigrations(pool, database.Migrations); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	log.Info("database migrations applied")

	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, gemini.Close)
	log.WithField("model", cfg.GeminiModel).Info("gemini client initialized")

	tx := taxonomy.Default()

	// ──── Repositories ────
	userRepo := repository.NewUserRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)
	groupRepo := repository.NewGroupRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// ──── Services ────
	publisher := services.NewRedisPublisher(redisClients.Cache)
	locker := services.NewRedisLocker(redisClients.Cache)
	balanceCache := services.NewRedisBalanceCache(redisClients.Cache, balanceCacheTTL)

	creditService := services.NewCreditService(userRepo, balanceCache, locker, publisher, services.CreditPolicy{
		InitialCredits:  cfg.InitialCredits,
		DailyCredits:    cfg.DailyCredits,
		RefreshInterval: cfg.CreditRefreshInterval,
	})
	aiService := services.NewAIService(gemini, questionRepo, creditService, locker, publisher, tx, cfg.MaxQuestionsPerRequest, cfg.TempDir)
	questionService := services.NewQuestionService(questionRepo, gemini, creditService, publisher, tx)
	groupService := services.NewGroupService(groupRepo, questionService, creditService, tx)
	progressService := services.NewProgressService(progressRepo, creditService, tx)
	statsService := services.NewStatsService(statsRepo)

	jwtAuth := middleware.NewJWTAuth(cfg.AuthJWTSecret, cfg.AuthIssuer)
	hub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	closers = append(closers, hub.Close)

	r, limiter := router.New(jwtAuth, router.Handlers{
		Questions: handlers.NewQuestionHandler(questionService),
		Groups:    handlers.NewGroupHandler(groupService),
		Progress:  handlers.NewProgressHandler(progressService),
		Credits:   handlers.NewCreditHandler(creditService),
		AI:        handlers.NewAIHandler(aiService, cfg.MaxAudioBytes),
		Fields:    handlers.NewFieldHandler(tx),
		Stats:     handlers.NewStatsHandler(statsService),
	}, hub, router.Options{
		FrontendURL:         cfg.FrontendURL,
		AIRequestsPerMinute: cfg.AIRequestsPerMinute,
	})
	closers = append(closers, limiter.Stop)

	return &App{Router: r, Hub: hub}, closeAll, nil
}
