package main

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/assignhub/assignment-ai/internal/auth"
	"github.com/assignhub/assignment-ai/internal/chat"
	"github.com/assignhub/assignment-ai/internal/config"
	"github.com/assignhub/assignment-ai/internal/llm"
	"github.com/assignhub/assignment-ai/internal/observability"
	"github.com/assignhub/assignment-ai/internal/ratelimit"
	"github.com/assignhub/assignment-ai/internal/semantic"
	"github.com/assignhub/assignment-ai/internal/session"
	"github.com/assignhub/assignment-ai/internal/store"
)

func main() {
	ctx := context.Background()
	logger := observability.NewLogger("main")

	// Load configuration through the secret provider chain
	cfg := config.NewDefaultLoader().MustLoad(ctx)

	gin.SetMode(cfg.Server.GinMode)

	// Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize the assignment store. The service degrades to context-free
	// chat when the database is unavailable.
	var assignments chat.AssignmentSource
	var examples chat.ExampleSource
	assignmentStore, err := store.NewStore(store.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	})
	var breakerStore *store.CircuitBreakerStore
	if err != nil {
		logger.Warn(ctx, "Database unavailable, running without assignment context", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		breakerStore = store.NewCircuitBreakerStore(assignmentStore, "assignments", store.DefaultCircuitBreakerConfig)
		assignments = breakerStore
		examples = semantic.NewExchangeStore(assignmentStore.DB())
	}

	// Initialize the generative upstream
	client := llm.NewGeminiClient(cfg.Generative.APIKey, cfg.Generative.APIBase)
	caller := llm.NewCaller(client, llm.RetryConfig{
		MaxRetries: cfg.Generative.MaxRetries,
		BaseDelay:  cfg.Generative.BaseDelay,
		MaxDelay:   cfg.Generative.MaxDelay,
	})

	breaker := llm.NewBreaker(llm.BreakerConfig{
		Threshold:         cfg.Breaker.Threshold,
		Cooldown:          cfg.Breaker.Cooldown,
		MaxHalfOpenProbes: cfg.Breaker.MaxHalfOpenProbes,
	})

	gateway := chat.NewGateway(chat.GatewayConfig{
		Configured:     client.Configured(),
		PrimaryModel:   cfg.Generative.Model,
		SecondaryModel: cfg.Generative.FallbackModel,
	}, caller, breaker, examples)

	// Per-user chat rate limiter
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		MaxRequests: cfg.RateLimit.MaxRequests,
	})
	defer limiter.Stop()

	// Initialize auth manager with Redis-backed sessions
	sessionManager := session.NewManager(rdb, cfg.Auth.SessionExpiry)
	authManager := auth.NewAuthManager(auth.AuthConfig{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiry:      cfg.Auth.JWTExpiry,
		SessionExpiry:  cfg.Auth.SessionExpiry,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
	}, sessionManager)

	// Register health checks
	healthChecker := observability.NewHealthChecker()

	if assignmentStore != nil {
		healthChecker.Register("database", observability.DatabaseHealthCheck(func(ctx context.Context) error {
			return assignmentStore.Ping(ctx)
		}))
	}

	healthChecker.Register("redis", observability.RedisHealthCheck(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))

	healthChecker.Register("generative_upstream", observability.UpstreamHealthCheck(func() (bool, string) {
		return gateway.Configured(), gateway.Breaker().Status().State
	}))

	healthChecker.Register("memory", observability.MemoryHealthCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	// Setup Gin router
	router := gin.New()
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(observability.CORSWithLogging(logger))
	router.Use(observability.RequestLoggingMiddleware(logger))

	// Metrics endpoint
	router.GET("/metrics", func(c *gin.Context) {
		metrics := observability.GetGlobalMetrics().GetAll()
		c.JSON(200, gin.H{
			"metrics":   metrics,
			"timestamp": time.Now(),
		})
	})

	// Enhanced health endpoint
	router.GET("/health", func(c *gin.Context) {
		response := healthChecker.GetHealthResponse(c.Request.Context())
		statusCode := 200
		if response.Status == observability.HealthStatusUnhealthy {
			statusCode = 503
		}
		c.JSON(statusCode, response)
	})

	api := router.Group("/api/v1")

	// Auth endpoints (login/register/logout attach their own middleware)
	authHandlers := auth.NewAuthHandlers(authManager)
	authHandlers.SetupRoutes(api)

	// Chat and assignment endpoints behind authentication
	protected := api.Group("", authManager.Middleware())

	chatHandlers := chat.NewHandlers(gateway, limiter, assignments, chat.NewRedisHistory(rdb))
	chatHandlers.SetupRoutes(protected, authManager.RequireRole(auth.RoleAdmin))

	if breakerStore != nil {
		storeHandlers := store.NewHandlers(breakerStore)
		storeHandlers.SetupRoutes(protected, authManager.RequireRole(auth.RoleTeacher, auth.RoleAdmin))
	}

	logger.Info(ctx, "Chat gateway starting", map[string]interface{}{
		"port":           cfg.Server.Port,
		"api_configured": gateway.Configured(),
		"model":          cfg.Generative.Model,
	})
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Error(ctx, "Failed to start server", err, nil)
		log.Fatal("Failed to start server:", err)
	}
}
