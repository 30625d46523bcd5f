package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/api/routes"
	"github.com/pawday/backend/internal/domain/puppy"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/user"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/migrations"
	"github.com/pawday/backend/internal/infrastructure/scheduler"
	"github.com/pawday/backend/pkg/config"
	"github.com/pawday/backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	gin.DefaultWriter = os.Stdout

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: append(cfg.CORS.AllowedHeaders,
			"Accept-Encoding",
			"Content-Encoding",
			"Content-Type",
			"Authorization",
		),
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Encoding",
			"Content-Type",
			"Vary",
		},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Connect to database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run database migrations with a dedicated structured logger
	migrationLogger := logrus.New()
	migrationLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		migrationLogger.SetLevel(logrus.InfoLevel)
	} else {
		migrationLogger.SetLevel(logrus.DebugLevel)
	}
	if err := migrations.AutoMigrate(db, migrationLogger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize the document store / event bus
	redisConfig := cache.NewConfigFromEnv(cfg)
	docStore, err := cache.NewClient(redisConfig)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer docStore.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	puppyRepo := puppy.NewRepository(db)
	routineRepo := routine.NewRepository(db)

	// Initialize services
	userService := user.NewService(userRepo, docStore, log.Logger)
	puppyService := puppy.NewService(puppyRepo, log.Logger)
	routineService := routine.NewService(routineRepo, userService, docStore, log.Logger)
	taskStore := tasks.NewStore(docStore, log.Logger)
	taskService := tasks.NewService(taskStore, log.Logger)

	// Midnight rollover scheduler for live timeline sessions
	daySched := scheduler.NewScheduler(log)
	daySched.Start()
	defer daySched.Stop()
	log.Info("Day rollover scheduler started")

	// Cache middleware for the static routine read
	cacheMiddleware := middleware.NewCacheMiddleware(docStore, "pawday", 5*time.Minute)

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(userService)
	puppyHandler := handlers.NewPuppyHandler(puppyService)
	routineHandler := handlers.NewRoutineHandler(routineService, puppyService)
	taskHandler := handlers.NewTaskHandler(taskService, puppyService)
	timelineHandler := handlers.NewTimelineHandler(
		routineService,
		taskStore,
		taskService,
		userService,
		docStore,
		daySched,
		log.Logger,
	)

	// Register routes
	routes.SetupHealthRoutes(router, docStore)

	profileRoutes := routes.NewProfileRoutes(profileHandler, cfg.Auth.JWTSecret)
	profileRoutes.RegisterRoutes(router)
	log.Info("Registered profile routes at /api/profile")

	puppyRoutes := routes.NewPuppyRoutes(puppyHandler, puppyService, cfg.Auth.JWTSecret)
	puppyRoutes.RegisterRoutes(router)
	log.Info("Registered puppy routes at /api/puppies")

	routineRoutes := routes.NewRoutineRoutes(routineHandler, puppyService, cfg.Auth.JWTSecret)
	routineRoutes.RegisterRoutes(router, cacheMiddleware)
	log.Info("Registered routine routes at /api/routines and /api/routine-items")

	taskRoutes := routes.NewTaskRoutes(taskHandler, cfg.Auth.JWTSecret)
	taskRoutes.RegisterRoutes(router)
	log.Info("Registered task routes at /api/tasks")

	timelineRoutes := routes.NewTimelineRoutes(timelineHandler, puppyService, cfg.Auth.JWTSecret)
	timelineRoutes.RegisterRoutes(router)
	log.Info("Registered timeline routes at /api/puppies/:id/timeline")

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
