package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"welfareBot/app/echo-server/metrics"
	"welfareBot/app/echo-server/router"
	"welfareBot/business/benefit"
	"welfareBot/business/policy"
	"welfareBot/business/prepool"
	"welfareBot/business/recommendation"
	"welfareBot/business/reject"
	welfaresignal "welfareBot/business/signal"
	userService "welfareBot/business/user"
	"welfareBot/domain"
	"welfareBot/internal/middleware"
	openaiRepo "welfareBot/internal/repository/openai"
	psqlRepo "welfareBot/internal/repository/postgres"
	redisRepo "welfareBot/internal/repository/redis"
	"welfareBot/internal/rest"
	"welfareBot/pkg/config"
	"welfareBot/pkg/database/postgres"
	redisdb "welfareBot/pkg/database/redis"
	"welfareBot/pkg/logger"
	engineMetrics "welfareBot/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting welfare recommendation API", "version", cfg.App.Version)

	metrics.Init()
	engineMetrics.Init()

	// Static resources are independent of each other, load them together.
	var (
		table    *policy.Table
		ontology *welfaresignal.Ontology
		catalog  *benefit.Catalog
	)
	var g errgroup.Group
	g.Go(func() (err error) {
		table, err = policy.LoadTable(cfg.Resources.PolicyPath)
		return err
	})
	g.Go(func() (err error) {
		ontology, err = welfaresignal.LoadOntology(cfg.Resources.OntologyPath)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = benefit.LoadCatalog(cfg.Resources.CatalogPath)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("Failed to load resources", "error", err)
	}

	db, err := postgres.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.PreRecommendation{},
		&domain.UserRejectBenefit{},
		&domain.BenefitMatchLog{},
	); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisdb.CloseRedisClient(redisClient)

	extractor, err := openaiRepo.NewOpenAIRepository(openaiRepo.Config{
		APIKey:             cfg.OpenAI.APIKey,
		Model:              cfg.OpenAI.Model,
		BaseURL:            cfg.OpenAI.BaseURL,
		Timeout:            cfg.OpenAI.Timeout,
		MatchPromptPath:    cfg.Resources.MatchPromptPath,
		FollowupPromptPath: cfg.Resources.FollowupPromptPath,
	})
	if err != nil {
		logger.Fatal("Failed to init extractor", "error", err)
	}

	// Init validate
	validate := validator.New()

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	poolRepo := psqlRepo.NewPreRecommendationRepository(db)
	rejectRepo := psqlRepo.NewRejectRepository(db)
	matchLogRepo := psqlRepo.NewMatchLogRepository(db)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)

	// Init service
	poolService := prepool.NewService(poolRepo, catalog, table)
	users := userService.NewUserService(userRepo, poolService, validate)
	rejects := reject.NewRejectService(rejectRepo, catalog)
	recommender := recommendation.NewService(
		extractor,
		userRepo,
		sessionRepo,
		rejects,
		poolService,
		matchLogRepo,
		catalog,
		recommendation.AgeEligibilityChecker{},
		ontology,
		table,
	)

	// Init handler
	userHandler := rest.NewUserHandler(users, rejects)
	benefitHandler := rest.NewBenefitHandler(catalog)
	chatHandler := rest.NewChatHandler(recommender, extractor, cfg.Server.RequestTimeout)
	adminHandler := rest.NewPolicyAdminHandler(table, ontology, matchLogRepo)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))

	session := middleware.Session(middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		CookieKey:  cfg.Session.CookieKey,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.App.Environment == "production",
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupUserRoutes(api, userHandler)
	router.SetupBenefitRoutes(api, benefitHandler)
	router.SetRecommendationRoutes(api, chatHandler, session)
	router.SetPolicyAdminRoutes(api, adminHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
