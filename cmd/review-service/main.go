package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devlinduldulao/citizenship-application/internal/advisory"
	"github.com/devlinduldulao/citizenship-application/internal/application/handler"
	"github.com/devlinduldulao/citizenship-application/internal/application/repository"
	"github.com/devlinduldulao/citizenship-application/internal/application/service"
	"github.com/devlinduldulao/citizenship-application/internal/auth"
	authhandler "github.com/devlinduldulao/citizenship-application/internal/auth/handler"
	"github.com/devlinduldulao/citizenship-application/internal/auth/jwt"
	authservice "github.com/devlinduldulao/citizenship-application/internal/auth/service"
	"github.com/devlinduldulao/citizenship-application/internal/extraction"
	"github.com/devlinduldulao/citizenship-application/internal/pipeline"
	"github.com/devlinduldulao/citizenship-application/internal/queue"
	"github.com/devlinduldulao/citizenship-application/internal/rules"
	"github.com/devlinduldulao/citizenship-application/internal/storage"
	userrepo "github.com/devlinduldulao/citizenship-application/internal/user/repository"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
	"github.com/devlinduldulao/citizenship-application/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("review-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("review-service", cfg.Server.Environment)
	log.Info().Msg("starting Citizenship Review Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// Event publishing is optional: without a broker URL the publisher stays
	// nil and drops events.
	var publisher *messaging.Publisher
	if cfg.RabbitMQ.URL != "" {
		rmq, err := messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = messaging.NewPublisher(rmq, messaging.ExchangeCaseEvents, "review-service", log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("no RabbitMQ URL configured; event publishing disabled")
	}

	// Repositories
	users := userrepo.NewUserRepository(db)
	cases := repository.NewCaseRepository(db)
	documents := repository.NewDocumentRepository(db)
	ruleResults := repository.NewRuleResultRepository(db)
	audit := repository.NewAuditRepository(db)
	locks := repository.NewLockRepository(db)

	// Document blob storage
	blobs, err := storage.NewLocalStore(cfg.Uploads.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	// Evidence extraction
	dictionaries, err := extraction.LoadDictionaries(cfg.Extractor.DictionaryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load extraction dictionaries")
	}
	var ocr extraction.OCRProvider = extraction.DisabledOCR{}
	if cfg.Extractor.OCREnabled && cfg.Extractor.OCRServiceURL != "" {
		ocr = extraction.NewRemoteOCR(cfg.Extractor.OCRServiceURL, cfg.Extractor.Timeout)
	}
	nlp := extraction.NewRegexEntityProvider(dictionaries)
	extractor := extraction.NewExtractor(ocr, nlp, cfg.Extractor.Timeout, log)

	// Rule engine
	engine := rules.NewEngine(dictionaries.ResidencyDurationPhrases)

	// Processing pipeline
	pipelineMetrics := pipeline.NewMetrics()
	orchestrator := pipeline.NewOrchestrator(
		cases, documents, locks, audit,
		extractor, blobs, engine, publisher, pipelineMetrics,
		&cfg.Queue, &cfg.Pipeline, log,
	)
	orchestrator.Start(ctx)

	// Services
	jwtManager := jwt.NewManager(&cfg.JWT)
	authSvc := authservice.NewAuthService(users, jwtManager, log)
	caseSvc := service.NewCaseService(cases, documents, ruleResults, audit, blobs, publisher, &cfg.Uploads, log)
	decisionSvc := service.NewDecisionService(cases, audit, publisher, log)
	queueSvc := queue.NewService(cases, &cfg.Queue, log)
	explainer := advisory.NewExplainer(advisory.NewClient(&cfg.Advisory), audit, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authSvc, log)
	appHandler := handler.NewApplicationHandler(caseSvc, orchestrator, log)
	docHandler := handler.NewDocumentHandler(caseSvc, cfg.Uploads.MaxBytes, log)
	reviewHandler := handler.NewReviewHandler(queueSvc, decisionSvc, log)
	advisoryHandler := handler.NewAdvisoryHandler(caseSvc, explainer, log)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "review-service",
			"database": db.Health(r.Context()),
		}
		httputil.JSON(w, http.StatusOK, health)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/login", authHandler.Login)
		r.Post("/users/signup", authHandler.Signup)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtManager))

			r.Get("/users/me", authHandler.Me)
			r.Patch("/users/me", authHandler.UpdateMe)

			r.Route("/applications", func(r chi.Router) {
				r.Post("/", appHandler.Create)
				r.Get("/", appHandler.List)

				// Reviewer-only queue endpoints, registered before /{id} so
				// "queue" never resolves as a case id.
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireReviewer)
					r.Get("/queue/review", reviewHandler.Queue)
					r.Get("/queue/metrics", reviewHandler.Metrics)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", appHandler.Get)
					r.Patch("/", appHandler.Update)
					r.Post("/documents", docHandler.Upload)
					r.Get("/documents", docHandler.List)
					r.Post("/process", appHandler.Process)
					r.Get("/decision-breakdown", appHandler.Breakdown)
					r.Get("/audit-trail", appHandler.AuditTrail)
					r.Get("/case-explainer", advisoryHandler.Explain)
					r.Get("/evidence-recommendations", advisoryHandler.Recommendations)

					r.Group(func(r chi.Router) {
						r.Use(auth.RequireReviewer)
						r.Post("/review-decision", reviewHandler.Decide)
					})
				})
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	orchestrator.Stop()
	log.Info().Msg("server stopped")
}
