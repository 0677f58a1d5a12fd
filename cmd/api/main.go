package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/events"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
	cloud "github.com/noah-isme/gema-assessment-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.Course{},
		&models.Question{},
		&models.QuestionSet{},
		&models.QuestionSetItem{},
		&models.Assignment{},
		&models.AssignmentQuestion{},
		&models.AssignmentChoice{},
		&models.Submission{},
		&models.SubmissionAnswer{},
		&models.SubmissionGradeHistory{},
		&models.ActivityLog{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, question set expansion will not be cached")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, submission events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	var uploader service.FileUploader
	if cfg.CloudinaryEnabled() {
		cld, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		uploader = cld
	} else {
		logger.Warn().Msg("cloudinary credentials missing, attachment uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	questionSetRepo := repository.NewQuestionSetRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	assignmentQuestionRepo := repository.NewAssignmentQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	expander := service.NewQuestionExpander(questionRepo, questionSetRepo, redisClient, cfg.ExpansionCacheTTL, logger)
	attachments := service.NewAttachmentStore(uploader, cfg.UploadMaxMB, logger)
	grader := service.NewAutoGrader(questionRepo, logger)
	publisher := events.NewNATSPublisher(natsConn, cfg.NATSSubjectPrefix, logger)

	courseService := service.NewCourseService(courseRepo, validate, activityService, logger)
	questionService := service.NewQuestionService(questionRepo, expander, validate, activityService, logger)
	questionSetService := service.NewQuestionSetService(questionSetRepo, expander, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, questionSetRepo, expander, attachments, validate, activityService, logger)
	assignmentQuestionService := service.NewAssignmentQuestionService(assignmentQuestionRepo, assignmentRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, grader, attachments, publisher, validate, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:   &logger,
		Resolver: viewer.NewJWTResolver(cfg.JWTSecret),
	})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:             handler.NewCourseHandler(courseService, logger),
		QuestionHandler:           handler.NewQuestionHandler(questionService, logger),
		QuestionSetHandler:        handler.NewQuestionSetHandler(questionSetService, logger),
		AssignmentHandler:         handler.NewAssignmentHandler(assignmentService, logger),
		AssignmentQuestionHandler: handler.NewAssignmentQuestionHandler(assignmentQuestionService, logger),
		SubmissionHandler:         handler.NewSubmissionHandler(submissionService, logger),
		ActivityHandler:           handler.NewActivityHandler(activityService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
