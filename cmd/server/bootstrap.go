package main

import (
	"github.com/ecostage/backend/internal/config"
	"github.com/ecostage/backend/internal/handlers"
	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/internal/utils"
	"github.com/ecostage/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	taskQueue        services.TaskQueue
	worker           *services.Worker
	scheduler        *services.SchedulerService
	codes            *services.VerificationCodeStore
	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	deviceHandler    *handlers.DeviceHandler
	hardwareHandler  *handlers.HardwareHandler
	projectHandler   *handlers.ProjectHandler
	stageHandler     *handlers.StageHandler
	requestHandler   *handlers.ProjectRequestHandler
	notifHandler     *handlers.NotificationHandler
	systemLogHandler *handlers.SystemLogHandler
	healthHandler    *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitSystemLogger(db)

	emailService := services.NewEmailService(db)
	taskQueue := services.InitTaskQueue(cfg, emailService)
	mailer := services.NewMailer(taskQueue, emailService)

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.NewWorker(&cfg.Redis, emailService)
		if worker != nil {
			worker.Start()
		}
	}

	codes := services.NewVerificationCodeStore(&cfg.Redis)

	userService := services.NewUserService(db)
	authService := services.NewAuthService(db, &cfg.JWT, codes, mailer)
	deviceService := services.NewDeviceService(db)
	hardwareService := services.NewHardwareService(db)
	projectService := services.NewProjectService(db)
	stageService := services.NewStageService(db)
	emissionService := services.NewEmissionService(db)
	membershipService := services.NewMembershipService(db, mailer)
	requestService := services.NewProjectRequestService(db, mailer)
	notificationService := services.NewNotificationService(db)
	systemLogService := services.NewSystemLogService(db)

	scheduler := services.NewSchedulerService(db, mailer, systemLogService)
	scheduler.StartScheduler()

	authHandler := handlers.NewAuthHandler(authService, userService)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		taskQueue:        taskQueue,
		worker:           worker,
		scheduler:        scheduler,
		codes:            codes,
		authHandler:      authHandler,
		userHandler:      handlers.NewUserHandler(userService),
		deviceHandler:    handlers.NewDeviceHandler(deviceService),
		hardwareHandler:  handlers.NewHardwareHandler(hardwareService),
		projectHandler:   handlers.NewProjectHandler(projectService, membershipService),
		stageHandler:     handlers.NewStageHandler(stageService, emissionService),
		requestHandler:   handlers.NewProjectRequestHandler(requestService),
		notifHandler:     handlers.NewNotificationHandler(notificationService, membershipService),
		systemLogHandler: handlers.NewSystemLogHandler(systemLogService),
		healthHandler:    handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.StopScheduler()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.codes != nil {
		s.codes.Close()
	}
}
