package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/bimbel-api/api/swagger"
	"github.com/noah-isme/bimbel-api/internal/handler"
	"github.com/noah-isme/bimbel-api/internal/middleware"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/repository"
	"github.com/noah-isme/bimbel-api/internal/service"
	"github.com/noah-isme/bimbel-api/pkg/cache"
	"github.com/noah-isme/bimbel-api/pkg/config"
	"github.com/noah-isme/bimbel-api/pkg/database"
	"github.com/noah-isme/bimbel-api/pkg/export"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
	"github.com/noah-isme/bimbel-api/pkg/logger"
	"github.com/noah-isme/bimbel-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/bimbel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bimbel-api/pkg/middleware/requestid"
)

// @title Bimbel API
// @version 1.0.0
// @description Enrollment, billing and scheduling backend for tutoring programs
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	programRepo := repository.NewProgramRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	txRunner := database.NewTxRunner(db)
	validate := validator.New()

	var mail mailer.Mailer = mailer.NopMailer{}
	if cfg.Mail.Enabled {
		mail = mailer.NewSendgrid(cfg.Mail, logr)
	}

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, mail, cfg.Jobs, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	gatewayClient := gateway.NewClient(cfg.Gateway)
	checkoutSvc := service.NewCheckoutService(enrollmentRepo, invoiceRepo, paymentRepo, programRepo, studentRepo, gatewayClient, cfg.Billing, logr)
	webhookSvc := service.NewWebhookService(paymentRepo, invoiceRepo, enrollmentRepo, webhookEventRepo, notificationSvc, txRunner, cfg.Gateway.ServerKey, validate, metricsSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, waitlistRepo, programRepo, cacheRepo, txRunner, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, cacheRepo, txRunner, logr)
	meetingSvc := service.NewMeetingService(meetingRepo, sectionRepo, tutorRepo, enrollmentRepo, txRunner, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, export.NewInvoicePDF(), export.NewCSVExporter(), txRunner, validate, logr)

	graceSvc := service.NewGracePeriodService(enrollmentRepo, sectionRepo, waitlistRepo, notificationSvc, cacheRepo, txRunner, logr)
	expirySvc := service.NewPaymentExpiryService(paymentRepo, invoiceRepo, enrollmentRepo, sectionRepo, waitlistRepo, notificationSvc, cacheRepo, txRunner, logr)
	renewalSvc := service.NewRenewalReminderService(enrollmentRepo, invoiceRepo, checkoutSvc, notificationSvc, cfg.Billing, logr)
	meetingReminderSvc := service.NewMeetingReminderService(meetingRepo, enrollmentRepo, notificationSvc, cfg.Billing, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, checkoutSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	meetingHandler := handler.NewMeetingHandler(meetingSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	cronHandler := handler.NewCronHandler(graceSvc, expirySvc, renewalSvc, meetingReminderSvc, sectionSvc, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/payments/webhook", webhookHandler.HandlePaymentWebhook)

	cron := api.Group("/cron", middleware.CronAuth(cfg.Cron.Secret))
	cron.GET("/grace-period", cronHandler.GracePeriod)
	cron.GET("/payment-expiry", cronHandler.PaymentExpiry)
	cron.GET("/renewal-reminder", cronHandler.RenewalReminder)
	cron.GET("/meeting-reminder", cronHandler.MeetingReminder)
	cron.GET("/section-reconcile", cronHandler.SectionReconcile)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/notifications", notificationHandler.List)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

	authed.GET("/sections", sectionHandler.List)
	authed.GET("/sections/availability", sectionHandler.Availability)
	authed.GET("/sections/:id", sectionHandler.Get)

	enrollments := authed.Group("/enrollments")
	enrollments.GET("", enrollmentHandler.List)
	enrollments.GET("/:id", enrollmentHandler.Get)
	enrollments.POST("", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.Create)
	enrollments.POST("/:id/checkout", enrollmentHandler.Checkout)
	enrollments.POST("/:id/activate", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.Activate)
	enrollments.GET("/waitlist", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.ListWaitlist)
	enrollments.POST("/waitlist", enrollmentHandler.JoinWaitlist)
	enrollments.POST("/waitlist/approve", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.ApproveWaitlist)

	meetings := authed.Group("/meetings")
	meetings.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTutor), meetingHandler.Schedule)
	meetings.GET("/:id", meetingHandler.Get)
	meetings.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTutor), meetingHandler.Cancel)

	invoices := authed.Group("/invoices")
	invoices.GET("", invoiceHandler.List)
	invoices.GET("/export/csv", middleware.RequireRoles(models.RoleAdmin), invoiceHandler.ExportCSV)
	invoices.GET("/:id", invoiceHandler.Get)
	invoices.GET("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.PATCH("/:id/discount", middleware.RequireRoles(models.RoleAdmin), invoiceHandler.UpdateDiscount)
	invoices.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), invoiceHandler.Cancel)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
