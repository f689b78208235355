package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kartik-560/lms-backend/api/swagger"
	"github.com/kartik-560/lms-backend/internal/handler"
	"github.com/kartik-560/lms-backend/internal/middleware"
	"github.com/kartik-560/lms-backend/internal/models"
	"github.com/kartik-560/lms-backend/internal/repository"
	"github.com/kartik-560/lms-backend/internal/service"
	"github.com/kartik-560/lms-backend/pkg/cache"
	"github.com/kartik-560/lms-backend/pkg/config"
	"github.com/kartik-560/lms-backend/pkg/database"
	"github.com/kartik-560/lms-backend/pkg/logger"
	corsmiddleware "github.com/kartik-560/lms-backend/pkg/middleware/cors"
	reqidmiddleware "github.com/kartik-560/lms-backend/pkg/middleware/requestid"
)

// @title LMS Admission API
// @version 1.0.0
// @description Assignment resolution and enrollment admission service
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	statusConfigRepo := repository.NewStatusConfigRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	organizationRepo := repository.NewOrganizationRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	identitySvc := service.NewIdentityService(cfg.JWT)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, organizationRepo, departmentRepo, validate, logr)
	eligibilitySvc := service.NewEligibilityService(membershipRepo, assignmentRepo, courseRepo, logr)
	statusConfigSvc := service.NewStatusConfigService(statusConfigRepo, cacheRepo, cfg.Admission.StatusConfigCacheTTL, validate, logr)
	admissionSvc := service.NewAdmissionService(enrollmentRepo, admissionRepo, assignmentSvc, membershipRepo, statusConfigSvc, eligibilitySvc, metricsSvc, cfg.Admission.BulkMaxBatchSize, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, membershipRepo, assignmentSvc, eligibilitySvc, validate, logr)
	organizationSvc := service.NewOrganizationService(organizationRepo, departmentRepo, membershipRepo, validate, logr)

	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, admissionSvc, eligibilitySvc)
	organizationHandler := handler.NewOrganizationHandler(organizationSvc)
	statusConfigHandler := handler.NewStatusConfigHandler(statusConfigSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(identitySvc))

	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleOrgAdmin)
	moderators := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleOrgAdmin, models.RoleInstructor)

	courses := api.Group("/courses")
	{
		courses.GET("/:courseId/assignments", assignmentHandler.List)
		courses.POST("/:courseId/assignments", admins,
			middleware.Audit(auditRepo, models.AuditActionAssignmentCreate, "assignments"),
			assignmentHandler.Create)
		courses.DELETE("/:courseId/assignments", admins,
			middleware.Audit(auditRepo, models.AuditActionAssignmentRemove, "assignments"),
			assignmentHandler.Remove)
		courses.GET("/:courseId/eligibility", enrollmentHandler.Eligibility)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.POST("",
			middleware.Audit(auditRepo, models.AuditActionEnrollmentCreate, "enrollments"),
			enrollmentHandler.Create)
		enrollments.PATCH("/status", moderators,
			middleware.Audit(auditRepo, models.AuditActionBulkTransition, "enrollments"),
			enrollmentHandler.BulkTransition)
		enrollments.PATCH("/:id/status", moderators,
			middleware.Audit(auditRepo, models.AuditActionStatusTransition, "enrollments"),
			enrollmentHandler.Transition)
		enrollments.DELETE("/:id", admins, enrollmentHandler.Delete)
	}

	organizations := api.Group("/organizations")
	{
		organizations.GET("", admins, organizationHandler.List)
		organizations.POST("", middleware.RequireRoles(models.RoleSuperAdmin), organizationHandler.Create)
		organizations.PATCH("/:id/active", middleware.RequireRoles(models.RoleSuperAdmin), organizationHandler.SetActive)
		organizations.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), organizationHandler.Delete)
		organizations.GET("/:id/departments", organizationHandler.ListDepartments)
		organizations.POST("/:id/departments", admins, organizationHandler.CreateDepartment)
		organizations.POST("/:id/memberships", admins, organizationHandler.RegisterMember)
		organizations.GET("/:id/permissions", admins, organizationHandler.Permissions)
		organizations.PUT("/:id/permissions", admins, organizationHandler.UpdatePermissions)
	}

	api.DELETE("/departments/:id", admins, organizationHandler.DeleteDepartment)

	configurations := api.Group("/configurations")
	{
		configurations.GET("/enrollment-status", moderators, statusConfigHandler.Get)
		configurations.PUT("/enrollment-status", middleware.RequireRoles(models.RoleSuperAdmin),
			middleware.Audit(auditRepo, models.AuditActionConfigUpdate, "configurations"),
			statusConfigHandler.Update)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
