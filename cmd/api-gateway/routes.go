package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/dto"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/handler"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/middleware"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/schoolsnap-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/schoolsnap-attendance-api/pkg/middleware/requestid"
)

type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	checks  map[string]handler.Pinger

	auth       *service.AuthService
	sessions   *service.SessionService
	grades     *service.GradeService
	attendance *service.AttendanceService
	feedback   *service.FeedbackService
	likes      *service.LikesService
	audit      *service.AuditService
}

func (a *application) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger, middleware.LogFields))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	ops := handler.NewMetricsHandler(a.metrics, a.checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	validate := dto.NewValidator()
	sessionHandler := handler.NewSessionHandler(a.sessions, validate)
	gradeHandler := handler.NewGradeHandler(a.grades)
	attendanceHandler := handler.NewAttendanceHandler(a.attendance)
	feedbackHandler := handler.NewFeedbackHandler(a.feedback)
	likesHandler := handler.NewLikesHandler(a.likes, validate)
	submissionHandler := handler.NewSubmissionHandler(a.audit)

	api := r.Group(a.cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(a.auth))

	staff := middleware.RequireRoles(middleware.Staff...)
	admin := middleware.RequireRoles(models.RolePrincipal, models.RoleAdmin)

	api.GET("/grades", staff, gradeHandler.List)

	sessions := api.Group("/attendance/sessions", staff)
	sessions.POST("", sessionHandler.Open)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.DELETE("/:id", sessionHandler.Close)
	sessions.PUT("/:id/date", sessionHandler.SetDate)
	sessions.PUT("/:id/grade", sessionHandler.SelectGrade)
	sessions.PUT("/:id/search", sessionHandler.Search)
	sessions.PUT("/:id/students/:studentId/status", sessionHandler.SetStatus)
	sessions.POST("/:id/editor", sessionHandler.OpenEditor)
	sessions.PUT("/:id/editor", sessionHandler.ConfirmEditor)
	sessions.DELETE("/:id/editor", sessionHandler.CancelEditor)
	sessions.POST("/:id/bulk", sessionHandler.ApplyBulk)
	sessions.GET("/:id/validation", sessionHandler.Validate)
	sessions.GET("/:id/summary", sessionHandler.Summary)
	sessions.POST("/:id/submit", sessionHandler.Submit)
	sessions.GET("/:id/export", sessionHandler.Export)

	api.GET("/attendance/records", staff, attendanceHandler.List)
	api.GET("/submissions", admin, submissionHandler.List)

	api.GET("/feedback", feedbackHandler.List)
	api.POST("/feedback", staff, feedbackHandler.Create)

	api.GET("/posts/likes", likesHandler.List)
	api.POST("/posts/likes", likesHandler.Merge)
	api.PUT("/posts/:postId/like", likesHandler.Like)

	return r
}
