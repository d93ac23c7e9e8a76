package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/config"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	GrievanceHandler *handler.GrievanceHandler
	DirectoryHandler *handler.DirectoryHandler
	MetricsHandler   *handler.MetricsHandler
	Sessions         middleware.SessionResolver
	Logger           *zap.Logger
}

var directoryAdmins = []models.UserRole{models.RoleHOD, models.RolePrincipal}

// Register wires the HTTP routes into the gin engine.
func Register(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	r.GET("/health", deps.MetricsHandler.Health)
	r.GET("/ready", deps.MetricsHandler.Ready)
	r.GET("/metrics", deps.MetricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.WithResponseMeta())
	api.POST("/auth/login", deps.AuthHandler.Login)

	secured := api.Group("", middleware.JWT(deps.Sessions))
	secured.POST("/auth/logout", deps.AuthHandler.Logout)
	secured.GET("/auth/me", deps.AuthHandler.Me)

	grievances := secured.Group("/grievances")
	grievances.GET("", deps.GrievanceHandler.List)
	grievances.POST("", middleware.RequireRoles(models.RoleStudent), middleware.Audit(deps.Logger, "grievance.submit"), deps.GrievanceHandler.Submit)
	grievances.GET("/forward-targets", deps.GrievanceHandler.ForwardTargets)
	grievances.GET("/dashboard", deps.GrievanceHandler.Dashboard)
	grievances.GET("/export", deps.GrievanceHandler.Export)
	grievances.GET("/:id", deps.GrievanceHandler.Get)
	grievances.PUT("/:id/status", middleware.Audit(deps.Logger, "grievance.status"), deps.GrievanceHandler.UpdateStatus)
	grievances.PUT("/:id/forward", middleware.Audit(deps.Logger, "grievance.forward"), deps.GrievanceHandler.Forward)

	admin := middleware.RequireRoles(directoryAdmins...)

	students := secured.Group("/students")
	students.GET("", deps.DirectoryHandler.ListStudents)
	students.GET("/:usn", deps.DirectoryHandler.GetStudent)
	students.POST("", admin, middleware.Audit(deps.Logger, "student.create"), deps.DirectoryHandler.CreateStudent)
	students.PUT("/:usn", admin, middleware.Audit(deps.Logger, "student.update"), deps.DirectoryHandler.UpdateStudent)
	students.DELETE("/:usn", admin, middleware.Audit(deps.Logger, "student.delete"), deps.DirectoryHandler.DeleteStudent)

	proctors := secured.Group("/proctors")
	proctors.GET("", deps.DirectoryHandler.ListProctors)
	proctors.GET("/:id", deps.DirectoryHandler.GetProctor)
	proctors.POST("", admin, middleware.Audit(deps.Logger, "proctor.create"), deps.DirectoryHandler.CreateProctor)
	proctors.PUT("/:id", admin, middleware.Audit(deps.Logger, "proctor.update"), deps.DirectoryHandler.UpdateProctor)
	proctors.DELETE("/:id", admin, middleware.Audit(deps.Logger, "proctor.delete"), deps.DirectoryHandler.DeleteProctor)

	secured.GET("/system/metrics", admin, deps.MetricsHandler.SystemMetrics)
}
