package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus/course-portal-api/internal/middleware"
	"github.com/opencampus/course-portal-api/internal/models"
	"github.com/opencampus/course-portal-api/internal/service"
)

// Router bundles the handlers mounted on the API group.
type Router struct {
	Auth          *AuthHandler
	Courses       *CourseHandler
	Enrollments   *EnrollmentHandler
	Calendar      *CalendarHandler
	Notifications *NotificationHandler
	Metrics       *MetricsHandler

	AuthService *service.AuthService
}

// Register mounts every route under the given prefix.
func (rt *Router) Register(engine *gin.Engine, prefix string) {
	engine.GET("/metrics", rt.Metrics.Prometheus)

	api := engine.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", rt.Auth.Login)
		auth.GET("/me", middleware.JWT(rt.AuthService), rt.Auth.Me)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(rt.AuthService))

	courses := authed.Group("/courses")
	{
		courses.GET("", rt.Courses.List)
		courses.GET("/:id", rt.Courses.Get)

		admin := courses.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("", rt.Courses.Create)
			admin.PUT("/:id", rt.Courses.Update)
			admin.PATCH("/:id/status", rt.Courses.UpdateStatus)
			admin.POST("/:id/schedules", rt.Courses.AddSchedule)
			admin.DELETE("/:id/schedules/:scheduleId", rt.Courses.RemoveSchedule)
		}
	}

	enrollments := authed.Group("/enrollments")
	enrollments.Use(middleware.RequireStudentIdentity())
	{
		enrollments.GET("", rt.Enrollments.List)
		enrollments.POST("", rt.Enrollments.Create)
		enrollments.DELETE("/:id", rt.Enrollments.Delete)
	}

	calendar := authed.Group("/calendar")
	calendar.Use(middleware.RequireStudentIdentity())
	{
		calendar.GET("/events", rt.Calendar.Events)
		calendar.GET("/export", rt.Calendar.ExportTimetable)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", rt.Notifications.List)
		notifications.GET("/unread-count", rt.Notifications.UnreadCount)
		notifications.PUT("/:id/read", rt.Notifications.MarkRead)
		notifications.PUT("/read-all", rt.Notifications.MarkAllRead)
	}
}
