package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/controllers"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
)

// Controllers bundles every HTTP controller the router mounts
type Controllers struct {
	Auth         *controllers.AuthController
	Attendance   *controllers.AttendanceController
	Academic     *controllers.AcademicController
	Leave        *controllers.LeaveController
	Report       *controllers.ReportController
	Notification *controllers.NotificationController
	WebSocket    *controllers.WebSocketController
	Health       *controllers.HealthController
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h Controllers) {
	app.Get("/health", h.Health.GetHealthStatus)

	// WebSocket authenticates with ?token= since browsers cannot set headers on upgrade
	app.Use("/ws", h.WebSocket.RequireUpgrade)
	app.Get("/ws", h.WebSocket.WebSocketHandler())

	api := app.Group("/api")

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", h.Auth.GetProfile)
	protected.Put("/profile/password", h.Auth.ChangePassword)
	protected.Post("/auth/logout", h.Auth.Logout)

	// Attendance
	att := protected.Group("/attendance")
	att.Get("/me", middleware.RequireStudent(), h.Attendance.GetMyAttendance)
	att.Get("/eligibility", middleware.RequireStudent(), h.Attendance.GetEligibility)
	att.Get("/trend", middleware.RequireStudent(), h.Attendance.GetTrend)
	att.Get("/students/:userId", middleware.RequireStaff(), h.Attendance.GetStudentAttendance)

	// Academic calendar
	calendar := protected.Group("/calendar")
	calendar.Get("/holidays", h.Academic.GetHolidays)
	calendar.Get("/working-days", h.Academic.GetWorkingDays)
	calendar.Get("/exams", h.Academic.GetExams)
	protected.Get("/academic/state", h.Academic.GetAcademicState)

	// Leave requests
	leave := protected.Group("/leave-requests")
	leave.Get("/validate", middleware.RequireStudent(), h.Leave.ValidateRequest)
	leave.Post("/", middleware.RequireStudent(), h.Leave.SubmitLeave)
	leave.Put("/:id", middleware.RequireStudent(), h.Leave.UpdateLeave)
	leave.Post("/:id/cancel", middleware.RequireStudent(), h.Leave.Cancel(attendance.KindLeave))
	leave.Post("/:id/decision", middleware.RequireTutorOrAdmin(), h.Leave.Decide(attendance.KindLeave))

	// OD requests
	od := protected.Group("/od-requests")
	od.Post("/", middleware.RequireStudent(), h.Leave.SubmitOD)
	od.Post("/:id/cancel", middleware.RequireStudent(), h.Leave.Cancel(attendance.KindOD))
	od.Post("/:id/decision", middleware.RequireTutorOrAdmin(), h.Leave.Decide(attendance.KindOD))

	protected.Get("/requests/mine", middleware.RequireStudent(), h.Leave.ListMine)

	// Reports
	reports := protected.Group("/reports", middleware.RequireTutorOrAdmin())
	reports.Get("/attendance/:batchId", h.Report.DownloadBatchReport)
	reports.Get("/archives", h.Report.ListArchives)
	reports.Get("/archives/:id/url", h.Report.GetArchiveURL)
	reports.Post("/archives/:batchId", middleware.RequireRole("admin"), h.Report.ArchiveBatchNow)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.GetNotifications)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)

	protected.Get("/ws/stats", middleware.RequireRole("admin"), h.WebSocket.GetWebSocketStats)
}
