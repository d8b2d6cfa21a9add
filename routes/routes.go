package routes

import (
	"tutorlink_go/controllers"
	"tutorlink_go/handlers"
	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/services"
	"tutorlink_go/services/websocket"
	"tutorlink_go/storage"

	"github.com/gofiber/fiber/v2"
)

// Deps carries the long-lived components routes hand to controllers.
type Deps struct {
	Hub    *websocket.Hub
	Store  storage.ObjectStore
	Health *services.HealthService
	Line   *services.LineMessagingService
	// LineSecret verifies webhook signatures.
	LineSecret string
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, d Deps) {
	authController := controllers.NewAuthController(d.Store)
	userController := &controllers.UserController{}
	subjectController := &controllers.SubjectController{}
	applicationController := &controllers.TutorApplicationController{}
	tutorController := &controllers.TutorController{}
	bookingController := &controllers.BookingController{}
	preAssessmentController := &controllers.PreAssessmentController{}
	postTestController := &controllers.PostTestController{}
	forumController := &controllers.ForumController{}
	chatController := &controllers.ChatController{}
	profanityController := &controllers.ProfanityController{}
	notificationController := &controllers.NotificationController{}
	logController := controllers.NewLogController(d.Store)
	healthController := controllers.NewHealthController(d.Health)
	wsController := controllers.NewWebSocketController(d.Hub)
	lineWebhook := handlers.NewLineWebhookHandler(d.LineSecret, d.Line)

	app.Get("/health", healthController.Liveness)
	app.Get("/health/detailed", healthController.GetHealthStatus)
	app.Post("/line/webhook", lineWebhook.Handle)

	students := middleware.RequireRole(models.RoleStudent, models.RoleTutor)

	api := app.Group("/api")

	// Public
	api.Post("/signup", middleware.SignupRateLimit(), authController.Signup)
	api.Post("/login", middleware.LoginRateLimit(), authController.Login)
	api.Post("/forgot-password", middleware.ForgotPasswordRateLimit(), authController.ForgotPassword)
	auth := api.Group("/auth")
	auth.Post("/login", middleware.LoginRateLimit(), authController.Login)
	auth.Post("/reset-password-token", authController.ResetPasswordWithToken)

	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Post("/auth/logout", authController.Logout)
	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile", authController.UpdateProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/profile/avatar", authController.UploadAvatar)
	protected.Get("/profile/line-link-code", authController.LineLinkCode)
	protected.Post("/password-reset/generate-token", middleware.RequireAdmin(), authController.GeneratePasswordResetToken)

	users := protected.Group("/users")
	users.Get("/", middleware.RequireStaff(), userController.GetUsers)
	users.Get("/:id", middleware.RequireStaff(), userController.GetUser)
	users.Post("/", middleware.RequireAdmin(), userController.CreateUser)
	users.Put("/:id", middleware.RequireAdmin(), userController.UpdateUser)
	users.Patch("/:id/status", middleware.RequireAdmin(), userController.UpdateUserStatus)
	users.Post("/:id/reset-password", middleware.RequireAdmin(), userController.ResetUserPassword)
	users.Delete("/:id", middleware.RequireAdmin(), userController.DeleteUser)

	subjects := protected.Group("/subjects")
	subjects.Get("/", subjectController.GetSubjects)
	subjects.Get("/:id", subjectController.GetSubject)
	subjects.Post("/", middleware.RequireAdmin(), subjectController.CreateSubject)
	subjects.Put("/:id", middleware.RequireAdmin(), subjectController.UpdateSubject)
	subjects.Delete("/:id", middleware.RequireAdmin(), subjectController.DeleteSubject)

	applications := protected.Group("/tutor-applications")
	applications.Post("/", middleware.RequireRole(models.RoleStudent), applicationController.SubmitApplication)
	applications.Get("/", applicationController.GetApplications)
	applications.Get("/me", applicationController.GetMyApplications)
	applications.Get("/export", middleware.RequireAdmin(), applicationController.ExportApplications)
	applications.Get("/:id", applicationController.GetApplication)
	applications.Patch("/:id/approve", middleware.RequireStaff(), applicationController.ApproveApplication)
	applications.Patch("/:id/reject", middleware.RequireStaff(), applicationController.RejectApplication)

	tutors := protected.Group("/tutors")
	tutors.Get("/", tutorController.GetTutors)
	tutors.Get("/recommended", tutorController.GetRecommended)
	tutors.Get("/:id", tutorController.GetTutor)
	tutors.Put("/:id", middleware.RequireTutorOrAbove(), tutorController.UpdateTutor)
	tutors.Get("/:id/availability", tutorController.GetAvailability)

	bookings := protected.Group("/bookings")
	bookings.Post("/", students, bookingController.CreateBooking)
	bookings.Get("/", bookingController.GetBookings)
	bookings.Get("/:id", bookingController.GetBooking)
	bookings.Patch("/:id/status", bookingController.UpdateBookingStatus)
	bookings.Post("/:id/rating", students, bookingController.RateBooking)

	pre := protected.Group("/pre-assessments")
	pre.Get("/", preAssessmentController.GetPreAssessments)
	pre.Post("/", middleware.RequireStaff(), preAssessmentController.CreatePreAssessment)
	pre.Get("/:id", preAssessmentController.GetPreAssessment)
	pre.Put("/:id", middleware.RequireStaff(), preAssessmentController.UpdatePreAssessment)
	pre.Delete("/:id", middleware.RequireStaff(), preAssessmentController.DeletePreAssessment)
	pre.Post("/:id/questions", middleware.RequireStaff(), preAssessmentController.AddQuestion)
	pre.Post("/:id/questions/import", middleware.RequireStaff(), preAssessmentController.ImportQuestions)
	pre.Post("/:id/submit", students, preAssessmentController.SubmitPreAssessment)
	pre.Get("/:id/results", middleware.RequireStaff(), preAssessmentController.GetResults)
	pre.Get("/:id/results/export", middleware.RequireStaff(), preAssessmentController.ExportResults)
	pre.Get("/:id/my-result", preAssessmentController.GetMyResult)
	protected.Put("/pre-assessment-questions/:id", middleware.RequireStaff(), preAssessmentController.UpdateQuestion)
	protected.Delete("/pre-assessment-questions/:id", middleware.RequireStaff(), preAssessmentController.DeleteQuestion)
	protected.Get("/pre-assessment-results/me", preAssessmentController.GetMyResults)

	postTests := protected.Group("/post-tests")
	postTests.Post("/", middleware.RequireTutorOrAbove(), postTestController.CreatePostTest)
	postTests.Get("/", postTestController.GetPostTests)
	postTests.Get("/:id", postTestController.GetPostTest)
	postTests.Post("/:id/submit", postTestController.SubmitPostTest)
	postTests.Get("/:id/result", postTestController.GetPostTestResult)
	protected.Get("/post-test-assignments", postTestController.GetAssignments)

	templates := protected.Group("/post-test-templates", middleware.RequireTutorOrAbove())
	templates.Get("/", postTestController.GetTemplates)
	templates.Post("/", postTestController.CreateTemplate)
	templates.Get("/:id", postTestController.GetTemplate)
	templates.Put("/:id", postTestController.UpdateTemplate)
	templates.Delete("/:id", postTestController.DeleteTemplate)
	templates.Post("/:id/assign", postTestController.AssignTemplate)

	forums := protected.Group("/forums")
	forums.Get("/", forumController.GetForums)
	forums.Post("/", forumController.CreateForum)
	forums.Get("/:id", forumController.GetForum)
	forums.Put("/:id", forumController.UpdateForum)
	forums.Delete("/:id", forumController.DeleteForum)
	forums.Post("/:id/comments", forumController.AddComment)
	protected.Delete("/comments/:id", forumController.DeleteComment)

	chat := protected.Group("/chat")
	chat.Post("/messages", chatController.SendMessage)
	chat.Get("/conversations", chatController.GetConversations)
	chat.Get("/messages/:user_id", chatController.GetMessages)
	chat.Patch("/messages/:user_id/read", chatController.MarkRead)

	violations := protected.Group("/profanity-violations", middleware.RequireAdmin())
	violations.Get("/", profanityController.GetViolations)
	violations.Get("/stats", profanityController.GetStats)
	violations.Patch("/:id", profanityController.ReviewViolation)

	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Get("/unread-count", notificationController.GetUnreadCount)
	notifications.Get("/stats", middleware.RequireAdmin(), notificationController.GetNotificationStats)
	notifications.Post("/", middleware.RequireAdmin(), notificationController.CreateNotification)
	notifications.Patch("/mark-all-read", notificationController.MarkAllAsRead)
	notifications.Get("/:id", notificationController.GetNotification)
	notifications.Patch("/:id/read", notificationController.MarkAsRead)
	notifications.Delete("/:id", notificationController.DeleteNotification)

	logs := protected.Group("/logs", middleware.RequireAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Get("/stats", logController.GetLogStats)
	logs.Get("/export", logController.ExportLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Post("/archives", logController.ArchiveLogs)
	logs.Get("/archives/:id/download", logController.DownloadArchive)
	logs.Post("/flush-cache", logController.FlushCachedLogs)
	logs.Delete("/old", logController.DeleteOldLogs)
	logs.Get("/:id", logController.GetLog)

	protected.Get("/ws/stats", middleware.RequireAdmin(), wsController.GetWebSocketStats)

	app.Use("/ws", wsController.Upgrade)
	app.Get("/ws", wsController.WebSocketHandler())
}
