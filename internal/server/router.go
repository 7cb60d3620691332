// Package server assembles the gin engine: global middleware, CORS and the
// route table.
package server

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/handlers"
	"github.com/harentsoaR/tutor-api/internal/middleware"
	"github.com/harentsoaR/tutor-api/internal/models"
)

type Options struct {
	CORSOrigins []string
	// AuthLimiter throttles the unauthenticated auth endpoints. Nil disables it.
	AuthLimiter *middleware.Limiter
	Ping        func(ctx context.Context) error
	Log         *zap.Logger
}

func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Recovery(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", handlers.Health(opts.Ping))

	auth := middleware.AuthMiddleware(h.Tokens, h.CookieName)
	throttle := func(c *gin.Context) { c.Next() }
	if opts.AuthLimiter != nil {
		throttle = middleware.RateLimit(opts.AuthLimiter)
	}

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", throttle, h.RegisterUser)
		authRoutes.POST("/verify-otp", throttle, h.VerifyOTP)
		authRoutes.POST("/resend-otp", throttle, h.ResendOTP)
		authRoutes.POST("/login", throttle, h.Login)
		authRoutes.POST("/forgot-password", throttle, h.ForgotPassword)
		authRoutes.POST("/reset-password", throttle, h.ResetPassword)
		authRoutes.POST("/logout", h.Logout)

		authRoutes.GET("/me", auth, h.GetCurrentUser)
		authRoutes.PUT("/me", auth, h.UpdateCurrentUser)
		authRoutes.POST("/change-password", auth, h.ChangePassword)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", h.ListPublicCourses)
		courses.GET("/packages", h.ListPublicPackages)
		courses.GET("/packages/:slug", h.GetPublicPackage)
		courses.GET("/:slug", h.GetPublicCourse)
	}

	student := api.Group("/student", auth, middleware.RequireRole(models.RoleStudent))
	{
		student.GET("/tutors", h.ListTutors)
		student.GET("/tutors/:id", h.GetTutor)
		student.GET("/tutors/:id/availability", h.TutorAvailability)
		student.POST("/bookings", h.BookSlot)
		student.GET("/bookings", h.MyBookings)
		student.POST("/bookings/:id/cancel", h.CancelBooking)
		student.GET("/packages", h.MyPackages)
		student.GET("/enrollments", h.MyEnrollments)
	}

	tutor := api.Group("/tutor", auth, middleware.RequireRole(models.RoleTutor))
	{
		tutor.PUT("/availability", h.SetAvailability)
		tutor.GET("/availability", h.MyAvailability)
		tutor.DELETE("/availability/:date", h.RemoveSlot)
		tutor.GET("/classes", h.MyClasses)
		tutor.PATCH("/classes/:id/status", h.SetClassStatus)
		tutor.GET("/bookings", h.TutorBookings)
		tutor.POST("/bookings/:id/complete", h.CompleteBooking)
	}

	payment := api.Group("/payment", auth)
	{
		payment.POST("/upi", h.LogUPIPayment)
		payment.GET("/mine", h.MyPayments)
	}

	admin := api.Group("/admin", auth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", h.DashboardStats)

		admin.GET("/users", h.ListUsers)
		admin.GET("/users/:id", h.GetUser)
		admin.PATCH("/users/:id/status", h.SetUserStatus)
		admin.DELETE("/users/:id", h.DeleteUser)

		admin.GET("/courses", h.AdminListCourses)
		admin.POST("/courses", h.CreateCourse)
		admin.GET("/courses/:id", h.GetCourse)
		admin.PUT("/courses/:id", h.UpdateCourse)
		admin.DELETE("/courses/:id", h.DeleteCourse)
		admin.GET("/courses/:id/classes", h.ListCourseClasses)

		admin.POST("/classes", h.CreateClass)
		admin.PUT("/classes/:id", h.UpdateClass)
		admin.DELETE("/classes/:id", h.DeleteClass)

		admin.GET("/packages", h.AdminListPackages)
		admin.POST("/packages", h.CreatePackage)
		admin.GET("/packages/:id", h.GetPackage)
		admin.PUT("/packages/:id", h.UpdatePackage)
		admin.DELETE("/packages/:id", h.DeletePackage)

		admin.GET("/payments", h.AdminListPayments)
		admin.GET("/payments/:id", h.AdminGetPayment)
		admin.PATCH("/payments/:id/status", h.UpdatePaymentStatus)
		admin.POST("/payments/:id/retry-grant", h.RetryPaymentGrant)

		admin.GET("/enrollments", h.ListEnrollments)
	}

	return r
}
