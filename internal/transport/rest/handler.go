package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/service"
)

type Handler struct {
	services    *service.Services
	logger      *zap.Logger
	config      *config.Config
	rateLimiter *ipRateLimiter
}

func NewHandler(services *service.Services, logger *zap.Logger, config *config.Config) *Handler {
	return &Handler{
		services:    services,
		logger:      logger,
		config:      config,
		rateLimiter: newIPRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst),
	}
}

func (h *Handler) InitRoutes(router *gin.Engine) {
	router.Use(h.loggerMiddleware())
	router.Use(h.corsMiddleware())
	router.Use(h.rateLimitMiddleware())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.POST("/refresh", h.refreshTokens)
			auth.POST("/logout", h.logout)
		}

		users := api.Group("/users")
		users.Use(h.authMiddleware())
		{
			users.GET("/me", h.getCurrentUser)
			users.GET("/:id", h.getUserByID)
			users.PUT("/:id", h.updateUser)
			users.PUT("/:id/password", h.updatePassword)

			admin := users.Group("/")
			admin.Use(h.adminMiddleware())
			{
				admin.GET("/", h.getUsers)
			}
		}

		doctors := api.Group("/doctors")
		{
			doctors.GET("/", h.getDoctors)
			doctors.GET("/me", h.authMiddleware(), h.getMyDoctorProfile)
			doctors.GET("/:id", h.getDoctorByID)
			doctors.GET("/:id/slots", h.getDoctorSlots)
			doctors.GET("/:id/schedule", h.getDoctorSchedule)

			auth := doctors.Group("/", h.authMiddleware())
			{
				auth.POST("/", h.createDoctor)
				auth.PUT("/:id", h.updateDoctor)
				auth.POST("/:id/photo", h.uploadDoctorPhoto)
				auth.DELETE("/:id/photo", h.deleteDoctorPhoto)
				auth.GET("/:id/stats", h.getDoctorStats)
			}
		}

		schedules := api.Group("/schedules")
		schedules.Use(h.authMiddleware(), h.doctorMiddleware())
		{
			schedules.GET("/me", h.getMySchedule)
			schedules.PUT("/", h.replaceSchedule)
			schedules.POST("/rules", h.upsertWeeklyRule)
			schedules.DELETE("/rules/:day", h.deleteWeeklyRule)
			schedules.POST("/exceptions", h.addExceptionDate)
			schedules.DELETE("/exceptions/:date", h.removeExceptionDate)
		}

		bookings := api.Group("/bookings")
		bookings.Use(h.authMiddleware())
		{
			bookings.POST("/", h.createBooking)
			bookings.GET("/", h.getBookings)
			bookings.GET("/:id", h.getBookingByID)
			bookings.PUT("/:id", h.rescheduleBooking)
			bookings.DELETE("/:id", h.cancelBooking)
			bookings.POST("/:id/approve", h.doctorMiddleware(), h.approveBooking)
			bookings.POST("/:id/complete", h.doctorMiddleware(), h.completeBooking)
			bookings.GET("/:id/receipt", h.getBookingReceipt)
		}

		reviews := api.Group("/reviews")
		{
			reviews.GET("/", h.getReviews)
			reviews.GET("/:id", h.getReviewByID)

			auth := reviews.Group("/")
			auth.Use(h.authMiddleware())
			{
				auth.POST("/", h.createReview)
				auth.PUT("/:id", h.updateReview)
				auth.DELETE("/:id", h.deleteReview)
			}
		}

		admin := api.Group("/admin")
		admin.Use(h.authMiddleware(), h.adminMiddleware())
		{
			admin.GET("/overview", h.getAdminOverview)
			admin.GET("/doctors", h.getDoctorsForModeration)
			admin.POST("/doctors/:id/approve", h.approveDoctor)
			admin.POST("/doctors/:id/reject", h.rejectDoctor)
		}
	}
}
