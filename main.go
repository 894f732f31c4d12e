package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/controllers"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"github.com/robfig/cron/v3"
)

func main() {
	log.Println("Starting Field Service API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Work{},
		&models.Booking{},
		&models.Bill{},
		&models.BillItem{},
		&models.Notification{},
		&models.AdminNotification{},
		&models.Warranty{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Side-channel services. Photo storage is required; the rest degrade
	// gracefully when unconfigured.
	if _, err := services.InitS3Service(); err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitEmailService()
	services.InitRoutingService()
	services.InitNotifier()
	services.InitInvoiceService()
	services.InitPaymentGateway()

	router := setupRouter(cfg)

	// Hourly reminder sweep for bills that were sent but never paid.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", sendUnpaidBillReminders); err != nil {
		log.Fatalf("Failed to schedule bill reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with CORS and the full route surface.
func setupRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendBaseURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus)

		v1.POST("/auth/register", controllers.Register)
		v1.POST("/auth/login", controllers.Login)

		// The gateway signs its own requests; no user auth applies.
		v1.POST("/webhook/gateway", controllers.HandleGatewayWebhook)

		authed := v1.Group("")
		authed.Use(middleware.RequireAuth(cfg))
		{
			authed.GET("/users/me", controllers.GetMyProfile)
			authed.GET("/notifications", controllers.ListMyNotifications)

			authed.GET("/client-work/:workId", controllers.GetClientWork)
			authed.GET("/track-technician/:workId", controllers.TrackTechnician)
			authed.GET("/warranty/:workId", controllers.CheckWarranty)

			client := authed.Group("")
			client.Use(middleware.RequireRole("client"))
			{
				client.POST("/work/create", controllers.CreateWork)
				client.POST("/work/find-technicians", controllers.FindTechnicians)
				client.POST("/work/book-technician", controllers.BookTechnician)
				client.GET("/client/works", controllers.ListClientWorks)
				client.PATCH("/client/pay-bill", controllers.PayBill)
				client.POST("/payment/manual-confirm", controllers.ConfirmManualPayment)
				client.POST("/payment/order", controllers.CreatePaymentOrder)
				client.POST("/warranty/claim", controllers.RaiseWarrantyClaim)
			}

			technician := authed.Group("")
			technician.Use(middleware.RequireRole("technician"))
			{
				technician.POST("/work/approve", controllers.ApproveJob)
				technician.POST("/work/start", controllers.StartWork)
				technician.POST("/work/issue", controllers.ReportIssue)
				technician.POST("/work/complete", controllers.CompleteWork)
				technician.PATCH("/work/update-location", controllers.UpdateLocation)
				technician.GET("/technician/works", controllers.ListTechnicianWorks)
				technician.GET("/technician/jobs", controllers.ListTechnicianJobs)
				technician.GET("/technician/summary", controllers.GetTechnicianSummary)
				technician.POST("/payment", controllers.ConfirmPayment)
			}

			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRole("admin"))
			{
				admin.GET("/notifications", controllers.ListAdminNotifications)
				admin.PATCH("/notifications/:id/seen", controllers.MarkNotificationSeen)
				admin.PATCH("/notifications/:id/resolve", controllers.ResolveIssue)
			}
		}
	}

	return router
}

// sendUnpaidBillReminders nudges clients whose bills have been outstanding
// since the last sweep.
func sendUnpaidBillReminders() {
	db := config.GetDB()
	notifier := services.GetNotifier()
	if db == nil || notifier == nil {
		return
	}

	var bills []models.Bill
	if err := db.Where("status = ?", models.BillSent).Find(&bills).Error; err != nil {
		log.Printf("bill reminder sweep failed: %v", err)
		return
	}

	for _, bill := range bills {
		var work models.Work
		if err := db.First(&work, bill.WorkID).Error; err != nil {
			continue
		}
		notifier.Notify(bill.ClientID, "client", "Payment reminder",
			"Your bill for "+work.Token+" is still unpaid", "warning", "/client/works")
	}
	if len(bills) > 0 {
		log.Printf("bill reminder sweep: %d unpaid bill(s)", len(bills))
	}
}
