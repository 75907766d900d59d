package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging
	"time"    // Seed for the simulated classifier

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"    // Custom package for user accounts
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/api"        // Custom package for API handlers
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/classify"   // Custom package for image classification
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/config"     // Custom package for configuration
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/db"         // Custom package for database setup
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/middleware" // Custom package for middleware
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"    // Custom package for the record store

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the embedded user database and run migrations
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(database); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Open the record store and make sure every table file exists
	tab, err := tabular.Open(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("failed to open record store: %v", err)
	}
	if err := tab.EnsureAll(); err != nil {
		logrus.Fatalf("failed to initialize table files: %v", err)
	}

	accounts := account.NewStore(database, tab)
	classifier := classify.NewSimulated(time.Now().UnixNano())

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(accounts))                // Registration endpoint
	r.GET("/user", api.LoginHandler(accounts, cfg.JWTSecret))     // Login endpoint
	r.GET("/catalog", api.CatalogHandler())                       // Public species catalog
	r.GET("/farms", api.FarmListHandler())       // Public farm list
	r.GET("/reviews", api.FarmReviewsHandler(tab)) // Public farm reviews, ?farm= filter

	// Inject Redis client into context for cached handlers
	withRedis := func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	}

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), withRedis)
	walletGroup.GET("", api.WalletStatusHandler(accounts, redisClient))    // Wallet status endpoint
	walletGroup.POST("/bonus", api.ClaimBonusHandler(accounts))            // Signup bonus endpoint
	walletGroup.POST("/debit", api.DebitWalletHandler(accounts))           // Spend endpoint
	walletGroup.POST("/premium", api.SubscribePremiumHandler(accounts))    // Premium subscription endpoint
	walletGroup.GET("/transactions", api.TransactionHistoryHandler(accounts)) // Transaction history endpoint
	walletGroup.GET("/commissions", api.CommissionHistoryHandler(accounts))   // Commission history endpoint

	// Sales routes (protected by JWT)
	salesGroup := r.Group("/sales")
	salesGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), withRedis)
	salesGroup.POST("", api.RecordSaleHandler(tab, accounts))   // Record sale endpoint
	salesGroup.GET("", api.MySalesHandler(tab))                 // Own sales endpoint
	salesGroup.POST("/purchases", api.RecordPurchaseHandler(tab)) // Record purchase endpoint
	salesGroup.GET("/purchases", api.MyPurchasesHandler(tab))     // Own purchases endpoint
	salesGroup.GET("/analytics", api.SalesAnalyticsHandler(tab))  // Sales analytics endpoint

	// Point-of-sale routes (protected by JWT)
	posGroup := r.Group("/pos")
	posGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	posGroup.POST("/checkout", api.CheckoutHandler(tab))              // Checkout endpoint
	posGroup.GET("/transactions", api.TransactionListHandler(tab))    // Transaction list endpoint
	posGroup.GET("/orders/:order_number", api.OrderItemsHandler(tab)) // Order items endpoint

	// Booking routes (protected by JWT)
	bookingGroup := r.Group("/bookings")
	bookingGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	bookingGroup.POST("", api.BookVisitHandler(tab))                      // Book visit endpoint
	bookingGroup.GET("", api.MyBookingsHandler(tab))                      // Own bookings endpoint
	bookingGroup.POST("/:booking_id/cancel", api.CancelBookingHandler(tab)) // Cancel booking endpoint
	bookingGroup.POST("/reviews", api.SubmitReviewHandler(tab))             // Submit review endpoint

	// Breeding routes (protected by JWT)
	breedingGroup := r.Group("/breeding")
	breedingGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	breedingGroup.POST("/batches", api.CreateBatchHandler(tab))             // Create batch endpoint
	breedingGroup.GET("/batches", api.ListBatchesHandler(tab))              // List batches endpoint
	breedingGroup.PUT("/batches/:batch_id", api.UpdateBatchHandler(tab))    // Update batch endpoint
	breedingGroup.DELETE("/batches/:batch_id", api.DeleteBatchHandler(tab)) // Delete batch endpoint
	breedingGroup.POST("/tasks", api.CreateTaskHandler(tab))                // Create task endpoint
	breedingGroup.GET("/tasks", api.ListTasksHandler(tab))                  // List tasks endpoint
	breedingGroup.POST("/tasks/:task_id/complete", api.CompleteTaskHandler(tab)) // Complete task endpoint
	breedingGroup.GET("/log", api.BreedingLogHandler(tab))                  // Breeding log endpoint

	// Classification routes (protected by JWT)
	classifyGroup := r.Group("/classify")
	classifyGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	classifyGroup.POST("", api.ClassifyHandler(tab, classifier))         // Classify endpoint
	classifyGroup.GET("/recent", api.RecentClassificationsHandler(tab)) // Recent results endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(accounts), withRedis)
	adminGroup.GET("/users", api.ListUsersHandler(database, redisClient))          // List users endpoint
	adminGroup.POST("/earnings", api.AddEarningsHandler(accounts))                 // Credit earnings endpoint
	adminGroup.GET("/database", api.DatabaseInfoHandler(database, tab))            // Database info endpoint
	adminGroup.GET("/tables/:table/report", api.TableReportHandler(tab, redisClient)) // Table report endpoint
	adminGroup.GET("/tables/:table/validate", api.ValidateTableHandler(tab))          // Table validation endpoint
	adminGroup.POST("/backup", api.BackupHandler(tab))                             // Backup endpoint
	adminGroup.POST("/merge", api.MergeHandler(tab))                               // Merge endpoint
	adminGroup.POST("/cleanup", api.CleanupHandler(tab))                           // Cleanup endpoint
	adminGroup.POST("/clean", api.CleanHandler(tab))                               // Clean endpoint
	adminGroup.POST("/export", api.ExportHandler(tab))                             // Export endpoint
	adminGroup.GET("/breeders", api.BreederEmailsHandler(accounts))                // Breeder contacts endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
