package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	_ "agromed-backend/api/swagger" // swagger docs
	"agromed-backend/internal/database"
	"agromed-backend/internal/handler"
	"agromed-backend/internal/middleware"
	"agromed-backend/internal/repository"
	"agromed-backend/internal/service"
	"agromed-backend/internal/storage"
	"agromed-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Agro-Medicine Distribution API
// @version         1.0
// @description     Submission lifecycle, approval workflow and distribution wizard for agro-medicine stock.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	storageDir := os.Getenv("FILE_STORAGE_DIR")
	if storageDir == "" {
		storageDir = "storage"
	}
	fileStore := storage.NewLocalFileStore(storageDir)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	medicineRepo := repository.NewMedicineRepository(db)
	stockRepo := repository.NewStockRepository(db)
	distRepo := repository.NewDistributionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, middleware.GetJWTSecret())
	submissionService := service.NewSubmissionService(subRepo, medicineRepo, auditRepo, txManager, wsHub)
	approvalService := service.NewApprovalService(subRepo, auditRepo, txManager, wsHub)
	documentService := service.NewDocumentService()
	distributionService := service.NewDistributionService(subRepo, distRepo, stockRepo, auditRepo, txManager, fileStore, documentService, wsHub)
	stockService := service.NewStockService(medicineRepo, stockRepo, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(userService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	distributionHandler := handler.NewDistributionHandler(distributionService, fileStore)
	stockHandler := handler.NewStockHandler(stockService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Background sweeper: stale submissions sitting in review past the
	// configured age are expired on behalf of the system actor.
	go runExpirySweeper(submissionService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	submissionHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	distributionHandler.RegisterRoutes(router.Group(""))
	stockHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func runExpirySweeper(submissionService service.SubmissionService) {
	expiryDays := 14
	if raw := os.Getenv("SUBMISSION_EXPIRY_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			expiryDays = parsed
		}
	}
	maxAge := time.Duration(expiryDays) * 24 * time.Hour

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		expired, err := submissionService.ExpireStale(context.Background(), maxAge)
		if err != nil {
			log.Printf("Expiry sweep failed: %v", err)
			continue
		}
		if expired > 0 {
			log.Printf("Expiry sweep: %d submission(s) expired", expired)
		}
	}
}
