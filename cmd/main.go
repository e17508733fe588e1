package main

import (
	"time"

	"spicesense/internal/handler"
	"spicesense/internal/middleware"
	"spicesense/internal/model"
	"spicesense/pkg/config"
	"spicesense/pkg/database"
	"spicesense/pkg/jwtutil"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting spicesense service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed", zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.DBName))

	// Share configuration with the handler layer
	handler.Init(cfg)

	// Create Echo instance
	e := echo.New()
	e.Validator = handler.NewRequestValidator()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.Middleware())

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Log request details
			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Float64("duration_s", time.Since(start).Seconds()),
				zap.String("ip", c.RealIP()),
			)

			return err
		}
	})

	// Routes
	// Public routes that don't require authentication
	e.GET("/health", handler.Health)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Authentication routes
	auth := e.Group("/api/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout)

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// User directory
	user := api.Group("/user")
	user.GET("/data", handler.GetData)
	user.PUT("/update-profile", handler.UpdateProfile)
	user.GET("/all", handler.GetAllUsers, middleware.RequireRole(model.RoleAdmin))
	user.GET("/role/:role", handler.GetUsersByRole, middleware.RequireRole(model.RoleAdmin))
	user.POST("/create-user", handler.CreateUser, middleware.RequireRole(model.RoleAdmin))
	user.PUT("/update/:userId", handler.UpdateUser, middleware.RequireRole(model.RoleAdmin))
	user.DELETE("/delete/:userId", handler.DeleteUser, middleware.RequireRole(model.RoleAdmin))
	user.PUT("/toggle-status/:userId", handler.ToggleStatus, middleware.RequireRole(model.RoleAdmin))
	user.GET("/reports/summary", handler.ReportsSummary, middleware.RequireRole(model.RoleAdmin))

	// Supplier product catalog
	products := api.Group("/supProducts")
	products.POST("", handler.CreateProduct, middleware.RequireRole(model.RoleSupplier))
	products.GET("/supplier", handler.GetMyProducts, middleware.RequireRole(model.RoleSupplier))
	products.GET("/all", handler.GetAllProducts)
	products.GET("/:productId", handler.GetProduct)
	products.PUT("/:productId", handler.UpdateProduct, middleware.RequireRole(model.RoleSupplier))
	products.DELETE("/:productId", handler.DeleteProduct, middleware.RequireRole(model.RoleSupplier))

	// Stock ledger
	stocks := api.Group("/stocks", middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))
	stocks.POST("/in", handler.StockIn)
	stocks.POST("/out", handler.StockOut)
	stocks.GET("", handler.GetStocks)
	stocks.GET("/movements", handler.GetStockMovements)
	stocks.GET("/:stockId", handler.GetStock)
	stocks.PUT("/:stockId/batches/:batchId", handler.UpdateBatch)
	stocks.DELETE("/:stockId/batches/:batchId", handler.DeleteBatch)

	// Restock message workflow
	messages := api.Group("/messages")
	messages.POST("", handler.CreateMessage, middleware.RequireRole(model.RoleAdmin))
	messages.GET("/supplier", handler.GetSupplierMessages, middleware.RequireRole(model.RoleSupplier))
	messages.GET("/admin", handler.GetAdminMessages, middleware.RequireRole(model.RoleAdmin))
	messages.PUT("/respond/:messageId", handler.RespondMessage, middleware.RequireRole(model.RoleSupplier))
	messages.PUT("/seen/:messageId", handler.MarkMessageSeen, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))

	// Order delivery workflow
	orders := api.Group("/orderdelivers")
	orders.POST("/message/:messageId", handler.CreateOrderFromMessage, middleware.RequireRole(model.RoleAdmin))
	orders.GET("/supplier", handler.GetSupplierOrders, middleware.RequireRole(model.RoleSupplier))
	orders.GET("/admin", handler.GetAdminOrders, middleware.RequireRole(model.RoleAdmin))
	orders.GET("/:orderId", handler.GetOrder, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))
	orders.PUT("/:orderId/status", handler.UpdateOrderStatus, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))

	// Shipment delivery workflow
	shipments := api.Group("/deliveries")
	shipments.POST("", handler.CreateShipment, middleware.RequireRole(model.RoleSupplier))
	shipments.GET("/supplier", handler.GetSupplierShipments, middleware.RequireRole(model.RoleSupplier))
	shipments.GET("/admin", handler.GetAdminShipments, middleware.RequireRole(model.RoleAdmin))
	shipments.GET("/:shipmentId", handler.GetShipment, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))
	shipments.PUT("/:shipmentId/status", handler.UpdateShipmentStatus, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))

	// Transaction / invoice workflow
	transactions := api.Group("/transactions")
	transactions.POST("", handler.CreateTransaction, middleware.RequireRole(model.RoleAdmin))
	transactions.GET("/supplier", handler.GetSupplierTransactions, middleware.RequireRole(model.RoleSupplier))
	transactions.GET("/admin", handler.GetAdminTransactions, middleware.RequireRole(model.RoleAdmin))
	transactions.GET("/:transactionId", handler.GetTransaction, middleware.RequireRoles(model.RoleAdmin, model.RoleSupplier))
	transactions.PUT("/:transactionId/status", handler.UpdateTransactionStatus, middleware.RequireRole(model.RoleAdmin))

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
