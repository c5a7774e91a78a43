package api

import (
	"time" // Rate limit windows

	"marketplace/internal/domain"     // Importing domain models
	"marketplace/internal/middleware" // Auth, roles and rate limits

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the long-lived handles the routes need
type Deps struct {
	DB              *gorm.DB
	Redis           *redis.Client
	JWTSecret       string
	TrustedProxies  []string
	Geocoder        Geocoder
	Payments        PaymentVerifier
	PaymentCurrency string
	Describer       Describer // nil disables /ai
}

// NewRouter wires every route onto a gin engine
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New() // Create Gin router
	r.Use(gin.Recovery(), middleware.RequestLogger())
	// Only trust forwarded headers from known proxies
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	db, rdb := d.DB, d.Redis
	auth := middleware.JWTAuthMiddleware(d.JWTSecret)

	// Liveness
	r.GET("/healthz", HealthHandler(db, rdb))

	// Public routes
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(rdb, "auth", 20, time.Minute))
	authGroup.POST("/register", RegisterHandler(db, d.JWTSecret))
	authGroup.POST("/login", LoginHandler(db, d.JWTSecret))

	// Catalogue browsing
	r.GET("/categories", ListCategoriesHandler(db, rdb))
	r.GET("/services", ListServicesHandler(db, rdb))
	r.GET("/services/featured", FeaturedServicesHandler(db))
	r.GET("/services/:id", GetServiceHandler(db))
	r.GET("/sellers/:id", GetSellerHandler(db, rdb))

	// Authenticated routes
	api := r.Group("")
	api.Use(auth)

	// Account
	api.GET("/me", MeHandler(db))
	api.PUT("/me", UpdateMeHandler(db))
	api.GET("/dashboard", DashboardHandler(db))

	// Seller onboarding
	api.POST("/sellers", BecomeSellerHandler(db, d.JWTSecret))
	api.PUT("/sellers/me", middleware.RequireRole(db, domain.RoleSeller), UpdateSellerProfileHandler(db, rdb))

	// Service management
	sellerOnly := middleware.RequireRole(db, domain.RoleSeller)
	api.POST("/services", sellerOnly, CreateServiceHandler(db, rdb))
	api.PUT("/services/:id", sellerOnly, UpdateServiceHandler(db, rdb))
	api.DELETE("/services/:id", sellerOnly, DeleteServiceHandler(db, rdb))

	// Saved services
	api.GET("/favorites", ListFavoritesHandler(db))
	api.POST("/favorites/:serviceId", ToggleFavoriteHandler(db))

	// Chat and quotes
	chat := api.Group("/chat")
	chat.GET("/unread", UnreadCountHandler(db))
	chat.POST("/rooms", OpenRoomHandler(db))
	chat.GET("/rooms", ListRoomsHandler(db))
	chat.GET("/rooms/:id/messages", ListMessagesHandler(db))
	chat.POST("/rooms/:id/messages", SendMessageHandler(db))
	chat.POST("/rooms/:id/read", MarkRoomReadHandler(db))
	chat.POST("/rooms/:id/quotes", CreateQuoteHandler(db))

	api.POST("/quotes/:id/accept", AcceptQuoteHandler(db))
	api.POST("/quotes/:id/decline", DeclineQuoteHandler(db))
	api.POST("/quotes/:id/withdraw", WithdrawQuoteHandler(db))

	// Orders, payments and disputes
	orders := api.Group("/orders")
	orders.POST("", CreateOrderHandler(db))
	orders.GET("", ListOrdersHandler(db))
	orders.GET("/stats", OrderStatsHandler(db))
	orders.GET("/:id", GetOrderHandler(db))
	orders.POST("/:id/status", UpdateOrderStatusHandler(db))
	orders.POST("/:id/payments/verify", VerifyPaymentHandler(db, d.Payments, d.PaymentCurrency))
	orders.POST("/:id/disputes", OpenDisputeHandler(db))

	// In-app notifications
	notifications := api.Group("/notifications")
	notifications.GET("", ListNotificationsHandler(db))
	notifications.GET("/unread", UnreadNotificationsHandler(db))
	notifications.POST("/read-all", MarkAllNotificationsReadHandler(db))
	notifications.POST("/:id/read", MarkNotificationReadHandler(db))

	// Errands
	helperOnly := middleware.RequireRole(db, domain.RoleHelper)
	errands := api.Group("/errands")
	errands.POST("", CreateErrandHandler(db))
	errands.GET("", ListErrandsHandler(db))
	errands.GET("/open", helperOnly, ListOpenErrandsHandler(db))
	errands.GET("/:id", GetErrandHandler(db))
	errands.POST("/:id/accept", helperOnly, ErrandActionHandler(db, "accept"))
	for _, action := range []string{"pickup", "deliver", "complete", "cancel"} {
		errands.POST("/:id/"+action, ErrandActionHandler(db, action))
	}

	// External integrations
	api.GET("/geocode", GeocodeHandler(d.Geocoder, rdb))
	api.POST("/ai/describe", middleware.RateLimit(rdb, "ai", 10, time.Minute), DescribeHandler(d.Describer))

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.AdminOnlyMiddleware(db))
	admin.GET("/users", ListUsersHandler(db, rdb))
	admin.PUT("/users/:id/role", UpdateUserRoleHandler(db, rdb))
	admin.GET("/orders", ListAllOrdersHandler(db))
	admin.GET("/disputes", ListDisputesHandler(db))
	admin.POST("/disputes/:id/resolve", ResolveDisputeHandler(db))

	return r, nil
}
