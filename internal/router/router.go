package router

import (
	"net/http"

	"github.com/batgear/batstore-backend/config"
	"github.com/batgear/batstore-backend/internal/app/controller"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/batgear/batstore-backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController    *controller.AuthController
	productController *controller.ProductController
	cartController    *controller.CartController
	orderController   *controller.OrderController
	contactController *controller.ContactController
	uploadController  *controller.UploadController
	healthController  *controller.HealthController
	authMiddleware    *middleware.AuthMiddleware
	idempotency       middleware.IdempotencyStore
	orderFeed         *websocket.Hub
	metricsHandler    http.Handler
	config            *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	contactController *controller.ContactController,
	uploadController *controller.UploadController,
	healthController *controller.HealthController,
	authMiddleware *middleware.AuthMiddleware,
	idempotency middleware.IdempotencyStore,
	orderFeed *websocket.Hub,
	metricsHandler http.Handler,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		productController: productController,
		cartController:    cartController,
		orderController:   orderController,
		contactController: contactController,
		uploadController:  uploadController,
		healthController:  healthController,
		authMiddleware:    authMiddleware,
		idempotency:       idempotency,
		orderFeed:         orderFeed,
		metricsHandler:    metricsHandler,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)
	apperrors.UseJSONFieldNames()

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	if r.metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(r.metricsHandler))
	}

	adminOnly := []gin.HandlerFunc{
		r.authMiddleware.Authenticate(),
		r.authMiddleware.RequireRole("admin"),
	}
	admin := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, adminOnly...), h)
	}

	api := router.Group("/api")
	{
		api.GET("/health", r.healthController.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := api.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/featured/list", r.productController.GetFeaturedProducts)
			products.GET("/categories", r.productController.GetCategories)
			products.GET("/:id", r.productController.GetProductByID)

			products.GET("/admin/low-stock", admin(r.productController.GetLowStockProducts)...)
			products.POST("", admin(r.productController.CreateProduct)...)
			products.POST("/upload-url", admin(r.uploadController.GenerateProductImageURL)...)
			products.PUT("/:id", admin(r.productController.UpdateProduct)...)
			products.DELETE("/:id", admin(r.productController.DeleteProduct)...)
		}

		cart := api.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("/add", r.cartController.AddToCart)
			cart.PUT("/update", r.cartController.UpdateCartItem)
			cart.DELETE("/remove/:productId", r.cartController.RemoveFromCart)
			cart.DELETE("/clear", r.cartController.ClearCart)
		}

		orders := api.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.POST("/create",
				middleware.Idempotency(r.idempotency, r.config.Store.IdempotencyTTL),
				r.orderController.CreateOrder,
			)
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)

			ordersAdmin := orders.Group("")
			ordersAdmin.Use(r.authMiddleware.RequireRole("admin"))
			{
				ordersAdmin.GET("/admin/all", r.orderController.ListAllOrders)
				ordersAdmin.GET("/admin/stats", r.orderController.GetStats)
				ordersAdmin.GET("/admin/export", r.orderController.ExportOrders)
				ordersAdmin.PATCH("/update/:orderId", r.orderController.UpdateOrderStatus)
				ordersAdmin.PATCH("/payment/:orderId", r.orderController.UpdatePaymentStatus)
			}
		}

		contact := api.Group("/contact")
		{
			contact.POST("/submit", r.contactController.Submit)
			contact.GET("", admin(r.contactController.List)...)
			contact.PATCH("/:id", admin(r.contactController.Update)...)
		}

		api.GET("/ws/orders", admin(websocket.Handler(r.orderFeed, r.config.CORS.AllowedOrigins))...)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
