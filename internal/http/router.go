package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
)

// InitRouter registers middleware and every API route on server.
func InitRouter(conf *config.Config, server *gin.Engine, httpMiddleware *middleware.Middleware, ctr *controller.Controller, productCtr *controller.ProductController) *gin.Engine {
	server.Use(middleware.Logger())
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery())
	server.Use(middleware.CORS())

	if conf.Blob.Backend == config.BlobBackendLocal {
		server.Static(conf.Blob.PublicPath, conf.Blob.Dir)
	}

	api := server.Group("/api")
	api.GET("/health", ctr.Health)

	admin := api.Group("/admin")
	{
		admin.POST("/login", ctr.Login)
		admin.GET("/session", httpMiddleware.RequireAdmin(), ctr.Session)
	}

	products := api.Group("/products")
	{
		products.GET("", productCtr.ListProducts)
		products.GET("/:id", productCtr.GetProduct)
		if productCtr.OrderLinksEnabled() {
			products.GET("/:id/order-link", productCtr.OrderLink)
		}
	}

	managed := products.Group("", httpMiddleware.RequireAdmin(), httpMiddleware.LimitBody())
	{
		managed.POST("", productCtr.CreateProduct)
		managed.PUT("/:id", productCtr.UpdateProduct)
		managed.DELETE("/:id", productCtr.DeleteProduct)
	}

	server.NoRoute(ctr.NotFound)

	return server
}
