package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/handlers"
	"github.com/stoa-market/stoa-market-api/internal/middleware"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	http     *http.Server
	handlers *handlers.Handlers
}

func New(h *handlers.Handlers, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())
	router.Use(cors.Default())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
	}

	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	secret := s.config.Auth.JWTSecret

	// Anonymous browsing is allowed; a token adds personalization.
	public := s.router.Group("/api/v1")
	public.Use(middleware.Auth(secret, false))
	{
		public.GET("/catalog", s.handlers.BrowseCatalog)
		public.GET("/catalog/top-favorited", s.handlers.TopFavorited)
		public.GET("/products/:id", s.handlers.GetProduct)
		public.GET("/products/:id/related", s.handlers.RelatedProducts)
		public.GET("/recommendations", s.handlers.Recommendations)
	}

	authed := s.router.Group("/api/v1")
	authed.Use(middleware.Auth(secret, true))
	{
		authed.GET("/cart", s.handlers.GetCart)
		authed.POST("/cart/items", s.handlers.AddCartItem)
		authed.PUT("/cart/items/:id", s.handlers.UpdateCartItem)
		authed.DELETE("/cart/items/:id", s.handlers.RemoveCartItem)

		authed.POST("/checkout", s.handlers.Checkout)
		authed.GET("/orders/mine", s.handlers.MyOrders)
		authed.GET("/purchases/mine", s.handlers.MyPurchases)
		authed.GET("/orders/:id", s.handlers.GetOrder)
		authed.POST("/orders/:id/status", s.handlers.UpdateOrderStatus)

		authed.POST("/favorites", s.handlers.ToggleFavorite)
		authed.GET("/favorites", s.handlers.ListFavorites)
	}

	admin := s.router.Group("/api/v1/admin")
	admin.Use(middleware.Auth(secret, true), middleware.RequireAdmin())
	{
		admin.GET("/orders", s.handlers.AllOrders)
		admin.DELETE("/orders/:id", s.handlers.DeleteOrder)
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
