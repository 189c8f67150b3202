package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/wastemarket-backend/internal/config"
	"github.com/ignatzorin/wastemarket-backend/internal/http/handlers"
	"github.com/ignatzorin/wastemarket-backend/internal/http/middleware"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/wastemarket-backend/internal/service"
)

// Handlers собирает хэндлеры, которые монтирует роутер.
type Handlers struct {
	Listing *handler.ListingHandler
	Bid     *handler.BidHandler
	WS      *handlers.WSHandler
	Health  *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokenManager))

	bidRateLimit := middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)

	listings := protected.Group("/listings")
	{
		listings.POST("", h.Listing.CreateListing)
		listings.GET("/:id", middleware.UUIDValidator("id"), h.Listing.GetListing)
		listings.POST("/:id/publish", middleware.UUIDValidator("id"), h.Listing.PublishListing)
		listings.POST("/:id/close", middleware.UUIDValidator("id"), h.Listing.CloseBidding)
		listings.GET("/:id/bids", middleware.UUIDValidator("id"), h.Bid.GetListingBids)
		listings.POST("/:id/bids", middleware.UUIDValidator("id"), bidRateLimit, h.Bid.PlaceBid)
	}

	bids := protected.Group("/bids")
	{
		bids.GET("/my", h.Bid.GetMyBids)
		bids.PUT("/:bidId", middleware.UUIDValidator("bidId"), bidRateLimit, h.Bid.UpdateBid)
		bids.POST("/:bidId/withdraw", middleware.UUIDValidator("bidId"), h.Bid.WithdrawBid)
		bids.POST("/:bidId/accept", middleware.UUIDValidator("bidId"), h.Bid.AcceptBid)
	}

	return r
}
