package server

import (
	"context"
	"net/http"
	"time"

	handler "auction-ledger/services/bidding/handler"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, checks ...HealthCheck) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(IdentityMiddleware)      // X-User-ID / X-User-Role
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService)

	router.GET("/healthz", healthHandler(checks))

	auctions := router.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/cancel", biddingHandler.CancelAuctionHandler)
		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsForAuctionHandler)
		auctions.GET("/:auction_id/highest", biddingHandler.GetCurrentHighestHandler)
		auctions.GET("/:auction_id/status", biddingHandler.GetBidStatusHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", biddingHandler.GetAuctionsByUserHandler)
	}

	router.GET("/notifications", biddingHandler.GetNotificationsHandler)

	admin := router.Group("/admin", RequireAdmin)
	{
		admin.POST("/sweep", biddingHandler.SweepHandler)
	}

	return router
}

func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				utils.JSONRetryableError(c, http.StatusServiceUnavailable, err, "unhealthy", 5)
				utils.Warn("healthz: dependency check failed", map[string]any{"error": err.Error()})
				return
			}
		}
		utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	}
}
