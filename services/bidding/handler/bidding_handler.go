package handler

//go:generate mockgen -source=bidding_handler.go -destination=mock_service.go -package=handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notify"
	"auction-ledger/services/bidding/helpers"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultNotificationLimit = 20

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, user model.UserContext, in model.AuctionInput) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.AuctionSummary, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	CancelAuction(ctx context.Context, user model.UserContext, auctionID string) error
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetCurrentHighest(ctx context.Context, auctionID string) (model.Bid, error)
	GetBidStatus(ctx context.Context, auctionID, userID string) (model.BidStatus, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)
	Sweep(ctx context.Context) (int, error)
	GetNotifications(ctx context.Context, userID string, limit int64) ([]notify.Event, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// caller returns the authenticated user or writes a 401
func caller(c *gin.Context, handlerName string) (model.UserContext, bool) {
	user, ok := helpers.CurrentUser(c)
	if !ok {
		err := errors.New("missing X-User-ID header")
		utils.JSONError(c, http.StatusUnauthorized, err, "authentication required")
		utils.Warn(handlerName+": unauthenticated request", map[string]any{"path": c.Request.URL.Path})
		return model.UserContext{}, false
	}
	return user, true
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	user, ok := caller(c, "CreateAuctionHandler")
	if !ok {
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		helpers.HandleValidationError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), user, req.ToInput())
	if err != nil {
		helpers.RespondError(c, err)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"user_id": user.UserID,
			"error":   err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"owner_id":   auction.OwnerID,
		"deadline":   auction.Deadline,
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	var q helpers.ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		helpers.HandleBindError(c, "ListAuctionsHandler", err)
		return
	}
	if err := q.Validate(); err != nil {
		helpers.HandleValidationError(c, "ListAuctionsHandler", err)
		return
	}

	auctions, err := h.service.ListAuctions(c.Request.Context(), q.Filter())
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("ListAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"status": q.Status,
		"count":  len(auctions),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	summary, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, summary, "auction retrieved successfully")
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *BiddingHandler) CancelAuctionHandler(c *gin.Context) {
	user, ok := caller(c, "CancelAuctionHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	if err := h.service.CancelAuction(c.Request.Context(), user, auctionID); err != nil {
		helpers.RespondError(c, err)
		utils.Warn("CancelAuctionHandler: failed to cancel auction", map[string]any{
			"auction_id": auctionID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "status": model.StatusCancelled}, "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    user.UserID,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	user, ok := caller(c, "PlaceBidHandler")
	if !ok {
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		helpers.HandleValidationError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	bid, err := h.service.PlaceBid(c.Request.Context(), auctionID, user.UserID, req.Amount)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Error("PlaceBidHandler: failed to record bid", map[string]any{
			"handler":    "PlaceBidHandler",
			"auction_id": auctionID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"user_id":    user.UserID,
		"amount":     bid.Amount.StringFixed(2),
	})
}

// GetBidsForAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsForAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetBidsForAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsForAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetCurrentHighestHandler handles GET /auctions/:auction_id/highest
func (h *BiddingHandler) GetCurrentHighestHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetCurrentHighest(c.Request.Context(), auctionID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no bids found for auction")
			utils.Info("GetCurrentHighestHandler: no bids yet", map[string]any{"auction_id": auctionID})
			return
		}
		helpers.RespondError(c, err)
		utils.Warn("GetCurrentHighestHandler: highest bid error", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "highest bid retrieved successfully")
}

// GetBidStatusHandler handles GET /auctions/:auction_id/status
func (h *BiddingHandler) GetBidStatusHandler(c *gin.Context) {
	user, ok := caller(c, "GetBidStatusHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	status, err := h.service.GetBidStatus(c.Request.Context(), auctionID, user.UserID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetBidStatusHandler: error classifying bidder", map[string]any{
			"auction_id": auctionID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.BidStatusResponse{AuctionID: auctionID, UserID: user.UserID, Status: status}
	utils.JSONResponse(c, http.StatusOK, resp, "bid status retrieved successfully")
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.GetAuctionsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionsByUserHandler: error retrieving auctions", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(auctions),
	})
}

// SweepHandler handles POST /admin/sweep
func (h *BiddingHandler) SweepHandler(c *gin.Context) {
	n, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, err)
		utils.Error("SweepHandler: sweep failed", map[string]any{"transitioned": n, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.SweepResponse{Transitioned: n}, "sweep completed")
	helpers.LogSuccess("SweepHandler", "sweep completed", map[string]any{"transitioned": n})
}

// GetNotificationsHandler handles GET /notifications
func (h *BiddingHandler) GetNotificationsHandler(c *gin.Context) {
	user, ok := caller(c, "GetNotificationsHandler")
	if !ok {
		return
	}

	limit := int64(defaultNotificationLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			helpers.HandleBindError(c, "GetNotificationsHandler", fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	events, err := h.service.GetNotifications(c.Request.Context(), user.UserID, limit)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetNotificationsHandler: error reading notifications", map[string]any{"user_id": user.UserID, "error": err.Error()})
		return
	}

	if events == nil {
		events = []notify.Event{}
	}
	utils.JSONResponse(c, http.StatusOK, events, "notifications retrieved successfully")
}
