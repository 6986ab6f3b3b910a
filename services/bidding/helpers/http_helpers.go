package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised to clients when storage is unavailable
const retryAfterSeconds = 5

// UserContextKey is the gin context key holding the caller's model.UserContext
const UserContextKey = "user_context"

// CurrentUser returns the caller identity set by the identity middleware
func CurrentUser(c *gin.Context) (model.UserContext, bool) {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return model.UserContext{}, false
	}
	user, ok := v.(model.UserContext)
	if !ok || user.UserID == "" {
		return model.UserContext{}, false
	}
	return user, true
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleValidationError sends a 400 carrying the field errors
func HandleValidationError(c *gin.Context, handlerName string, err error) {
	utils.JSONError(c, http.StatusBadRequest, err, "validation failed")
	utils.Warn(handlerName+": validation error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrAuctionExpired):
		return http.StatusConflict, "auction deadline has passed"
	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active"
	case errors.Is(err, biddingerrors.ErrStatusConflict):
		return http.StatusConflict, "auction status changed, retry"
	case errors.Is(err, biddingerrors.ErrSelfBid):
		return http.StatusForbidden, "sellers may not bid on their own auction"
	case errors.Is(err, biddingerrors.ErrForbidden):
		return http.StatusForbidden, "operation not permitted"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error response, adding Retry-After when the
// failure is transient
func RespondError(c *gin.Context, err error) {
	status, message := MapErrorToHTTP(err)
	if status == http.StatusServiceUnavailable {
		utils.JSONRetryableError(c, status, fmt.Errorf("%s: %w", message, err), message, retryAfterSeconds)
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
