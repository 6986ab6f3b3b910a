package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrNoBids             = errors.New("no bids found for auction")
	ErrUserNoBids         = errors.New("user has not placed any bids")
	ErrStatusConflict     = errors.New("auction status changed concurrently")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Bid rejection errors. All are recoverable and reported to the caller.
var (
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction deadline has passed")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrSelfBid          = errors.New("sellers may not bid on their own auction")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrInvalidAuction    = errors.New("invalid auction")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("operation not permitted for user")
)
