package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s AuctionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an auction may move from s to next.
// Only Active -> Ended and Active -> Cancelled are allowed.
func (s AuctionStatus) CanTransition(next AuctionStatus) bool {
	return s == StatusActive && (next == StatusEnded || next == StatusCancelled)
}

// Role of a user as reported by the auth collaborator
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
)

// User represents a participant in the auction
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// UserContext is the request-scoped identity of the caller
type UserContext struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller has the admin role
func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Auction represents a timed sale of one item
type Auction struct {
	AuctionID     string          `json:"auction_id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	CategoryID    string          `json:"category_id,omitempty"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	Deadline      time.Time       `json:"deadline"`
	Status        AuctionStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Bid represents a user's bid on an auction. Bids are never updated or deleted.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// AuctionSummary is an auction plus its derived bidding state
type AuctionSummary struct {
	Auction
	CurrentHighest *Bid `json:"current_highest,omitempty"`
	BidCount       int  `json:"bid_count"`
}

// AuctionFilter narrows ListAuctions. Zero values match everything.
type AuctionFilter struct {
	Status     AuctionStatus
	CategoryID string
}

// Matches reports whether a passes the filter
func (f AuctionFilter) Matches(a Auction) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CategoryID != "" && a.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// BidStatus is a user's relationship to an auction
type BidStatus string

const (
	BidStatusNotParticipating BidStatus = "not_participating"
	BidStatusWinning          BidStatus = "winning"
	BidStatusOutbid           BidStatus = "outbid"
	BidStatusWon              BidStatus = "won"
	BidStatusLost             BidStatus = "lost"
)

// AuctionInput carries the seller-supplied fields of a new auction
type AuctionInput struct {
	Title         string
	Description   string
	CategoryID    string
	StartingPrice decimal.Decimal
	Deadline      time.Time
}
