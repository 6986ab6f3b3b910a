package helpers

import (
	"errors"
	"time"

	model "auction-ledger/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateAuctionRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	CategoryID    string          `json:"category_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	Deadline      time.Time       `json:"deadline" binding:"required"`
}

// Validate validates CreateAuctionRequest
func (r CreateAuctionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.CategoryID, validation.Length(0, 64)),
		validation.Field(&r.StartingPrice, validation.By(money(true))),
		validation.Field(&r.Deadline, validation.Required),
	)
}

// ToInput converts the request into service input
func (r CreateAuctionRequest) ToInput() model.AuctionInput {
	return model.AuctionInput{
		Title:         r.Title,
		Description:   r.Description,
		CategoryID:    r.CategoryID,
		StartingPrice: r.StartingPrice,
		Deadline:      r.Deadline,
	}
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate validates PlaceBidRequest
func (r PlaceBidRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.By(money(false))),
	)
}

// money checks a decimal has at most two fractional digits and is positive,
// or non-negative when zero is allowed
func money(allowZero bool) validation.RuleFunc {
	return func(value any) error {
		d, ok := value.(decimal.Decimal)
		if !ok {
			return errors.New("must be a decimal amount")
		}
		if d.IsNegative() || (!allowZero && d.IsZero()) {
			if allowZero {
				return errors.New("must not be negative")
			}
			return errors.New("must be greater than zero")
		}
		if !d.Equal(d.Round(2)) {
			return errors.New("must have at most two decimal places")
		}
		return nil
	}
}

type ListAuctionsQuery struct {
	Status     string `form:"status"`
	CategoryID string `form:"category_id"`
}

// Validate validates ListAuctionsQuery
func (q ListAuctionsQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Status, validation.In(
			string(model.StatusActive),
			string(model.StatusEnded),
			string(model.StatusCancelled),
		)),
	)
}

// Filter converts the query into a store filter
func (q ListAuctionsQuery) Filter() model.AuctionFilter {
	return model.AuctionFilter{Status: model.AuctionStatus(q.Status), CategoryID: q.CategoryID}
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  string          `json:"placed_at"`
}

// NewBidResponse builds the wire form of a bid
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt.UTC().Format(time.RFC3339Nano),
	}
}

type BidStatusResponse struct {
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Status    model.BidStatus `json:"status"`
}

type SweepResponse struct {
	Transitioned int `json:"transitioned"`
}
