package classifier

import (
	model "auction-ledger/internal/models"
	"auction-ledger/internal/ranking"
)

// Classify derives userID's relationship to an auction from its bids.
// It has no side effects and does not consult the clock.
//
// For ended auctions only bids placed before the deadline are considered, so
// the answer reflects the ledger as it stood at close.
func Classify(auction model.Auction, bids []model.Bid, userID string) model.BidStatus {
	relevant := forAuction(bids, auction.AuctionID)
	if auction.Status == model.StatusEnded {
		relevant = ranking.PlacedBefore(relevant, auction.Deadline)
	}

	if !hasBid(relevant, userID) {
		return model.BidStatusNotParticipating
	}

	switch auction.Status {
	case model.StatusActive:
		if isHighest(relevant, userID) {
			return model.BidStatusWinning
		}
		return model.BidStatusOutbid
	case model.StatusEnded:
		if isHighest(relevant, userID) {
			return model.BidStatusWon
		}
		return model.BidStatusLost
	default:
		// cancelled: nobody wins
		return model.BidStatusLost
	}
}

func forAuction(bids []model.Bid, auctionID string) []model.Bid {
	out := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	return out
}

func hasBid(bids []model.Bid, userID string) bool {
	for _, b := range bids {
		if b.BidderID == userID {
			return true
		}
	}
	return false
}

func isHighest(bids []model.Bid, userID string) bool {
	top, ok := ranking.Highest(bids)
	return ok && top.BidderID == userID
}
