// Package ranking orders bids the way the ledger reports them:
// amount descending, then earliest placement first.
package ranking

import (
	"sort"
	"time"

	model "auction-ledger/internal/models"
)

// Less reports whether a ranks ahead of b
func Less(a, b model.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	return a.PlacedAt.Before(b.PlacedAt)
}

// SortBids sorts bids in place. Equal bids keep their ledger order.
func SortBids(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		return Less(bids[i], bids[j])
	})
}

// Highest returns the top-ranked bid, or false if bids is empty
func Highest(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	top := bids[0]
	for _, b := range bids[1:] {
		if Less(b, top) {
			top = b
		}
	}
	return top, true
}

// PlacedBefore returns the bids placed strictly before t, in their original order
func PlacedBefore(bids []model.Bid, t time.Time) []model.Bid {
	out := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.PlacedAt.Before(t) {
			out = append(out, b)
		}
	}
	return out
}
