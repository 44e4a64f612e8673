package catalog

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RankingEntry records who won the buybox for a SKU on a channel at a point in time
type RankingEntry struct {
	Date     time.Time       `json:"date"`
	SellerID int64           `json:"seller"`
	Price    decimal.Decimal `json:"price"`
}

// RankingHistory is the append-only log of buybox winners
type RankingHistory struct {
	SKU      string
	Platform string
	Entries  []RankingEntry
}

// WinnerAt returns the most recent entry strictly before at
func (h *RankingHistory) WinnerAt(at time.Time) (RankingEntry, bool) {
	if h == nil || len(h.Entries) == 0 {
		return RankingEntry{}, false
	}
	entries := make([]RankingEntry, len(h.Entries))
	copy(entries, h.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	for _, e := range entries {
		if e.Date.Before(at) {
			return e, true
		}
	}
	return RankingEntry{}, false
}
