package types

import "time"

// Quote is a venue quote for swapping InAmount of InToken into OutToken.
type Quote struct {
	InToken        string
	OutToken       string
	InAmount       float64
	OutAmount      float64
	PriceImpactPct float64 // venue-reported price impact, percent
	Route          string  // venue routing label, informational
	FetchedAt      time.Time
}

// EffectivePrice returns the OutToken-per-InToken price implied by the quote.
func (q *Quote) EffectivePrice() float64 {
	if q.InAmount <= 0 {
		return 0
	}
	return q.OutAmount / q.InAmount
}

// SwapResult is the confirmed (or attempted) outcome of submitting a swap.
type SwapResult struct {
	Signature   string
	InToken     string
	OutToken    string
	InAmount    float64
	OutAmount   float64 // actually received, not the quoted amount
	Confirmed   bool
	SubmittedAt time.Time
}
