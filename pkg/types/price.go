package types

import (
	"fmt"
	"time"
)

// Pair is an ordered base/quote trading relationship, e.g. SOL/USDC.
type Pair struct {
	Base  string
	Quote string
}

// String returns the canonical "BASE/QUOTE" form.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// ParsePair parses a "BASE/QUOTE" string.
func ParsePair(s string) (Pair, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			if i == 0 || i == len(s)-1 {
				break
			}
			return Pair{Base: s[:i], Quote: s[i+1:]}, nil
		}
	}
	return Pair{}, fmt.Errorf("invalid pair %q: want BASE/QUOTE", s)
}

// PriceSample is a single normalized price observation for a (venue, pair).
// Immutable once created. Price is always > 0; the feed rejects anything else
// before it reaches subscribers.
type PriceSample struct {
	Venue      string
	Pair       Pair
	Price      float64
	Derived    bool // estimated from the reference price, not directly quoted
	ObservedAt time.Time
}

// Valid reports whether the sample may enter price history.
func (s *PriceSample) Valid() bool {
	return s != nil && s.Price > 0 && s.Venue != "" && s.Pair.Base != "" && s.Pair.Quote != ""
}
