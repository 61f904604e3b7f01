package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// PriceTier charges Cost points for requests up to MaxSeconds long.
type PriceTier struct {
	MaxSeconds int   `json:"max_seconds"`
	Cost       int64 `json:"cost"`
}

// PriceTable is a monotonic step function from requested duration to cost.
type PriceTable struct {
	Tiers []PriceTier `json:"tiers"`
	// Above is charged when the duration exceeds every tier.
	Above int64 `json:"above"`
}

// DefaultPriceTable: up to 5s costs 30, up to 10s 60, up to 15s 85, else 110.
var DefaultPriceTable = PriceTable{
	Tiers: []PriceTier{{MaxSeconds: 5, Cost: 30}, {MaxSeconds: 10, Cost: 60}, {MaxSeconds: 15, Cost: 85}},
	Above: 110,
}

// ParsePriceTable parses "5:30,10:60,15:85,*:110". The "*" entry is required
// and tiers must grow in both duration and cost.
func ParsePriceTable(raw string) (PriceTable, error) {
	var (
		table    PriceTable
		hasAbove bool
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		secs, cost, ok := strings.Cut(part, ":")
		if !ok {
			return PriceTable{}, fmt.Errorf("price tier %q: expected seconds:cost", part)
		}
		c, err := strconv.ParseInt(strings.TrimSpace(cost), 10, 64)
		if err != nil || c <= 0 {
			return PriceTable{}, fmt.Errorf("price tier %q: invalid cost", part)
		}
		if strings.TrimSpace(secs) == "*" {
			table.Above = c
			hasAbove = true
			continue
		}
		s, err := strconv.Atoi(strings.TrimSpace(secs))
		if err != nil || s <= 0 {
			return PriceTable{}, fmt.Errorf("price tier %q: invalid seconds", part)
		}
		if n := len(table.Tiers); n > 0 {
			prev := table.Tiers[n-1]
			if s <= prev.MaxSeconds || c < prev.Cost {
				return PriceTable{}, fmt.Errorf("price tier %q: tiers must increase", part)
			}
		}
		table.Tiers = append(table.Tiers, PriceTier{MaxSeconds: s, Cost: c})
	}
	if !hasAbove {
		return PriceTable{}, fmt.Errorf("price table %q: missing *:cost entry", raw)
	}
	if n := len(table.Tiers); n > 0 && table.Above < table.Tiers[n-1].Cost {
		return PriceTable{}, fmt.Errorf("price table %q: * cost below last tier", raw)
	}
	return table, nil
}

// Cost returns the price for a request of seconds.
func (p PriceTable) Cost(seconds int) int64 {
	for _, tier := range p.Tiers {
		if seconds <= tier.MaxSeconds {
			return tier.Cost
		}
	}
	return p.Above
}
