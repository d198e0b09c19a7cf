// Package fixedrate implements the swap port against a static rate table.
// It stands in for an external exchange venue in single-node deployments.
package fixedrate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// Rate expresses an output/input price as an integer ratio.
type Rate struct {
	Num int64
	Den int64
}

// Converter converts between asset pairs at configured rates. It holds no
// funds between calls.
type Converter struct {
	rates map[string]Rate
}

// New creates a converter from a pair rate table keyed by "input:output".
func New(rates map[string]Rate) (*Converter, error) {
	table := make(map[string]Rate, len(rates))
	for pair, rate := range rates {
		if rate.Num <= 0 || rate.Den <= 0 {
			return nil, fmt.Errorf("rate for %q must be a positive ratio", pair)
		}
		table[strings.ToLower(strings.TrimSpace(pair))] = rate
	}
	return &Converter{rates: table}, nil
}

// ParseRates parses a rate table from its textual form, e.g.
// "native:usdc=3000/1,dai:usdc=1/1". Whitespace around entries is ignored.
func ParseRates(value string) (map[string]Rate, error) {
	rates := make(map[string]Rate)
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, ratio, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("rate entry %q must be pair=num/den", entry)
		}
		numText, denText, ok := strings.Cut(ratio, "/")
		if !ok {
			return nil, fmt.Errorf("rate entry %q must be pair=num/den", entry)
		}
		num, err := strconv.ParseInt(strings.TrimSpace(numText), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rate entry %q numerator: %w", entry, err)
		}
		den, err := strconv.ParseInt(strings.TrimSpace(denText), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rate entry %q denominator: %w", entry, err)
		}
		rates[strings.TrimSpace(pair)] = Rate{Num: num, Den: den}
	}
	return rates, nil
}

// Convert returns amount converted at the configured pair rate. Unknown pairs
// fail the conversion, as would a venue without a route.
func (c *Converter) Convert(_ context.Context, input domain.Asset, amount int64, output domain.Asset) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("conversion amount must be greater than zero")
	}
	if input == output {
		return amount, nil
	}
	pair := string(input) + ":" + string(output)
	rate, ok := c.rates[pair]
	if !ok {
		return 0, fmt.Errorf("no conversion route for %s", pair)
	}
	// Num and Den are validated positive in New.
	if amount > math.MaxInt64/rate.Num {
		return 0, fmt.Errorf("conversion of %d %s to %s overflows at the configured rate", amount, input, output)
	}
	out := amount * rate.Num / rate.Den
	if out <= 0 {
		return 0, fmt.Errorf("conversion of %d %s yields no %s at the configured rate", amount, input, output)
	}
	return out, nil
}
