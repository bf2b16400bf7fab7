package numerator

import "fmt"

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Numbers stay increasing but a restart leaves gaps.
	StrategyCached
)

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "strict":
		return StrategyStrict, nil
	case "cached":
		return StrategyCached, nil
	default:
		return StrategyStrict, fmt.Errorf("unknown numerator strategy %q", s)
	}
}

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() Options {
	return Options{Strategy: StrategyStrict, RangeSize: 50}
}

// Keys used by the domain.
const (
	KeyServiceOrder = "service_order"
)
