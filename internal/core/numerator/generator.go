// Package numerator provides the domain contract for display numbers.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
)

// Generator hands out strictly increasing numbers per tenant and key.
type Generator interface {
	// NextNumber returns the next number for key within the tenant in ctx.
	NextNumber(ctx context.Context, key string) (int64, error)
}
