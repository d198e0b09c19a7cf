// Package swap defines the conversion port the plan manager uses to turn a
// deposit into another asset at lock time.
package swap

import (
	"context"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// Converter executes a best-effort conversion through an external venue.
//
// The caller makes the input amount available for the duration of the call;
// on success the venue has consumed it in full and produced the returned
// output amount. There is no minimum-output floor: the caller accepts the
// venue's execution price. A venue that cannot fill the full amount must fail
// without partial conversion.
type Converter interface {
	Convert(ctx context.Context, input domain.Asset, amount int64, output domain.Asset) (int64, error)
}
