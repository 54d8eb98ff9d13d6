package projection

import (
	"math/big"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
)

// Transition compares a tracked balance before and after a mutation:
// +1 when it leaves zero, -1 when it returns to zero, 0 otherwise.
func Transition(prev, next *big.Int) int {
	wasZero := prev == nil || prev.Sign() == 0
	isZero := next == nil || next.Sign() == 0

	switch {
	case wasZero && !isZero:
		return 1
	case !wasZero && isZero:
		return -1
	default:
		return 0
	}
}

// CountTransition is Transition for plain counts.
func CountTransition(prev, next uint64) int {
	return Transition(new(big.Int).SetUint64(prev), new(big.Int).SetUint64(next))
}

// ApplyTransition adds delta to a cardinality counter. A decrement below zero means
// events arrived out of order; the counter stays at zero and the defect is logged.
func ApplyTransition(log *logger.Logger, name string, counter uint64, delta int) uint64 {
	switch {
	case delta > 0:
		return counter + uint64(delta)
	case delta < 0:
		dec := uint64(-delta)
		if dec > counter {
			CounterUnderflowInc(name)
			if log != nil {
				log.Errorw("counter underflow, events were not applied in order",
					"counter", name, "value", counter, "delta", delta)
			}
			return 0
		}
		return counter - dec
	default:
		return counter
	}
}
