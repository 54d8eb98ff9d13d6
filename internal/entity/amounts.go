package entity

import "math/big"

// Zero returns a fresh zero value.
func Zero() *big.Int {
	return new(big.Int)
}

// OrZero treats a nil amount as zero.
func OrZero(n *big.Int) *big.Int {
	if n == nil {
		return Zero()
	}
	return n
}

// Add returns a+b without modifying either operand.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(OrZero(a), OrZero(b))
}

// Sub returns a-b without modifying either operand.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(OrZero(a), OrZero(b))
}

// Copy returns an independent copy.
func Copy(n *big.Int) *big.Int {
	return new(big.Int).Set(OrZero(n))
}

// IsZero reports whether n is nil or zero.
func IsZero(n *big.Int) bool {
	return n == nil || n.Sign() == 0
}

var wei = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) //nolint:mnd

// FromWei converts an 18-decimal amount to whole units, truncating.
func FromWei(n *big.Int) *big.Int {
	return new(big.Int).Quo(OrZero(n), wei)
}
