package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reader decodes several parameters in a row and keeps the first error,
// so handlers can read all arguments and check once.
type Reader struct {
	params Params
	err    error
}

// Read starts a Reader over the params.
func (p Params) Read() *Reader {
	return &Reader{params: p}
}

func (r *Reader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) Address(name string) common.Address {
	a, err := r.params.Address(name)
	r.keep(err)
	return a
}

// BigInt never returns nil; on error it returns zero and records the error.
func (r *Reader) BigInt(name string) *big.Int {
	n, err := r.params.BigInt(name)
	if err != nil {
		r.keep(err)
		return new(big.Int)
	}
	return n
}

func (r *Reader) Uint64(name string) uint64 {
	n, err := r.params.Uint64(name)
	r.keep(err)
	return n
}

func (r *Reader) String(name string) string {
	s, err := r.params.String(name)
	r.keep(err)
	return s
}

func (r *Reader) Bool(name string) bool {
	b, err := r.params.Bool(name)
	r.keep(err)
	return b
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}
