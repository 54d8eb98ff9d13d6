// Package contract performs read-only contract calls pinned to the block of the event being projected.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoResult is reported when a call succeeded but returned no values.
var ErrNoResult = errors.New("call returned no values")

// Backend executes eth_call. pkg/rpc.EthClient satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Result is the outcome of a contract read. Reads never fail the caller:
// a revert sets Reverted, a transport failure sets Err.
type Result struct {
	Values   []any
	Reverted bool
	Err      error
}

// OK reports whether the call succeeded and returned values.
func (r Result) OK() bool {
	return !r.Reverted && r.Err == nil && len(r.Values) > 0
}

// BigInt returns the first value as an integer.
func (r Result) BigInt() (*big.Int, bool) {
	if !r.OK() {
		return nil, false
	}

	n, ok := r.Values[0].(*big.Int)
	if !ok || n == nil {
		return nil, false
	}

	return new(big.Int).Set(n), true
}

// Failure describes why the read did not produce a value, for logging.
func (r Result) Failure() string {
	switch {
	case r.Reverted:
		return "reverted"
	case r.Err != nil:
		return r.Err.Error()
	case len(r.Values) == 0:
		return ErrNoResult.Error()
	default:
		return ""
	}
}

// Reverted builds a reverted result.
func Reverted() Result {
	return Result{Reverted: true}
}

// Value builds a successful result.
func Value(values ...any) Result {
	return Result{Values: values}
}

// Caller executes reads at a fixed block.
type Caller interface {
	TryCall(ctx context.Context, to common.Address, method string, args ...any) Result
}

// Binding packs and unpacks calls for one contract family ABI.
type Binding struct {
	abi     abi.ABI
	backend Backend
}

// NewBinding parses a JSON ABI.
func NewBinding(abiJSON string, backend Backend) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}

	return &Binding{abi: parsed, backend: backend}, nil
}

// NewBindingFromABI binds an already parsed ABI.
func NewBindingFromABI(parsed abi.ABI, backend Backend) *Binding {
	return &Binding{abi: parsed, backend: backend}
}

// ABI returns the bound ABI.
func (b *Binding) ABI() abi.ABI {
	return b.abi
}

// AtBlock returns a Caller that reads state as of block.
func (b *Binding) AtBlock(block uint64) Caller {
	return &blockCaller{binding: b, block: new(big.Int).SetUint64(block)}
}

type blockCaller struct {
	binding *Binding
	block   *big.Int
}

func (c *blockCaller) TryCall(ctx context.Context, to common.Address, method string, args ...any) Result {
	return c.binding.call(ctx, c.block, to, method, args...)
}

func (b *Binding) call(ctx context.Context, block *big.Int, to common.Address, method string, args ...any) Result {
	m, ok := b.abi.Methods[method]
	if !ok {
		// the contract cannot answer a method its ABI does not declare
		return Reverted()
	}

	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to pack %s: %w", method, err)}
	}

	output, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, block)
	if err != nil {
		if IsRevert(err) {
			return Reverted()
		}
		return Result{Err: fmt.Errorf("call %s on %s at block %s: %w", method, to.Hex(), block, err)}
	}

	// calls to an address without code return empty data
	if len(output) == 0 && len(m.Outputs) > 0 {
		return Reverted()
	}

	values, err := b.abi.Unpack(method, output)
	if err != nil {
		return Reverted()
	}

	return Value(values...)
}

// IsRevert reports whether err is an execution revert rather than a transport failure.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "invalid opcode")
}

// Convert copies an ABI-decoded value into a Go struct of the same shape.
func Convert[T any](v any) (T, bool) {
	var zero T

	defer func() {
		_ = recover()
	}()

	out, ok := abi.ConvertType(v, new(T)).(*T)
	if !ok || out == nil {
		return zero, false
	}

	return *out, true
}
