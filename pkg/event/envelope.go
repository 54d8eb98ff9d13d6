// Package event defines the decoded log envelope consumed by the projection engine.
package event

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidParam is returned when an event parameter is missing or has an unexpected type.
var ErrInvalidParam = errors.New("invalid event parameter")

// Envelope is one decoded blockchain log.
type Envelope struct {
	// Kind is "<data source>.<EventName>" and selects the handler
	Kind string `json:"kind"`

	ContractAddress common.Address `json:"contractAddress"`
	BlockHeight     uint64         `json:"blockHeight"`
	BlockTimestamp  uint64         `json:"blockTimestamp"`
	TransactionHash common.Hash    `json:"transactionHash"`
	LogIndex        uint           `json:"logIndex"`
	Params          Params         `json:"params"`
}

// Kind joins a data source name and an event name into a routing key.
func Kind(source, eventName string) string {
	return source + "." + eventName
}

// Name returns the event name part of the kind.
func (e *Envelope) Name() string {
	if i := strings.LastIndexByte(e.Kind, '.'); i >= 0 {
		return e.Kind[i+1:]
	}
	return e.Kind
}

// Source returns the data source part of the kind.
func (e *Envelope) Source() string {
	if i := strings.LastIndexByte(e.Kind, '.'); i >= 0 {
		return e.Kind[:i]
	}
	return ""
}

// Before reports whether e precedes other in chain order.
func (e *Envelope) Before(other *Envelope) bool {
	if e.BlockHeight != other.BlockHeight {
		return e.BlockHeight < other.BlockHeight
	}
	return e.LogIndex < other.LogIndex
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%s@%d/%d", e.Kind, e.BlockHeight, e.LogIndex)
}

// Params holds decoded event arguments by ABI name.
type Params map[string]any

func (p Params) get(name string) (any, error) {
	v, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is missing", ErrInvalidParam, name)
	}
	return v, nil
}

func mistyped(name string, v any, want string) error {
	return fmt.Errorf("%w: %q is %T, want %s", ErrInvalidParam, name, v, want)
}

// Address returns an address parameter.
func (p Params) Address(name string) (common.Address, error) {
	v, err := p.get(name)
	if err != nil {
		return common.Address{}, err
	}

	switch a := v.(type) {
	case common.Address:
		return a, nil
	case *common.Address:
		if a == nil {
			return common.Address{}, mistyped(name, v, "address")
		}
		return *a, nil
	default:
		return common.Address{}, mistyped(name, v, "address")
	}
}

// BigInt returns an integer parameter of any width as a fresh *big.Int.
func (p Params) BigInt(name string) (*big.Int, error) {
	v, err := p.get(name)
	if err != nil {
		return nil, err
	}

	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, mistyped(name, v, "integer")
		}
		return new(big.Int).Set(n), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	default:
		return nil, mistyped(name, v, "integer")
	}
}

// Uint64 returns an integer parameter that must fit in 64 bits.
func (p Params) Uint64(name string) (uint64, error) {
	n, err := p.BigInt(name)
	if err != nil {
		return 0, err
	}

	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q=%s does not fit in uint64", ErrInvalidParam, name, n)
	}

	return n.Uint64(), nil
}

// String returns a string parameter.
func (p Params) String(name string) (string, error) {
	v, err := p.get(name)
	if err != nil {
		return "", err
	}

	s, ok := v.(string)
	if !ok {
		return "", mistyped(name, v, "string")
	}
	return s, nil
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) (bool, error) {
	v, err := p.get(name)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, mistyped(name, v, "bool")
	}
	return b, nil
}
