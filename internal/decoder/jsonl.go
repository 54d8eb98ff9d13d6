package decoder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	icommon "github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
)

const maxLineSize = 4 * 1024 * 1024

// Record is one line of a JSONL event stream. Integer params may be JSON numbers,
// decimal strings or 0x-prefixed hex strings.
type Record struct {
	Source      string                     `json:"source"`
	Event       string                     `json:"event"`
	Address     string                     `json:"address"`
	BlockNumber uint64                     `json:"blockNumber"`
	Timestamp   uint64                     `json:"timestamp"`
	TxHash      string                     `json:"txHash"`
	LogIndex    uint                       `json:"logIndex"`
	Params      map[string]json.RawMessage `json:"params"`
}

// FromRecord converts rec using the argument types of the source's ABI.
func (d *Decoder) FromRecord(rec Record) (*event.Envelope, error) {
	d.mu.RLock()
	parsed, ok := d.sources[rec.Source]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown source %q", rec.Source)
	}

	ev, ok := parsed.Events[rec.Event]
	if !ok {
		return nil, fmt.Errorf("source %s has no event %q", rec.Source, rec.Event)
	}

	if !common.IsHexAddress(rec.Address) {
		return nil, fmt.Errorf("invalid address %q", rec.Address)
	}

	args := make(map[string]abi.Type, len(ev.Inputs))
	for _, in := range ev.Inputs {
		args[in.Name] = in.Type
	}

	params := make(event.Params, len(rec.Params))
	for name, raw := range rec.Params {
		typ, ok := args[name]
		if !ok {
			return nil, fmt.Errorf("event %s has no argument %q", rec.Event, name)
		}

		v, err := convert(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		params[name] = v
	}

	return &event.Envelope{
		Kind:            event.Kind(rec.Source, rec.Event),
		ContractAddress: common.HexToAddress(rec.Address),
		BlockHeight:     rec.BlockNumber,
		BlockTimestamp:  rec.Timestamp,
		TransactionHash: common.HexToHash(rec.TxHash),
		LogIndex:        rec.LogIndex,
		Params:          params,
	}, nil
}

// ReadJSONL reads one record per line, skipping blank lines, in input order.
func (d *Decoder) ReadJSONL(r io.Reader) ([]*event.Envelope, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize) //nolint:mnd

	var (
		out  []*event.Envelope
		line int
	)

	for scanner.Scan() {
		line++

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		env, err := d.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, env)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return out, nil
}

func convert(t abi.Type, raw json.RawMessage) (any, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return integer(raw)
	case abi.AddressTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.StringTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case abi.BytesTy, abi.FixedBytesTy, abi.HashTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return hexutil.Decode(s)
	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}

func integer(raw json.RawMessage) (*big.Int, error) {
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		s = n.String()
	}

	return icommon.ParseBigIntOrHex(s)
}
