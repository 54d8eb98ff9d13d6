// Package decoder turns raw logs and JSONL records into event envelopes using the ABI
// of the data source bound to the emitting contract.
package decoder

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	icommon "github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
)

// Skip reasons.
const (
	SkipUnknownAddress = "unknown_address"
	SkipUnknownTopic   = "unknown_topic"
	SkipRemoved        = "removed"
	SkipMalformed      = "malformed"
)

// Decoder maps contract addresses to the data sources bound to them. One address may be
// bound to several sources; a log then yields one envelope per source whose ABI knows it.
type Decoder struct {
	mu       sync.RWMutex
	sources  map[string]*abi.ABI
	bindings map[common.Address][]string
	log      *logger.Logger
}

func New(log *logger.Logger) *Decoder {
	return &Decoder{
		sources:  make(map[string]*abi.ABI),
		bindings: make(map[common.Address][]string),
		log:      log.WithComponent(icommon.ComponentDecoder),
	}
}

// AddSource registers the ABI of a data source or template under its name.
func (d *Decoder) AddSource(name string, parsed abi.ABI) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sources[name] = &parsed
}

// Bind routes logs of address to the named source. It reports whether the binding is new.
func (d *Decoder) Bind(address common.Address, source string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sources[source]; !ok {
		return false, fmt.Errorf("cannot bind %s to unknown source %s", address.Hex(), source)
	}

	if slices.Contains(d.bindings[address], source) {
		return false, nil
	}

	d.bindings[address] = append(d.bindings[address], source)
	d.log.Debugw("address bound", "address", address.Hex(), "source", source)

	return true, nil
}

// Addresses returns every bound address in byte order.
func (d *Decoder) Addresses() []common.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]common.Address, 0, len(d.bindings))
	for a := range d.bindings {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b common.Address) int { return a.Cmp(b) })

	return out
}

// Decode returns the envelopes of lg. Logs nobody can decode are counted and dropped.
func (d *Decoder) Decode(lg types.Log, timestamp uint64) []*event.Envelope {
	if lg.Removed {
		logSkippedInc(SkipRemoved)
		return nil
	}

	if len(lg.Topics) == 0 {
		logSkippedInc(SkipUnknownTopic)
		return nil
	}

	d.mu.RLock()
	names := d.bindings[lg.Address]
	d.mu.RUnlock()

	if len(names) == 0 {
		logSkippedInc(SkipUnknownAddress)
		return nil
	}

	var out []*event.Envelope
	for _, name := range names {
		d.mu.RLock()
		parsed := d.sources[name]
		d.mu.RUnlock()

		ev, err := parsed.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}

		params, err := unpack(parsed, ev, lg)
		if err != nil {
			logSkippedInc(SkipMalformed)
			d.log.Warnw("failed to decode log, skipping",
				"source", name,
				"event", ev.Name,
				"block", lg.BlockNumber,
				"tx", lg.TxHash.Hex(),
				"logIndex", lg.Index,
				"error", err)
			continue
		}

		logDecodedInc(name)
		out = append(out, &event.Envelope{
			Kind:            event.Kind(name, ev.Name),
			ContractAddress: lg.Address,
			BlockHeight:     lg.BlockNumber,
			BlockTimestamp:  timestamp,
			TransactionHash: lg.TxHash,
			LogIndex:        lg.Index,
			Params:          params,
		})
	}

	if len(out) == 0 {
		logSkippedInc(SkipUnknownTopic)
	}

	return out
}

func unpack(parsed *abi.ABI, ev *abi.Event, lg types.Log) (event.Params, error) {
	params := make(map[string]any, len(ev.Inputs))

	if err := parsed.UnpackIntoMap(params, ev.Name, lg.Data); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if len(lg.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(lg.Topics)-1)
	}

	if err := abi.ParseTopicsIntoMap(params, indexed, lg.Topics[1:]); err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}

	return params, nil
}
