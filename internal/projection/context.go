package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// SourceSpawner instantiates the templates of a kind for a contract discovered at runtime.
type SourceSpawner interface {
	Spawn(ctx context.Context, templateKind string, address common.Address) error
}

// HandlerContext is everything a handler may touch while applying one event.
type HandlerContext struct {
	Event   *event.Envelope
	Store   store.Tx
	Calls   contract.Caller
	Log     *logger.Logger
	Sources SourceSpawner
}

// Read performs an authoritative read and records its outcome.
func (hc *HandlerContext) Read(ctx context.Context, to common.Address, method string, args ...any) contract.Result {
	res := hc.Calls.TryCall(ctx, to, method, args...)

	switch {
	case res.OK():
		ContractReadInc(method, "ok")
	case res.Reverted:
		ContractReadInc(method, "reverted")
	default:
		ContractReadInc(method, "error")
	}

	return res
}

// Warnw logs a warning tagged with the event coordinates.
func (hc *HandlerContext) Warnw(msg string, keysAndValues ...any) {
	hc.Log.Warnw(msg, append(hc.coordinates(), keysAndValues...)...)
}

// Debugw logs a debug line tagged with the event coordinates.
func (hc *HandlerContext) Debugw(msg string, keysAndValues ...any) {
	hc.Log.Debugw(msg, append(hc.coordinates(), keysAndValues...)...)
}

// LookupMiss reports an entity that should have existed and is being created with defaults.
func (hc *HandlerContext) LookupMiss(entityType, id string) {
	LookupMissInc(entityType)
	hc.Warnw("entity not found, creating default", "entity", entityType, "id", id)
}

func (hc *HandlerContext) coordinates() []any {
	return []any{
		"kind", hc.Event.Kind,
		"block", hc.Event.BlockHeight,
		"tx", hc.Event.TransactionHash.Hex(),
		"logIndex", hc.Event.LogIndex,
	}
}

// revertingCaller answers every read with a revert; used for routes without a contract binding.
type revertingCaller struct{}

func (revertingCaller) TryCall(context.Context, common.Address, string, ...any) contract.Result {
	return contract.Reverted()
}
