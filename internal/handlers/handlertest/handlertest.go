// Package handlertest applies single events to handler families against an in-memory store.
package handlertest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/internal/storage/memory"
	"github.com/scrub-finance/scrub-indexer/pkg/contract/mocks"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// Spawned is one recorded Spawn call.
type Spawned struct {
	Kind    string
	Address common.Address
}

// Spawner records template instantiations.
type Spawner struct {
	Calls []Spawned
}

func (s *Spawner) Spawn(_ context.Context, kind string, address common.Address) error {
	s.Calls = append(s.Calls, Spawned{Kind: kind, Address: address})
	return nil
}

// Harness runs one family definition against a fresh memory store.
type Harness struct {
	t       *testing.T
	def     *family.Definition
	source  string
	address common.Address

	Store   *memory.Store
	Calls   *mocks.Caller
	Spawner *Spawner
	Logs    *observer.ObservedLogs
	log     *logger.Logger
}

// New builds a harness for def; events default to the given contract address.
func New(t *testing.T, def *family.Definition, source string, address common.Address) *Harness {
	t.Helper()

	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)

	return &Harness{
		t:       t,
		def:     def,
		source:  source,
		address: address,
		Store:   memory.New(),
		Calls:   mocks.NewCaller(t),
		Spawner: &Spawner{},
		Logs:    logs,
		log:     log,
	}
}

// With returns a harness for another family that shares the store, caller, spawner and logs.
func (h *Harness) With(def *family.Definition, source string, address common.Address) *Harness {
	other := *h
	other.def = def
	other.source = source
	other.address = address
	return &other
}

// Event builds an envelope for the harness contract. The transaction hash is derived
// from the height so that records keyed by event stay unique across calls.
func (h *Harness) Event(name string, height uint64, logIndex uint, params event.Params) *event.Envelope {
	return &event.Envelope{
		Kind:            event.Kind(h.source, name),
		ContractAddress: h.address,
		BlockHeight:     height,
		BlockTimestamp:  1_700_000_000 + height,
		TransactionHash: common.BigToHash(new(big.Int).SetUint64(height)),
		LogIndex:        logIndex,
		Params:          params,
	}
}

// Apply runs the handler of ev in its own transaction and commits it.
func (h *Harness) Apply(ev *event.Envelope) error {
	h.t.Helper()

	handler, ok := h.def.Handlers[ev.Name()]
	require.True(h.t, ok, "no handler for %s", ev.Name())

	ctx := context.Background()
	tx, err := h.Store.Begin(ctx)
	require.NoError(h.t, err)

	defer func() { _ = tx.Rollback() }()

	hc := &projection.HandlerContext{
		Event:   ev,
		Store:   tx,
		Calls:   h.Calls,
		Log:     h.log,
		Sources: h.Spawner,
	}

	if err := handler(ctx, hc); err != nil {
		return err
	}

	return tx.Commit()
}

// MustApply applies every event and fails the test on the first error.
func (h *Harness) MustApply(events ...*event.Envelope) {
	h.t.Helper()

	for _, ev := range events {
		require.NoError(h.t, h.Apply(ev), ev.String())
	}
}

// Warnings returns the messages logged at warn level or above.
func (h *Harness) Warnings() []string {
	entries := h.Logs.All()
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// Load returns the committed entity stored under id, failing the test when absent.
func Load[E any, P interface {
	*E
	store.Entity
}](t *testing.T, h *Harness, id string) P {
	t.Helper()

	e, found, err := store.Get[E, P](context.Background(), h.Store, id)
	require.NoError(t, err)
	require.True(t, found, "entity %s not found", id)
	return e
}

// Missing asserts that nothing of type E is stored under id.
func Missing[E any, P interface {
	*E
	store.Entity
}](t *testing.T, h *Harness, id string) {
	t.Helper()

	_, found, err := store.Get[E, P](context.Background(), h.Store, id)
	require.NoError(t, err)
	require.False(t, found, "entity %s should not exist", id)
}
