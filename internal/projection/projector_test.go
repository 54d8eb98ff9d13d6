package projection

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/storage/memory"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/contract/mocks"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

var (
	testVault   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	spawnedAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func envelope(kind string, height uint64, logIndex uint, params event.Params) *event.Envelope {
	return &event.Envelope{
		Kind:            kind,
		ContractAddress: testVault,
		BlockHeight:     height,
		BlockTimestamp:  1_700_000_000 + height,
		TransactionHash: common.BigToHash(big.NewInt(int64(height))),
		LogIndex:        logIndex,
		Params:          params,
	}
}

// addShares increments the test vault's shares by the "shares" param.
func addShares(ctx context.Context, hc *HandlerContext) error {
	shares, err := hc.Event.Params.BigInt("shares")
	if err != nil {
		return err
	}

	vault, _, err := store.GetOrCreate(ctx, hc.Store, entity.VaultID(testVault), func() *entity.Vault {
		return entity.NewVault(testVault, entity.VaultTypeScrub)
	})
	if err != nil {
		return err
	}

	vault.TotalShares = entity.Add(vault.TotalShares, shares)
	return hc.Store.Save(ctx, vault)
}

func newTestProjector(t *testing.T, templates ...config.DataSourceConfig) (*Projector, *Router, *memory.Store) {
	t.Helper()

	st := memory.New()
	router := NewRouter()
	require.NoError(t, router.Register("vault.Deposit", Route{Handler: addShares}))

	return NewProjector(router, st, templates, logger.NewNopLogger()), router, st
}

func loadVault(t *testing.T, st store.Reader) *entity.Vault {
	t.Helper()

	v, found, err := store.Get[entity.Vault](context.Background(), st, entity.VaultID(testVault))
	require.NoError(t, err)
	require.True(t, found)
	return v
}

func TestRouter_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	require.NoError(t, r.Register("vault.Deposit", Route{Handler: addShares}))
	require.EqualError(t, r.Register("vault.Deposit", Route{Handler: addShares}),
		"handler for event kind vault.Deposit already registered")
	require.EqualError(t, r.Register("vault.Withdraw", Route{}), "route vault.Withdraw has no handler")
	require.Equal(t, []string{"vault.Deposit"}, r.Kinds())
}

func TestRouter_DispatchBindsCaller(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	var reverted bool
	require.NoError(t, r.Register("vault.Read", Route{Handler: func(ctx context.Context, hc *HandlerContext) error {
		reverted = hc.Read(ctx, testVault, "shareValue").Reverted
		return nil
	}}))

	hc := &HandlerContext{Event: envelope("vault.Read", 1, 0, nil), Log: logger.NewNopLogger()}
	routed, err := r.Dispatch(context.Background(), hc)
	require.NoError(t, err)
	require.True(t, routed)
	require.True(t, reverted, "routes without a binding answer every read with a revert")

	routed, err = r.Dispatch(context.Background(), &HandlerContext{Event: envelope("vault.Unknown", 1, 0, nil)})
	require.NoError(t, err)
	require.False(t, routed)
}

func TestHandlerContext_ReadUsesCaller(t *testing.T) {
	t.Parallel()

	caller := mocks.NewCaller(t)
	caller.EXPECT().TryCall(mock.Anything, testVault, "shareValue").Return(contract.Value(big.NewInt(7))).Once()

	hc := &HandlerContext{Event: envelope("vault.Read", 1, 0, nil), Calls: caller, Log: logger.NewNopLogger()}
	v, ok := hc.Read(context.Background(), testVault, "shareValue").BigInt()
	require.True(t, ok)
	require.Equal(t, int64(7), v.Int64())
}

func TestProjector_Project(t *testing.T) {
	t.Parallel()

	p, _, st := newTestProjector(t)
	ctx := context.Background()

	events := []*event.Envelope{
		envelope("vault.Deposit", 10, 0, event.Params{"shares": big.NewInt(100)}),
		envelope("vault.Unknown", 10, 1, nil),
		envelope("vault.Deposit", 10, 2, event.Params{"shares": "bad"}),
		envelope("vault.Deposit", 11, 0, event.Params{"shares": big.NewInt(50)}),
	}

	out, err := p.Project(ctx, events, 20)
	require.NoError(t, err)
	require.Equal(t, 2, out.Projected)
	require.Equal(t, 2, out.Skipped)

	require.Equal(t, int64(150), loadVault(t, st).TotalShares.Int64())

	checkpoint, found, err := p.Checkpoint(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(20), checkpoint)
}

func TestProjector_OutOfOrder(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestProjector(t)

	_, err := p.Project(context.Background(), []*event.Envelope{
		envelope("vault.Deposit", 10, 3, event.Params{"shares": big.NewInt(1)}),
		envelope("vault.Deposit", 10, 2, event.Params{"shares": big.NewInt(1)}),
	}, 10)
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestProjector_HandlerFailureRollsBack(t *testing.T) {
	t.Parallel()

	p, router, st := newTestProjector(t)
	require.NoError(t, router.Register("vault.Broken", Route{Handler: func(context.Context, *HandlerContext) error {
		return errors.New("disk full")
	}}))

	_, err := p.Project(context.Background(), []*event.Envelope{
		envelope("vault.Deposit", 10, 0, event.Params{"shares": big.NewInt(1)}),
		envelope("vault.Broken", 10, 1, nil),
	}, 10)
	require.ErrorContains(t, err, "handler vault.Broken failed at block 10 log 1: disk full")

	require.Zero(t, st.Len(entity.TableVaults))
	_, found, err := p.Checkpoint(context.Background())
	require.NoError(t, err)
	require.False(t, found)
}

func TestProjector_SpawnExtendsChunk(t *testing.T) {
	t.Parallel()

	templates := []config.DataSourceConfig{
		{Name: "hover", Kind: "hover"},
		{Name: "hover-v2", Kind: "hover"},
	}
	p, router, _ := newTestProjector(t, templates...)

	require.NoError(t, router.Register("factory.NewVault", Route{Handler: func(ctx context.Context, hc *HandlerContext) error {
		if err := hc.Sources.Spawn(ctx, "hover", spawnedAddr); err != nil {
			return err
		}
		// spawning twice is a no-op
		if err := hc.Sources.Spawn(ctx, "hover", spawnedAddr); err != nil {
			return err
		}
		return hc.Sources.Spawn(ctx, "unconfigured", spawnedAddr)
	}}))

	var extendCalls int
	chunk := Chunk{
		Events:     []*event.Envelope{envelope("factory.NewVault", 12, 4, nil)},
		Checkpoint: 30,
		Extend: func(_ context.Context, spawned []entity.SpawnedSource) ([]*event.Envelope, error) {
			extendCalls++
			require.Len(t, spawned, 2)
			require.Equal(t, uint64(12), spawned[0].StartBlock)
			return []*event.Envelope{
				envelope("vault.Deposit", 20, 0, event.Params{"shares": big.NewInt(3)}),
				envelope("vault.Deposit", 13, 0, event.Params{"shares": big.NewInt(2)}),
			}, nil
		},
	}

	out, err := p.ProjectChunk(context.Background(), chunk)
	require.NoError(t, err)
	require.Equal(t, 1, extendCalls)
	require.Equal(t, 3, out.Projected)
	require.Len(t, out.Spawned, 2)

	sources, err := p.SpawnedSources(context.Background())
	require.NoError(t, err)
	require.Equal(t, []entity.SpawnedSource{
		{Template: "hover", Address: spawnedAddr, StartBlock: 12},
		{Template: "hover-v2", Address: spawnedAddr, StartBlock: 12},
	}, sources)
}

func TestProjector_SpawnedEventsKeepChainOrder(t *testing.T) {
	t.Parallel()

	router := NewRouter()
	p := NewProjector(router, memory.New(), []config.DataSourceConfig{{Name: "child", Kind: "child"}},
		logger.NewNopLogger())

	var order []string
	record := func(_ context.Context, hc *HandlerContext) error {
		order = append(order, fmt.Sprintf("%s@%d/%d", hc.Event.Kind, hc.Event.BlockHeight, hc.Event.LogIndex))
		return nil
	}
	require.NoError(t, router.Register("factory.Tick", Route{Handler: record}))
	require.NoError(t, router.Register("child.Ping", Route{Handler: record}))
	require.NoError(t, router.Register("factory.NewChild", Route{Handler: func(ctx context.Context, hc *HandlerContext) error {
		if err := record(ctx, hc); err != nil {
			return err
		}
		return hc.Sources.Spawn(ctx, "child", spawnedAddr)
	}}))

	out, err := p.ProjectChunk(context.Background(), Chunk{
		Events: []*event.Envelope{
			envelope("factory.Tick", 11, 0, nil),
			envelope("factory.NewChild", 12, 1, nil),
			envelope("factory.Tick", 15, 0, nil),
			envelope("factory.Tick", 25, 0, nil),
		},
		Checkpoint: 30,
		Extend: func(context.Context, []entity.SpawnedSource) ([]*event.Envelope, error) {
			return []*event.Envelope{
				envelope("child.Ping", 20, 0, nil),
				envelope("child.Ping", 12, 0, nil),
				envelope("child.Ping", 12, 2, nil),
				envelope("child.Ping", 14, 3, nil),
			}, nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, 7, out.Projected)

	require.Equal(t, []string{
		"factory.Tick@11/0",
		"factory.NewChild@12/1",
		"child.Ping@12/2",
		"child.Ping@14/3",
		"factory.Tick@15/0",
		"child.Ping@20/0",
		"factory.Tick@25/0",
	}, order, "events before the spawn are dropped, the rest interleave by block and log index")
}

func TestProjector_ExtendFailureAbortsChunk(t *testing.T) {
	t.Parallel()

	p, router, st := newTestProjector(t, config.DataSourceConfig{Name: "hover", Kind: "hover"})
	require.NoError(t, router.Register("factory.NewVault", Route{Handler: func(ctx context.Context, hc *HandlerContext) error {
		return hc.Sources.Spawn(ctx, "hover", spawnedAddr)
	}}))

	_, err := p.ProjectChunk(context.Background(), Chunk{
		Events:     []*event.Envelope{envelope("factory.NewVault", 12, 0, nil)},
		Checkpoint: 30,
		Extend: func(context.Context, []entity.SpawnedSource) ([]*event.Envelope, error) {
			return nil, fmt.Errorf("rpc down")
		},
	})
	require.ErrorContains(t, err, "failed to fetch events of spawned sources: rpc down")
	require.Zero(t, st.Len(entity.TableSourceIndex))
}

func TestSortEvents(t *testing.T) {
	t.Parallel()

	events := []*event.Envelope{
		envelope("b", 2, 0, nil),
		envelope("a", 1, 5, nil),
		envelope("c", 1, 1, nil),
	}
	SortEvents(events)

	require.NoError(t, CheckOrder(events))
	require.Equal(t, "c", events[0].Kind)
	require.Equal(t, "b", events[2].Kind)
}
