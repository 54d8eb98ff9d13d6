package points_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/handlertest"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/points"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
)

const upgradeBlock = 1_000

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	zero  = common.Address{}
	alice = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

func newHarness(t *testing.T) *handlertest.Harness {
	t.Helper()

	def, err := points.New(config.DataSourceConfig{Name: "points", Kind: points.Kind, UpgradeBlock: upgradeBlock},
		logger.NewNopLogger())
	require.NoError(t, err)

	return handlertest.New(t, def, "points", token)
}

func transfer(h *handlertest.Harness, height uint64, logIndex uint, from, to common.Address, value int64) *event.Envelope {
	return h.Event("Transfer", height, logIndex, event.Params{"from": from, "to": to, "value": big.NewInt(value)})
}

func loadStats(t *testing.T, h *handlertest.Harness) *entity.PointStats {
	t.Helper()
	return handlertest.Load[entity.PointStats](t, h, entity.SingletonID)
}

func balance(t *testing.T, h *handlertest.Harness, a common.Address) int64 {
	t.Helper()
	return handlertest.Load[entity.PointHolder](t, h, entity.HolderID(a)).Balance.Int64()
}

func TestTransfer_PreUpgradeMint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ev := transfer(h, 10, 0, zero, alice, 100)
	h.MustApply(ev)

	mint := handlertest.Load[entity.PointMint](t, h, entity.EventID(ev.TransactionHash, ev.LogIndex))
	require.Equal(t, alice, mint.To)
	require.Equal(t, int64(100), mint.TotalSupply.Int64())

	s := loadStats(t, h)
	require.Equal(t, uint64(1), s.TotalHolders)
	require.Equal(t, uint64(1), s.TotalMints)
	require.Equal(t, uint64(1), s.TotalTransfers)
	require.Equal(t, int64(100), s.TotalSupply.Int64())
	require.Equal(t, ev.BlockTimestamp, s.FirstMintAt)

	require.Equal(t, int64(100), balance(t, h, alice))
	handlertest.Missing[entity.PointHolder](t, h, entity.HolderID(zero))
}

func TestTransfer_PostUpgradeMintNotDoubleCounted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(transfer(h, 10, 0, zero, alice, 100))

	// after the upgrade the token emits both logs for one mint
	post := transfer(h, upgradeBlock+5, 0, zero, alice, 100)
	h.MustApply(
		post,
		h.Event("PointsMinted", upgradeBlock+5, 1, event.Params{
			"to": alice, "amount": big.NewInt(100), "newTotalSupply": big.NewInt(200),
		}),
	)

	require.Equal(t, int64(200), balance(t, h, alice))

	s := loadStats(t, h)
	require.Equal(t, uint64(1), s.TotalHolders)
	require.Equal(t, uint64(2), s.TotalMints)
	require.Equal(t, uint64(2), s.TotalTransfers)
	require.Equal(t, int64(200), s.TotalSupply.Int64())

	// the mint record of the post-upgrade era comes from PointsMinted, not Transfer
	handlertest.Missing[entity.PointMint](t, h, entity.EventID(post.TransactionHash, 0))
	handlertest.Load[entity.PointMint](t, h, entity.EventID(post.TransactionHash, 1))
}

func TestPointsEvents_IgnoredBeforeUpgrade(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(
		transfer(h, 10, 0, zero, alice, 100),
		h.Event("PointsMinted", 10, 1, event.Params{
			"to": alice, "amount": big.NewInt(100), "newTotalSupply": big.NewInt(100),
		}),
	)

	s := loadStats(t, h)
	require.Equal(t, uint64(1), s.TotalMints)
	require.Equal(t, int64(100), s.TotalSupply.Int64())
	require.Contains(t, h.Warnings(), "supply event before upgrade block, transfers own this era")
}

func TestBurns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(
		transfer(h, 10, 0, zero, alice, 100),
		transfer(h, 11, 0, alice, zero, 40),
	)

	s := loadStats(t, h)
	require.Equal(t, uint64(1), s.TotalBurns)
	require.Equal(t, int64(60), s.TotalSupply.Int64())

	a := handlertest.Load[entity.PointHolder](t, h, entity.HolderID(alice))
	require.Equal(t, int64(60), a.Balance.Int64())
	require.Equal(t, int64(40), a.TotalBurned.Int64())

	h.MustApply(
		transfer(h, upgradeBlock, 0, alice, zero, 10),
		h.Event("PointsBurned", upgradeBlock, 1, event.Params{
			"from": alice, "amount": big.NewInt(10), "newTotalSupply": big.NewInt(50),
		}),
		transfer(h, upgradeBlock+1, 0, alice, zero, 50),
		h.Event("PointsForceBurned", upgradeBlock+1, 1, event.Params{
			"from": alice, "burner": bob, "amount": big.NewInt(50), "newTotalSupply": big.NewInt(0),
		}),
	)

	s = loadStats(t, h)
	require.Equal(t, uint64(2), s.TotalBurns)
	require.Equal(t, uint64(1), s.TotalForceBurns)
	require.Zero(t, s.TotalSupply.Sign())
	require.Zero(t, s.TotalHolders)
	require.Zero(t, balance(t, h, alice))
}

// The holder count moves only when a balance enters or leaves zero.
func TestTransfer_HolderCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		events  func(h *handlertest.Harness) []*event.Envelope
		holders uint64
	}{
		{
			name: "partial transfer adds receiver",
			events: func(h *handlertest.Harness) []*event.Envelope {
				return []*event.Envelope{transfer(h, 11, 0, alice, bob, 30)}
			},
			holders: 2,
		},
		{
			name: "full transfer swaps holders",
			events: func(h *handlertest.Harness) []*event.Envelope {
				return []*event.Envelope{transfer(h, 11, 0, alice, bob, 100)}
			},
			holders: 1,
		},
		{
			name: "positive to positive keeps count",
			events: func(h *handlertest.Harness) []*event.Envelope {
				return []*event.Envelope{
					transfer(h, 11, 0, alice, bob, 30),
					transfer(h, 12, 0, alice, bob, 30),
					transfer(h, 13, 0, bob, alice, 10),
				}
			},
			holders: 2,
		},
		{
			name: "zero value transfer keeps count",
			events: func(h *handlertest.Harness) []*event.Envelope {
				return []*event.Envelope{transfer(h, 11, 0, bob, alice, 0)}
			},
			holders: 1,
		},
		{
			name: "self transfer",
			events: func(h *handlertest.Harness) []*event.Envelope {
				return []*event.Envelope{transfer(h, 11, 0, alice, alice, 100)}
			},
			holders: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.MustApply(transfer(h, 10, 0, zero, alice, 100))
			h.MustApply(tt.events(h)...)

			require.Equal(t, tt.holders, loadStats(t, h).TotalHolders)
		})
	}
}

func TestTransfer_SelfTransferKeepsBalance(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(
		transfer(h, 10, 0, zero, alice, 100),
		transfer(h, 11, 0, alice, alice, 60),
	)

	a := handlertest.Load[entity.PointHolder](t, h, entity.HolderID(alice))
	require.Equal(t, int64(100), a.Balance.Int64())
	require.Equal(t, int64(60), a.TotalSent.Int64())
	require.Equal(t, int64(160), a.TotalReceived.Int64())
}
