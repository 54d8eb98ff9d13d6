package vaults_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/handlertest"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/vaults"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
)

var aggregatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")

func newAggregatorHarness(t *testing.T) *handlertest.Harness {
	t.Helper()

	def, err := vaults.NewAggregator(config.DataSourceConfig{Name: "aggregator", Kind: vaults.KindAggregator},
		logger.NewNopLogger())
	require.NoError(t, err)

	return handlertest.New(t, def, "aggregator", aggregatorAddr)
}

func newVaultEvent(h *handlertest.Harness, height uint64) *event.Envelope {
	return h.Event("NewVault", height, 0, event.Params{
		"vault":      vaultAddr,
		"underlying": common.HexToAddress("0x05"),
		"decimals":   uint8(6),
		"tokenName":  "hUSDC",
	})
}

func TestAggregator_NewVaultSpawnsTemplates(t *testing.T) {
	t.Parallel()

	h := newAggregatorHarness(t)
	h.MustApply(newVaultEvent(h, 10))

	v := loadVault(t, h)
	require.Empty(t, v.VaultType)
	require.Equal(t, uint64(6), v.Decimals)
	require.Equal(t, "hUSDC", v.TokenName)
	require.Equal(t, uint64(10), v.CreatedAtBlock)

	require.Equal(t, []handlertest.Spawned{
		{Kind: vaults.KindHover, Address: vaultAddr},
		{Kind: vaults.KindAutoCompounder, Address: vaultAddr},
	}, h.Spawner.Calls)
}

func TestAggregator_UpdateVault(t *testing.T) {
	t.Parallel()

	h := newAggregatorHarness(t)
	update := func(height uint64) *event.Envelope {
		return h.Event("UpdateVault", height, 1, event.Params{
			"vault":           vaultAddr,
			"apr":             n(125_000),
			"tvl":             n(1_000),
			"totalSupplied":   n(900),
			"totalBorrowed":   n(400),
			"totalBorrowable": n(500),
			"lastCompounTime": n(1_699_999_000),
		})
	}

	h.MustApply(update(9))
	handlertest.Missing[entity.VaultInfo](t, h, entity.VaultInfoID(vaultAddr, 1_700_000_009))
	require.Contains(t, h.Warnings(), "update for unknown vault, ignoring")

	h.MustApply(newVaultEvent(h, 10), update(11))

	info := handlertest.Load[entity.VaultInfo](t, h, entity.VaultInfoID(vaultAddr, 1_700_000_011))
	require.Equal(t, int64(12), info.APR.Int64())
	require.Equal(t, int64(1_000), info.TVL.Int64())
	require.Equal(t, int64(400), info.TotalBorrowed.Int64())
	require.Equal(t, uint64(1_699_999_000), info.LastCompoundTimestamp)
}

func TestHover_TagsAnnouncedVault(t *testing.T) {
	t.Parallel()

	agg := newAggregatorHarness(t)
	agg.MustApply(newVaultEvent(agg, 10))

	def, err := vaults.NewHover(config.DataSourceConfig{Name: "hover", Kind: vaults.KindHover}, logger.NewNopLogger())
	require.NoError(t, err)
	h := agg.With(def, "hover", vaultAddr)

	h.MustApply(
		h.Event("Deposit", 11, 0, event.Params{"user": alice, "amount": n(300)}),
		h.Event("Withdraw", 12, 0, event.Params{"user": alice, "amount": n(100)}),
		h.Event("RewardDistribution", 13, 0, event.Params{"amount": n(5), "apy": n(700)}),
	)

	v := loadVault(t, h)
	require.Equal(t, entity.VaultTypeHover, v.VaultType)
	require.Equal(t, "hUSDC", v.TokenName, "announced display values are kept")

	u := loadUser(t, h, alice)
	require.Equal(t, int64(300), u.TotalDeposited.Int64())
	require.Equal(t, int64(100), u.TotalWithdrawn.Int64())

	w := handlertest.Load[entity.VaultWithdraw](t, h,
		entity.EventID(h.Event("Withdraw", 12, 0, nil).TransactionHash, 0))
	require.Equal(t, entity.StatusProcessed, w.Status)
	require.Empty(t, h.Warnings())
}
