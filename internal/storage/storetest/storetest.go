// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

var (
	vaultAddr = common.HexToAddress("0x5aBe7E4C5A1DA2C5b7A7f1b3cC2a5e8E8B1f4C11")
	userAddr  = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	layAddr   = common.HexToAddress("0x00000000000000000000000000000000000000B2")
)

// Run exercises a fresh, empty store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("round trip", func(t *testing.T) { testRoundTrip(t, open(t)) })
	t.Run("missing", func(t *testing.T) { testMissing(t, open(t)) })
	t.Run("rollback discards", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("read your writes", func(t *testing.T) { testReadYourWrites(t, open(t)) })
	t.Run("remove", func(t *testing.T) { testRemove(t, open(t)) })
	t.Run("list columns", func(t *testing.T) { testListColumns(t, open(t)) })
}

func commit(t *testing.T, s store.Store, fn func(tx store.Tx)) {
	t.Helper()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, tx.Rollback()) }()

	fn(tx)
	require.NoError(t, tx.Commit())
}

func testRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	require.True(t, ok)

	vault := entity.NewVault(vaultAddr, entity.VaultTypeScrub)
	vault.TotalShares = huge
	vault.Decimals = 6
	vault.TokenName = "USDT Vault"
	vault.Treasury = userAddr
	vault.Paused = true

	reward := &entity.VaultReward{
		ID:              entity.EventID(common.HexToHash("0xfeed"), 3),
		Vault:           entity.VaultID(vaultAddr),
		Reward:          big.NewInt(-250),
		APR:             entity.Zero(),
		TotalValue:      big.NewInt(1_000_000),
		Timestamp:       1_700_000_000,
		BlockNumber:     42,
		TransactionHash: common.HexToHash("0xfeed"),
	}

	commit(t, s, func(tx store.Tx) {
		require.NoError(t, tx.Save(ctx, vault))
		require.NoError(t, tx.Save(ctx, reward))
	})

	loaded, found, err := store.Get[entity.Vault](ctx, s, vault.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 0, huge.Cmp(loaded.TotalShares))
	require.Equal(t, uint64(6), loaded.Decimals)
	require.Equal(t, "USDT Vault", loaded.TokenName)
	require.Equal(t, userAddr, loaded.Treasury)
	require.True(t, loaded.Paused)
	require.Zero(t, loaded.ShareValue.Sign())

	loadedReward, found, err := store.Get[entity.VaultReward](ctx, s, reward.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(-250), loadedReward.Reward.Int64())
	require.Equal(t, reward.TransactionHash, loadedReward.TransactionHash)
	require.Equal(t, uint64(42), loadedReward.BlockNumber)
}

func testMissing(t *testing.T, s store.Store) {
	found, err := s.Load(context.Background(), "0xdead", &entity.Vault{})
	require.NoError(t, err)
	require.False(t, found)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Save(ctx, entity.NewPointStats()))
	require.NoError(t, tx.Rollback())

	found, err := s.Load(ctx, entity.SingletonID, &entity.PointStats{})
	require.NoError(t, err)
	require.False(t, found)
}

func testReadYourWrites(t *testing.T, s store.Store) {
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, tx.Rollback()) }()

	holder := entity.NewPointHolder(userAddr, 100)
	holder.Balance = big.NewInt(7)
	require.NoError(t, tx.Save(ctx, holder))

	loaded, found, err := store.Get[entity.PointHolder](ctx, tx, holder.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(7), loaded.Balance.Int64())

	// uncommitted writes are invisible outside the transaction
	found, err = s.Load(ctx, holder.ID, &entity.PointHolder{})
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, tx.Commit())

	found, err = s.Load(ctx, holder.ID, &entity.PointHolder{})
	require.NoError(t, err)
	require.True(t, found)
}

func testRemove(t *testing.T, s store.Store) {
	ctx := context.Background()

	bet := &entity.MatchedBet{
		ID:      entity.MatchedBetID(vaultAddr, big.NewInt(1), 0),
		Bet:     entity.BetID(vaultAddr, big.NewInt(1)),
		LayUser: layAddr,
		Amount:  big.NewInt(5),
	}

	commit(t, s, func(tx store.Tx) { require.NoError(t, tx.Save(ctx, bet)) })
	commit(t, s, func(tx store.Tx) {
		require.NoError(t, tx.Remove(ctx, entity.TableMatchedBets, bet.ID))
		// removing an absent entity is not an error
		require.NoError(t, tx.Remove(ctx, entity.TableMatchedBets, "absent"))

		found, err := tx.Load(ctx, bet.ID, &entity.MatchedBet{})
		require.NoError(t, err)
		require.False(t, found)
	})

	found, err := s.Load(ctx, bet.ID, &entity.MatchedBet{})
	require.NoError(t, err)
	require.False(t, found)
}

func testListColumns(t *testing.T, s store.Store) {
	ctx := context.Background()

	competition := entity.NewCompetition(vaultAddr)
	competition.Users = []common.Address{userAddr, layAddr}
	competition.Bets = []string{entity.BetID(vaultAddr, big.NewInt(1))}
	competition.BetType = "1X2"

	index := entity.NewSourceIndex()
	index.Sources = append(index.Sources, entity.SpawnedSource{Template: "hover", Address: vaultAddr, StartBlock: 9})

	commit(t, s, func(tx store.Tx) {
		require.NoError(t, tx.Save(ctx, competition))
		require.NoError(t, tx.Save(ctx, index))
	})

	loaded, found, err := store.Get[entity.Competition](ctx, s, competition.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, competition.Users, loaded.Users)
	require.Equal(t, competition.Bets, loaded.Bets)
	require.Equal(t, "1X2", loaded.BetType)

	loadedIndex, found, err := store.Get[entity.SourceIndex](ctx, s, entity.SingletonID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, loadedIndex.Contains("hover", vaultAddr))
	require.False(t, loadedIndex.Contains("auto-compounder", vaultAddr))
}
