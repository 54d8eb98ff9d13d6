package cave_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/cave"
	"github.com/scrub-finance/scrub-indexer/internal/handlers/handlertest"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
)

var (
	caveAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

func n(v int64) *big.Int { return big.NewInt(v) }

func newHarness(t *testing.T) *handlertest.Harness {
	t.Helper()

	def, err := cave.New(config.DataSourceConfig{Name: "cave", Kind: cave.Kind}, logger.NewNopLogger())
	require.NoError(t, err)

	return handlertest.New(t, def, "cave", caveAddr)
}

func deposited(h *handlertest.Harness, height uint64, user common.Address, amount, shares, total int64) *event.Envelope {
	return h.Event("PointsDeposited", height, 0, event.Params{
		"user": user, "amount": n(amount), "shares": n(shares), "totalShares": n(total), "timestamp": n(int64(height)),
	})
}

func loadStats(t *testing.T, h *handlertest.Harness) *entity.CaveStats {
	t.Helper()
	return handlertest.Load[entity.CaveStats](t, h, entity.SingletonID)
}

func loadUser(t *testing.T, h *handlertest.Harness, a common.Address) *entity.CaveUser {
	t.Helper()
	return handlertest.Load[entity.CaveUser](t, h, entity.CaveUserID(a))
}

func TestDepositsAndWithdrawals(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(
		deposited(h, 10, alice, 100, 100, 100),
		deposited(h, 11, bob, 50, 45, 145),
		deposited(h, 12, alice, 20, 18, 163),
		h.Event("PointsWithdrawn", 13, 0, event.Params{
			"user": alice, "shares": n(60), "amount": n(70), "totalShares": n(103), "timestamp": n(13),
		}),
	)

	s := loadStats(t, h)
	require.Equal(t, uint64(2), s.UniqueDepositors, "repeat depositors count once")
	require.Equal(t, uint64(3), s.TotalDepositCount)
	require.Equal(t, int64(103), s.TotalShares.Int64(), "contract total replaces")
	require.Equal(t, int64(170), s.TotalDeposits.Int64())
	require.Equal(t, int64(70), s.TotalWithdrawals.Int64())
	require.Equal(t, uint64(10), s.FirstActivityAt)
	require.Equal(t, uint64(13), s.LastActivityAt)

	a := loadUser(t, h, alice)
	require.Equal(t, int64(58), a.CurrentShares.Int64())
	require.Equal(t, uint64(2), a.TotalDepositCount)
	require.Equal(t, uint64(1), a.TotalWithdrawalCount)
	require.Equal(t, uint64(10), a.FirstActivityAt)
	require.Equal(t, uint64(13), a.LastActivityAt)

	ev := deposited(h, 10, alice, 0, 0, 0)
	d := handlertest.Load[entity.CaveDeposit](t, h, entity.EventID(ev.TransactionHash, 0))
	require.Equal(t, a.ID, d.User)
	require.Equal(t, int64(100), d.TotalSharesAfter.Int64())
}

func TestPurchasesAndClaims(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	purchase := func(height uint64, buyer common.Address, points, usdt, price int64) *event.Envelope {
		return h.Event("PointsPurchased", height, 0, event.Params{
			"buyer": buyer, "pointAmount": n(points), "usdtPaid": n(usdt), "pricePerToken": n(price),
			"timestamp": n(int64(height)),
		})
	}
	claim := func(height uint64, user common.Address, amount, total int64) *event.Envelope {
		return h.Event("UsdtClaimed", height, 0, event.Params{
			"user": user, "amount": n(amount), "totalClaimed": n(total), "timestamp": n(int64(height)),
		})
	}

	h.MustApply(
		purchase(20, bob, 1_000, 50, 5),
		purchase(21, bob, 500, 30, 6),
		claim(22, alice, 40, 40),
		claim(23, alice, 10, 50),
	)

	s := loadStats(t, h)
	require.Equal(t, uint64(1), s.UniqueBuyers)
	require.Equal(t, uint64(2), s.TotalPurchaseCount)
	require.Equal(t, int64(1_500), s.TotalPointsSold.Int64())
	require.Equal(t, int64(80), s.TotalUsdtCollected.Int64())
	require.Equal(t, int64(6), s.CurrentPrice.Int64())
	require.Equal(t, uint64(1), s.UniqueClaimers)
	require.Equal(t, uint64(2), s.TotalClaimCount)

	b := loadUser(t, h, bob)
	require.Equal(t, uint64(2), b.PurchaseCount)
	require.Equal(t, int64(80), b.TotalUsdtSpent.Int64())

	a := loadUser(t, h, alice)
	require.Equal(t, int64(50), a.TotalUsdtClaimed.Int64(), "claimed total comes from the contract")
	require.Equal(t, uint64(2), a.ClaimCount)
}

func TestPriceAndInventory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	price := h.Event("PriceUpdated", 30, 0, event.Params{"oldPrice": n(5), "newPrice": n(7), "timestamp": n(30)})
	h.MustApply(
		price,
		h.Event("InventoryDeposited", 31, 0, event.Params{
			"owner": bob, "amount": n(900), "totalInventory": n(2_900), "timestamp": n(31),
		}),
	)

	s := loadStats(t, h)
	require.Equal(t, int64(7), s.CurrentPrice.Int64())
	require.Equal(t, uint64(1), s.PriceUpdateCount)
	require.Equal(t, int64(2_900), s.TotalInventory.Int64())

	u := handlertest.Load[entity.CavePriceUpdate](t, h, entity.EventID(price.TransactionHash, 0))
	require.Equal(t, int64(5), u.OldPrice.Int64())

	handlertest.Missing[entity.CaveUser](t, h, entity.CaveUserID(bob))
}

func TestWithdrawBeyondShares(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.MustApply(h.Event("PointsWithdrawn", 13, 0, event.Params{
		"user": alice, "shares": n(60), "amount": n(70), "totalShares": n(0), "timestamp": n(13),
	}))

	require.Zero(t, loadUser(t, h, alice).CurrentShares.Sign())
	require.Contains(t, h.Warnings(), "cave shares would go negative, clamping to zero")
}
