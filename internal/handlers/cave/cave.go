// Package cave projects the points cave: a staking vault for points that also sells
// points from an owner-funded inventory.
package cave

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// Kind is the family kind of the cave.
const Kind = "cave"

const caveABI = `[
  {"type":"event","name":"PointsDeposited","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"shares","type":"uint256","indexed":false},
    {"name":"totalShares","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"PointsWithdrawn","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"shares","type":"uint256","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"totalShares","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"PointsPurchased","anonymous":false,"inputs":[
    {"name":"buyer","type":"address","indexed":true},
    {"name":"pointAmount","type":"uint256","indexed":false},
    {"name":"usdtPaid","type":"uint256","indexed":false},
    {"name":"pricePerToken","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"UsdtClaimed","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"totalClaimed","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"PriceUpdated","anonymous":false,"inputs":[
    {"name":"oldPrice","type":"uint256","indexed":false},
    {"name":"newPrice","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"InventoryDeposited","anonymous":false,"inputs":[
    {"name":"owner","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"totalInventory","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]}
]`

func init() {
	family.Register(Kind, New)
}

// New builds the cave family.
func New(config.DataSourceConfig, *logger.Logger) (*family.Definition, error) {
	return family.NewDefinition(caveABI, map[string]projection.HandlerFunc{
		"PointsDeposited":    pointsDeposited,
		"PointsWithdrawn":    pointsWithdrawn,
		"PointsPurchased":    pointsPurchased,
		"UsdtClaimed":        usdtClaimed,
		"PriceUpdated":       priceUpdated,
		"InventoryDeposited": inventoryDeposited,
	})
}

// state is the pair of records most cave events touch.
type state struct {
	stats *entity.CaveStats
	user  *entity.CaveUser
}

func loadStats(ctx context.Context, hc *projection.HandlerContext) (*state, error) {
	s, _, err := store.GetOrCreate(ctx, hc.Store, entity.SingletonID, entity.NewCaveStats)
	if err != nil {
		return nil, err
	}
	return &state{stats: s}, nil
}

func load(ctx context.Context, hc *projection.HandlerContext, user common.Address, ts uint64) (*state, error) {
	st, err := loadStats(ctx, hc)
	if err != nil {
		return nil, err
	}

	st.user, _, err = store.GetOrCreate(ctx, hc.Store, entity.CaveUserID(user), func() *entity.CaveUser {
		return entity.NewCaveUser(user, ts)
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}

// save persists the record and the touched aggregates.
func (st *state) save(ctx context.Context, hc *projection.HandlerContext, record store.Entity, ts uint64) error {
	st.stats.Touch(ts)
	if err := hc.Store.Save(ctx, record); err != nil {
		return err
	}

	if st.user != nil {
		st.user.LastActivityAt = ts
		if err := hc.Store.Save(ctx, st.user); err != nil {
			return err
		}
	}

	return hc.Store.Save(ctx, st.stats)
}

// unique bumps a distinct-participant counter when the user's own count leaves zero.
func unique(hc *projection.HandlerContext, name string, counter *uint64, userCount *uint64) {
	prev := *userCount
	*userCount++
	*counter = projection.ApplyTransition(hc.Log, name, *counter, projection.CountTransition(prev, *userCount))
}

func eventID(hc *projection.HandlerContext) string {
	return entity.EventID(hc.Event.TransactionHash, hc.Event.LogIndex)
}

func pointsDeposited(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
	shares := r.BigInt("shares")
	totalShares := r.BigInt("totalShares")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	st, err := load(ctx, hc, user, ts)
	if err != nil {
		return err
	}

	unique(hc, "cave.uniqueDepositors", &st.stats.UniqueDepositors, &st.user.TotalDepositCount)
	st.user.TotalDeposits = entity.Add(st.user.TotalDeposits, amount)
	st.user.CurrentShares = entity.Add(st.user.CurrentShares, shares)

	st.stats.TotalShares = totalShares
	st.stats.TotalDeposits = entity.Add(st.stats.TotalDeposits, amount)
	st.stats.TotalDepositCount++

	return st.save(ctx, hc, &entity.CaveDeposit{
		ID:               eventID(hc),
		User:             st.user.ID,
		PointAmount:      amount,
		SharesReceived:   shares,
		TotalSharesAfter: entity.Copy(totalShares),
		Timestamp:        ts,
		BlockNumber:      hc.Event.BlockHeight,
		TransactionHash:  hc.Event.TransactionHash,
	}, ts)
}

func pointsWithdrawn(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	shares := r.BigInt("shares")
	amount := r.BigInt("amount")
	totalShares := r.BigInt("totalShares")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	st, err := load(ctx, hc, user, ts)
	if err != nil {
		return err
	}

	next := entity.Sub(st.user.CurrentShares, shares)
	if next.Sign() < 0 {
		hc.Warnw("cave shares would go negative, clamping to zero",
			"entity", entity.TableCaveUsers, "id", st.user.ID, "shares", st.user.CurrentShares, "burned", shares)
		next = new(big.Int)
	}

	st.user.CurrentShares = next
	st.user.TotalWithdrawals = entity.Add(st.user.TotalWithdrawals, amount)
	st.user.TotalWithdrawalCount++

	st.stats.TotalShares = totalShares
	st.stats.TotalWithdrawals = entity.Add(st.stats.TotalWithdrawals, amount)
	st.stats.TotalWithdrawalCount++

	return st.save(ctx, hc, &entity.CaveWithdrawal{
		ID:               eventID(hc),
		User:             st.user.ID,
		SharesBurned:     shares,
		PointsReceived:   amount,
		TotalSharesAfter: entity.Copy(totalShares),
		Timestamp:        ts,
		BlockNumber:      hc.Event.BlockHeight,
		TransactionHash:  hc.Event.TransactionHash,
	}, ts)
}

func pointsPurchased(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	buyer := r.Address("buyer")
	pointAmount := r.BigInt("pointAmount")
	usdtPaid := r.BigInt("usdtPaid")
	price := r.BigInt("pricePerToken")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	st, err := load(ctx, hc, buyer, ts)
	if err != nil {
		return err
	}

	unique(hc, "cave.uniqueBuyers", &st.stats.UniqueBuyers, &st.user.PurchaseCount)
	st.user.TotalPointsPurchased = entity.Add(st.user.TotalPointsPurchased, pointAmount)
	st.user.TotalUsdtSpent = entity.Add(st.user.TotalUsdtSpent, usdtPaid)

	st.stats.TotalPointsSold = entity.Add(st.stats.TotalPointsSold, pointAmount)
	st.stats.TotalUsdtCollected = entity.Add(st.stats.TotalUsdtCollected, usdtPaid)
	st.stats.TotalPurchaseCount++
	st.stats.CurrentPrice = entity.Copy(price)

	return st.save(ctx, hc, &entity.CavePointPurchase{
		ID:              eventID(hc),
		Buyer:           st.user.ID,
		PointAmount:     pointAmount,
		UsdtPaid:        usdtPaid,
		PricePerToken:   price,
		Timestamp:       ts,
		BlockNumber:     hc.Event.BlockHeight,
		TransactionHash: hc.Event.TransactionHash,
	}, ts)
}

func usdtClaimed(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
	totalClaimed := r.BigInt("totalClaimed")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	st, err := load(ctx, hc, user, ts)
	if err != nil {
		return err
	}

	unique(hc, "cave.uniqueClaimers", &st.stats.UniqueClaimers, &st.user.ClaimCount)
	st.user.TotalUsdtClaimed = entity.Copy(totalClaimed)
	st.stats.TotalClaimCount++

	return st.save(ctx, hc, &entity.CaveUsdtClaim{
		ID:                 eventID(hc),
		User:               st.user.ID,
		Amount:             amount,
		TotalClaimedByUser: totalClaimed,
		Timestamp:          ts,
		BlockNumber:        hc.Event.BlockHeight,
		TransactionHash:    hc.Event.TransactionHash,
	}, ts)
}

func priceUpdated(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	oldPrice := r.BigInt("oldPrice")
	newPrice := r.BigInt("newPrice")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	st, err := loadStats(ctx, hc)
	if err != nil {
		return err
	}

	st.stats.CurrentPrice = entity.Copy(newPrice)
	st.stats.PriceUpdateCount++

	return st.save(ctx, hc, &entity.CavePriceUpdate{
		ID:              eventID(hc),
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
		Timestamp:       ts,
		BlockNumber:     hc.Event.BlockHeight,
		TransactionHash: hc.Event.TransactionHash,
	}, ts)
}

func inventoryDeposited(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	owner := r.Address("owner")
	amount := r.BigInt("amount")
	totalInventory := r.BigInt("totalInventory")
	ts := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	// the owner funds inventory and is not a cave participant
	st, err := loadStats(ctx, hc)
	if err != nil {
		return err
	}

	st.stats.TotalInventory = entity.Copy(totalInventory)

	return st.save(ctx, hc, &entity.CaveInventoryDeposit{
		ID:                  eventID(hc),
		Owner:               owner,
		Amount:              amount,
		TotalInventoryAfter: totalInventory,
		Timestamp:           ts,
		BlockNumber:         hc.Event.BlockHeight,
		TransactionHash:     hc.Event.TransactionHash,
	}, ts)
}
