// Package bomb projects the jackpot game. Every run is one Bomb record keyed by
// contract address and run number; resets append history rows.
package bomb

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

// Kind is the family kind of the bomb game.
const Kind = "bomb"

const bombABI = `[
  {"type":"event","name":"BombStarted","anonymous":false,"inputs":[
    {"name":"run","type":"uint256","indexed":true},
    {"name":"currentBalance","type":"uint256","indexed":false}]},
  {"type":"event","name":"BombReset","anonymous":false,"inputs":[
    {"name":"run","type":"uint256","indexed":true},
    {"name":"currentWinner","type":"address","indexed":true},
    {"name":"currentBalance","type":"uint256","indexed":false}]},
  {"type":"event","name":"BombExploded","anonymous":false,"inputs":[
    {"name":"run","type":"uint256","indexed":true},
    {"name":"winner","type":"address","indexed":true},
    {"name":"wonAmount","type":"uint256","indexed":false}]}
]`

func init() {
	family.Register(Kind, New)
}

// New builds the bomb family.
func New(config.DataSourceConfig, *logger.Logger) (*family.Definition, error) {
	return family.NewDefinition(bombABI, map[string]projection.HandlerFunc{
		"BombStarted":  bombStarted,
		"BombReset":    bombReset,
		"BombExploded": bombExploded,
	})
}

func bombStarted(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	run := r.BigInt("run")
	balance := r.BigInt("currentBalance")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	b, created, err := store.GetOrCreate(ctx, hc.Store, entity.BombID(address, run), func() *entity.Bomb {
		return entity.NewBomb(address, run)
	})
	if err != nil {
		return err
	}

	if !created {
		hc.Warnw("bomb run started twice, restarting", "bomb", b.ID)
	}

	b.CurrentJackpot = entity.FromWei(balance)
	b.CurrentWinner = common.Address{}
	b.Exploded = false
	b.StartedAt = hc.Event.BlockTimestamp

	return hc.Store.Save(ctx, b)
}

func bombReset(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	run := r.BigInt("run")
	winner := r.Address("currentWinner")
	balance := r.BigInt("currentBalance")
	if err := r.Err(); err != nil {
		return err
	}

	b, err := lookup(ctx, hc, run)
	if err != nil {
		return err
	}

	jackpot := entity.FromWei(balance)
	b.CurrentJackpot = jackpot
	b.CurrentWinner = winner

	reset := &entity.BombReset{
		ID:              entity.EventID(hc.Event.TransactionHash, hc.Event.LogIndex),
		Bomb:            b.ID,
		User:            winner,
		CurrentJackpot:  entity.Copy(jackpot),
		Timestamp:       hc.Event.BlockTimestamp,
		BlockNumber:     hc.Event.BlockHeight,
		TransactionHash: hc.Event.TransactionHash,
	}

	if err := hc.Store.Save(ctx, reset); err != nil {
		return err
	}

	return hc.Store.Save(ctx, b)
}

func bombExploded(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	run := r.BigInt("run")
	winner := r.Address("winner")
	won := r.BigInt("wonAmount")
	if err := r.Err(); err != nil {
		return err
	}

	b, err := lookup(ctx, hc, run)
	if err != nil {
		return err
	}

	b.CurrentJackpot = entity.FromWei(won)
	b.CurrentWinner = winner
	b.Exploded = true

	return hc.Store.Save(ctx, b)
}

// lookup loads the run, creating it when its start was never seen.
func lookup(ctx context.Context, hc *projection.HandlerContext, run *big.Int) (*entity.Bomb, error) {
	address := hc.Event.ContractAddress
	id := entity.BombID(address, run)

	b, created, err := store.GetOrCreate(ctx, hc.Store, id, func() *entity.Bomb {
		b := entity.NewBomb(address, run)
		b.StartedAt = hc.Event.BlockTimestamp
		return b
	})
	if err != nil {
		return nil, err
	}

	if created {
		hc.LookupMiss(entity.TableBombs, id)
	}

	return b, nil
}
