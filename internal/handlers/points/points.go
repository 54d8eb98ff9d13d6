// Package points projects the points token: holders, supply and the mint, burn and
// transfer history.
//
// Holder balances always follow Transfer logs. Before the token's upgrade block, mints
// and burns are recognised from transfers to and from the zero address; from the upgrade
// block on, the dedicated Points* events own mint and burn records and report the total
// supply, and transfers to or from zero only move balances.
package points

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

// Kind is the family kind of the points token.
const Kind = "scrub-point"

const tokenABI = `[
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}]},
  {"type":"event","name":"PointsMinted","anonymous":false,"inputs":[
    {"name":"to","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"newTotalSupply","type":"uint256","indexed":false}]},
  {"type":"event","name":"PointsBurned","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"newTotalSupply","type":"uint256","indexed":false}]},
  {"type":"event","name":"PointsForceBurned","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"burner","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"newTotalSupply","type":"uint256","indexed":false}]}
]`

func init() {
	family.Register(Kind, New)
}

type handlers struct {
	gate *projection.VersionGate
}

// New builds the points token family.
func New(ds config.DataSourceConfig, log *logger.Logger) (*family.Definition, error) {
	h := &handlers{gate: projection.NewVersionGate(ds.UpgradeBlock, log)}

	return family.NewDefinition(tokenABI, map[string]projection.HandlerFunc{
		"Transfer":          h.transfer,
		"PointsMinted":      h.pointsMinted,
		"PointsBurned":      h.pointsBurned,
		"PointsForceBurned": h.pointsForceBurned,
	})
}

func stats(ctx context.Context, hc *projection.HandlerContext) (*entity.PointStats, error) {
	s, _, err := store.GetOrCreate(ctx, hc.Store, entity.SingletonID, entity.NewPointStats)
	return s, err
}

func holder(ctx context.Context, hc *projection.HandlerContext, address common.Address) (*entity.PointHolder, error) {
	h, _, err := store.GetOrCreate(ctx, hc.Store, entity.HolderID(address), func() *entity.PointHolder {
		return entity.NewPointHolder(address, hc.Event.BlockTimestamp)
	})
	return h, err
}

// moveBalance applies delta to a holder and keeps the holder count in step.
func moveBalance(hc *projection.HandlerContext, s *entity.PointStats, h *entity.PointHolder, delta *big.Int) {
	prev := entity.Copy(h.Balance)
	next := entity.Add(prev, delta)

	if next.Sign() < 0 {
		hc.Warnw("holder balance would go negative, clamping to zero",
			"entity", entity.TablePointHolders, "id", h.ID, "balance", prev, "delta", delta)
		next = entity.Zero()
	}

	h.Balance = next
	h.LastActivityAt = hc.Event.BlockTimestamp
	s.TotalHolders = projection.ApplyTransition(hc.Log, "points.totalHolders", s.TotalHolders,
		projection.Transition(prev, next))
}

func touch(s *entity.PointStats, ts uint64, mint bool) {
	s.LastActivityAt = ts
	if mint && s.FirstMintAt == 0 {
		s.FirstMintAt = ts
	}
}

func (h *handlers) transfer(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	from := r.Address("from")
	to := r.Address("to")
	value := r.BigInt("value")
	if err := r.Err(); err != nil {
		return err
	}

	ev := hc.Event
	id := entity.EventID(ev.TransactionHash, ev.LogIndex)
	ts := ev.BlockTimestamp
	preUpgrade := !h.gate.Upgraded(ev.BlockHeight)

	s, err := stats(ctx, hc)
	if err != nil {
		return err
	}

	s.TotalTransfers++
	touch(s, ts, false)

	records := []store.Entity{&entity.PointTransfer{
		ID:              id,
		From:            from,
		To:              to,
		Amount:          value,
		Timestamp:       ts,
		BlockNumber:     ev.BlockHeight,
		TransactionHash: ev.TransactionHash,
	}}

	mint := from == (common.Address{})
	burn := to == (common.Address{})

	if !mint {
		sender, err := holder(ctx, hc, from)
		if err != nil {
			return err
		}

		moveBalance(hc, s, sender, new(big.Int).Neg(value))
		if burn {
			sender.TotalBurned = entity.Add(sender.TotalBurned, value)
		} else {
			sender.TotalSent = entity.Add(sender.TotalSent, value)
		}
		records = append(records, sender)
	}

	if !burn {
		receiver, err := holder(ctx, hc, to)
		if err != nil {
			return err
		}
		if !mint && from == to {
			// self transfer: reuse the sender so both legs land on one record
			receiver = records[len(records)-1].(*entity.PointHolder)
		} else {
			records = append(records, receiver)
		}

		moveBalance(hc, s, receiver, value)
		receiver.TotalReceived = entity.Add(receiver.TotalReceived, value)
	}

	if preUpgrade {
		switch {
		case mint && burn:
			hc.Warnw("transfer from and to the zero address, ignoring supply change")
		case mint:
			s.TotalMints++
			s.TotalSupply = entity.Add(s.TotalSupply, value)
			touch(s, ts, true)
			records = append(records, &entity.PointMint{
				ID:              id,
				To:              to,
				Amount:          value,
				TotalSupply:     entity.Copy(s.TotalSupply),
				Timestamp:       ts,
				BlockNumber:     ev.BlockHeight,
				TransactionHash: ev.TransactionHash,
			})
		case burn:
			s.TotalBurns++
			s.TotalSupply = entity.Sub(s.TotalSupply, value)
			records = append(records, &entity.PointBurn{
				ID:              id,
				From:            from,
				Amount:          value,
				TotalSupply:     entity.Copy(s.TotalSupply),
				Timestamp:       ts,
				BlockNumber:     ev.BlockHeight,
				TransactionHash: ev.TransactionHash,
			})
		}
	}

	for _, e := range append(records, s) {
		if err := hc.Store.Save(ctx, e); err != nil {
			return err
		}
	}

	return nil
}

// supplyEvent reads the common fields of the Points* events and reports whether the
// event belongs to the era the dedicated events own.
func (h *handlers) supplyEvent(hc *projection.HandlerContext) (amount, totalSupply *big.Int, ok bool, err error) {
	r := hc.Event.Params.Read()
	amount = r.BigInt("amount")
	totalSupply = r.BigInt("newTotalSupply")
	if err := r.Err(); err != nil {
		return nil, nil, false, err
	}

	if !h.gate.Upgraded(hc.Event.BlockHeight) {
		hc.Warnw("supply event before upgrade block, transfers own this era", "upgradeBlock", h.gate.UpgradeBlock)
		return nil, nil, false, nil
	}

	return amount, totalSupply, true, nil
}

func (h *handlers) pointsMinted(ctx context.Context, hc *projection.HandlerContext) error {
	to, err := hc.Event.Params.Address("to")
	if err != nil {
		return err
	}

	amount, totalSupply, ok, err := h.supplyEvent(hc)
	if err != nil || !ok {
		return err
	}

	s, err := stats(ctx, hc)
	if err != nil {
		return err
	}

	ev := hc.Event
	s.TotalMints++
	s.TotalSupply = totalSupply
	touch(s, ev.BlockTimestamp, true)

	mint := &entity.PointMint{
		ID:              entity.EventID(ev.TransactionHash, ev.LogIndex),
		To:              to,
		Amount:          amount,
		TotalSupply:     entity.Copy(totalSupply),
		Timestamp:       ev.BlockTimestamp,
		BlockNumber:     ev.BlockHeight,
		TransactionHash: ev.TransactionHash,
	}

	if err := hc.Store.Save(ctx, mint); err != nil {
		return err
	}
	return hc.Store.Save(ctx, s)
}

func (h *handlers) pointsBurned(ctx context.Context, hc *projection.HandlerContext) error {
	from, err := hc.Event.Params.Address("from")
	if err != nil {
		return err
	}

	amount, totalSupply, ok, err := h.supplyEvent(hc)
	if err != nil || !ok {
		return err
	}

	s, err := stats(ctx, hc)
	if err != nil {
		return err
	}

	ev := hc.Event
	s.TotalBurns++
	s.TotalSupply = totalSupply
	touch(s, ev.BlockTimestamp, false)

	burn := &entity.PointBurn{
		ID:              entity.EventID(ev.TransactionHash, ev.LogIndex),
		From:            from,
		Amount:          amount,
		TotalSupply:     entity.Copy(totalSupply),
		Timestamp:       ev.BlockTimestamp,
		BlockNumber:     ev.BlockHeight,
		TransactionHash: ev.TransactionHash,
	}

	if err := hc.Store.Save(ctx, burn); err != nil {
		return err
	}
	return hc.Store.Save(ctx, s)
}

func (h *handlers) pointsForceBurned(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	from := r.Address("from")
	burner := r.Address("burner")
	if err := r.Err(); err != nil {
		return err
	}

	amount, totalSupply, ok, err := h.supplyEvent(hc)
	if err != nil || !ok {
		return err
	}

	s, err := stats(ctx, hc)
	if err != nil {
		return err
	}

	ev := hc.Event
	s.TotalForceBurns++
	s.TotalSupply = totalSupply
	touch(s, ev.BlockTimestamp, false)

	burn := &entity.PointForceBurn{
		ID:              entity.EventID(ev.TransactionHash, ev.LogIndex),
		From:            from,
		Burner:          burner,
		Amount:          amount,
		TotalSupply:     entity.Copy(totalSupply),
		Timestamp:       ev.BlockTimestamp,
		BlockNumber:     ev.BlockHeight,
		TransactionHash: ev.TransactionHash,
	}

	if err := hc.Store.Save(ctx, burn); err != nil {
		return err
	}
	return hc.Store.Save(ctx, s)
}
