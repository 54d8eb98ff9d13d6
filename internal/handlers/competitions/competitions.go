// Package competitions mirrors betting markets. Every market event triggers one full
// snapshot read; the previous bets of the market are dropped and rebuilt from it.
package competitions

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// Kind is the family kind of the event center.
const Kind = "competitions"

// marketEvents all carry the competition address as their only argument.
var marketEvents = []string{
	"NewMatch", "MatchAdded", "MatchUpdated", "UnmatchedBet",
	"MatchedBet", "CancelledBet", "MatchClosed", "MatchSettled",
}

func init() {
	family.Register(Kind, New)
}

// The field order of these structs follows the getCompetitionInfo tuple components.
type (
	basicInfo struct {
		ID                          *big.Int
		OpenStatus                  bool
		Host                        *big.Int
		Guest                       *big.Int
		Result                      *big.Int
		CurrentBetID                *big.Int
		TotalAmountMatchedEffective *big.Int
		CompetitionPendingAmount    *big.Int
		Outright                    bool
		Live                        bool
		Hidden                      bool
		Fee                         *big.Int
		CompetitionsAddress         common.Address
		StartDate                   *big.Int
	}

	additionalInfo struct {
		AdditionalHome string
		AdditionalAway string
		BetType        string
		Preview        bool
	}

	matchedBetInfo struct {
		LayUser common.Address
		Amount  *big.Int
	}

	betInfo struct {
		ID              *big.Int
		BackUser        common.Address
		Team            *big.Int
		PendingAmount   *big.Int
		TotalMatched    *big.Int
		Odd             *big.Int
		EffectiveOdd    *big.Int
		Collateral      *big.Int
		Settled         bool
		MatchedBetsList []matchedBetInfo
	}

	competitionInfo struct {
		BasicInfo      basicInfo
		AdditionalInfo additionalInfo
		Bets           []betInfo
	}
)

type handlers struct {
	callContext common.Address
}

// New builds the competitions family. The snapshot read passes the data source's call
// context as its second argument, or the competition itself when none is configured.
func New(ds config.DataSourceConfig, _ *logger.Logger) (*family.Definition, error) {
	h := &handlers{}
	if ds.CallContext != "" {
		h.callContext = common.HexToAddress(ds.CallContext)
	}

	hs := make(map[string]projection.HandlerFunc, len(marketEvents))
	for _, name := range marketEvents {
		hs[name] = h.refresh
	}

	return family.NewDefinition(eventCenterABI, hs)
}

func (h *handlers) refresh(ctx context.Context, hc *projection.HandlerContext) error {
	address, err := hc.Event.Params.Address("param0")
	if err != nil {
		return err
	}

	callContext := h.callContext
	if callContext == (common.Address{}) {
		callContext = address
	}

	res := hc.Read(ctx, hc.Event.ContractAddress, "getCompetitionInfo", address, callContext)
	if !res.OK() {
		hc.Warnw("competition snapshot unavailable, keeping previous state",
			"competition", entity.CompetitionID(address), "reason", res.Failure())
		return nil
	}

	info, ok := contract.Convert[competitionInfo](res.Values[0])
	if !ok {
		hc.Warnw("competition snapshot has an unexpected shape, keeping previous state",
			"competition", entity.CompetitionID(address))
		return nil
	}

	c, _, err := store.GetOrCreate(ctx, hc.Store, entity.CompetitionID(address), func() *entity.Competition {
		return entity.NewCompetition(address)
	})
	if err != nil {
		return err
	}

	if err := removeBets(ctx, hc, c.Bets); err != nil {
		return err
	}

	applyInfo(c, info)
	c.EventCenter = hc.Event.ContractAddress
	c.UpdatedAtBlock = hc.Event.BlockHeight

	var users addressSet
	c.Bets = make([]string, 0, len(info.Bets))

	for _, b := range info.Bets {
		bet, matched := buildBet(address, c.ID, b)
		c.Bets = append(c.Bets, bet.ID)
		users.add(bet.Users...)

		if err := hc.Store.Save(ctx, bet); err != nil {
			return err
		}
		for _, m := range matched {
			if err := hc.Store.Save(ctx, m); err != nil {
				return err
			}
		}
	}

	c.Users = users.list()

	hc.Debugw("competition refreshed", "competition", c.ID, "bets", len(c.Bets), "users", len(c.Users))

	return hc.Store.Save(ctx, c)
}

// removeBets deletes the listed bets and their matched bets.
func removeBets(ctx context.Context, hc *projection.HandlerContext, ids []string) error {
	for _, id := range ids {
		bet, found, err := store.Get[entity.Bet](ctx, hc.Store, id)
		if err != nil {
			return err
		}

		if found {
			for _, m := range bet.MatchedBets {
				if err := hc.Store.Remove(ctx, entity.TableMatchedBets, m); err != nil {
					return err
				}
			}
		}

		if err := hc.Store.Remove(ctx, entity.TableBets, id); err != nil {
			return err
		}
	}

	return nil
}

func applyInfo(c *entity.Competition, info competitionInfo) {
	b := info.BasicInfo
	c.MatchID = entity.OrZero(b.ID)
	c.OpenStatus = b.OpenStatus
	c.Host = entity.OrZero(b.Host)
	c.Guest = entity.OrZero(b.Guest)
	c.Result = entity.OrZero(b.Result)
	c.CurrentBetID = entity.OrZero(b.CurrentBetID)
	c.TotalAmountMatchedEffective = entity.OrZero(b.TotalAmountMatchedEffective)
	c.CompetitionPendingAmount = entity.OrZero(b.CompetitionPendingAmount)
	c.Outright = b.Outright
	c.Live = b.Live
	c.Hidden = b.Hidden
	c.Fee = entity.OrZero(b.Fee)
	c.CompetitionsAddress = b.CompetitionsAddress
	c.StartDate = entity.OrZero(b.StartDate)

	a := info.AdditionalInfo
	c.AdditionalHome = a.AdditionalHome
	c.AdditionalAway = a.AdditionalAway
	c.BetType = a.BetType
	c.Preview = a.Preview
}

func buildBet(competition common.Address, competitionID string, b betInfo) (*entity.Bet, []*entity.MatchedBet) {
	betID := entity.OrZero(b.ID)

	bet := &entity.Bet{
		ID:            entity.BetID(competition, betID),
		Competition:   competitionID,
		BetID:         betID,
		BackUser:      b.BackUser,
		Team:          entity.OrZero(b.Team),
		PendingAmount: entity.OrZero(b.PendingAmount),
		TotalMatched:  entity.OrZero(b.TotalMatched),
		Odd:           entity.OrZero(b.Odd),
		EffectiveOdd:  entity.OrZero(b.EffectiveOdd),
		Collateral:    entity.OrZero(b.Collateral),
		Settled:       b.Settled,
		MatchedBets:   make([]string, 0, len(b.MatchedBetsList)),
	}

	var users addressSet
	users.add(b.BackUser)

	matched := make([]*entity.MatchedBet, 0, len(b.MatchedBetsList))
	for j, m := range b.MatchedBetsList {
		mb := &entity.MatchedBet{
			ID:      entity.MatchedBetID(competition, betID, j),
			Bet:     bet.ID,
			LayUser: m.LayUser,
			Amount:  entity.OrZero(m.Amount),
		}
		bet.MatchedBets = append(bet.MatchedBets, mb.ID)
		users.add(m.LayUser)
		matched = append(matched, mb)
	}

	bet.Users = users.list()

	return bet, matched
}

// addressSet keeps first-seen order.
type addressSet struct {
	seen  map[common.Address]struct{}
	order []common.Address
}

func (s *addressSet) add(addrs ...common.Address) {
	if s.seen == nil {
		s.seen = make(map[common.Address]struct{})
	}

	for _, a := range addrs {
		if _, ok := s.seen[a]; ok {
			continue
		}
		s.seen[a] = struct{}{}
		s.order = append(s.order, a)
	}
}

func (s *addressSet) list() []common.Address {
	if s.order == nil {
		return []common.Address{}
	}
	return s.order
}
