package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TableCompetitions = "competitions"
	TableBets         = "bets"
	TableMatchedBets  = "matched_bets"
)

// Competition mirrors the on-chain state of one betting market.
// Bets lists the keys of the Bet records materialized by the last refresh.
type Competition struct {
	ID                          string           `meddler:"id" json:"id"`
	EventCenter                 common.Address   `meddler:"event_center,address" json:"eventCenter"`
	MatchID                     *big.Int         `meddler:"match_id,bigint" json:"matchId"`
	OpenStatus                  bool             `meddler:"open_status" json:"openStatus"`
	Host                        *big.Int         `meddler:"host,bigint" json:"host"`
	Guest                       *big.Int         `meddler:"guest,bigint" json:"guest"`
	Result                      *big.Int         `meddler:"result,bigint" json:"result"`
	CurrentBetID                *big.Int         `meddler:"current_bet_id,bigint" json:"currentBetId"`
	TotalAmountMatchedEffective *big.Int         `meddler:"total_amount_matched_effective,bigint" json:"totalAmountMatchedEffective"` //nolint:lll
	CompetitionPendingAmount    *big.Int         `meddler:"competition_pending_amount,bigint" json:"competitionPendingAmount"`
	Outright                    bool             `meddler:"outright" json:"outright"`
	Live                        bool             `meddler:"live" json:"live"`
	Hidden                      bool             `meddler:"hidden" json:"hidden"`
	Fee                         *big.Int         `meddler:"fee,bigint" json:"fee"`
	CompetitionsAddress         common.Address   `meddler:"competitions_address,address" json:"competitionsAddress"`
	StartDate                   *big.Int         `meddler:"start_date,bigint" json:"startDate"`
	AdditionalHome              string           `meddler:"additional_home" json:"additionalHome"`
	AdditionalAway              string           `meddler:"additional_away" json:"additionalAway"`
	BetType                     string           `meddler:"bet_type" json:"betType"`
	Preview                     bool             `meddler:"preview" json:"preview"`
	Users                       []common.Address `meddler:"users,json" json:"users"`
	Bets                        []string         `meddler:"bets,json" json:"bets"`
	UpdatedAtBlock              uint64           `meddler:"updated_at_block" json:"updatedAtBlock"`
}

func NewCompetition(competition common.Address) *Competition {
	return &Competition{
		ID:                          CompetitionID(competition),
		MatchID:                     Zero(),
		Host:                        Zero(),
		Guest:                       Zero(),
		Result:                      Zero(),
		CurrentBetID:                Zero(),
		TotalAmountMatchedEffective: Zero(),
		CompetitionPendingAmount:    Zero(),
		Fee:                         Zero(),
		StartDate:                   Zero(),
		Users:                       []common.Address{},
		Bets:                        []string{},
	}
}

func (c *Competition) EntityType() string { return TableCompetitions }
func (c *Competition) EntityID() string   { return c.ID }

// Bet is a back bet of a competition as of the last refresh.
type Bet struct {
	ID            string           `meddler:"id" json:"id"`
	Competition   string           `meddler:"competition" json:"competition"`
	BetID         *big.Int         `meddler:"bet_id,bigint" json:"betId"`
	BackUser      common.Address   `meddler:"back_user,address" json:"backUser"`
	Team          *big.Int         `meddler:"team,bigint" json:"team"`
	PendingAmount *big.Int         `meddler:"pending_amount,bigint" json:"pendingAmount"`
	TotalMatched  *big.Int         `meddler:"total_matched,bigint" json:"totalMatched"`
	Odd           *big.Int         `meddler:"odd,bigint" json:"odd"`
	EffectiveOdd  *big.Int         `meddler:"effective_odd,bigint" json:"effectiveOdd"`
	Collateral    *big.Int         `meddler:"collateral,bigint" json:"collateral"`
	Settled       bool             `meddler:"settled" json:"settled"`
	Users         []common.Address `meddler:"users,json" json:"users"`
	MatchedBets   []string         `meddler:"matched_bets,json" json:"matchedBets"`
}

func (b *Bet) EntityType() string { return TableBets }
func (b *Bet) EntityID() string   { return b.ID }

// MatchedBet is one lay position against a Bet.
type MatchedBet struct {
	ID      string         `meddler:"id" json:"id"`
	Bet     string         `meddler:"bet" json:"bet"`
	LayUser common.Address `meddler:"lay_user,address" json:"layUser"`
	Amount  *big.Int       `meddler:"amount,bigint" json:"amount"`
}

func (m *MatchedBet) EntityType() string { return TableMatchedBets }
func (m *MatchedBet) EntityID() string   { return m.ID }
