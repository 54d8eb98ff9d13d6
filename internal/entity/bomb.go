package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TableBombs      = "bombs"
	TableBombResets = "bomb_resets"
)

// Bomb is one run of the jackpot game. Jackpot amounts are in whole tokens.
type Bomb struct {
	ID             string         `meddler:"id" json:"id"`
	Address        common.Address `meddler:"address,address" json:"address"`
	Run            *big.Int       `meddler:"run,bigint" json:"run"`
	CurrentJackpot *big.Int       `meddler:"current_jackpot,bigint" json:"currentJackpot"`
	CurrentWinner  common.Address `meddler:"current_winner,address" json:"currentWinner"`
	Exploded       bool           `meddler:"exploded" json:"exploded"`
	StartedAt      uint64         `meddler:"started_at" json:"startedAt"`
}

func NewBomb(address common.Address, run *big.Int) *Bomb {
	return &Bomb{
		ID:             BombID(address, run),
		Address:        address,
		Run:            Copy(run),
		CurrentJackpot: Zero(),
	}
}

func (b *Bomb) EntityType() string { return TableBombs }
func (b *Bomb) EntityID() string   { return b.ID }

// BombReset records a reset of the countdown by a new leader.
type BombReset struct {
	ID              string         `meddler:"id" json:"id"`
	Bomb            string         `meddler:"bomb" json:"bomb"`
	User            common.Address `meddler:"user_address,address" json:"user"`
	CurrentJackpot  *big.Int       `meddler:"current_jackpot,bigint" json:"currentJackpot"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (r *BombReset) EntityType() string { return TableBombResets }
func (r *BombReset) EntityID() string   { return r.ID }
