package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TablePointStats      = "point_stats"
	TablePointHolders    = "point_holders"
	TablePointMints      = "point_mints"
	TablePointBurns      = "point_burns"
	TablePointForceBurns = "point_force_burns"
	TablePointTransfers  = "point_transfers"
)

// PointStats is the global statistics record of the points token.
type PointStats struct {
	ID              string   `meddler:"id" json:"id"`
	TotalSupply     *big.Int `meddler:"total_supply,bigint" json:"totalSupply"`
	TotalHolders    uint64   `meddler:"total_holders" json:"totalHolders"`
	TotalMints      uint64   `meddler:"total_mints" json:"totalMints"`
	TotalBurns      uint64   `meddler:"total_burns" json:"totalBurns"`
	TotalForceBurns uint64   `meddler:"total_force_burns" json:"totalForceBurns"`
	TotalTransfers  uint64   `meddler:"total_transfers" json:"totalTransfers"`
	FirstMintAt     uint64   `meddler:"first_mint_at" json:"firstMintAt"`
	LastActivityAt  uint64   `meddler:"last_activity_at" json:"lastActivityAt"`
}

func NewPointStats() *PointStats {
	return &PointStats{ID: SingletonID, TotalSupply: Zero()}
}

func (s *PointStats) EntityType() string { return TablePointStats }
func (s *PointStats) EntityID() string   { return s.ID }

// PointHolder tracks one address's points balance.
type PointHolder struct {
	ID             string         `meddler:"id" json:"id"`
	Address        common.Address `meddler:"address,address" json:"address"`
	Balance        *big.Int       `meddler:"balance,bigint" json:"balance"`
	TotalReceived  *big.Int       `meddler:"total_received,bigint" json:"totalReceived"`
	TotalSent      *big.Int       `meddler:"total_sent,bigint" json:"totalSent"`
	TotalBurned    *big.Int       `meddler:"total_burned,bigint" json:"totalBurned"`
	FirstSeenAt    uint64         `meddler:"first_seen_at" json:"firstSeenAt"`
	LastActivityAt uint64         `meddler:"last_activity_at" json:"lastActivityAt"`
}

func NewPointHolder(address common.Address, seenAt uint64) *PointHolder {
	return &PointHolder{
		ID:             HolderID(address),
		Address:        address,
		Balance:        Zero(),
		TotalReceived:  Zero(),
		TotalSent:      Zero(),
		TotalBurned:    Zero(),
		FirstSeenAt:    seenAt,
		LastActivityAt: seenAt,
	}
}

func (h *PointHolder) EntityType() string { return TablePointHolders }
func (h *PointHolder) EntityID() string   { return h.ID }

// PointMint records newly issued points.
type PointMint struct {
	ID              string         `meddler:"id" json:"id"`
	To              common.Address `meddler:"to_address,address" json:"to"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	TotalSupply     *big.Int       `meddler:"total_supply,bigint" json:"totalSupply"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (m *PointMint) EntityType() string { return TablePointMints }
func (m *PointMint) EntityID() string   { return m.ID }

// PointBurn records points destroyed by their holder.
type PointBurn struct {
	ID              string         `meddler:"id" json:"id"`
	From            common.Address `meddler:"from_address,address" json:"from"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	TotalSupply     *big.Int       `meddler:"total_supply,bigint" json:"totalSupply"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (b *PointBurn) EntityType() string { return TablePointBurns }
func (b *PointBurn) EntityID() string   { return b.ID }

// PointForceBurn records points destroyed by an operator.
type PointForceBurn struct {
	ID              string         `meddler:"id" json:"id"`
	From            common.Address `meddler:"from_address,address" json:"from"`
	Burner          common.Address `meddler:"burner,address" json:"burner"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	TotalSupply     *big.Int       `meddler:"total_supply,bigint" json:"totalSupply"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (b *PointForceBurn) EntityType() string { return TablePointForceBurns }
func (b *PointForceBurn) EntityID() string   { return b.ID }

// PointTransfer records every Transfer log, mints and burns included.
type PointTransfer struct {
	ID              string         `meddler:"id" json:"id"`
	From            common.Address `meddler:"from_address,address" json:"from"`
	To              common.Address `meddler:"to_address,address" json:"to"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (t *PointTransfer) EntityType() string { return TablePointTransfers }
func (t *PointTransfer) EntityID() string   { return t.ID }
