package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TableCaveStats             = "cave_stats"
	TableCaveUsers             = "cave_users"
	TableCaveDeposits          = "cave_deposits"
	TableCaveWithdrawals       = "cave_withdrawals"
	TableCavePurchases         = "cave_purchases"
	TableCaveClaims            = "cave_claims"
	TableCavePriceUpdates      = "cave_price_updates"
	TableCaveInventoryDeposits = "cave_inventory_deposits"
)

// CaveStats aggregates the points cave.
type CaveStats struct {
	ID                   string   `meddler:"id" json:"id"`
	TotalShares          *big.Int `meddler:"total_shares,bigint" json:"totalShares"`
	TotalDeposits        *big.Int `meddler:"total_deposits,bigint" json:"totalDeposits"`
	TotalWithdrawals     *big.Int `meddler:"total_withdrawals,bigint" json:"totalWithdrawals"`
	TotalInventory       *big.Int `meddler:"total_inventory,bigint" json:"totalInventory"`
	TotalPointsSold      *big.Int `meddler:"total_points_sold,bigint" json:"totalPointsSold"`
	TotalUsdtCollected   *big.Int `meddler:"total_usdt_collected,bigint" json:"totalUsdtCollected"`
	CurrentPrice         *big.Int `meddler:"current_price,bigint" json:"currentPrice"`
	UniqueDepositors     uint64   `meddler:"unique_depositors" json:"uniqueDepositors"`
	UniqueBuyers         uint64   `meddler:"unique_buyers" json:"uniqueBuyers"`
	UniqueClaimers       uint64   `meddler:"unique_claimers" json:"uniqueClaimers"`
	TotalDepositCount    uint64   `meddler:"total_deposit_count" json:"totalDepositCount"`
	TotalWithdrawalCount uint64   `meddler:"total_withdrawal_count" json:"totalWithdrawalCount"`
	TotalPurchaseCount   uint64   `meddler:"total_purchase_count" json:"totalPurchaseCount"`
	TotalClaimCount      uint64   `meddler:"total_claim_count" json:"totalClaimCount"`
	PriceUpdateCount     uint64   `meddler:"price_update_count" json:"priceUpdateCount"`
	FirstActivityAt      uint64   `meddler:"first_activity_at" json:"firstActivityAt"`
	LastActivityAt       uint64   `meddler:"last_activity_at" json:"lastActivityAt"`
}

func NewCaveStats() *CaveStats {
	return &CaveStats{
		ID:                 SingletonID,
		TotalShares:        Zero(),
		TotalDeposits:      Zero(),
		TotalWithdrawals:   Zero(),
		TotalInventory:     Zero(),
		TotalPointsSold:    Zero(),
		TotalUsdtCollected: Zero(),
		CurrentPrice:       Zero(),
	}
}

// Touch records activity at ts.
func (s *CaveStats) Touch(ts uint64) {
	if s.FirstActivityAt == 0 {
		s.FirstActivityAt = ts
	}
	s.LastActivityAt = ts
}

func (s *CaveStats) EntityType() string { return TableCaveStats }
func (s *CaveStats) EntityID() string   { return s.ID }

// CaveUser is one participant of the cave.
type CaveUser struct {
	ID                   string         `meddler:"id" json:"id"`
	Address              common.Address `meddler:"address,address" json:"address"`
	TotalDeposits        *big.Int       `meddler:"total_deposits,bigint" json:"totalDeposits"`
	TotalDepositCount    uint64         `meddler:"total_deposit_count" json:"totalDepositCount"`
	TotalWithdrawals     *big.Int       `meddler:"total_withdrawals,bigint" json:"totalWithdrawals"`
	TotalWithdrawalCount uint64         `meddler:"total_withdrawal_count" json:"totalWithdrawalCount"`
	CurrentShares        *big.Int       `meddler:"current_shares,bigint" json:"currentShares"`
	TotalPointsPurchased *big.Int       `meddler:"total_points_purchased,bigint" json:"totalPointsPurchased"`
	TotalUsdtSpent       *big.Int       `meddler:"total_usdt_spent,bigint" json:"totalUsdtSpent"`
	PurchaseCount        uint64         `meddler:"purchase_count" json:"purchaseCount"`
	TotalUsdtClaimed     *big.Int       `meddler:"total_usdt_claimed,bigint" json:"totalUsdtClaimed"`
	ClaimCount           uint64         `meddler:"claim_count" json:"claimCount"`
	FirstActivityAt      uint64         `meddler:"first_activity_at" json:"firstActivityAt"`
	LastActivityAt       uint64         `meddler:"last_activity_at" json:"lastActivityAt"`
}

func NewCaveUser(address common.Address, ts uint64) *CaveUser {
	return &CaveUser{
		ID:                   CaveUserID(address),
		Address:              address,
		TotalDeposits:        Zero(),
		TotalWithdrawals:     Zero(),
		CurrentShares:        Zero(),
		TotalPointsPurchased: Zero(),
		TotalUsdtSpent:       Zero(),
		TotalUsdtClaimed:     Zero(),
		FirstActivityAt:      ts,
		LastActivityAt:       ts,
	}
}

func (u *CaveUser) EntityType() string { return TableCaveUsers }
func (u *CaveUser) EntityID() string   { return u.ID }

type CaveDeposit struct {
	ID               string      `meddler:"id" json:"id"`
	User             string      `meddler:"user_id" json:"user"`
	PointAmount      *big.Int    `meddler:"point_amount,bigint" json:"pointAmount"`
	SharesReceived   *big.Int    `meddler:"shares_received,bigint" json:"sharesReceived"`
	TotalSharesAfter *big.Int    `meddler:"total_shares_after,bigint" json:"totalSharesAfter"`
	Timestamp        uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber      uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash  common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (d *CaveDeposit) EntityType() string { return TableCaveDeposits }
func (d *CaveDeposit) EntityID() string   { return d.ID }

type CaveWithdrawal struct {
	ID               string      `meddler:"id" json:"id"`
	User             string      `meddler:"user_id" json:"user"`
	SharesBurned     *big.Int    `meddler:"shares_burned,bigint" json:"sharesBurned"`
	PointsReceived   *big.Int    `meddler:"points_received,bigint" json:"pointsReceived"`
	TotalSharesAfter *big.Int    `meddler:"total_shares_after,bigint" json:"totalSharesAfter"`
	Timestamp        uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber      uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash  common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (w *CaveWithdrawal) EntityType() string { return TableCaveWithdrawals }
func (w *CaveWithdrawal) EntityID() string   { return w.ID }

type CavePointPurchase struct {
	ID              string      `meddler:"id" json:"id"`
	Buyer           string      `meddler:"buyer_id" json:"buyer"`
	PointAmount     *big.Int    `meddler:"point_amount,bigint" json:"pointAmount"`
	UsdtPaid        *big.Int    `meddler:"usdt_paid,bigint" json:"usdtPaid"`
	PricePerToken   *big.Int    `meddler:"price_per_token,bigint" json:"pricePerToken"`
	Timestamp       uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (p *CavePointPurchase) EntityType() string { return TableCavePurchases }
func (p *CavePointPurchase) EntityID() string   { return p.ID }

type CaveUsdtClaim struct {
	ID                 string      `meddler:"id" json:"id"`
	User               string      `meddler:"user_id" json:"user"`
	Amount             *big.Int    `meddler:"amount,bigint" json:"amount"`
	TotalClaimedByUser *big.Int    `meddler:"total_claimed_by_user,bigint" json:"totalClaimedByUser"`
	Timestamp          uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber        uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash    common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (c *CaveUsdtClaim) EntityType() string { return TableCaveClaims }
func (c *CaveUsdtClaim) EntityID() string   { return c.ID }

type CavePriceUpdate struct {
	ID              string      `meddler:"id" json:"id"`
	OldPrice        *big.Int    `meddler:"old_price,bigint" json:"oldPrice"`
	NewPrice        *big.Int    `meddler:"new_price,bigint" json:"newPrice"`
	Timestamp       uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (p *CavePriceUpdate) EntityType() string { return TableCavePriceUpdates }
func (p *CavePriceUpdate) EntityID() string   { return p.ID }

type CaveInventoryDeposit struct {
	ID                  string         `meddler:"id" json:"id"`
	Owner               common.Address `meddler:"owner,address" json:"owner"`
	Amount              *big.Int       `meddler:"amount,bigint" json:"amount"`
	TotalInventoryAfter *big.Int       `meddler:"total_inventory_after,bigint" json:"totalInventoryAfter"`
	Timestamp           uint64         `meddler:"timestamp" json:"timestamp"`
	BlockNumber         uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash     common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (d *CaveInventoryDeposit) EntityType() string { return TableCaveInventoryDeposits }
func (d *CaveInventoryDeposit) EntityID() string   { return d.ID }
