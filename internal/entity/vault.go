package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	VaultTypeScrub          = "scrub"
	VaultTypeHover          = "hover"
	VaultTypeAutoCompounder = "auto-compounder"

	StatusPending   = "pending"
	StatusProcessed = "processed"
)

const (
	TableVaults           = "vaults"
	TableVaultUsers       = "vault_users"
	TableVaultDeposits    = "vault_deposits"
	TableVaultWithdrawals = "vault_withdrawals"
	TableVaultRewards     = "vault_rewards"
	TableVaultInfos       = "vault_infos"
)

// Vault is a deposit vault of any sub-protocol.
type Vault struct {
	ID                           string         `meddler:"id" json:"id"`
	VaultType                    string         `meddler:"vault_type" json:"vaultType"`
	Underlying                   common.Address `meddler:"underlying,address" json:"underlying"`
	ShareToken                   common.Address `meddler:"share_token,address" json:"shareToken"`
	Strategy                     common.Address `meddler:"strategy,address" json:"strategy"`
	Treasury                     common.Address `meddler:"treasury,address" json:"treasury"`
	Decimals                     uint64         `meddler:"decimals" json:"decimals"`
	TokenName                    string         `meddler:"token_name" json:"tokenName"`
	TotalShares                  *big.Int       `meddler:"total_shares,bigint" json:"totalShares"`
	ShareValue                   *big.Int       `meddler:"share_value,bigint" json:"shareValue"`
	TotalUsers                   uint64         `meddler:"total_users" json:"totalUsers"`
	TotalPendingWithdrawalShares *big.Int       `meddler:"total_pending_withdrawal_shares,bigint" json:"totalPendingWithdrawalShares"` //nolint:lll
	DepositFee                   *big.Int       `meddler:"deposit_fee,bigint" json:"depositFee"`
	WithdrawalFee                *big.Int       `meddler:"withdrawal_fee,bigint" json:"withdrawalFee"`
	MinDeposit                   *big.Int       `meddler:"min_deposit,bigint" json:"minDeposit"`
	MinWithdrawalShares          *big.Int       `meddler:"min_withdrawal_shares,bigint" json:"minWithdrawalShares"`
	TVL                          *big.Int       `meddler:"tvl,bigint" json:"tvl"`
	Paused                       bool           `meddler:"paused" json:"paused"`
	LastCompoundTimestamp        uint64         `meddler:"last_compound_timestamp" json:"lastCompoundTimestamp"`
	CreatedAtBlock               uint64         `meddler:"created_at_block" json:"createdAtBlock"`
}

// NewVault returns a vault with every counter at zero.
func NewVault(address common.Address, vaultType string) *Vault {
	return &Vault{
		ID:                           VaultID(address),
		VaultType:                    vaultType,
		TotalShares:                  Zero(),
		ShareValue:                   Zero(),
		TotalPendingWithdrawalShares: Zero(),
		DepositFee:                   Zero(),
		WithdrawalFee:                Zero(),
		MinDeposit:                   Zero(),
		MinWithdrawalShares:          Zero(),
		TVL:                          Zero(),
	}
}

func (v *Vault) EntityType() string { return TableVaults }
func (v *Vault) EntityID() string   { return v.ID }

// VaultUser is a user's position in one vault.
type VaultUser struct {
	ID                       string         `meddler:"id" json:"id"`
	Vault                    string         `meddler:"vault" json:"vault"`
	User                     common.Address `meddler:"user_address,address" json:"user"`
	ShareBalance             *big.Int       `meddler:"share_balance,bigint" json:"shareBalance"`
	PendingDepositCount      uint64         `meddler:"pending_deposit_count" json:"pendingDepositCount"`
	PendingWithdrawalCount   uint64         `meddler:"pending_withdrawal_count" json:"pendingWithdrawalCount"`
	TotalDeposited           *big.Int       `meddler:"total_deposited,bigint" json:"totalDeposited"`
	TotalWithdrawn           *big.Int       `meddler:"total_withdrawn,bigint" json:"totalWithdrawn"`
	LastInteractionTimestamp uint64         `meddler:"last_interaction_timestamp" json:"lastInteractionTimestamp"`
}

func NewVaultUser(vault, user common.Address) *VaultUser {
	return &VaultUser{
		ID:             VaultUserID(vault, user),
		Vault:          VaultID(vault),
		User:           user,
		ShareBalance:   Zero(),
		TotalDeposited: Zero(),
		TotalWithdrawn: Zero(),
	}
}

func (u *VaultUser) EntityType() string { return TableVaultUsers }
func (u *VaultUser) EntityID() string   { return u.ID }

// VaultDeposit is a deposit request or an instant deposit.
type VaultDeposit struct {
	ID              string         `meddler:"id" json:"id"`
	Vault           string         `meddler:"vault" json:"vault"`
	User            common.Address `meddler:"user_address,address" json:"user"`
	RequestID       *big.Int       `meddler:"request_id,bigint" json:"requestId"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	Fee             *big.Int       `meddler:"fee,bigint" json:"fee"`
	SharesMinted    *big.Int       `meddler:"shares_minted,bigint" json:"sharesMinted"`
	Status          string         `meddler:"status" json:"status"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	RequestedAt     uint64         `meddler:"requested_at" json:"requestedAt"`
	ProcessedAt     uint64         `meddler:"processed_at" json:"processedAt"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func NewVaultDeposit(id string, vault, user common.Address) *VaultDeposit {
	return &VaultDeposit{
		ID:           id,
		Vault:        VaultID(vault),
		User:         user,
		RequestID:    Zero(),
		Amount:       Zero(),
		Fee:          Zero(),
		SharesMinted: Zero(),
		Status:       StatusPending,
	}
}

func (d *VaultDeposit) EntityType() string { return TableVaultDeposits }
func (d *VaultDeposit) EntityID() string   { return d.ID }

// VaultWithdraw is a withdrawal request or an instant withdrawal.
type VaultWithdraw struct {
	ID              string         `meddler:"id" json:"id"`
	Vault           string         `meddler:"vault" json:"vault"`
	User            common.Address `meddler:"user_address,address" json:"user"`
	RequestID       *big.Int       `meddler:"request_id,bigint" json:"requestId"`
	Shares          *big.Int       `meddler:"shares,bigint" json:"shares"`
	Amount          *big.Int       `meddler:"amount,bigint" json:"amount"`
	Fee             *big.Int       `meddler:"fee,bigint" json:"fee"`
	Status          string         `meddler:"status" json:"status"`
	Timestamp       uint64         `meddler:"timestamp" json:"timestamp"`
	RequestedAt     uint64         `meddler:"requested_at" json:"requestedAt"`
	CanBeApprovedAt uint64         `meddler:"can_be_approved_at" json:"canBeApprovedAt"`
	ProcessedAt     uint64         `meddler:"processed_at" json:"processedAt"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash    `meddler:"tx_hash,hash" json:"transactionHash"`
}

func NewVaultWithdraw(id string, vault, user common.Address) *VaultWithdraw {
	return &VaultWithdraw{
		ID:        id,
		Vault:     VaultID(vault),
		User:      user,
		RequestID: Zero(),
		Shares:    Zero(),
		Amount:    Zero(),
		Fee:       Zero(),
		Status:    StatusPending,
	}
}

func (w *VaultWithdraw) EntityType() string { return TableVaultWithdrawals }
func (w *VaultWithdraw) EntityID() string   { return w.ID }

// VaultReward records a reward distribution; Reward is negative for a loss.
type VaultReward struct {
	ID              string      `meddler:"id" json:"id"`
	Vault           string      `meddler:"vault" json:"vault"`
	Reward          *big.Int    `meddler:"reward,bigint" json:"reward"`
	APR             *big.Int    `meddler:"apr,bigint" json:"apr"`
	TotalValue      *big.Int    `meddler:"total_value,bigint" json:"totalValue"`
	Timestamp       uint64      `meddler:"timestamp" json:"timestamp"`
	BlockNumber     uint64      `meddler:"block_number" json:"blockNumber"`
	TransactionHash common.Hash `meddler:"tx_hash,hash" json:"transactionHash"`
}

func (r *VaultReward) EntityType() string { return TableVaultRewards }
func (r *VaultReward) EntityID() string   { return r.ID }

// VaultInfo is a point-in-time chart row for a vault.
type VaultInfo struct {
	ID                    string   `meddler:"id" json:"id"`
	Vault                 string   `meddler:"vault" json:"vault"`
	Timestamp             uint64   `meddler:"timestamp" json:"timestamp"`
	TVL                   *big.Int `meddler:"tvl,bigint" json:"tvl"`
	APR                   *big.Int `meddler:"apr,bigint" json:"apr"`
	TotalSupplied         *big.Int `meddler:"total_supplied,bigint" json:"totalSupplied"`
	TotalBorrowed         *big.Int `meddler:"total_borrowed,bigint" json:"totalBorrowed"`
	TotalBorrowable       *big.Int `meddler:"total_borrowable,bigint" json:"totalBorrowable"`
	LastCompoundTimestamp uint64   `meddler:"last_compound_timestamp" json:"lastCompoundTimestamp"`
}

func NewVaultInfo(vault common.Address, timestamp uint64) *VaultInfo {
	return &VaultInfo{
		ID:              VaultInfoID(vault, timestamp),
		Vault:           VaultID(vault),
		Timestamp:       timestamp,
		TVL:             Zero(),
		APR:             Zero(),
		TotalSupplied:   Zero(),
		TotalBorrowed:   Zero(),
		TotalBorrowable: Zero(),
	}
}

func (i *VaultInfo) EntityType() string { return TableVaultInfos }
func (i *VaultInfo) EntityID() string   { return i.ID }
