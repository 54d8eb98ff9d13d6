package vaults

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

const (
	scrubDefaultDecimals  = 6
	scrubDefaultTokenName = "USDT Vault"
)

type scrubVault struct {
	*source
}

// NewScrubVault builds the two-phase deposit vault family. Fees are counted once, when a
// request is processed, as the gross amount: deposits add amount+fee from the request,
// withdrawals add usdAmount+fee from the processing event.
func NewScrubVault(ds config.DataSourceConfig, log *logger.Logger) (*family.Definition, error) {
	h := &scrubVault{source: newSource(ds, entity.VaultTypeScrub, scrubDefaultDecimals, scrubDefaultTokenName, log)}

	return family.NewDefinition(scrubVaultABI, map[string]projection.HandlerFunc{
		"VaultInitialized":           h.vaultInitialized,
		"DepositRequested":           h.depositRequested,
		"DepositProcessed":           h.depositProcessed,
		"WithdrawalRequested":        h.withdrawalRequested,
		"WithdrawalProcessed":        h.withdrawalProcessed,
		"RewardDistributed":          h.rewardDistributed,
		"DepositFeeUpdated":          h.configUpdated("newFee", func(v *entity.Vault, n *big.Int) { v.DepositFee = n }),
		"WithdrawalFeeUpdated":       h.configUpdated("newFee", func(v *entity.Vault, n *big.Int) { v.WithdrawalFee = n }),
		"MinDepositUpdated":          h.configUpdated("newMin", func(v *entity.Vault, n *big.Int) { v.MinDeposit = n }),
		"MinWithdrawalSharesUpdated": h.configUpdated("newMin", func(v *entity.Vault, n *big.Int) { v.MinWithdrawalShares = n }),
	})
}

func (h *scrubVault) vaultInitialized(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	address := r.Address("vault")
	stablecoin := r.Address("stablecoin")
	strategy := r.Address("strategy")
	shareToken := r.Address("shareToken")
	treasury := r.Address("treasury")
	initialShareValue := r.BigInt("initialShareValue")
	if err := r.Err(); err != nil {
		return err
	}

	v, found, err := store.Get[entity.Vault](ctx, hc.Store, entity.VaultID(address))
	if err != nil {
		return err
	}
	if !found {
		v = h.newVault(address, hc.Event.BlockHeight)
	}

	v.VaultType = entity.VaultTypeScrub
	v.Underlying = stablecoin
	v.Strategy = strategy
	v.ShareToken = shareToken
	v.Treasury = treasury
	v.ShareValue = initialShareValue
	v.Paused = false
	v.DepositFee = h.readOrZero(ctx, hc, address, "depositFee")
	v.WithdrawalFee = h.readOrZero(ctx, hc, address, "withdrawalFee")
	v.MinDeposit = h.readOrZero(ctx, hc, address, "minDeposit")
	v.MinWithdrawalShares = h.readOrZero(ctx, hc, address, "minWithdrawalShares")

	hc.Log.Infow("scrub vault initialized", "vault", v.ID, "block", hc.Event.BlockHeight)

	return hc.Store.Save(ctx, v)
}

func (h *scrubVault) readOrZero(ctx context.Context, hc *projection.HandlerContext, address common.Address, method string) *big.Int {
	res := hc.Read(ctx, address, method)
	if n, ok := res.BigInt(); ok {
		return n
	}

	hc.Debugw("config read failed, defaulting to zero", "method", method, "reason", res.Failure())
	return entity.Zero()
}

// refreshShareValue replaces the share value with the contract's, keeping fallback
// (or the previous value when fallback is nil) if the read fails.
func (h *scrubVault) refreshShareValue(ctx context.Context, hc *projection.HandlerContext, v *entity.Vault,
	address common.Address, fallback *big.Int) {
	res := hc.Read(ctx, address, "shareValue")
	if n, ok := res.BigInt(); ok {
		v.ShareValue = n
		return
	}

	if fallback != nil {
		v.ShareValue = entity.Copy(fallback)
	}
	hc.Warnw("shareValue read failed, keeping event value", "field", "shareValue",
		"vault", v.ID, "value", v.ShareValue, "reason", res.Failure())
}

func (h *scrubVault) depositRequested(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	requestID := r.BigInt("depositId")
	user := r.Address("user")
	amount := r.BigInt("amount")
	fee := r.BigInt("fee")
	timestamp := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	id := entity.RequestID(address, requestID)

	_, exists, err := store.Get[entity.VaultDeposit](ctx, hc.Store, id)
	if err != nil {
		return err
	}
	if exists {
		hc.Warnw("deposit request already recorded, ignoring", "entity", entity.TableVaultDeposits, "id", id)
		return nil
	}

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	d := entity.NewVaultDeposit(id, address, user)
	d.RequestID = requestID
	d.Amount = amount
	d.Fee = fee
	d.Timestamp = timestamp
	d.RequestedAt = timestamp
	d.BlockNumber = hc.Event.BlockHeight
	d.TransactionHash = hc.Event.TransactionHash

	u.PendingDepositCount++
	u.LastInteractionTimestamp = timestamp

	return saveAll(ctx, hc, d, u, v)
}

func (h *scrubVault) depositProcessed(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	requestID := r.BigInt("depositId")
	user := r.Address("user")
	usdAmount := r.BigInt("usdAmount")
	sharesMinted := r.BigInt("sharesMinted")
	timestamp := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	id := entity.RequestID(address, requestID)

	d, found, err := store.Get[entity.VaultDeposit](ctx, hc.Store, id)
	if err != nil {
		return err
	}

	switch {
	case found && d.Status == entity.StatusProcessed:
		hc.Warnw("deposit already processed, ignoring", "entity", entity.TableVaultDeposits, "id", id)
		return nil
	case !found:
		hc.LookupMiss(entity.TableVaultDeposits, id)
		d = entity.NewVaultDeposit(id, address, user)
		d.RequestID = requestID
		d.Amount = usdAmount
		d.Timestamp = timestamp
		d.RequestedAt = timestamp
		d.BlockNumber = hc.Event.BlockHeight
		d.TransactionHash = hc.Event.TransactionHash
	}

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	d.Status = entity.StatusProcessed
	d.SharesMinted = sharesMinted
	d.ProcessedAt = timestamp

	if found {
		u.PendingDepositCount = decrement(hc, "vaultUser.pendingDepositCount", u.PendingDepositCount)
	}
	u.TotalDeposited = entity.Add(u.TotalDeposited, entity.Add(d.Amount, d.Fee))
	u.LastInteractionTimestamp = timestamp
	moveShares(hc, v, u, sharesMinted)

	v.TotalShares = entity.Add(v.TotalShares, sharesMinted)
	v.TVL = entity.Add(v.TVL, usdAmount)
	h.refreshShareValue(ctx, hc, v, address, nil)

	info, err := chartRow(ctx, hc, v, address, timestamp)
	if err != nil {
		return err
	}

	return saveAll(ctx, hc, d, u, v, info)
}

func (h *scrubVault) withdrawalRequested(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	requestID := r.BigInt("withdrawalId")
	user := r.Address("user")
	shares := r.BigInt("shares")
	expectedUsdAmount := r.BigInt("expectedUsdAmount")
	timestamp := r.Uint64("timestamp")
	canBeApprovedAt := r.Uint64("canBeApprovedAt")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	id := entity.RequestID(address, requestID)

	_, exists, err := store.Get[entity.VaultWithdraw](ctx, hc.Store, id)
	if err != nil {
		return err
	}
	if exists {
		hc.Warnw("withdrawal request already recorded, ignoring", "entity", entity.TableVaultWithdrawals, "id", id)
		return nil
	}

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	w := entity.NewVaultWithdraw(id, address, user)
	w.RequestID = requestID
	w.Shares = shares
	w.Amount = expectedUsdAmount
	w.Timestamp = timestamp
	w.RequestedAt = timestamp
	w.CanBeApprovedAt = canBeApprovedAt
	w.BlockNumber = hc.Event.BlockHeight
	w.TransactionHash = hc.Event.TransactionHash

	v.TotalPendingWithdrawalShares = entity.Add(v.TotalPendingWithdrawalShares, shares)
	u.PendingWithdrawalCount++
	u.LastInteractionTimestamp = timestamp

	return saveAll(ctx, hc, w, u, v)
}

func (h *scrubVault) withdrawalProcessed(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	requestID := r.BigInt("withdrawalId")
	user := r.Address("user")
	shares := r.BigInt("shares")
	usdAmount := r.BigInt("usdAmount")
	fee := r.BigInt("fee")
	timestamp := r.Uint64("timestamp")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	id := entity.RequestID(address, requestID)

	w, found, err := store.Get[entity.VaultWithdraw](ctx, hc.Store, id)
	if err != nil {
		return err
	}

	switch {
	case found && w.Status == entity.StatusProcessed:
		hc.Warnw("withdrawal already processed, ignoring", "entity", entity.TableVaultWithdrawals, "id", id)
		return nil
	case !found:
		hc.LookupMiss(entity.TableVaultWithdrawals, id)
		w = entity.NewVaultWithdraw(id, address, user)
		w.RequestID = requestID
		w.Timestamp = timestamp
		w.RequestedAt = timestamp
		w.BlockNumber = hc.Event.BlockHeight
		w.TransactionHash = hc.Event.TransactionHash
	}

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	w.Status = entity.StatusProcessed
	w.Shares = shares
	w.Amount = usdAmount
	w.Fee = fee
	w.ProcessedAt = timestamp

	if found {
		v.TotalPendingWithdrawalShares = subClamped(v.TotalPendingWithdrawalShares, shares)
		u.PendingWithdrawalCount = decrement(hc, "vaultUser.pendingWithdrawalCount", u.PendingWithdrawalCount)
	}

	gross := entity.Add(usdAmount, fee)
	u.TotalWithdrawn = entity.Add(u.TotalWithdrawn, gross)
	u.LastInteractionTimestamp = timestamp
	moveShares(hc, v, u, new(big.Int).Neg(shares))

	v.TotalShares = entity.Sub(v.TotalShares, shares)
	v.TVL = subClamped(v.TVL, gross)
	h.refreshShareValue(ctx, hc, v, address, nil)

	info, err := chartRow(ctx, hc, v, address, timestamp)
	if err != nil {
		return err
	}

	return saveAll(ctx, hc, w, u, v, info)
}

func (h *scrubVault) rewardDistributed(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	rewardAmount := r.BigInt("rewardAmount")
	newShareValue := r.BigInt("newShareValue")
	newTotalVaultValue := r.BigInt("newTotalVaultValue")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	timestamp := hc.Event.BlockTimestamp

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	reward := &entity.VaultReward{
		ID:              entity.EventID(hc.Event.TransactionHash, hc.Event.LogIndex),
		Vault:           v.ID,
		Reward:          rewardAmount,
		APR:             entity.Zero(),
		TotalValue:      newTotalVaultValue,
		Timestamp:       timestamp,
		BlockNumber:     hc.Event.BlockHeight,
		TransactionHash: hc.Event.TransactionHash,
	}

	if rewardAmount.Sign() < 0 {
		hc.Debugw("loss distributed", "vault", v.ID, "amount", rewardAmount)
	}

	v.TVL = entity.Copy(newTotalVaultValue)
	h.refreshShareValue(ctx, hc, v, address, newShareValue)

	info, err := chartRow(ctx, hc, v, address, timestamp)
	if err != nil {
		return err
	}

	return saveAll(ctx, hc, reward, v, info)
}

func (h *scrubVault) configUpdated(param string, apply func(v *entity.Vault, n *big.Int)) projection.HandlerFunc {
	return func(ctx context.Context, hc *projection.HandlerContext) error {
		n, err := hc.Event.Params.BigInt(param)
		if err != nil {
			return err
		}

		v, err := h.vault(ctx, hc, hc.Event.ContractAddress)
		if err != nil {
			return err
		}

		apply(v, n)

		return hc.Store.Save(ctx, v)
	}
}
