package vaults

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
)

const (
	autoCompounderDefaultDecimals  = 18
	autoCompounderDefaultTokenName = "Auto-Compounder"
)

type autoCompounder struct {
	*source
}

// NewAutoCompounder builds the instant-deposit vault family. Past the data source's upgrade
// block the user totals, total shares and TVL are read from the contract; before it, or
// when a read fails, they accumulate from event deltas. Deposits and withdrawals refresh
// both user totals.
func NewAutoCompounder(ds config.DataSourceConfig, log *logger.Logger) (*family.Definition, error) {
	h := &autoCompounder{source: newSource(ds, entity.VaultTypeAutoCompounder,
		autoCompounderDefaultDecimals, autoCompounderDefaultTokenName, log)}

	return family.NewDefinition(autoCompounderABI, map[string]projection.HandlerFunc{
		"Deposit":  h.deposit,
		"Withdraw": h.withdraw,
		"Compound": h.compound,
	})
}

// vault creates missing auto-compounder vaults at a share value of one.
func (h *autoCompounder) vault(ctx context.Context, hc *projection.HandlerContext,
	address common.Address) (*entity.Vault, error) {
	v, err := h.source.vault(ctx, hc, address)
	if err != nil {
		return nil, err
	}

	if v.ShareValue.Sign() == 0 {
		v.ShareValue = new(big.Int).Set(oneShare)
	}

	return v, nil
}

func (h *autoCompounder) reader(hc *projection.HandlerContext, to common.Address, method string,
	args ...any) func(context.Context) contract.Result {
	return func(ctx context.Context) contract.Result {
		return hc.Read(ctx, to, method, args...)
	}
}

func (h *autoCompounder) resolve(ctx context.Context, hc *projection.HandlerContext, name string,
	current, delta *big.Int, read func(context.Context) contract.Result) *big.Int {
	value, _ := h.gate.Resolve(ctx, hc.Event.BlockHeight, projection.VersionedField{
		Name:    name,
		Current: current,
		Delta:   delta,
		Read:    read,
	})
	return value
}

func (h *autoCompounder) deposit(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
	shares := r.BigInt("shares")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	timestamp := hc.Event.BlockTimestamp

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	d := entity.NewVaultDeposit(entity.EventID(hc.Event.TransactionHash, hc.Event.LogIndex), address, user)
	d.Amount = amount
	d.SharesMinted = shares
	d.Status = entity.StatusProcessed
	d.Timestamp = timestamp
	d.RequestedAt = timestamp
	d.ProcessedAt = timestamp
	d.BlockNumber = hc.Event.BlockHeight
	d.TransactionHash = hc.Event.TransactionHash

	u.TotalDeposited = h.resolve(ctx, hc, "totalDeposited", u.TotalDeposited, amount,
		h.reader(hc, address, "deposited", user))
	u.TotalWithdrawn = h.resolve(ctx, hc, "totalWithdrawn", u.TotalWithdrawn, entity.Zero(),
		h.reader(hc, address, "withdrawn", user))
	u.LastInteractionTimestamp = timestamp
	moveShares(hc, v, u, shares)

	v.TotalShares = h.resolve(ctx, hc, "totalShares", v.TotalShares, shares, h.reader(hc, address, "totalSupply"))
	v.TVL = h.resolve(ctx, hc, "tvl", v.TVL, amount, h.reader(hc, address, "totalCollateral"))

	return saveAll(ctx, hc, d, u, v)
}

func (h *autoCompounder) withdraw(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
	shares := r.BigInt("shares")
	if err := r.Err(); err != nil {
		return err
	}

	address := hc.Event.ContractAddress
	timestamp := hc.Event.BlockTimestamp

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	u, err := vaultUser(ctx, hc, address, user)
	if err != nil {
		return err
	}

	w := entity.NewVaultWithdraw(entity.EventID(hc.Event.TransactionHash, hc.Event.LogIndex), address, user)
	w.Amount = amount
	w.Shares = shares
	w.Status = entity.StatusProcessed
	w.Timestamp = timestamp
	w.RequestedAt = timestamp
	w.ProcessedAt = timestamp
	w.BlockNumber = hc.Event.BlockHeight
	w.TransactionHash = hc.Event.TransactionHash

	u.TotalWithdrawn = h.resolve(ctx, hc, "totalWithdrawn", u.TotalWithdrawn, amount,
		h.reader(hc, address, "withdrawn", user))
	u.TotalDeposited = h.resolve(ctx, hc, "totalDeposited", u.TotalDeposited, entity.Zero(),
		h.reader(hc, address, "deposited", user))
	u.LastInteractionTimestamp = timestamp
	moveShares(hc, v, u, new(big.Int).Neg(shares))

	v.TotalShares = h.resolve(ctx, hc, "totalShares", v.TotalShares, new(big.Int).Neg(shares),
		h.reader(hc, address, "totalSupply"))
	v.TVL = h.resolve(ctx, hc, "tvl", v.TVL, new(big.Int).Neg(amount), h.reader(hc, address, "totalCollateral"))

	return saveAll(ctx, hc, w, u, v)
}

func (h *autoCompounder) compound(ctx context.Context, hc *projection.HandlerContext) error {
	timestamp, err := hc.Event.Params.Uint64("timestamp")
	if err != nil {
		return err
	}

	address := hc.Event.ContractAddress

	v, err := h.vault(ctx, hc, address)
	if err != nil {
		return err
	}

	v.TVL = h.resolve(ctx, hc, "tvl", v.TVL, entity.Zero(), h.reader(hc, address, "totalCollateral"))
	v.LastCompoundTimestamp = timestamp

	return saveAll(ctx, hc, v)
}
