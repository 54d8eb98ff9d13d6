package vaults

import (
	"context"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
)

const (
	hoverDefaultDecimals  = 18
	hoverDefaultTokenName = "Hover"
)

type hover struct {
	*source
}

// NewHover builds the wind-and-check vault family.
func NewHover(ds config.DataSourceConfig, log *logger.Logger) (*family.Definition, error) {
	h := &hover{source: newSource(ds, entity.VaultTypeHover, hoverDefaultDecimals, hoverDefaultTokenName, log)}

	return family.NewDefinition(hoverABI, map[string]projection.HandlerFunc{
		"Deposit":            h.deposit,
		"Withdraw":           h.withdraw,
		"RewardDistribution": h.rewardDistribution,
	})
}

func (h *hover) deposit(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
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
	d.Status = entity.StatusProcessed
	d.Timestamp = timestamp
	d.RequestedAt = timestamp
	d.ProcessedAt = timestamp
	d.BlockNumber = hc.Event.BlockHeight
	d.TransactionHash = hc.Event.TransactionHash

	u.TotalDeposited = entity.Add(u.TotalDeposited, amount)
	u.LastInteractionTimestamp = timestamp

	return saveAll(ctx, hc, d, u, v)
}

func (h *hover) withdraw(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	user := r.Address("user")
	amount := r.BigInt("amount")
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
	w.Status = entity.StatusProcessed
	w.Timestamp = timestamp
	w.RequestedAt = timestamp
	w.ProcessedAt = timestamp
	w.BlockNumber = hc.Event.BlockHeight
	w.TransactionHash = hc.Event.TransactionHash

	u.TotalWithdrawn = entity.Add(u.TotalWithdrawn, amount)
	u.LastInteractionTimestamp = timestamp

	return saveAll(ctx, hc, w, u, v)
}

// rewardDistribution is decoded so the log is not counted as unknown; the contract
// stopped emitting meaningful values and nothing is recorded.
func (h *hover) rewardDistribution(_ context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	amount := r.BigInt("amount")
	apy := r.BigInt("apy")
	if err := r.Err(); err != nil {
		return err
	}

	hc.Debugw("hover reward distribution ignored", "amount", amount, "apy", apy)
	return nil
}
