package vaults

import (
	"context"
	"math/big"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// aprScale converts the aggregator's basis-point style APR to the stored value.
var aprScale = big.NewInt(10000) //nolint:mnd

// spawnedKinds are instantiated for every vault the aggregator announces.
var spawnedKinds = []string{KindHover, KindAutoCompounder}

type aggregator struct{}

// NewAggregator builds the vault factory family.
func NewAggregator(config.DataSourceConfig, *logger.Logger) (*family.Definition, error) {
	h := &aggregator{}

	return family.NewDefinition(aggregatorABI, map[string]projection.HandlerFunc{
		"NewVault":    h.newVault,
		"UpdateVault": h.updateVault,
	})
}

func (h *aggregator) newVault(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	address := r.Address("vault")
	underlying := r.Address("underlying")
	decimals := r.Uint64("decimals")
	tokenName := r.String("tokenName")
	if err := r.Err(); err != nil {
		return err
	}

	// the vault type is set by whichever spawned family sees the first event
	v, _, err := store.GetOrCreate(ctx, hc.Store, entity.VaultID(address), func() *entity.Vault {
		created := entity.NewVault(address, "")
		created.CreatedAtBlock = hc.Event.BlockHeight
		return created
	})
	if err != nil {
		return err
	}

	v.Underlying = underlying
	v.Decimals = decimals
	v.TokenName = tokenName

	if err := hc.Store.Save(ctx, v); err != nil {
		return err
	}

	for _, kind := range spawnedKinds {
		if err := hc.Sources.Spawn(ctx, kind, address); err != nil {
			return err
		}
	}

	hc.Log.Infow("vault announced", "vault", v.ID, "tokenName", tokenName, "block", hc.Event.BlockHeight)

	return nil
}

func (h *aggregator) updateVault(ctx context.Context, hc *projection.HandlerContext) error {
	r := hc.Event.Params.Read()
	address := r.Address("vault")
	apr := r.BigInt("apr")
	tvl := r.BigInt("tvl")
	totalSupplied := r.BigInt("totalSupplied")
	totalBorrowed := r.BigInt("totalBorrowed")
	totalBorrowable := r.BigInt("totalBorrowable")
	lastCompoundTime := r.Uint64("lastCompounTime")
	if err := r.Err(); err != nil {
		return err
	}

	_, found, err := store.Get[entity.Vault](ctx, hc.Store, entity.VaultID(address))
	if err != nil {
		return err
	}
	if !found {
		hc.Warnw("update for unknown vault, ignoring", "entity", entity.TableVaults, "id", entity.VaultID(address))
		return nil
	}

	timestamp := hc.Event.BlockTimestamp
	info, _, err := store.GetOrCreate(ctx, hc.Store, entity.VaultInfoID(address, timestamp), func() *entity.VaultInfo {
		return entity.NewVaultInfo(address, timestamp)
	})
	if err != nil {
		return err
	}

	info.APR = new(big.Int).Quo(apr, aprScale)
	info.TVL = tvl
	info.TotalSupplied = totalSupplied
	info.TotalBorrowed = totalBorrowed
	info.TotalBorrowable = totalBorrowable
	info.LastCompoundTimestamp = lastCompoundTime

	return hc.Store.Save(ctx, info)
}
