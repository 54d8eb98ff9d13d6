// Package vaults projects the deposit vault families: the two-phase scrub vault,
// auto-compounders and hover vaults, and the aggregator that spawns the latter two.
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

// Family kinds.
const (
	KindScrubVault     = "scrub-vault"
	KindAutoCompounder = "auto-compounder"
	KindHover          = "hover"
	KindAggregator     = "aggregator"
)

func init() {
	family.Register(KindScrubVault, NewScrubVault)
	family.Register(KindAutoCompounder, NewAutoCompounder)
	family.Register(KindHover, NewHover)
	family.Register(KindAggregator, NewAggregator)
}

// oneShare is the share value of a freshly created auto-compounder vault.
var oneShare = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) //nolint:mnd

// source carries the per data source settings shared by the vault handlers.
type source struct {
	vaultType string
	decimals  uint64
	tokenName string
	gate      *projection.VersionGate
	log       *logger.Logger
}

func newSource(ds config.DataSourceConfig, vaultType string, decimals uint64, tokenName string,
	log *logger.Logger) *source {
	if ds.Vault != nil {
		if ds.Vault.Decimals != 0 {
			decimals = ds.Vault.Decimals
		}
		if ds.Vault.TokenName != "" {
			tokenName = ds.Vault.TokenName
		}
	}

	return &source{
		vaultType: vaultType,
		decimals:  decimals,
		tokenName: tokenName,
		gate:      projection.NewVersionGate(ds.UpgradeBlock, log),
		log:       log,
	}
}

func (s *source) newVault(address common.Address, block uint64) *entity.Vault {
	v := entity.NewVault(address, s.vaultType)
	v.Decimals = s.decimals
	v.TokenName = s.tokenName
	v.CreatedAtBlock = block
	return v
}

// vault loads the vault at address, creating it with the source defaults on a lookup miss.
func (s *source) vault(ctx context.Context, hc *projection.HandlerContext, address common.Address) (*entity.Vault, error) {
	v, created, err := store.GetOrCreate(ctx, hc.Store, entity.VaultID(address), func() *entity.Vault {
		return s.newVault(address, hc.Event.BlockHeight)
	})
	if err != nil {
		return nil, err
	}

	if created {
		hc.LookupMiss(entity.TableVaults, v.ID)
	}

	if v.VaultType == "" {
		v.VaultType = s.vaultType
	}

	return v, nil
}

func vaultUser(ctx context.Context, hc *projection.HandlerContext, vault, user common.Address) (*entity.VaultUser, error) {
	u, _, err := store.GetOrCreate(ctx, hc.Store, entity.VaultUserID(vault, user), func() *entity.VaultUser {
		return entity.NewVaultUser(vault, user)
	})
	return u, err
}

// moveShares changes a user's share balance and keeps vault.totalUsers in step with
// balances entering or leaving zero.
func moveShares(hc *projection.HandlerContext, v *entity.Vault, u *entity.VaultUser, delta *big.Int) {
	prev := entity.Copy(u.ShareBalance)
	next := entity.Add(prev, delta)

	if next.Sign() < 0 {
		hc.Warnw("share balance would go negative, clamping to zero",
			"entity", entity.TableVaultUsers, "id", u.ID, "balance", prev, "delta", delta)
		next = entity.Zero()
	}

	u.ShareBalance = next
	v.TotalUsers = projection.ApplyTransition(hc.Log, "vault.totalUsers", v.TotalUsers, projection.Transition(prev, next))
}

// decrement lowers a pending counter, flagging an underflow.
func decrement(hc *projection.HandlerContext, name string, n uint64) uint64 {
	return projection.ApplyTransition(hc.Log, name, n, -1)
}

// subClamped returns a-b, or zero when b exceeds a.
func subClamped(a, b *big.Int) *big.Int {
	d := entity.Sub(a, b)
	if d.Sign() < 0 {
		return entity.Zero()
	}
	return d
}

func saveAll(ctx context.Context, hc *projection.HandlerContext, entities ...store.Entity) error {
	for _, e := range entities {
		if err := hc.Store.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// chartRow merges the vault state into its chart row for timestamp. Rows are shared with
// aggregator updates in the same second, so only the fields the vault owns are touched.
func chartRow(ctx context.Context, hc *projection.HandlerContext, v *entity.Vault, address common.Address,
	timestamp uint64) (*entity.VaultInfo, error) {
	info, _, err := store.GetOrCreate(ctx, hc.Store, entity.VaultInfoID(address, timestamp), func() *entity.VaultInfo {
		return entity.NewVaultInfo(address, timestamp)
	})
	if err != nil {
		return nil, err
	}

	info.TVL = entity.Copy(v.TVL)
	info.TotalSupplied = entity.Copy(v.TotalShares)
	info.LastCompoundTimestamp = v.LastCompoundTimestamp
	return info, nil
}
