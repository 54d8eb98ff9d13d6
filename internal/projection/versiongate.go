package projection

import (
	"context"
	"math/big"

	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
)

// Strategy tells how a versioned field got its new value.
type Strategy string

const (
	StrategyAccumulate    Strategy = "accumulate"
	StrategyAuthoritative Strategy = "authoritative"
	StrategyFallback      Strategy = "fallback"
)

// VersionedField is one running total maintained across a contract upgrade.
type VersionedField struct {
	// Name labels logs and metrics
	Name string
	// Current is the stored value before this event
	Current *big.Int
	// Delta is this event's contribution, negative for outflows
	Delta *big.Int
	// Read queries the authoritative value; only called after the upgrade
	Read func(ctx context.Context) contract.Result
}

// VersionGate switches running totals from event accumulation to authoritative
// contract reads at UpgradeBlock. Zero means reads are available from genesis.
type VersionGate struct {
	UpgradeBlock uint64
	Log          *logger.Logger
}

func NewVersionGate(upgradeBlock uint64, log *logger.Logger) *VersionGate {
	return &VersionGate{UpgradeBlock: upgradeBlock, Log: log}
}

// Upgraded reports whether the contract at height exposes authoritative reads.
func (g *VersionGate) Upgraded(height uint64) bool {
	return height >= g.UpgradeBlock
}

// Resolve computes the field's new value at height. A failed read degrades to
// accumulation for this event only.
func (g *VersionGate) Resolve(ctx context.Context, height uint64, f VersionedField) (*big.Int, Strategy) {
	accumulated := entity.Add(f.Current, f.Delta)

	if !g.Upgraded(height) || f.Read == nil {
		return accumulated, StrategyAccumulate
	}

	res := f.Read(ctx)
	if v, ok := res.BigInt(); ok {
		return v, StrategyAuthoritative
	}

	VersionFallbackInc(f.Name)
	if g.Log != nil {
		g.Log.Warnw("authoritative read failed after upgrade, accumulating",
			"field", f.Name, "block", height, "upgradeBlock", g.UpgradeBlock, "reason", res.Failure())
	}

	return accumulated, StrategyFallback
}
