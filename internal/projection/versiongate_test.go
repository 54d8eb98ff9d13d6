package projection

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
)

func TestVersionGate_Upgraded(t *testing.T) {
	t.Parallel()

	g := NewVersionGate(100, nil)
	require.False(t, g.Upgraded(99))
	require.True(t, g.Upgraded(100))
	require.True(t, g.Upgraded(101))

	require.True(t, NewVersionGate(0, nil).Upgraded(0))
}

func TestVersionGate_Resolve(t *testing.T) {
	t.Parallel()

	read := func(res contract.Result) func(context.Context) contract.Result {
		return func(context.Context) contract.Result { return res }
	}

	tests := []struct {
		name     string
		height   uint64
		read     func(context.Context) contract.Result
		want     int64
		strategy Strategy
	}{
		{
			name:   "pre-upgrade accumulates without reading",
			height: 99,
			read: func(context.Context) contract.Result {
				panic("read before upgrade")
			},
			want:     15,
			strategy: StrategyAccumulate,
		},
		{
			name:     "post-upgrade replaces with read",
			height:   100,
			read:     read(contract.Value(big.NewInt(42))),
			want:     42,
			strategy: StrategyAuthoritative,
		},
		{
			name:     "revert falls back",
			height:   150,
			read:     read(contract.Reverted()),
			want:     15,
			strategy: StrategyFallback,
		},
		{
			name:     "transport error falls back",
			height:   150,
			read:     read(contract.Result{Err: errors.New("timeout")}),
			want:     15,
			strategy: StrategyFallback,
		},
		{
			name:     "non-integer result falls back",
			height:   150,
			read:     read(contract.Value("x")),
			want:     15,
			strategy: StrategyFallback,
		},
		{
			name:     "no reader accumulates",
			height:   150,
			want:     15,
			strategy: StrategyAccumulate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
			g := NewVersionGate(100, log)

			got, strategy := g.Resolve(context.Background(), tt.height, VersionedField{
				Name:    "totalDeposited",
				Current: big.NewInt(10),
				Delta:   big.NewInt(5),
				Read:    tt.read,
			})

			require.Equal(t, tt.strategy, strategy)
			require.Equal(t, tt.want, got.Int64())
			require.Equal(t, tt.strategy == StrategyFallback, logs.Len() == 1)
		})
	}
}

// Replaying a stream that straddles the upgrade yields the plain sum of deltas, whether
// post-upgrade values come from reads, fallbacks, or a mixture of both.
func TestVersionGate_Continuity(t *testing.T) {
	t.Parallel()

	type deposit struct {
		height uint64
		amount int64
	}

	stream := []deposit{{90, 100}, {95, 250}, {99, 50}, {100, 1000}, {105, 5}, {110, 70}, {120, 300}}

	var direct int64
	for _, d := range stream {
		direct += d.amount
	}

	failures := map[string]map[uint64]bool{
		"all reads succeed": {},
		"some reads fail":   {105: true, 120: true},
		"every read fails":  {100: true, 105: true, 110: true, 120: true},
	}

	for name, failAt := range failures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g := NewVersionGate(100, nil)
			onChain := new(big.Int)
			stored := new(big.Int)

			for _, d := range stream {
				onChain.Add(onChain, big.NewInt(d.amount))
				chainValue := new(big.Int).Set(onChain)
				fail := failAt[d.height]

				stored, _ = g.Resolve(context.Background(), d.height, VersionedField{
					Name:    "totalDeposited",
					Current: stored,
					Delta:   big.NewInt(d.amount),
					Read: func(context.Context) contract.Result {
						if fail {
							return contract.Reverted()
						}
						return contract.Value(chainValue)
					},
				})
			}

			require.Equal(t, direct, stored.Int64())
		})
	}
}
