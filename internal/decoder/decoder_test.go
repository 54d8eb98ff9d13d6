package decoder_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/decoder"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
)

const vaultABI = `[
  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"shares","type":"uint256","indexed":false}]},
  {"type":"event","name":"Paused","anonymous":false,"inputs":[
    {"name":"paused","type":"bool","indexed":false},
    {"name":"reason","type":"string","indexed":false},
    {"name":"code","type":"uint8","indexed":false}]}
]`

const otherABI = `[
  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"shares","type":"uint256","indexed":false}]}
]`

var (
	vault = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func mustABI(t *testing.T, s string) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(s))
	require.NoError(t, err)
	return parsed
}

func depositLog(t *testing.T, parsed abi.ABI, amount, shares int64) types.Log {
	t.Helper()

	ev := parsed.Events["Deposit"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(amount), big.NewInt(shares))
	require.NoError(t, err)

	return types.Log{
		Address:     vault,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(alice.Bytes())},
		Data:        data,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xbeef"),
		Index:       3,
	}
}

func newDecoder(t *testing.T) (*decoder.Decoder, abi.ABI) {
	t.Helper()

	parsed := mustABI(t, vaultABI)
	d := decoder.New(logger.NewNopLogger())
	d.AddSource("vault", parsed)

	added, err := d.Bind(vault, "vault")
	require.NoError(t, err)
	require.True(t, added)

	return d, parsed
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	d, parsed := newDecoder(t)

	out := d.Decode(depositLog(t, parsed, 100, 90), 1_700_000_000)
	require.Len(t, out, 1)

	env := out[0]
	require.Equal(t, "vault.Deposit", env.Kind)
	require.Equal(t, vault, env.ContractAddress)
	require.Equal(t, uint64(42), env.BlockHeight)
	require.Equal(t, uint64(1_700_000_000), env.BlockTimestamp)
	require.Equal(t, uint(3), env.LogIndex)

	user, err := env.Params.Address("user")
	require.NoError(t, err)
	require.Equal(t, alice, user)

	amount, err := env.Params.BigInt("amount")
	require.NoError(t, err)
	require.Equal(t, int64(100), amount.Int64())
}

func TestDecoder_Bind(t *testing.T) {
	t.Parallel()

	d, _ := newDecoder(t)

	added, err := d.Bind(vault, "vault")
	require.NoError(t, err)
	require.False(t, added, "rebinding is a no-op")

	_, err = d.Bind(alice, "missing")
	require.ErrorContains(t, err, "unknown source")

	require.Equal(t, []common.Address{vault}, d.Addresses())
}

func TestDecoder_SharedAddress(t *testing.T) {
	t.Parallel()

	d, parsed := newDecoder(t)
	d.AddSource("other", mustABI(t, otherABI))
	_, err := d.Bind(vault, "other")
	require.NoError(t, err)

	out := d.Decode(depositLog(t, parsed, 1, 1), 0)
	require.Len(t, out, 2)
	require.Equal(t, "vault.Deposit", out[0].Kind)
	require.Equal(t, "other.Deposit", out[1].Kind)
}

func TestDecoder_Skips(t *testing.T) {
	t.Parallel()

	d, parsed := newDecoder(t)
	good := depositLog(t, parsed, 1, 1)

	tests := []struct {
		name   string
		mutate func(lg *types.Log)
	}{
		{"unknown address", func(lg *types.Log) { lg.Address = alice }},
		{"unknown topic", func(lg *types.Log) { lg.Topics[0] = common.HexToHash("0x01") }},
		{"no topics", func(lg *types.Log) { lg.Topics = nil }},
		{"removed", func(lg *types.Log) { lg.Removed = true }},
		{"truncated data", func(lg *types.Log) { lg.Data = lg.Data[:32] }},
		{"missing indexed topic", func(lg *types.Log) { lg.Topics = lg.Topics[:1] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := good
			lg.Topics = append([]common.Hash(nil), good.Topics...)
			tt.mutate(&lg)

			require.Empty(t, d.Decode(lg, 0))
		})
	}
}

func TestDecoder_ReadJSONL(t *testing.T) {
	t.Parallel()

	d, _ := newDecoder(t)

	input := `
{"source":"vault","event":"Deposit","address":"0x00000000000000000000000000000000000000a1","blockNumber":7,"timestamp":1700000007,"txHash":"0x01","logIndex":0,"params":{"user":"0x00000000000000000000000000000000000000c1","amount":"1000000000000000000000","shares":"0x10"}}

{"source":"vault","event":"Paused","address":"0x00000000000000000000000000000000000000a1","blockNumber":8,"timestamp":1700000008,"txHash":"0x02","logIndex":1,"params":{"paused":true,"reason":"upgrade","code":3}}
`

	events, err := d.ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)

	amount, err := events[0].Params.BigInt("amount")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", amount.String())

	shares, err := events[0].Params.Uint64("shares")
	require.NoError(t, err)
	require.Equal(t, uint64(16), shares)

	user, err := events[0].Params.Address("user")
	require.NoError(t, err)
	require.Equal(t, alice, user)

	require.Equal(t, "vault.Paused", events[1].Kind)
	paused, err := events[1].Params.Bool("paused")
	require.NoError(t, err)
	require.True(t, paused)

	reason, err := events[1].Params.String("reason")
	require.NoError(t, err)
	require.Equal(t, "upgrade", reason)

	code, err := events[1].Params.Uint64("code")
	require.NoError(t, err)
	require.Equal(t, uint64(3), code)
}

func TestDecoder_ReadJSONLErrors(t *testing.T) {
	t.Parallel()

	d, _ := newDecoder(t)

	tests := []struct {
		name  string
		line  string
		error string
	}{
		{"bad json", `{"source":`, "line 1"},
		{"unknown source", `{"source":"nope","event":"Deposit","address":"0x00000000000000000000000000000000000000a1"}`, "unknown source"},
		{"unknown event", `{"source":"vault","event":"Nope","address":"0x00000000000000000000000000000000000000a1"}`, "no event"},
		{"bad address", `{"source":"vault","event":"Deposit","address":"0x12"}`, "invalid address"},
		{"unknown param", `{"source":"vault","event":"Deposit","address":"0x00000000000000000000000000000000000000a1","params":{"x":1}}`, "no argument"},
		{"bad integer", `{"source":"vault","event":"Deposit","address":"0x00000000000000000000000000000000000000a1","params":{"amount":"ten"}}`, "invalid integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ReadJSONL(strings.NewReader(tt.line))
			require.ErrorContains(t, err, tt.error)
		})
	}
}
