package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/rpc/mocks"
)

const testABI = `[
	{"type":"function","name":"shareValue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deposited","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var vault = common.HexToAddress("0x5abe7e4c5a1da2c5b7a7f1b3cc2a5e8e8b1f4c11")

type revertError struct{}

func (revertError) Error() string          { return "execution reverted" }
func (revertError) ErrorCode() int         { return 3 }
func (revertError) ErrorData() interface{} { return "0x08c379a0" }

func newBinding(t *testing.T) (*contract.Binding, *mocks.EthClient) {
	t.Helper()

	backend := mocks.NewEthClient(t)
	b, err := contract.NewBinding(testABI, backend)
	require.NoError(t, err)

	return b, backend
}

func TestBinding_TryCall_PinsEventBlock(t *testing.T) {
	t.Parallel()

	b, backend := newBinding(t)
	out, err := b.ABI().Methods["shareValue"].Outputs.Pack(big.NewInt(1_050_000))
	require.NoError(t, err)

	backend.EXPECT().
		CallContract(mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
			return msg.To != nil && *msg.To == vault
		}), big.NewInt(1234)).
		Return(out, nil).Once()

	res := b.AtBlock(1234).TryCall(context.Background(), vault, "shareValue")
	require.True(t, res.OK())

	v, ok := res.BigInt()
	require.True(t, ok)
	require.Equal(t, int64(1_050_000), v.Int64())
}

func TestBinding_TryCall_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		method       string
		callOut      []byte
		callErr      error
		wantReverted bool
		wantErr      bool
	}{
		{name: "revert with data", method: "shareValue", callErr: revertError{}, wantReverted: true},
		{name: "revert message only", method: "shareValue", callErr: errors.New("execution reverted: paused"), wantReverted: true},
		{name: "no code at address", method: "shareValue", callOut: []byte{}, wantReverted: true},
		{name: "transport failure", method: "shareValue", callErr: errors.New("all 5 attempts failed"), wantErr: true},
		{name: "unknown method", method: "totalCollateral", wantReverted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, backend := newBinding(t)
			if tt.method == "shareValue" {
				backend.EXPECT().CallContract(mock.Anything, mock.Anything, mock.Anything).
					Return(tt.callOut, tt.callErr).Once()
			}

			res := b.AtBlock(10).TryCall(context.Background(), vault, tt.method)
			require.False(t, res.OK())
			require.Equal(t, tt.wantReverted, res.Reverted)
			require.Equal(t, tt.wantErr, res.Err != nil)
			require.NotEmpty(t, res.Failure())

			_, ok := res.BigInt()
			require.False(t, ok)
		})
	}
}

func TestBinding_TryCall_PackError(t *testing.T) {
	t.Parallel()

	b, _ := newBinding(t)

	res := b.AtBlock(10).TryCall(context.Background(), vault, "deposited", "not-an-address")
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "failed to pack deposited")
}

func TestConvert(t *testing.T) {
	t.Parallel()

	type matched struct {
		LayUser common.Address
		Amount  *big.Int
	}

	decoded := []struct {
		LayUser common.Address `json:"layUser"`
		Amount  *big.Int       `json:"amount"`
	}{{LayUser: vault, Amount: big.NewInt(7)}}

	got, ok := contract.Convert[[]matched](decoded)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, vault, got[0].LayUser)
	require.Equal(t, int64(7), got[0].Amount.Int64())

	_, ok = contract.Convert[[]matched]("garbage")
	require.False(t, ok)
}
