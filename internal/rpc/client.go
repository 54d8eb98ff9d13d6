package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	pkgrpc "github.com/scrub-finance/scrub-indexer/pkg/rpc"
)

var _ pkgrpc.EthClient = (*Client)(nil)

// Client wraps go-ethereum's client with retries and request metrics.
type Client struct {
	eth       *ethclient.Client
	rpc       *rpc.Client
	retry     *config.RetryConfig
	batchSize int
	log       *logger.Logger
}

// NewClient dials the configured endpoint.
func NewClient(ctx context.Context, cfg config.SourceConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	return newClient(rpcClient, cfg, log), nil
}

func newClient(rpcClient *rpc.Client, cfg config.SourceConfig, log *logger.Logger) *Client {
	batchSize := cfg.HeaderBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Client{
		eth:       ethclient.NewClient(rpcClient),
		rpc:       rpcClient,
		retry:     cfg.Retry,
		batchSize: batchSize,
		log:       log.WithComponent(common.ComponentRPC),
	}
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) do(ctx context.Context, method string, fn func() error) error {
	start := time.Now()
	RPCMethodInc(method)

	err := retryWithBackoff(ctx, c.retry, method, fn)
	RPCMethodDuration(method, time.Since(start))

	if err != nil {
		RPCMethodError(method, errorType(err))
		c.log.Debugw("rpc call failed", "method", method, "error", err)
	}

	return err
}

func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.do(ctx, "eth_getLogs", func() (err error) {
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

func (c *Client) HeadHeader(ctx context.Context, finality pkgrpc.Finality) (*types.Header, error) {
	var number *big.Int
	switch finality {
	case pkgrpc.FinalityFinalized:
		number = big.NewInt(int64(rpc.FinalizedBlockNumber))
	case pkgrpc.FinalitySafe:
		number = big.NewInt(int64(rpc.SafeBlockNumber))
	case pkgrpc.FinalityLatest:
	default:
		return nil, fmt.Errorf("unsupported finality %q", finality)
	}

	var header *types.Header
	err := c.do(ctx, "eth_getBlockByNumber", func() (err error) {
		header, err = c.eth.HeaderByNumber(ctx, number)
		return err
	})
	return header, err
}

func (c *Client) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error) {
	headers := make([]*types.Header, 0, len(blockNums))

	for i := 0; i < len(blockNums); i += c.batchSize {
		chunk := blockNums[i:min(i+c.batchSize, len(blockNums))]

		results := make([]*types.Header, len(chunk))
		err := c.do(ctx, "eth_getBlockByNumber_batch", func() error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, blockNum := range chunk {
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByNumber",
					Args:   []any{toBlockNumArg(blockNum), false},
					Result: &results[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}

			for j, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
				if results[j] == nil {
					return fmt.Errorf("block %d not found", chunk[j])
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		headers = append(headers, results...)
	}

	return headers, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "eth_call", func() (err error) {
		out, err = c.eth.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}

func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}
