// Package source pulls finalized logs from the chain in chunks and hands them to the
// projector, one transaction per chunk.
package source

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	icommon "github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/decoder"
	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	irpc "github.com/scrub-finance/scrub-indexer/internal/rpc"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/rpc"
)

// Projector is the part of the projection engine the poller drives.
type Projector interface {
	Checkpoint(ctx context.Context) (uint64, bool, error)
	SpawnedSources(ctx context.Context) ([]entity.SpawnedSource, error)
	ProjectChunk(ctx context.Context, chunk projection.Chunk) (*projection.Outcome, error)
}

// Poller follows the safe head of the chain.
type Poller struct {
	cfg        config.SourceConfig
	finality   rpc.Finality
	client     rpc.EthClient
	decoder    *decoder.Decoder
	projector  Projector
	startBlock uint64
	log        *logger.Logger
}

// New creates a poller. startBlock is the lowest start block of the configured data sources.
func New(cfg config.SourceConfig, startBlock uint64, client rpc.EthClient, dec *decoder.Decoder,
	projector Projector, log *logger.Logger) (*Poller, error) {
	finality, err := rpc.ParseFinality(cfg.Finality)
	if err != nil {
		return nil, err
	}

	if cfg.ChunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}

	return &Poller{
		cfg:        cfg,
		finality:   finality,
		client:     client,
		decoder:    dec,
		projector:  projector,
		startBlock: startBlock,
		log:        log.WithComponent(icommon.ComponentPoller),
	}, nil
}

// Resume binds the template instances recorded so far and returns the next block to fetch.
func (p *Poller) Resume(ctx context.Context) (uint64, error) {
	spawned, err := p.projector.SpawnedSources(ctx)
	if err != nil {
		return 0, err
	}

	for _, src := range spawned {
		if _, err := p.decoder.Bind(src.Address, src.Template); err != nil {
			return 0, fmt.Errorf("failed to restore %s at %s: %w", src.Template, src.Address.Hex(), err)
		}
	}

	next := p.startBlock
	checkpoint, found, err := p.projector.Checkpoint(ctx)
	if err != nil {
		return 0, err
	}

	if found && checkpoint+1 > next {
		next = checkpoint + 1
	}

	p.log.Infow("resuming",
		"next_block", next,
		"checkpoint", checkpoint,
		"has_checkpoint", found,
		"spawned_sources", len(spawned))

	return next, nil
}

// Run polls until ctx is cancelled. Projection failures are returned; the next start
// resumes from the last committed checkpoint.
func (p *Poller) Run(ctx context.Context) error {
	next, err := p.Resume(ctx)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		head, err := p.SafeHead(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve safe head: %w", err)
		}

		if next > head {
			p.log.Debugw("waiting for new blocks", "next_block", next, "safe_head", head)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.PollInterval.Duration):
			}
			continue
		}

		to := min(next+p.cfg.ChunkSize-1, head)
		if err := p.Step(ctx, next, to); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		next = to + 1
	}
}

// SafeHead returns the highest block the poller may read.
func (p *Poller) SafeHead(ctx context.Context) (uint64, error) {
	header, err := p.client.HeadHeader(ctx, p.finality)
	if err != nil {
		return 0, err
	}

	head := header.Number.Uint64()
	if p.finality == rpc.FinalityLatest {
		if head < p.cfg.FinalizedLag {
			return 0, nil
		}
		head -= p.cfg.FinalizedLag
	}

	return head, nil
}

// Step fetches and projects the range [from, to].
func (p *Poller) Step(ctx context.Context, from, to uint64) error {
	start := time.Now()

	events, err := p.fetch(ctx, from, to, p.decoder.Addresses(), nil)
	if err != nil {
		return err
	}

	outcome, err := p.projector.ProjectChunk(ctx, projection.Chunk{
		Events:     events,
		Checkpoint: to,
		Extend: func(ctx context.Context, spawned []entity.SpawnedSource) ([]*event.Envelope, error) {
			return p.extend(ctx, from, to, spawned)
		},
	})
	if err != nil {
		return err
	}

	chunkFetchedInc(to - from + 1)

	p.log.Infow("chunk indexed",
		"from_block", from,
		"to_block", to,
		"events", len(events),
		"projected", outcome.Projected,
		"skipped", outcome.Skipped,
		"spawned", len(outcome.Spawned),
		"duration", time.Since(start))

	return nil
}

type binding struct {
	address common.Address
	source  string
}

// extend binds freshly spawned sources and returns their events up to the end of the chunk.
func (p *Poller) extend(ctx context.Context, from, to uint64, spawned []entity.SpawnedSource) ([]*event.Envelope, error) {
	fresh := make(map[binding]uint64)
	var addresses []common.Address
	lowest := to + 1

	for _, src := range spawned {
		added, err := p.decoder.Bind(src.Address, src.Template)
		if err != nil {
			return nil, err
		}
		if !added {
			continue
		}

		begin := max(src.StartBlock, from)
		fresh[binding{address: src.Address, source: src.Template}] = begin
		lowest = min(lowest, begin)
		if !slices.Contains(addresses, src.Address) {
			addresses = append(addresses, src.Address)
		}
	}

	if len(fresh) == 0 || lowest > to {
		return nil, nil
	}

	// Addresses may already be bound to other sources whose events this chunk has seen.
	keep := func(ev *event.Envelope) bool {
		begin, ok := fresh[binding{address: ev.ContractAddress, source: ev.Source()}]
		return ok && ev.BlockHeight >= begin
	}

	return p.fetch(ctx, lowest, to, addresses, keep)
}

// fetch returns the decoded, ordered events of addresses in [from, to].
func (p *Poller) fetch(ctx context.Context, from, to uint64, addresses []common.Address,
	keep func(*event.Envelope) bool) ([]*event.Envelope, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	logs, err := p.getLogs(ctx, from, to, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for blocks %d-%d: %w", from, to, err)
	}

	if len(logs) == 0 {
		return nil, nil
	}

	timestamps, err := p.timestamps(ctx, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers for blocks %d-%d: %w", from, to, err)
	}

	events := make([]*event.Envelope, 0, len(logs))
	for _, lg := range logs {
		for _, ev := range p.decoder.Decode(lg, timestamps[lg.BlockNumber]) {
			if keep == nil || keep(ev) {
				events = append(events, ev)
			}
		}
	}

	projection.SortEvents(events)

	return events, nil
}

// getLogs splits the range while the node reports too many results.
func (p *Poller) getLogs(ctx context.Context, from, to uint64, addresses []common.Address) ([]types.Log, error) {
	logs, err := p.client.GetLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
	})
	if err == nil {
		return logs, nil
	}

	tooMany, data := irpc.IsTooManyResultsError(err)
	if !tooMany {
		return nil, err
	}

	if from == to {
		return nil, fmt.Errorf("cannot split range further, block %d has too many logs: %w", from, err)
	}

	mid := from + (to-from)/2 //nolint:mnd
	if sFrom, sTo, ok := irpc.ParseSuggestedBlockRange(data); ok && sFrom == from && sTo >= from && sTo < to {
		mid = sTo
	}

	p.log.Infow("too many logs, splitting range",
		"from_block", from,
		"to_block", to,
		"split_at", mid)

	left, err := p.getLogs(ctx, from, mid, addresses)
	if err != nil {
		return nil, err
	}

	right, err := p.getLogs(ctx, mid+1, to, addresses)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

func (p *Poller) timestamps(ctx context.Context, logs []types.Log) (map[uint64]uint64, error) {
	var numbers []uint64
	for _, lg := range logs {
		numbers = append(numbers, lg.BlockNumber)
	}
	slices.Sort(numbers)
	numbers = slices.Compact(numbers)

	headers, err := p.client.BatchGetBlockHeaders(ctx, numbers)
	if err != nil {
		return nil, err
	}

	if len(headers) != len(numbers) {
		return nil, fmt.Errorf("requested %d headers, got %d", len(numbers), len(headers))
	}

	out := make(map[uint64]uint64, len(numbers))
	for i, h := range headers {
		if h == nil {
			return nil, fmt.Errorf("missing header for block %d", numbers[i])
		}
		out[numbers[i]] = h.Time
	}

	return out, nil
}
