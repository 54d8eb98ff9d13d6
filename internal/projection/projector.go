package projection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	icommon "github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/entity"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// ErrOutOfOrder is returned when a chunk is not sorted by block height and log index.
var ErrOutOfOrder = errors.New("events out of order")

// Chunk is a contiguous block range worth of events, committed atomically.
type Chunk struct {
	Events []*event.Envelope
	// Checkpoint is the last block covered by the chunk
	Checkpoint uint64
	// Extend fetches the events of sources spawned while projecting, for the rest of the range.
	// Nil when the caller cannot fetch more (replay).
	Extend func(ctx context.Context, spawned []entity.SpawnedSource) ([]*event.Envelope, error)
}

// Outcome summarizes a projected chunk.
type Outcome struct {
	Projected int
	Skipped   int
	Spawned   []entity.SpawnedSource
}

// Projector applies chunks of events to the store.
type Projector struct {
	router    *Router
	store     store.Store
	templates map[string][]string
	log       *logger.Logger
}

// NewProjector creates a projector. templates are the configured data source templates
// that handlers may spawn.
func NewProjector(router *Router, st store.Store, templates []config.DataSourceConfig, log *logger.Logger) *Projector {
	byKind := make(map[string][]string)
	for _, t := range templates {
		byKind[t.Kind] = append(byKind[t.Kind], t.Name)
	}

	return &Projector{
		router:    router,
		store:     st,
		templates: byKind,
		log:       log.WithComponent(icommon.ComponentProjector),
	}
}

// Checkpoint returns the last committed block.
func (p *Projector) Checkpoint(ctx context.Context) (uint64, bool, error) {
	state, found, err := store.Get[entity.SyncState](ctx, p.store, entity.SingletonID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load sync state: %w", err)
	}

	if !found {
		return 0, false, nil
	}

	return state.LastBlock, true, nil
}

// SpawnedSources returns every template instance persisted so far.
func (p *Projector) SpawnedSources(ctx context.Context) ([]entity.SpawnedSource, error) {
	idx, found, err := store.Get[entity.SourceIndex](ctx, p.store, entity.SingletonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source index: %w", err)
	}

	if !found {
		return nil, nil
	}

	return idx.Sources, nil
}

// Project applies events that cannot spawn further fetches.
func (p *Projector) Project(ctx context.Context, events []*event.Envelope, checkpoint uint64) (*Outcome, error) {
	return p.ProjectChunk(ctx, Chunk{Events: events, Checkpoint: checkpoint})
}

// ProjectChunk applies every event of the chunk in order inside one transaction and
// records the checkpoint in the same transaction.
func (p *Projector) ProjectChunk(ctx context.Context, chunk Chunk) (*Outcome, error) {
	start := time.Now()

	if err := CheckOrder(chunk.Events); err != nil {
		return nil, err
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	outcome := &Outcome{}
	spawner := &txSpawner{projector: p, tx: tx}

	// queue[i+1:] stays sorted; events of sources spawned at queue[i] are merged into it.
	queue := slices.Clone(chunk.Events)
	for i := 0; i < len(queue); i++ {
		ev := queue[i]
		if err := p.apply(ctx, tx, spawner, ev, outcome); err != nil {
			return nil, err
		}

		fresh := spawner.drain()
		if len(fresh) == 0 {
			continue
		}
		outcome.Spawned = append(outcome.Spawned, fresh...)
		if chunk.Extend == nil {
			continue
		}

		extra, err := chunk.Extend(ctx, fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events of spawned sources: %w", err)
		}

		// a source only sees events ordered after the one that spawned it
		extra = slices.DeleteFunc(extra, func(e *event.Envelope) bool {
			return compareEnvelopes(e, ev) <= 0
		})
		if len(extra) == 0 {
			continue
		}

		rest := append(slices.Clone(queue[i+1:]), extra...)
		slices.SortStableFunc(rest, compareEnvelopes)
		queue = append(queue[:i+1], rest...)
	}

	state := entity.NewSyncState()
	state.LastBlock = chunk.Checkpoint
	state.UpdatedAt = time.Now().Unix()
	if err := tx.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chunk ending at %d: %w", chunk.Checkpoint, err)
	}

	LastProjectedBlockSet(chunk.Checkpoint)
	ChunkDuration(time.Since(start))

	p.log.Debugw("chunk projected",
		"checkpoint", chunk.Checkpoint,
		"projected", outcome.Projected,
		"skipped", outcome.Skipped,
		"spawned", len(outcome.Spawned),
		"duration", time.Since(start))

	return outcome, nil
}

func (p *Projector) apply(ctx context.Context, tx store.Tx, spawner *txSpawner,
	ev *event.Envelope, outcome *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	spawner.height = ev.BlockHeight
	hc := &HandlerContext{
		Event:   ev,
		Store:   tx,
		Log:     p.log,
		Sources: spawner,
	}

	handlerStart := time.Now()
	routed, err := p.router.Dispatch(ctx, hc)
	if !routed {
		outcome.Skipped++
		p.log.Debugw("no handler for event", "kind", ev.Kind, "block", ev.BlockHeight)
		return nil
	}
	HandlerDuration(ev.Kind, time.Since(handlerStart))

	if err != nil {
		if errors.Is(err, event.ErrInvalidParam) {
			outcome.Skipped++
			EventSkippedInc(SkipInvalidParam)
			hc.Warnw("skipping malformed event", "error", err)
			return nil
		}

		return fmt.Errorf("handler %s failed at block %d log %d: %w", ev.Kind, ev.BlockHeight, ev.LogIndex, err)
	}

	outcome.Projected++
	EventProjectedInc(ev.Kind)

	return nil
}

// CheckOrder verifies that events are in non-decreasing (height, log index) order.
func CheckOrder(events []*event.Envelope) error {
	for i := 1; i < len(events); i++ {
		if events[i].Before(events[i-1]) {
			return fmt.Errorf("%w: %s after %s", ErrOutOfOrder, events[i], events[i-1])
		}
	}
	return nil
}

// SortEvents orders events by block height and log index.
func SortEvents(events []*event.Envelope) {
	slices.SortStableFunc(events, compareEnvelopes)
}

func compareEnvelopes(a, b *event.Envelope) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

// txSpawner records template instances in the chunk's transaction.
type txSpawner struct {
	projector *Projector
	tx        store.Tx
	height    uint64
	pending   []entity.SpawnedSource
}

func (s *txSpawner) Spawn(ctx context.Context, templateKind string, address common.Address) error {
	names := s.projector.templates[templateKind]
	if len(names) == 0 {
		s.projector.log.Warnw("no template configured for kind, not spawning",
			"kind", templateKind, "address", address.Hex(), "block", s.height)
		return nil
	}

	idx, _, err := store.GetOrCreate(ctx, s.tx, entity.SingletonID, entity.NewSourceIndex)
	if err != nil {
		return fmt.Errorf("failed to load source index: %w", err)
	}

	added := false
	for _, name := range names {
		if idx.Contains(name, address) {
			continue
		}

		src := entity.SpawnedSource{Template: name, Address: address, StartBlock: s.height}
		idx.Sources = append(idx.Sources, src)
		s.pending = append(s.pending, src)
		added = true

		s.projector.log.Infow("template spawned", "template", name, "address", address.Hex(), "block", s.height)
	}

	if !added {
		return nil
	}

	if err := s.tx.Save(ctx, idx); err != nil {
		return fmt.Errorf("failed to save source index: %w", err)
	}

	return nil
}

func (s *txSpawner) drain() []entity.SpawnedSource {
	out := s.pending
	s.pending = nil
	return out
}
