package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

const (
	TableSyncState   = "sync_state"
	TableSourceIndex = "source_index"
)

// SyncState is the projection checkpoint, written in the same transaction as the entities.
type SyncState struct {
	ID        string `meddler:"id" json:"id"`
	LastBlock uint64 `meddler:"last_block" json:"lastBlock"`
	UpdatedAt int64  `meddler:"updated_at" json:"updatedAt"`
}

func NewSyncState() *SyncState {
	return &SyncState{ID: SingletonID}
}

func (s *SyncState) EntityType() string { return TableSyncState }
func (s *SyncState) EntityID() string   { return s.ID }

// SpawnedSource is a template instantiated for a discovered contract.
type SpawnedSource struct {
	Template   string         `json:"template"`
	Address    common.Address `json:"address"`
	StartBlock uint64         `json:"startBlock"`
}

// SourceIndex lists every spawned source so they survive restarts.
type SourceIndex struct {
	ID      string          `meddler:"id" json:"id"`
	Sources []SpawnedSource `meddler:"sources,json" json:"sources"`
}

func NewSourceIndex() *SourceIndex {
	return &SourceIndex{ID: SingletonID, Sources: []SpawnedSource{}}
}

// Contains reports whether template is already bound to address.
func (s *SourceIndex) Contains(template string, address common.Address) bool {
	for _, src := range s.Sources {
		if src.Template == template && src.Address == address {
			return true
		}
	}
	return false
}

func (s *SourceIndex) EntityType() string { return TableSourceIndex }
func (s *SourceIndex) EntityID() string   { return s.ID }
