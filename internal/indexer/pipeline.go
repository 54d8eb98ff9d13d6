// Package indexer wires the configured data sources into the router, decoder and projector.
package indexer

import (
	"fmt"

	"github.com/scrub-finance/scrub-indexer/internal/decoder"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/event"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// Pipeline is the projection side of the indexer, shared by the poller and replays.
type Pipeline struct {
	Router    *projection.Router
	Decoder   *decoder.Decoder
	Projector *projection.Projector
	// StartBlock is the lowest start block of the fixed data sources
	StartBlock uint64
}

// Build instantiates every data source and template family. backend serves contract
// reads; when nil every read reports a revert.
func Build(cfg *config.Config, st store.Store, backend contract.Backend, log *logger.Logger) (*Pipeline, error) {
	p := &Pipeline{
		Router:  projection.NewRouter(),
		Decoder: decoder.New(log),
	}

	for i, ds := range cfg.DataSources {
		if err := p.add(cfg, ds, backend); err != nil {
			return nil, err
		}

		if _, err := p.Decoder.Bind(ds.ContractAddress(), ds.Name); err != nil {
			return nil, err
		}

		if i == 0 || ds.StartBlock < p.StartBlock {
			p.StartBlock = ds.StartBlock
		}
	}

	for _, tpl := range cfg.Templates {
		if err := p.add(cfg, tpl, backend); err != nil {
			return nil, err
		}
	}

	p.Projector = projection.NewProjector(p.Router, st, cfg.Templates, log)

	log.Infow("pipeline built",
		"data_sources", len(cfg.DataSources),
		"templates", len(cfg.Templates),
		"routes", len(p.Router.Kinds()),
		"start_block", p.StartBlock)

	return p, nil
}

func (p *Pipeline) add(cfg *config.Config, ds config.DataSourceConfig, backend contract.Backend) error {
	var logCfg logger.LoggingConfig
	if cfg.Logging != nil {
		logCfg = cfg.Logging
	}
	dsLog := logger.NewComponentLoggerFromConfig(ds.Name, logCfg)

	def, err := family.Create(ds, dsLog)
	if err != nil {
		return err
	}

	var binding *contract.Binding
	if backend != nil {
		binding = contract.NewBindingFromABI(def.ABI, backend)
	}

	for _, name := range def.Events() {
		route := projection.Route{Handler: def.Handlers[name], Contract: binding, Log: dsLog}
		if err := p.Router.Register(event.Kind(ds.Name, name), route); err != nil {
			return fmt.Errorf("data source %s: %w", ds.Name, err)
		}
	}

	p.Decoder.AddSource(ds.Name, def.ABI)

	return nil
}
