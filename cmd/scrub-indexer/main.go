package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/config"
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/all"
	"github.com/scrub-finance/scrub-indexer/internal/indexer"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/metrics"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/internal/rpc"
	"github.com/scrub-finance/scrub-indexer/internal/source"
	"github.com/scrub-finance/scrub-indexer/internal/storage"
	"github.com/scrub-finance/scrub-indexer/internal/storage/memory"
	pkgconfig "github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
	"github.com/scrub-finance/scrub-indexer/pkg/family"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

const version = "0.3.0"

var (
	configPath string
	eventsPath string
	dryRun     bool
	useRPC     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scrub-indexer",
	Short: "Projects Scrub protocol events into queryable entities",
	Long: `scrub-indexer follows the finalized head of the chain, decodes the logs of the
configured Scrub contracts and the vaults they deploy, and maintains vault, points,
cave, competition and bomb entities in the configured store.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runIndexer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Follow the chain and project events (default)",
	RunE:  runIndexer,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List handler families and the events they handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := family.ListRegistered()
		if len(kinds) == 0 {
			fmt.Println("(no handler families registered)")
			return nil
		}

		for _, kind := range kinds {
			def, err := family.Create(pkgconfig.DataSourceConfig{Name: kind, Kind: kind}, logger.NewNopLogger())
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", kind)
			for _, name := range def.Events() {
				fmt.Printf("  - %s\n", name)
			}
		}

		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Project decoded events from a JSON lines file",
	Long: `Replay reads one decoded event per line and projects them in a single transaction,
checkpointing at the block of the last event. With --dry-run the entities are kept in
memory and discarded.`,
	RunE: runReplay,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &jsonschema.Reflector{ExpandedStruct: true}
		out, err := json.MarshalIndent(r.Reflect(&pkgconfig.Config{}), "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	replayCmd.Flags().StringVarP(&eventsPath, "file", "f", "events.jsonl", "path to the JSON lines event file")
	replayCmd.Flags().BoolVar(&dryRun, "dry-run", false, "project into an in-memory store")
	replayCmd.Flags().BoolVar(&useRPC, "rpc", false, "serve contract reads from the configured RPC endpoint")

	rootCmd.AddCommand(runCmd, listCmd, replayCmd, schemaCmd)
}

// setup loads the configuration and installs the default logger.
func setup() (*pkgconfig.Config, *logger.Logger, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateKinds(family.IsRegistered); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentPoller, cfg.Logging)
	logger.SetDefaultLogger(log)

	return cfg, log, nil
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := rpc.NewClient(ctx, cfg.Source,
		logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()

	st, err := storage.Open(ctx, cfg.Store, logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close() //nolint:errcheck

	p, err := indexer.Build(cfg, st, client,
		logger.NewComponentLoggerFromConfig(common.ComponentProjector, cfg.Logging))
	if err != nil {
		return err
	}

	poller, err := source.New(cfg.Source, p.StartBlock, client, p.Decoder, p.Projector, log)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	metricsLog := logger.NewComponentLoggerFromConfig(common.ComponentMetrics, cfg.Logging)
	metricsServer := metrics.NewServer(cfg.Metrics, metricsLog)

	log.Infow("starting scrub-indexer",
		"version", version,
		"rpc_url", cfg.Source.RPCURL,
		"store", cfg.Store.Driver,
		"data_sources", len(cfg.DataSources))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metricsServer.Run(gctx)
	})
	g.Go(func() error {
		metrics.ComponentHealthSet(common.ComponentPoller, true)
		defer metrics.ComponentHealthSet(common.ComponentPoller, false)

		if err := poller.Run(gctx); err != nil {
			metrics.ErrorInc(common.ComponentPoller)
			return fmt.Errorf("poller failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorw("scrub-indexer stopped with error", "error", err)
		return err
	}

	log.Info("scrub-indexer stopped")
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck

	ctx := cmd.Context()

	var st store.Store
	if dryRun {
		st = memory.New()
	} else {
		st, err = storage.Open(ctx, cfg.Store, logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging))
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
	}
	defer st.Close() //nolint:errcheck

	var backend contract.Backend
	if useRPC {
		client, err := rpc.NewClient(ctx, cfg.Source,
			logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
		if err != nil {
			return fmt.Errorf("failed to create RPC client: %w", err)
		}
		defer client.Close()
		backend = client
	}

	p, err := indexer.Build(cfg, st, backend,
		logger.NewComponentLoggerFromConfig(common.ComponentProjector, cfg.Logging))
	if err != nil {
		return err
	}

	f, err := os.Open(eventsPath)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	events, err := p.Decoder.ReadJSONL(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", eventsPath, err)
	}

	if len(events) == 0 {
		log.Warnw("no events to replay", "file", eventsPath)
		return nil
	}

	projection.SortEvents(events)
	checkpoint := events[len(events)-1].BlockHeight

	outcome, err := p.Projector.Project(ctx, events, checkpoint)
	if err != nil {
		return err
	}

	log.Infow("replay finished",
		"file", eventsPath,
		"events", len(events),
		"projected", outcome.Projected,
		"skipped", outcome.Skipped,
		"spawned", len(outcome.Spawned),
		"checkpoint", checkpoint,
		"dry_run", dryRun)

	return nil
}

var _ contract.Backend = (*rpc.Client)(nil)
