package common

const (
	ComponentPoller      = "poller"
	ComponentDecoder     = "decoder"
	ComponentProjector   = "projector"
	ComponentRouter      = "router"
	ComponentStore       = "store"
	ComponentMaintenance = "maintenance"
	ComponentRPC         = "rpc"
	ComponentMetrics     = "metrics"
)

// AllComponents lists the component names accepted in logging.component_levels.
// Handler families log under their data source name and are validated separately.
var AllComponents = map[string]struct{}{
	ComponentPoller:      {},
	ComponentDecoder:     {},
	ComponentProjector:   {},
	ComponentRouter:      {},
	ComponentStore:       {},
	ComponentMaintenance: {},
	ComponentRPC:         {},
	ComponentMetrics:     {},
}
