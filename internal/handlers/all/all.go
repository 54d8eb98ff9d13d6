// Package all links every handler family into the binary.
package all

import (
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/bomb"
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/cave"
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/competitions"
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/points"
	_ "github.com/scrub-finance/scrub-indexer/internal/handlers/vaults"
)
