// Package arstorecmder
package arstorecmder

import (
	ingestcmder "github.com/ravenoak/autoresearch-sub001/cmd/arstore/ingest"
	versioncmder "github.com/ravenoak/autoresearch-sub001/cmd/arstore/version"
	"github.com/spf13/cobra"
)

const arstoreLongDesc string = `Arstore is a bounded-memory hybrid knowledge-graph store.

Claims, sources, and entities live in an in-memory graph kept under a
configurable RAM budget, shadowed by relational and triple-store backends
with optional vector search.

Run the ingest worker using:
  arstore ingest       Consume claims from the configured broker`

const arstoreShortDesc string = "Arstore - Bounded Knowledge Graph Store"

func NewArstoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arstore",
		Short: arstoreShortDesc,
		Long:  arstoreLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Directory containing config.toml")

	// Add subcommands
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
