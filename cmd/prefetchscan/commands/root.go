// Package commands implements the prefetchscan CLI.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	log     *slog.Logger
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "prefetchscan",
		Short: "Create and scan record archives through a prefetch cache",
		Long: `prefetchscan writes fixed-size record archives and walks them
sequentially through a windowed prefetch cache, reporting throughput and
cache statistics.

Every setting can come from a YAML config file, a PREFETCH_* environment
variable or a flag. Flags win over the environment, which wins over the file.

Examples:
  # Create an archive of 100000 random 512 byte records
  prefetchscan create --archive /tmp/train.data --records 100000 --record-size 512

  # Scan it with 8 workers and a 32 entry window
  prefetchscan scan --archive /tmp/train.data --workers 8 --window 32

  # Same, configured from the environment
  PREFETCH_CACHE_WORKERS=8 PREFETCH_CACHE_WINDOW=32 prefetchscan scan --archive /tmp/train.data`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.String("log-level", "info", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (text|json)")
	pf.String("archive", "", "archive base path")
	a.bind(pf.Lookup("log-level"), "log.level")
	a.bind(pf.Lookup("log-format"), "log.format")
	a.bind(pf.Lookup("archive"), "archive.path")

	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}
