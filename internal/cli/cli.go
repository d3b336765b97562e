// Package cli implements the tourplan command-line interface: it orders the
// stops of a problem file and prints the itinerary.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tourplan/internal/buildinfo"
	"tourplan/internal/config"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: config.NewLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "tourplan",
		Short:        "tourplan orders the stops of a single-vehicle itinerary",
		Long:         `tourplan finds a short visiting order for a set of stops with a fixed first and last stop, from a cost matrix or from coordinates.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.String() + "\n")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.versionCommand())
	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), buildinfo.String()+"\n")
			return err
		},
	}
}
