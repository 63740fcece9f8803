package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/battmon/internal/config"
)

type options struct {
	log         bool
	graph       bool
	export      string
	writeConfig bool
	configPath  string
	verbose     bool
	topics      string
}

func (o options) anyMode() bool {
	return o.writeConfig || o.log || o.export != "" || o.graph
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "battmon:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	root := &cobra.Command{
		Use:   "battmon",
		Short: "Log battery telemetry and chart its history",
		Long: `battmon records the state of every battery under the power_supply sysfs
tree into one log file per battery, and charts the recorded history.

Run "battmon --log" from a timer to build up history, and "battmon --graph"
to view it. Modes combine and run in the order write-config, log, export,
graph.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !o.anyMode() {
				return cmd.Help()
			}
			return run(cmd, o)
		},
	}

	f := root.Flags()
	f.BoolVarP(&o.log, "log", "l", false, "append the current state of every battery to its log")
	f.BoolVarP(&o.graph, "graph", "g", false, "open the history window")
	f.StringVar(&o.export, "export", "", "copy the full history into the SQLite database at `path`")
	f.BoolVar(&o.writeConfig, "write-config", false, "write the effective config to the --config path")
	f.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "config file; defaults apply when it does not exist")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable all debug topics")
	f.StringVar(&o.topics, "topics", "", "comma-separated debug topics: reader,store,metrics,export,gui (or 'all')")

	return root
}

func run(cmd *cobra.Command, o options) error {
	logger := newLogger(cmd.ErrOrStderr(), o.verbose, o.topics)

	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", o.configPath, err)
	}

	if o.writeConfig {
		if err := config.Save(o.configPath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", o.configPath)
	}
	if o.log {
		if err := runLog(cfg, logger); err != nil {
			return err
		}
	}
	if o.export != "" {
		if err := runExport(cfg, o.export, cmd.OutOrStdout(), logger); err != nil {
			return err
		}
	}
	if o.graph {
		runWindow(cfg, logger)
	}
	return nil
}
