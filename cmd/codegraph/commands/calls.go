package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"codegraph/internal/callgraph"
	"codegraph/internal/config"
	"codegraph/internal/report"
	"codegraph/internal/workspace"
)

var (
	callsLang   string
	callsOut    string
	callsFormat string
)

var callsCmd = &cobra.Command{
	Use:   "calls [root]",
	Short: "Build a call graph via definition lookups (the regex call-site variant)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runCalls(root)
	},
}

func init() {
	callsCmd.Flags().StringVar(&callsLang, "lang", "", "Language override (py|ts|c|cpp); auto-detected if empty")
	callsCmd.Flags().StringVarP(&callsOut, "out", "o", "", "Output file (defaults to stdout)")
	callsCmd.Flags().StringVar(&callsFormat, "format", "lines", "Output format: lines|dot")
}

func runCalls(root string) error {
	ctx := context.Background()

	out := os.Stdout
	if callsOut != "" {
		f, err := os.Create(callsOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	pcfg, err := config.Load(root)
	if err != nil {
		return err
	}

	override := serverOverrideFor(pcfg, callsLang)
	ws, err := workspace.Bootstrap(ctx, root, callsLang, override, pcfg.IgnoreGlobs...)
	if err != nil {
		return err
	}
	defer ws.Shutdown(ctx)

	cfg := callgraph.DefaultConfig()
	cfg.Concurrency = pcfg.Concurrency
	if t := pcfg.RequestTimeout(); t > 0 {
		cfg.DefaultTimeout = t
	}
	cfg.MaxStallRestarts = pcfg.MaxStallRestarts
	cfg.ServerOverride = serverOverrideFor(pcfg, ws.Client.Lang())

	edges, err := callgraph.HarvestCalls(ctx, ws, cfg)
	if err != nil {
		return err
	}

	return report.WriteEdges(out, edges.Edges(), report.Format(callsFormat))
}
