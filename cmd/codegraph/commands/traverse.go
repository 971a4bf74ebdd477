package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codegraph/internal/callgraph"
	"codegraph/internal/report"
)

var (
	traverseDepth     int
	traverseDirection string
	traverseIn        string
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <seed...>",
	Short: "Compute the transitive closure of seed locations over a saved edge set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraverse(args)
	},
}

func init() {
	traverseCmd.Flags().IntVar(&traverseDepth, "depth", 2, "Maximum traversal depth")
	traverseCmd.Flags().StringVar(&traverseDirection, "direction", "downstream", "downstream|upstream|both")
	traverseCmd.Flags().StringVar(&traverseIn, "in", "", "Edge set file to traverse (defaults to stdin)")
}

func runTraverse(seeds []string) error {
	in := os.Stdin
	if traverseIn != "" {
		f, err := os.Open(traverseIn)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	edges, err := report.ReadEdges(in)
	if err != nil {
		return err
	}

	opts := callgraph.TraversalOptions{
		Depth:     traverseDepth,
		Direction: callgraph.Direction(traverseDirection),
	}
	result := callgraph.Traverse(edges, seeds, opts)

	for _, e := range result {
		fmt.Println(e.String())
	}
	return nil
}
