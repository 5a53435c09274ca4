package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/dframe"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "Display a segment's header, tier and layout",
		Long: `The inspect command attaches to an existing segment as a worker and prints
its header fields, storage tier and region layout.

Example:
  dfsegctl inspect df1
  dfsegctl inspect df1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
}

func runInspect(args []string) (err error) {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)

	seg, err := dframe.Attach(args[0], e.opts)
	if err != nil {
		return fmt.Errorf("failed to attach segment: %w", err)
	}
	defer closeWith(&err, seg.Close)

	return printSegment(seg)
}
