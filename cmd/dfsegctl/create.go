package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/dframe"
)

var (
	createSize string
	createRole string
)

func init() {
	cmd := newCreateCmd()
	rootCmd.AddCommand(cmd)
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an unpopulated placeholder segment",
		Long: `The create command reserves a named segment sized for an expected payload
without writing any payload. A worker placeholder creates the region and
header; a master placeholder only tracks a header in this process.

Example:
  dfsegctl create df1 --size 64MiB
  dfsegctl create df1 --size 4096 --role master --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}

	cmd.Flags().StringVar(&createSize, "size", "0", "Expected payload size (e.g. 4096, 64MiB)")
	cmd.Flags().StringVar(&createRole, "role", "worker", "Store role: worker or master")

	return cmd
}

func runCreate(args []string) (err error) {
	role, err := parseRole(createRole)
	if err != nil {
		return err
	}
	hint, err := humanize.ParseBytes(createSize)
	if err != nil {
		return fmt.Errorf("invalid --size %q: %w", createSize, err)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)

	printVerbose("Creating %s placeholder %q (%s)\n", role, args[0], humanize.IBytes(hint))
	seg, err := dframe.NewPlaceholder(args[0], role, int64(hint), e.opts)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	defer closeWith(&err, seg.Close)

	return printSegment(seg)
}
