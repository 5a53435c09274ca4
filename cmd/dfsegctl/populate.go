package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/dframe"
)

var (
	populateFrom string
	populateRole string
	populateRows int64
	populateCols int64
)

func init() {
	cmd := newPopulateCmd()
	rootCmd.AddCommand(cmd)
}

func newPopulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "populate <name>",
		Short: "Write a serialized value into a segment",
		Long: `The populate command copies a serialized payload into the named segment,
creating it if needed. The payload is read from --from, or stdin when --from
is "-".

Example:
  dfsegctl populate df1 --from partition.bin
  cat partition.bin | dfsegctl populate df1 --rows 1000 --cols 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPopulate(args)
		},
	}

	cmd.Flags().StringVar(&populateFrom, "from", "-", "Payload file, or - for stdin")
	cmd.Flags().StringVar(&populateRole, "role", "worker", "Store role: worker or master")
	cmd.Flags().Int64Var(&populateRows, "rows", -1, "Row count to record in the header")
	cmd.Flags().Int64Var(&populateCols, "cols", -1, "Column count to record in the header")

	return cmd
}

func readPayload(from string) ([]byte, error) {
	if from == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(from)
}

func runPopulate(args []string) (err error) {
	role, err := parseRole(populateRole)
	if err != nil {
		return err
	}
	payload, err := readPayload(populateFrom)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	if payload == nil {
		payload = []byte{}
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)

	printVerbose("Populating %q with %d bytes\n", args[0], len(payload))
	seg, err := dframe.Populate(args[0], role, int64(len(payload)), payload, e.opts)
	if err != nil {
		return fmt.Errorf("failed to populate segment: %w", err)
	}
	defer closeWith(&err, seg.Close)

	if populateRows >= 0 || populateCols >= 0 {
		if err := seg.SetDims(max(populateRows, 0), max(populateCols, 0)); err != nil {
			return fmt.Errorf("failed to set dims: %w", err)
		}
	}

	return printSegment(seg)
}
