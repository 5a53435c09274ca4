package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/dframe"
	"github.com/joshuapare/dfseg/internal/logger"
	"github.com/joshuapare/dfseg/internal/writer"
	"github.com/joshuapare/dfseg/session"
)

var (
	materializeOut      string
	materializeZeroCopy bool
	materializeVar      string

	// outputSink resolves --out to a destination.
	outputSink = writer.For
)

func init() {
	cmd := newMaterializeCmd()
	rootCmd.AddCommand(cmd)
}

func newMaterializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize <name>",
		Short: "Load a segment's value into a session and write it out",
		Long: `The materialize command attaches to a populated segment, materializes its
payload into an in-process session and writes the bound value to --out.

With --zero-copy the session allocates through a bridge table so the
segment can substitute a private mapping of its payload instead of copying.

Example:
  dfsegctl materialize df1 --out partition.bin
  dfsegctl materialize df1 --zero-copy --out - > partition.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaterialize(args)
		},
	}

	cmd.Flags().StringVarP(&materializeOut, "out", "o", "-", "Output file, or - for stdout")
	cmd.Flags().BoolVar(&materializeZeroCopy, "zero-copy", false, "Allow zero-copy substitution")
	cmd.Flags().StringVar(&materializeVar, "var", "value", "Session variable name to bind")

	return cmd
}

// observedSession records whether the segment substituted the buffer.
type observedSession struct {
	*session.Memory
	substituted bool
}

func (o *observedSession) Substitute(buf *session.Buffer, backing []byte, release func() error) error {
	if err := o.Memory.Substitute(buf, backing, release); err != nil {
		return err
	}
	o.substituted = true
	return nil
}

type materializeResult struct {
	Name     string `json:"name"`
	Var      string `json:"var"`
	Bytes    int    `json:"bytes"`
	ZeroCopy bool   `json:"zero_copy"`
	Out      string `json:"out"`
}

func runMaterialize(args []string) (err error) {
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

	memOpts := session.MemoryOptions{Logger: logger.L}
	if materializeZeroCopy {
		memOpts.Allocator = session.InterceptingAllocator{Table: e.table}
	}
	sess := &observedSession{Memory: session.NewMemory(memOpts)}
	defer closeWith(&err, sess.Close)

	if err := seg.Materialize(materializeVar, sess); err != nil {
		return fmt.Errorf("failed to materialize segment: %w", err)
	}
	v, _ := sess.Lookup(materializeVar)
	raw, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("unexpected value type %T", v)
	}

	if err := outputSink(materializeOut).WritePayload(raw); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if materializeOut == "-" {
		return nil
	}
	res := materializeResult{
		Name:     seg.Name(),
		Var:      materializeVar,
		Bytes:    len(raw),
		ZeroCopy: sess.substituted,
		Out:      materializeOut,
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("Materialized %s into %s: %d bytes (zero-copy: %t)\n", res.Name, res.Out, res.Bytes, res.ZeroCopy)
	return nil
}
