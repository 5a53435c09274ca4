package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/dframe"
)

func init() {
	rootCmd.AddCommand(newRemoveCmd())
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove"},
		Short:   "Unlink named segments",
		Long: `The rm command removes the named regions from whichever tier holds them
and drops their catalog entries. Processes that still map a region keep
their view until they close it.

Example:
  dfsegctl rm df1 df2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args)
		},
	}
}

func runRemove(args []string) (err error) {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)

	var errs []error
	for _, name := range args {
		if err := dframe.Remove(name, e.opts); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %q: %w", name, err))
			continue
		}
		if e.catalog != nil {
			if err := e.catalog.Delete(name); err != nil {
				errs = append(errs, fmt.Errorf("failed to drop catalog entry %q: %w", name, err))
			}
		}
		printInfo("Removed %s\n", name)
	}
	return errors.Join(errs...)
}
