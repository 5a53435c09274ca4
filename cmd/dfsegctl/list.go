package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/shm"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List segments in both tiers",
		Long: `The ls command lists every segment region found in the memory and external
tier directories, sorted by name.

Example:
  dfsegctl ls
  dfsegctl ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

type listEntry struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

func runList() (err error) {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)

	infos, err := shm.List(e.opts.Dirs)
	if err != nil {
		return fmt.Errorf("failed to list segments: %w", err)
	}

	if jsonOut {
		out := make([]listEntry, 0, len(infos))
		for _, in := range infos {
			out = append(out, listEntry{Name: in.Name, Tier: in.Tier.String(), Size: in.Size, Path: in.Path})
		}
		return printJSON(out)
	}

	for _, in := range infos {
		fmt.Printf("%-32s %-8s %10s  %s\n", in.Name, in.Tier, humanize.IBytes(uint64(in.Size)), in.Path)
	}
	printVerbose("\n%d segment(s)\n", len(infos))
	return nil
}
