package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the segment catalog",
	}
	cmd.AddCommand(newCatalogListCmd())
	rootCmd.AddCommand(cmd)
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List recorded segment headers",
		Long: `The catalog ls command prints the header recorded for every segment this
host constructed while catalog_dir was configured.

Example:
  dfsegctl catalog ls --config dfseg.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList()
		},
	}
}

type catalogEntry struct {
	Name      string   `json:"name"`
	Store     string   `json:"store"`
	Populated bool     `json:"populated"`
	External  bool     `json:"external"`
	Size      uint64   `json:"size"`
	Dims      [2]int64 `json:"dims"`
}

func runCatalogList() (err error) {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer closeWith(&err, e.close)
	if e.catalog == nil {
		return errors.New("catalog_dir is not configured")
	}

	entries, err := e.catalog.List()
	if err != nil {
		return err
	}
	total, err := e.catalog.TotalSize()
	if err != nil {
		return err
	}

	if jsonOut {
		out := make([]catalogEntry, 0, len(entries))
		for _, en := range entries {
			h := en.Header
			out = append(out, catalogEntry{
				Name:      en.Name,
				Store:     h.Store.String(),
				Populated: h.Populated(),
				External:  h.External(),
				Size:      h.Size,
				Dims:      h.Dims,
			})
		}
		return printJSON(out)
	}

	for _, en := range entries {
		h := en.Header
		fmt.Printf("%-32s %-7s populated=%-5t external=%-5t %10s  %dx%d\n",
			en.Name, h.Store, h.Populated(), h.External(), humanize.IBytes(h.Size), h.Dims[0], h.Dims[1])
	}
	printInfo("\n%d entries, %s recorded\n", len(entries), humanize.IBytes(total))
	return nil
}
