package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dfseg/bridge"
	"github.com/joshuapare/dfseg/catalog"
	"github.com/joshuapare/dfseg/config"
	"github.com/joshuapare/dfseg/dframe"
	"github.com/joshuapare/dfseg/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "dfsegctl",
	Short: "Manage shared-memory data frame segments",
	Long: `dfsegctl creates, populates, inspects and materializes the named
shared-memory segments that carry distributed data frame partitions between
master and worker processes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
}

func execute() {
	err := rootCmd.Execute()
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config or returns defaults, and installs the logger.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if verbose {
		cfg.Log.Enabled = true
		cfg.Log.Level = "debug"
	}
	lopts, err := cfg.LoggerOptions()
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(lopts); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// env holds the options for one command. close releases the catalog.
type env struct {
	cfg     config.Config
	opts    dframe.Options
	table   *bridge.Table
	catalog *catalog.Catalog
}

func (e *env) close() error {
	if e.catalog != nil {
		return e.catalog.Close()
	}
	return nil
}

// openEnv loads configuration and, when catalog_dir is set, opens the catalog.
func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	table := bridge.NewTable()
	opts, err := cfg.SegmentOptions(nil, table, logger.L)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, opts: opts, table: table}
	if cfg.CatalogDir != "" {
		c, err := catalog.Open(catalog.Config{Dir: cfg.CatalogDir, Logger: logger.L})
		if err != nil {
			return nil, err
		}
		e.catalog = c
		e.opts.Catalog = c
	}
	return e, nil
}

func parseRole(s string) (dframe.Role, error) {
	switch s {
	case "worker", "":
		return dframe.RoleWorker, nil
	case "master":
		return dframe.RoleMaster, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want worker or master)", s)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// closeWith joins a deferred close error into err.
func closeWith(err *error, fn func() error) {
	*err = errors.Join(*err, fn())
}
