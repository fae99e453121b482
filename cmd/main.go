package main

import (
	"fmt"
	"os"

	"github.com/jerry-enebeli/filtertools"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Filtertools represents the CLI application, encapsulating the root Cobra command.
type Filtertools struct {
	cmd *cobra.Command
}

// filtertoolsInstance holds what every subcommand needs once the
// configuration has been read.
type filtertoolsInstance struct {
	catalog *filtertools.Catalog
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and the catalog it points at before any
// subcommand runs.
func preRun(app *filtertoolsInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		catalog, err := filtertools.LoadFile(cnf.CatalogFile, filtertools.WithDefaultLookupExpr(cnf.DefaultLookupExpr))
		if err != nil {
			return fmt.Errorf("error loading catalog %s: %w", cnf.CatalogFile, err)
		}

		app.catalog = catalog
		app.cnf = cnf
		return nil
	}
}

// NewCLI creates the command-line interface with the describe, sql and
// start subcommands.
func NewCLI() *Filtertools {
	var configFile string
	app := &filtertoolsInstance{}

	var rootCmd = &cobra.Command{
		Use:          "filtertools",
		Short:        "Generate query filters from model declarations",
		SilenceUsage: true,
		Run:          func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./filtertools.json", "Configuration file for filtertools")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(describeCommands(app))
	rootCmd.AddCommand(sqlCommands(app))
	rootCmd.AddCommand(serverCommands(app))

	return &Filtertools{cmd: rootCmd}
}

func (f Filtertools) executeCLI() {
	if err := f.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
