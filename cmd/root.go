/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/knexdump/internal/config"
	"github.com/ocomsoft/knexdump/internal/errors"
	"github.com/ocomsoft/knexdump/internal/version"
)

var (
	configFile string // Config file path
	verbose    bool

	// Loaded once per execution by initConfig
	loadedConfig *config.Config
	configErr    error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "knexdump",
	Short: "Generate Knex.js migrations from a live MySQL schema",
	Long: `Generate Knex.js migration files from the tables and views of an existing
MySQL or MariaDB database.

The tool reads information_schema and the SHOW CREATE output of every table
and view and writes one migration script per entity, each with exports.up and
exports.down. Details Knex cannot express directly (generated columns, char
and binary widths, auto-increment columns that differ from table.increments,
secondary indexes) are restored with raw statements chained after the
create-table call.

When run without a subcommand, defaults to 'generate'.

Available commands:
- generate: Write migrations for the configured database
- init: Create a default knexdump.config.yaml
- version: Show version information

Configuration is read from knexdump.config.yaml, KNEXDUMP_* environment
variables, the MYSQL_HOST, MYSQL_USER, MYSQL_PASS, MYSQL_DATABASE,
MYSQL_TABLE and MYSQL_VIEW variables, and a .env file in the working
directory. Command-line flags take precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true, // printed by Execute with a hint
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to generate when no subcommand is provided
		return runGenerate(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Display version at startup for all commands, on stderr so dry-run output stays clean
	fmt.Fprintf(os.Stderr, "%s\n", version.GetDisplayVersion())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// printError writes err and, for known failure kinds, what to check next
func printError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	if hint := errorHint(err); hint != "" {
		color.New(color.FgYellow).Fprintf(w, "%s\n", hint)
	}
}

func errorHint(err error) string {
	switch {
	case errors.IsConfigError(err):
		return "Set the missing values with flags, KNEXDUMP_* or MYSQL_* variables, or run 'knexdump init' to create a config file"
	case errors.IsValidationError(err):
		return "Fix the reported setting in " + config.ConfigFileName + " or on the command line"
	case errors.IsIntrospectionError(err):
		return "Check that the database is reachable and the user can read information_schema"
	case errors.IsWriteError(err):
		return "Check that the output directory is writable"
	default:
		return ""
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./knexdump.config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show detailed processing information")

	// The default action takes the generate flags
	addGenerateFlags(rootCmd)
}

// initConfig reads in the config file, .env file and ENV variables if set.
func initConfig() {
	loadedConfig, configErr = config.Load(configFile)
}
