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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/knexdump/internal/config"
	"github.com/ocomsoft/knexdump/internal/introspect"
	"github.com/ocomsoft/knexdump/internal/logging"
	"github.com/ocomsoft/knexdump/internal/runner"
	"github.com/ocomsoft/knexdump/internal/writer"
)

type generateFlags struct {
	host        string
	port        int
	user        string
	password    string
	database    string
	table       string
	view        string
	output      string
	foreignKeys bool
	noViews     bool
	workers     int
	dryRun      bool
}

var genFlags generateFlags

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write Knex migrations for every table and view of the database",
	Long: `Connect to the configured MySQL database and write one Knex migration per
table and per view to <output>/<database>/.

Table files are named <timestamp>_create_<table>.js. View files are stamped
five seconds later so Knex runs them after the tables they select from.
With --foreign-keys, constraints go to separate <timestamp>_create_fk_<table>.js
files stamped ten seconds later, so tables can be created in any order.

Examples:
  # Use knexdump.config.yaml or MYSQL_* variables
  knexdump generate

  # Explicit connection, single table, print instead of writing
  knexdump generate --host=localhost --user=root --password=secret --database=shop --table=users --dry-run

  # Include foreign key migrations and skip views
  knexdump generate --database=shop --foreign-keys --no-views`,
	SilenceUsage: true,
	RunE:         runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	// Database connection flags
	flags.StringVar(&genFlags.host, "host", "", "Database host")
	flags.IntVar(&genFlags.port, "port", 0, "Database port")
	flags.StringVar(&genFlags.user, "user", "", "Database user")
	flags.StringVar(&genFlags.password, "password", "", "Database password")
	flags.StringVar(&genFlags.database, "database", "", "Database name")
	flags.StringVar(&genFlags.table, "table", "", "Only generate this table")
	flags.StringVar(&genFlags.view, "view", "", "Only generate this view")

	// Generation flags
	flags.StringVarP(&genFlags.output, "output", "o", "", "Migrations root directory (default: migrations)")
	flags.BoolVar(&genFlags.foreignKeys, "foreign-keys", false, "Also write one foreign key migration per table")
	flags.BoolVar(&genFlags.noViews, "no-views", false, "Skip views")
	flags.IntVar(&genFlags.workers, "workers", 0, "Number of entities processed concurrently")
	flags.BoolVar(&genFlags.dryRun, "dry-run", false, "Print migrations instead of writing files")
}

// applyGenerateFlags overrides configuration values with the flags set on the command line
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("host") {
		cfg.Database.Host = genFlags.host
	}
	if flags.Changed("port") {
		cfg.Database.Port = genFlags.port
	}
	if flags.Changed("user") {
		cfg.Database.User = genFlags.user
	}
	if flags.Changed("password") {
		cfg.Database.Password = genFlags.password
	}
	if flags.Changed("database") {
		cfg.Database.Name = genFlags.database
	}
	if flags.Changed("table") {
		cfg.Database.Table = genFlags.table
	}
	if flags.Changed("view") {
		cfg.Database.View = genFlags.view
	}
	if flags.Changed("output") {
		cfg.Generate.Directory = genFlags.output
	}
	if flags.Changed("foreign-keys") {
		cfg.Generate.ForeignKeys = genFlags.foreignKeys
	}
	if genFlags.noViews {
		cfg.Generate.Views = false
	}
	if flags.Changed("workers") {
		cfg.Generate.Workers = genFlags.workers
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}

	cfg := config.DefaultConfig()
	if loadedConfig != nil {
		*cfg = *loadedConfig
	}
	applyGenerateFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if !cfg.Output.ColorEnabled {
		color.NoColor = true
	}
	stderr := cmd.ErrOrStderr()
	logger := logging.NewLogger(cfg.Output.LogLevel, cfg.Output.LogFormat, stderr)

	if cfg.Output.Verbose {
		color.New(color.FgCyan).Fprintf(stderr, "Generating Knex migrations for %s@%s:%d/%s\n",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}

	dsn := introspect.BuildDSN(introspect.Options{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		Params:   cfg.Database.Params,
	})

	source, err := introspect.Open(cmd.Context(), dsn, introspect.Filter{
		Table: cfg.Database.Table,
		View:  cfg.Database.View,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer source.Close()

	sink := writer.New(writer.Options{
		Directory:       cfg.Generate.Directory,
		Database:        cfg.Database.Name,
		TimestampFormat: cfg.Generate.TimestampFormat,
		DryRun:          genFlags.dryRun,
		Verbose:         cfg.Output.Verbose,
		Out:             cmd.OutOrStdout(),
		Log:             stderr,
	})

	report, err := runner.New(source, sink, runner.Options{
		Workers:     cfg.Generate.Workers,
		Timeout:     cfg.Generate.Timeout,
		Retries:     cfg.Generate.Retries,
		Views:       cfg.Generate.Views,
		ForeignKeys: cfg.Generate.ForeignKeys,
	}, logger).Run(cmd.Context())
	if err != nil {
		return err
	}

	summary := color.New(color.FgGreen)
	if genFlags.dryRun {
		summary.Fprintf(stderr, "Dry run: %d migrations not written\n", len(report.Files))
	} else {
		summary.Fprintf(stderr, "All files written successfully to %s\n", sink.Dir())
	}
	if cfg.Output.Verbose {
		color.New(color.FgCyan).Fprintf(stderr, "  tables: %d, views: %d, foreign keys: %d\n",
			report.Tables, report.Views, report.ForeignKeys)
	}
	if len(report.Warnings) > 0 {
		color.New(color.FgYellow).Fprintf(stderr, "%d columns need manual review, see the warnings above\n", len(report.Warnings))
	}

	return nil
}
