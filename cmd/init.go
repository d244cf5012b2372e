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
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/knexdump/internal/config"
)

var (
	initForce    bool
	initDatabase string
	initOutput   string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default knexdump.config.yaml",
	Long: `Write a knexdump.config.yaml with the default settings to the current
directory, or to --output.

Connection settings left empty in the file can be supplied through
KNEXDUMP_DATABASE_* or MYSQL_* environment variables, or a .env file.`,
	SilenceUsage: true,
	RunE:         runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().StringVar(&initDatabase, "database", "", "Database name to store in the config file")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", config.GetConfigPath(), "Config file path")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := initOutput

	if _, err := os.Stat(path); err == nil && !initForce {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "Config file already exists: %s (use --force to overwrite)\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.Database.Name = initDatabase
	cfg.Output.Verbose = verbose

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Created config file: %s\n", path)
	return nil
}
