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
package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ocomsoft/knexdump/internal/errors"
	"github.com/ocomsoft/knexdump/internal/types"
)

const DefaultTimestampFormat = "20060102150405"

// Views and foreign keys are stamped after the tables they depend on so Knex
// runs them last.
const (
	viewOffset       = 5 * time.Second
	foreignKeyOffset = 10 * time.Second
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

type Options struct {
	Directory       string
	Database        string
	TimestampFormat string
	DryRun          bool
	Verbose         bool
	Out             io.Writer // dry-run script text, stdout when nil
	Log             io.Writer // verbose confirmations, stderr when nil
	// Now is the base timestamp of the run; zero means the current time
	Now time.Time
}

type Writer struct {
	dir     string
	format  string
	dryRun  bool
	verbose bool
	base    time.Time

	mu  sync.Mutex
	out io.Writer
	log io.Writer
}

func New(opts Options) *Writer {
	w := &Writer{
		dir:     filepath.Join(opts.Directory, opts.Database),
		format:  opts.TimestampFormat,
		dryRun:  opts.DryRun,
		verbose: opts.Verbose,
		base:    opts.Now,
		out:     opts.Out,
		log:     opts.Log,
	}
	if w.format == "" {
		w.format = DefaultTimestampFormat
	}
	if w.base.IsZero() {
		w.base = time.Now()
	}
	if w.out == nil {
		w.out = os.Stdout
	}
	if w.log == nil {
		w.log = os.Stderr
	}
	return w
}

// Dir returns the directory migrations are written to
func (w *Writer) Dir() string {
	return w.dir
}

// Filename returns the file name of a script, e.g. 20240102030405_create_users.js
func (w *Writer) Filename(script types.MigrationScript) string {
	stamp := w.base
	prefix := "create_"
	switch script.Kind {
	case types.ScriptView:
		stamp = stamp.Add(viewOffset)
	case types.ScriptForeignKeys:
		stamp = stamp.Add(foreignKeyOffset)
		prefix = "create_fk_"
	}
	return fmt.Sprintf("%s_%s%s.js", stamp.Format(w.format), prefix, sanitizeName(script.EntityName))
}

// Path returns the full path of a script
func (w *Writer) Path(script types.MigrationScript) string {
	return filepath.Join(w.dir, w.Filename(script))
}

// WriteMigration writes the script and returns its path. In dry-run mode the
// script is printed instead.
func (w *Writer) WriteMigration(script types.MigrationScript) (string, error) {
	path := w.Path(script)

	if w.dryRun {
		w.mu.Lock()
		defer w.mu.Unlock()
		fmt.Fprintf(w.out, "%s\n", color.CyanString("-- %s", path))
		fmt.Fprintln(w.out, w.PreviewMigration(script))
		return path, nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.NewWriteError(w.dir, fmt.Errorf("failed to create directory: %w", err))
	}

	if err := os.WriteFile(path, []byte(w.PreviewMigration(script)), 0644); err != nil {
		return "", errors.NewWriteError(path, fmt.Errorf("failed to write migration file: %w", err))
	}

	if w.verbose {
		w.mu.Lock()
		fmt.Fprintf(w.log, "File %s written successfully\n", filepath.Base(path))
		w.mu.Unlock()
	}

	return path, nil
}

func (w *Writer) PreviewMigration(script types.MigrationScript) string {
	return script.Content()
}

// sanitizeName lower-cases the entity name and replaces characters that are
// unsafe in file names
func sanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_")
	name = strings.Trim(name, "_")

	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "migration"
	}
	return name
}
