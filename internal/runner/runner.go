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
// Package runner drives a full generation run: it lists the entities of the
// source database, compiles each one concurrently and hands the scripts to
// a sink. Tables are always finished before views are started.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/ocomsoft/knexdump/internal/generator"
	"github.com/ocomsoft/knexdump/internal/logging"
	"github.com/ocomsoft/knexdump/internal/types"
)

const defaultRetryDelay = 500 * time.Millisecond

// Source provides the schema snapshots to compile
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	ListViews(ctx context.Context) ([]string, error)
	TableSnapshot(ctx context.Context, table string) (types.TableSnapshot, error)
	ViewSnapshot(ctx context.Context, view string) (types.ViewSnapshot, error)
}

// Sink receives compiled scripts and returns where each one went
type Sink interface {
	WriteMigration(script types.MigrationScript) (string, error)
}

type Options struct {
	Workers     int
	Timeout     time.Duration // per entity attempt, zero disables
	Retries     int           // attempts after the first one
	RetryDelay  time.Duration
	Views       bool
	ForeignKeys bool
}

// Report summarises a finished run
type Report struct {
	Tables      int
	Views       int
	ForeignKeys int
	Files       []string
	Warnings    []types.Warning
}

type Runner struct {
	source    Source
	sink      Sink
	generator *generator.Generator
	opts      Options
	logger    *slog.Logger

	mu     sync.Mutex
	report Report
}

func New(source Source, sink Sink, opts Options, logger *slog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		source:    source,
		sink:      sink,
		generator: generator.New(),
		opts:      opts,
		logger:    logger,
	}
}

// Run compiles every table, then every view. The first entity that still
// fails after its retries cancels the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.report = Report{}
	start := time.Now()

	var tables []string
	err := r.attempt(ctx, func(ctx context.Context) error {
		var err error
		tables, err = r.source.ListTables(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	if err := r.fanOut(ctx, tables, r.table); err != nil {
		return nil, err
	}

	if r.opts.Views {
		var views []string
		err := r.attempt(ctx, func(ctx context.Context) error {
			var err error
			views, err = r.source.ListViews(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list views: %w", err)
		}

		if err := r.fanOut(ctx, views, r.view); err != nil {
			return nil, err
		}
	}

	report := r.report
	sort.Strings(report.Files)
	sort.SliceStable(report.Warnings, func(i, j int) bool {
		a, b := report.Warnings[i], report.Warnings[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Column < b.Column
	})

	r.logger.Info("run_finished",
		"tables", report.Tables,
		"views", report.Views,
		"foreign_keys", report.ForeignKeys,
		"warnings", len(report.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &report, nil
}

// fanOut runs task for every name and waits for all of them
func (r *Runner) fanOut(ctx context.Context, names []string, task func(context.Context, string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for _, name := range names {
		g.Go(func() error {
			return task(gctx, name)
		})
	}

	return g.Wait()
}

func (r *Runner) table(ctx context.Context, name string) error {
	var snapshot types.TableSnapshot
	err := r.attempt(ctx, func(ctx context.Context) error {
		var err error
		snapshot, err = r.source.TableSnapshot(ctx, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("table %s: %w", name, err)
	}

	result := r.generator.GenerateTableMigration(snapshot)
	logging.LogWarnings(r.logger, result.Warnings)

	path, err := r.sink.WriteMigration(result.Script)
	if err != nil {
		return fmt.Errorf("table %s: %w", name, err)
	}
	r.logger.Debug("table_generated", "table", name, "path", path)

	files := []string{path}
	fks := 0
	if r.opts.ForeignKeys {
		if script, ok := r.generator.GenerateForeignKeyMigration(snapshot); ok {
			fkPath, err := r.sink.WriteMigration(script)
			if err != nil {
				return fmt.Errorf("foreign keys of %s: %w", name, err)
			}
			files = append(files, fkPath)
			fks = 1
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Tables++
	r.report.ForeignKeys += fks
	r.report.Files = append(r.report.Files, files...)
	r.report.Warnings = append(r.report.Warnings, result.Warnings...)
	return nil
}

func (r *Runner) view(ctx context.Context, name string) error {
	var snapshot types.ViewSnapshot
	err := r.attempt(ctx, func(ctx context.Context) error {
		var err error
		snapshot, err = r.source.ViewSnapshot(ctx, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("view %s: %w", name, err)
	}

	path, err := r.sink.WriteMigration(r.generator.GenerateViewMigration(snapshot))
	if err != nil {
		return fmt.Errorf("view %s: %w", name, err)
	}
	r.logger.Debug("view_generated", "view", name, "path", path)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Views++
	r.report.Files = append(r.report.Files, path)
	return nil
}

// attempt runs fn with a per-attempt timeout, retrying failures with a
// constant delay until the retry budget is spent or ctx is done.
func (r *Runner) attempt(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(r.opts.Retries), retry.NewConstant(r.opts.RetryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}

		if err := fn(attemptCtx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
