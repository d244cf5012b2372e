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
package runner

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ocomsoft/knexdump/internal/errors"
	"github.com/ocomsoft/knexdump/internal/types"
)

type fakeSource struct {
	tables map[string]types.TableSnapshot
	views  map[string]types.ViewSnapshot

	// failures is the number of times TableSnapshot fails per table before succeeding
	failures map[string]int
	block    bool

	mu          sync.Mutex
	calls       map[string]int
	active      int
	maxActive   int
	listedViews bool
}

func (f *fakeSource) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	for name := range f.tables {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSource) ListViews(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.listedViews = true
	f.mu.Unlock()

	var names []string
	for name := range f.views {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSource) TableSnapshot(ctx context.Context, table string) (types.TableSnapshot, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[table]++
	attempt := f.calls[table]
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return types.TableSnapshot{}, errors.NewIntrospectionError(table, "read columns", ctx.Err())
	}

	// Hold the slot briefly so concurrent calls overlap
	time.Sleep(5 * time.Millisecond)

	if attempt <= f.failures[table] {
		return types.TableSnapshot{}, errors.NewIntrospectionError(table, "read columns", stderrors.New("connection reset"))
	}
	return f.tables[table], nil
}

func (f *fakeSource) ViewSnapshot(ctx context.Context, view string) (types.ViewSnapshot, error) {
	return f.views[view], nil
}

type fakeSink struct {
	mu      sync.Mutex
	written []types.MigrationScript
}

func (s *fakeSink) WriteMigration(script types.MigrationScript) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, script)
	return string(script.Kind) + "/" + script.EntityName, nil
}

func table(name string, columns ...types.ColumnMetadata) types.TableSnapshot {
	return types.TableSnapshot{Name: name, Columns: columns, CreateStatement: "CREATE TABLE `" + name + "` ()"}
}

func newSource() *fakeSource {
	return &fakeSource{
		tables: map[string]types.TableSnapshot{
			"users":  table("users", types.ColumnMetadata{Name: "id", DataType: "int", ColumnType: "int(10) unsigned", Extra: types.ExtraAutoIncrement, Key: types.KeyPrimary}),
			"orders": table("orders", types.ColumnMetadata{Name: "id", DataType: "int", ColumnType: "int(10) unsigned", Extra: types.ExtraAutoIncrement, Key: types.KeyPrimary}),
			"places": table("places", types.ColumnMetadata{Name: "location", DataType: "point", ColumnType: "point"}),
		},
		views: map[string]types.ViewSnapshot{
			"active_users": {Name: "active_users", Schema: "shop", CreateStatement: "CREATE VIEW `active_users` AS select 1"},
		},
	}
}

func testOptions() Options {
	return Options{Workers: 2, Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond, Views: true}
}

func TestRun(t *testing.T) {
	source := newSource()
	sink := &fakeSink{}

	report, err := New(source, sink, testOptions(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Tables != 3 || report.Views != 1 || report.ForeignKeys != 0 {
		t.Errorf("Unexpected counts %+v", report)
	}

	expectedFiles := []string{"table/orders", "table/places", "table/users", "view/active_users"}
	if strings.Join(report.Files, ",") != strings.Join(expectedFiles, ",") {
		t.Errorf("Files = %v; expected %v", report.Files, expectedFiles)
	}

	seenView := false
	for _, script := range sink.written {
		if script.Kind == types.ScriptView {
			seenView = true
		} else if seenView {
			t.Errorf("Table %s written after a view", script.EntityName)
		}
	}

	if len(report.Warnings) != 1 || report.Warnings[0].Kind != types.WarningUnmappedType || report.Warnings[0].Table != "places" {
		t.Errorf("Unexpected warnings %+v", report.Warnings)
	}
}

func TestRun_WorkerLimit(t *testing.T) {
	source := newSource()
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		source.tables[name] = table(name)
	}

	if _, err := New(source, &fakeSink{}, testOptions(), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if source.maxActive > 2 {
		t.Errorf("Expected at most 2 concurrent snapshots, got %d", source.maxActive)
	}
}

func TestRun_RetriesTransientFailure(t *testing.T) {
	source := newSource()
	source.failures = map[string]int{"users": 2}

	report, err := New(source, &fakeSink{}, testOptions(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected retries to absorb the failures, got %v", err)
	}
	if source.calls["users"] != 3 {
		t.Errorf("Expected 3 attempts, got %d", source.calls["users"])
	}
	if report.Tables != 3 {
		t.Errorf("Expected 3 tables, got %d", report.Tables)
	}
}

func TestRun_FailsAfterRetries(t *testing.T) {
	source := newSource()
	source.failures = map[string]int{"users": 10}

	opts := testOptions()
	opts.Retries = 1

	_, err := New(source, &fakeSink{}, opts, nil).Run(context.Background())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !errors.IsIntrospectionError(err) {
		t.Errorf("Expected an introspection error, got %v", err)
	}
	if !strings.Contains(err.Error(), "table users") {
		t.Errorf("Expected the failing table in %q", err.Error())
	}
	if source.calls["users"] != 2 {
		t.Errorf("Expected 2 attempts, got %d", source.calls["users"])
	}
	if source.listedViews {
		t.Error("Views must not start after a table failure")
	}
}

func TestRun_Timeout(t *testing.T) {
	source := newSource()
	source.block = true

	opts := testOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.Retries = 0

	_, err := New(source, &fakeSink{}, opts, nil).Run(context.Background())
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := newSource()
	source.block = true

	if _, err := New(source, &fakeSink{}, testOptions(), nil).Run(ctx); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

func TestRun_ViewsDisabled(t *testing.T) {
	source := newSource()
	opts := testOptions()
	opts.Views = false

	report, err := New(source, &fakeSink{}, opts, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if source.listedViews || report.Views != 0 {
		t.Error("Views should be skipped")
	}
}

func TestRun_ForeignKeys(t *testing.T) {
	source := newSource()
	source.tables["orders"] = types.TableSnapshot{
		Name: "orders",
		CreateStatement: "CREATE TABLE `orders` (\n" +
			"  `user_id` int(10) unsigned NOT NULL,\n" +
			"  CONSTRAINT `orders_user_fk` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`)\n" +
			")",
	}

	opts := testOptions()
	opts.ForeignKeys = true
	sink := &fakeSink{}

	report, err := New(source, sink, opts, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.ForeignKeys != 1 {
		t.Errorf("Expected 1 foreign key script, got %d", report.ForeignKeys)
	}

	found := false
	for _, file := range report.Files {
		if file == "foreign_keys/orders" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected foreign key file in %v", report.Files)
	}
}
