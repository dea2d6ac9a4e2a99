package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tododay/tododay/internal/config"
	"github.com/tododay/tododay/internal/observability"
	"github.com/tododay/tododay/internal/storage"
)

// app is the state shared by every subcommand for one invocation.
type app struct {
	out     io.Writer
	errOut  io.Writer
	cfg     config.Config
	log     *observability.Logger
	metrics *observability.MetricsCollector
	store   *storage.SQLiteStore
}

// bootstrap loads configuration and opens the store.
func (a *app) bootstrap(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, _ := cfg.Level()
	loc, _ := cfg.Location()

	a.cfg = cfg
	a.log = observability.NewLeveledLogger("tododay", a.errOut, level)
	a.metrics = observability.NewMetricsCollector(1000)

	if !cfg.InMemory() {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(cmd.Context(), cfg.DBPath(), storage.Options{
		Logger:   a.log.With("db", cfg.DBPath()),
		Metrics:  a.metrics,
		Location: loc,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.log.Debug("store ready", "path", cfg.DBPath(), "zone", loc.String())
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	a.log.MetricsReport(a.metrics.Report())
	err := a.store.Close()
	a.store = nil
	return err
}

// printTodo writes one todo per line: id, status, priority, content.
func (a *app) printTodo(t storage.Todo) {
	fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.Content)
}

func (a *app) printTodos(todos []storage.Todo) {
	for _, t := range todos {
		a.printTodo(t)
	}
}
