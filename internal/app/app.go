// Package app assembles the application: configuration, Genkit, the
// dataset registry, the chart store, and the conversation orchestrator.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/datajar/datajar/internal/config"
	"github.com/datajar/datajar/internal/conversation"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
	"github.com/datajar/datajar/internal/tablesource"
)

// App holds the wired application components for one session.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Genkit       *genkit.Genkit
	Session      *conversation.Session
	Orchestrator *conversation.Orchestrator

	// Source is nil when no remote table store is configured.
	Source *tablesource.Source

	otelCleanup func(context.Context) error
}

// Close releases resources. Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Source != nil {
		a.Source.Close()
	}
	if a.otelCleanup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelCleanup(ctx); err != nil {
			return fmt.Errorf("shutting down tracing: %w", err)
		}
	}
	return nil
}

// LoadCSV loads a CSV file into the registry under its base filename.
// Returns the registered dataset name.
func (a *App) LoadCSV(path string) (string, error) {
	tbl, err := dataset.LoadCSVFile(path)
	if err != nil {
		return "", err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := a.Session.Datasets.Add(name, tbl); err != nil {
		return "", err
	}

	a.Logger.Info("loaded dataset from csv",
		"name", name, "rows", tbl.NumRows(), "columns", tbl.NumCols())
	return name, nil
}

// FetchTable pulls a remote table into the registry under its table name.
func (a *App) FetchTable(ctx context.Context, table string) error {
	if a.Source == nil {
		return fmt.Errorf("no remote table source configured; set DATABASE_URL or the postgres settings")
	}

	tbl, err := a.Source.Fetch(ctx, table)
	if err != nil {
		return err
	}
	if err := a.Session.Datasets.Add(table, tbl); err != nil {
		return err
	}

	a.Logger.Info("fetched remote dataset",
		"name", table, "rows", tbl.NumRows(), "columns", tbl.NumCols())
	return nil
}
