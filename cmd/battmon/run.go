package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/cptspacemanspiff/battmon/internal/collector"
	"github.com/cptspacemanspiff/battmon/internal/config"
	"github.com/cptspacemanspiff/battmon/internal/history"
	"github.com/cptspacemanspiff/battmon/internal/metrics"
	"github.com/cptspacemanspiff/battmon/internal/storage"
)

func newStore(cfg *config.Config, logger *slog.Logger) *history.Store {
	return history.NewStore(cfg.Paths.LogDirectory,
		history.WithFields(cfg.Log.Fields),
		history.WithRequired(cfg.Log.Required),
		history.WithLogger(logger),
	)
}

// runLog appends one record per battery. Failing to list the power supplies
// or to write a log is returned; skipped batteries and metrics problems are
// only logged.
func runLog(cfg *config.Config, logger *slog.Logger) error {
	reader := collector.NewReader(cfg.Paths.PowerSupplyRoot, logger)
	snaps, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("read batteries: %w", err)
	}

	res, err := newStore(cfg, logger).Append(snaps)
	if err != nil {
		return fmt.Errorf("append battery log: %w", err)
	}

	if cfg.Metrics.TextfilePath != "" {
		m := metrics.New()
		m.Observe(snaps, res)
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("metrics textfile not written", "path", cfg.Metrics.TextfilePath, "err", err)
		} else {
			logger.Debug("wrote metrics textfile", "topic", "metrics", "path", cfg.Metrics.TextfilePath)
		}
	}
	return nil
}

// runExport copies all retained history into the database at dbPath and
// prints one summary line per exported battery to out.
func runExport(cfg *config.Config, dbPath string, out io.Writer, logger *slog.Logger) error {
	histories, err := newStore(cfg, logger).Read(history.AllTime)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ids := make([]string, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	added := make(map[string]int64, len(ids))
	for _, id := range ids {
		n, err := db.InsertHistory(histories[id])
		if err != nil {
			errs = append(errs, fmt.Errorf("export %s: %w", id, err))
			continue
		}
		added[id] = n
		logger.Debug("exported history", "topic", "export", "battery", id, "new_rows", n)
	}

	batteries, err := db.Batteries()
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("list exported batteries: %w", err))...)
	}
	for _, b := range batteries {
		rows, err := db.RecordsInRange(b, math.MinInt64, math.MaxInt64)
		if err != nil {
			errs = append(errs, fmt.Errorf("count %s: %w", b, err))
			continue
		}
		fmt.Fprintf(out, "%s: %d new, %d total\n", b, added[b], len(rows))
	}
	return errors.Join(errs...)
}
