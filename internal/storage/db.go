package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/battmon/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS battery_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	battery TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	status TEXT NOT NULL,
	capacity REAL,
	energy_wh REAL,
	voltage_v REAL,
	UNIQUE (battery, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_battery_records_ts ON battery_records(battery, timestamp);
`

// DB wraps a SQLite database holding exported battery history.
type DB struct {
	db *sql.DB
}

// ExportedRecord is one row of battery_records. Values that were not numeric
// in the log are nil.
type ExportedRecord struct {
	Battery   string
	Timestamp int64
	Status    string
	Capacity  *float64
	EnergyWh  *float64
	VoltageV  *float64
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertHistory batch-inserts one battery's records in a single transaction.
// Records already exported for the same battery and timestamp are ignored.
// It returns the number of new rows.
func (d *DB) InsertHistory(h *history.History) (int64, error) {
	if h == nil || len(h.Records) == 0 {
		return 0, nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO battery_records (battery, timestamp, status, capacity, energy_wh, voltage_v) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range h.Records {
		res, err := stmt.Exec(h.Battery, r.Timestamp, r.Status, nullable(r.Capacity), nullable(r.EnergyNow), nullable(r.VoltageNow))
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert %s@%d: %w", h.Battery, r.Timestamp, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecordsInRange returns a battery's records within the given time range.
func (d *DB) RecordsInRange(battery string, from, to int64) ([]ExportedRecord, error) {
	rows, err := d.db.Query(
		"SELECT battery, timestamp, status, capacity, energy_wh, voltage_v FROM battery_records WHERE battery = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp",
		battery, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []ExportedRecord
	for rows.Next() {
		var r ExportedRecord
		var capacity, energy, voltage sql.NullFloat64
		if err := rows.Scan(&r.Battery, &r.Timestamp, &r.Status, &capacity, &energy, &voltage); err != nil {
			return nil, err
		}
		r.Capacity = floatPtr(capacity)
		r.EnergyWh = floatPtr(energy)
		r.VoltageV = floatPtr(voltage)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Batteries returns the identities present in the database, sorted.
func (d *DB) Batteries() ([]string, error) {
	rows, err := d.db.Query("SELECT DISTINCT battery FROM battery_records ORDER BY battery")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullable(v history.Value) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Number, Valid: v.Numeric}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
