package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cptspacemanspiff/battmon/internal/history"
	"github.com/cptspacemanspiff/battmon/internal/storage"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type testEnv struct {
	sysfs  string
	logDir string
	prom   string
	config string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		sysfs:  filepath.Join(dir, "sys"),
		logDir: filepath.Join(dir, "logs"),
		prom:   filepath.Join(dir, "battmon.prom"),
		config: filepath.Join(dir, "config.toml"),
	}

	bat := filepath.Join(env.sysfs, "BAT0")
	for name, value := range map[string]string{
		"type":          "Battery\n",
		"manufacturer":  "Acme\n",
		"model_name":    "X1\n",
		"serial_number": "42\n",
		"capacity":      "76\n",
		"status":        "Discharging\n",
		"energy_now":    "41230000\n",
		"voltage_now":   "11820000\n",
	} {
		writeTestFile(t, filepath.Join(bat, name), value)
	}
	writeTestFile(t, filepath.Join(env.sysfs, "AC", "type"), "Mains\n")

	writeTestFile(t, env.config, fmt.Sprintf(`
[paths]
power_supply_root = %q
log_directory = %q

[metrics]
textfile_path = %q
`, env.sysfs, env.logDir, env.prom))
	return env
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNoModePrintsUsage(t *testing.T) {
	stdout, _, err := execute(t)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(stdout, "Usage:") || !strings.Contains(stdout, "--graph") {
		t.Fatalf("stdout = %q, want usage", stdout)
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	if _, _, err := execute(t, "now"); err == nil {
		t.Fatal("Execute(now) error = nil, want error")
	}
}

func TestLogMode(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := execute(t, "--log", "--config", env.config)
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr = %s", err, stderr)
	}
	if stdout != "" || stderr != "" {
		t.Fatalf("log mode output stdout=%q stderr=%q, want none", stdout, stderr)
	}

	data, err := os.ReadFile(filepath.Join(env.logDir, "Acme_X1_42.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	row := strings.TrimSpace(string(data))
	if !strings.HasSuffix(row, ",D,76,41230000,11820000") {
		t.Fatalf("row = %q, want suffix ,D,76,41230000,11820000", row)
	}
	if entries, _ := os.ReadDir(env.logDir); len(entries) != 1 {
		t.Fatalf("log dir has %d files, want 1", len(entries))
	}

	prom, err := os.ReadFile(env.prom)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `battmon_battery_capacity_percent{battery="Acme_X1_42"} 76`) {
		t.Fatalf("metrics textfile = %s", prom)
	}
}

func TestLogMode_StorageUnavailable(t *testing.T) {
	env := newTestEnv(t)
	blocker := filepath.Join(t.TempDir(), "file")
	writeTestFile(t, blocker, "x")
	writeTestFile(t, env.config, fmt.Sprintf(`
[paths]
power_supply_root = %q
log_directory = %q
`, env.sysfs, filepath.Join(blocker, "logs")))

	_, stderr, err := execute(t, "--log", "--config", env.config)
	if !errors.Is(err, history.ErrStorageUnavailable) {
		t.Fatalf("Execute() error = %v, want ErrStorageUnavailable", err)
	}
	if !strings.HasPrefix(err.Error(), "append battery log: ") {
		t.Fatalf("Execute() error = %q, want append context", err)
	}
	if stderr != "" {
		t.Fatalf("stderr = %q, want the error reported once by main", stderr)
	}
}

func TestLogMode_MissingRootFails(t *testing.T) {
	env := newTestEnv(t)
	if err := os.RemoveAll(env.sysfs); err != nil {
		t.Fatalf("remove sysfs: %v", err)
	}

	_, _, err := execute(t, "--log", "--config", env.config)
	if err == nil {
		t.Fatal("Execute() error = nil, want power supply listing error")
	}
	if !errors.Is(err, os.ErrNotExist) || !strings.Contains(err.Error(), "read batteries") {
		t.Fatalf("Execute() error = %v, want read batteries not-exist error", err)
	}
	if _, err := os.Stat(env.logDir); !os.IsNotExist(err) {
		t.Fatalf("log directory created after failed read: %v", err)
	}
}

func TestLogThenExport(t *testing.T) {
	env := newTestEnv(t)
	dbPath := filepath.Join(t.TempDir(), "export.db")

	stdout, stderr, err := execute(t, "--log", "--export", dbPath, "--config", env.config)
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr = %s", err, stderr)
	}
	if stdout != "Acme_X1_42: 1 new, 1 total\n" {
		t.Fatalf("stdout = %q, want export summary", stdout)
	}

	stdout, _, err = execute(t, "--export", dbPath, "--config", env.config)
	if err != nil {
		t.Fatalf("Execute() re-export error = %v", err)
	}
	if stdout != "Acme_X1_42: 0 new, 1 total\n" {
		t.Fatalf("re-export stdout = %q, want no new rows", stdout)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	batteries, err := db.Batteries()
	if err != nil {
		t.Fatalf("Batteries() error = %v", err)
	}
	if len(batteries) != 1 || batteries[0] != "Acme_X1_42" {
		t.Fatalf("Batteries() = %v, want [Acme_X1_42]", batteries)
	}
	records, err := db.RecordsInRange("Acme_X1_42", 0, time.Now().UnixMilli()+1000)
	if err != nil {
		t.Fatalf("RecordsInRange() error = %v", err)
	}
	if len(records) != 1 || records[0].EnergyWh == nil || *records[0].EnergyWh != 41.23 {
		t.Fatalf("RecordsInRange() = %#v, want one row with 41.23 Wh", records)
	}
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "battmon.toml")

	stdout, _, err := execute(t, "--write-config", "--config", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stdout != "wrote "+path+"\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	for _, want := range []string{"[paths]", `log_directory = "/var/log/battmon"`, "refresh_interval_ms = 5000"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("written config missing %q:\n%s", want, data)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeTestFile(t, path, "[display]\nrefresh_interval_ms = 1\n")

	_, _, err := execute(t, "--log", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "display.refresh_interval_ms") {
		t.Fatalf("Execute() error = %v, want refresh interval error", err)
	}
}

func TestChartWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	from, to := chartWindow(24*time.Hour, now, nil)
	if !from.Equal(now.Add(-24*time.Hour)) || !to.Equal(now) {
		t.Fatalf("chartWindow(day) = %v, %v", from, to)
	}

	from, _ = chartWindow(history.AllTime, now, nil)
	if !from.Equal(now.Add(-time.Hour)) {
		t.Fatalf("chartWindow(all, empty) from = %v, want one hour back", from)
	}

	oldest := now.Add(-90 * 24 * time.Hour)
	series := []history.Series{{Points: []history.Point{{Time: oldest}, {Time: now.Add(-time.Minute)}}}}
	from, _ = chartWindow(history.AllTime, now, series)
	if !from.Equal(oldest) {
		t.Fatalf("chartWindow(all) from = %v, want %v", from, oldest)
	}
}

func TestRangeIndex(t *testing.T) {
	for i, tr := range timeRanges {
		if got := rangeIndex(tr.Name); got != i {
			t.Errorf("rangeIndex(%q) = %d, want %d", tr.Name, got, i)
		}
	}
	if got := rangeIndex("bogus"); timeRanges[got].Name != "week" {
		t.Errorf("rangeIndex(bogus) = %d, want week", got)
	}
}
