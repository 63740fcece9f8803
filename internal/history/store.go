package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cptspacemanspiff/battmon/internal/collector"
)

// DefaultLogDirectory holds one log file per battery.
const DefaultLogDirectory = "/var/log/battmon"

const logExt = ".log"

// AllTime is a lookback that reaches before any record.
const AllTime = time.Duration(math.MaxInt64)

// DefaultRequired lists the attributes a snapshot needs to be logged.
var DefaultRequired = []string{collector.AttrCapacity, collector.AttrStatus}

// Store appends battery records to <dir>/<identity>.log and reads them back.
//
// Appends are not coordinated between processes: two overlapping runs that
// append to the same file may interleave rows. Callers that schedule logging
// must not overlap runs.
type Store struct {
	dir      string
	fields   []string
	required []string
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithFields sets the row layout. It must contain FieldTime.
func WithFields(fields []string) Option {
	return func(s *Store) { s.fields = append([]string(nil), fields...) }
}

// WithRequired sets the attributes that must be non-empty for a snapshot to
// be logged.
func WithRequired(attrs []string) Option {
	return func(s *Store) { s.required = append([]string(nil), attrs...) }
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.log = logger }
}

// WithClock overrides time.Now when computing read cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store rooted at dir. The directory is created lazily on
// the first Append.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		fields:   DefaultFields,
		required: DefaultRequired,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the log directory.
func (s *Store) Dir() string {
	return s.dir
}

// LogPath returns the log file for a battery identity.
func (s *Store) LogPath(battery string) string {
	return filepath.Join(s.dir, battery+logExt)
}

// AppendResult lists what one Append wrote and skipped.
type AppendResult struct {
	Written []string
	Skipped []*ValidationError
}

// Append writes one row per snapshot. Snapshots missing a required attribute
// are skipped and reported in the result without affecting the others.
// The returned error wraps ErrStorageUnavailable.
func (s *Store) Append(snaps map[string]collector.BatterySnapshot) (*AppendResult, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, storageError("create log directory", s.dir, err)
	}

	ids := make([]string, 0, len(snaps))
	for id := range snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := &AppendResult{}
	var errs []error
	for _, id := range ids {
		snap := snaps[id]
		if verr := s.validate(id, snap); verr != nil {
			s.log.Warn("skipping battery", "battery", id, "missing", strings.Join(verr.Missing, ","))
			res.Skipped = append(res.Skipped, verr)
			continue
		}
		if err := s.appendRow(s.LogPath(id), encodeRow(s.fields, snap)); err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.Debug("appended record", "topic", "store", "battery", id, "ts", snap.Timestamp)
		res.Written = append(res.Written, id)
	}
	return res, errors.Join(errs...)
}

func (s *Store) validate(id string, snap collector.BatterySnapshot) *ValidationError {
	var missing []string
	for _, attr := range s.required {
		if v, _ := snap.Attribute(attr); v == "" {
			missing = append(missing, attr)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Battery: id, Missing: missing}
}

func (s *Store) appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return storageError("open", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return storageError("write", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return storageError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return storageError("close", path, err)
	}
	return nil
}

// History is the retained records of one battery, in file order.
type History struct {
	Battery string
	Records []Record
}

// Point is one (time, value) pair of a series.
type Point struct {
	Time  time.Time
	Value Value
}

// Series is one field of a battery's history.
type Series struct {
	Battery string
	Field   string
	Points  []Point
}

// Series projects one numeric field. Unknown fields give an empty series.
func (h *History) Series(field string) Series {
	out := Series{Battery: h.Battery, Field: field}
	for _, r := range h.Records {
		v, ok := r.Field(field)
		if !ok {
			break
		}
		out.Points = append(out.Points, Point{Time: r.Time, Value: v})
	}
	return out
}

// Read returns every battery's records no older than now minus lookback.
func (s *Store) Read(lookback time.Duration) (map[string]*History, error) {
	return s.ReadSince(Cutoff(s.now(), lookback))
}

// Cutoff returns now minus lookback in epoch milliseconds.
func Cutoff(now time.Time, lookback time.Duration) int64 {
	return now.UnixMilli() - lookback.Milliseconds()
}

// ReadSince returns every battery's records with a timestamp at or after
// cutoff (epoch milliseconds). A missing log directory is an empty history.
// Files that cannot be read are skipped; unparseable rows are dropped.
func (s *Store) ReadSince(cutoff int64) (map[string]*History, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*History{}, nil
		}
		return nil, fmt.Errorf("list log directory: %w", err)
	}

	out := make(map[string]*History)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		battery := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
		records, err := s.readFile(filepath.Join(s.dir, name), cutoff)
		if err != nil {
			s.log.Warn("skipping unreadable history", "battery", battery, "err", err)
			continue
		}
		out[battery] = &History{Battery: battery, Records: records}
	}
	return out, nil
}

func (s *Store) readFile(path string, cutoff int64) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	// A row torn by overlapping appends may carry a stray quote.
	r.LazyQuotes = true

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			s.log.Debug("skip unparseable row", "topic", "store", "path", path, "line", perr.Line, "err", perr.Err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rec, err := decodeRow(s.fields, row)
		if err != nil {
			s.log.Debug("skip malformed row", "topic", "store", "path", path, "err", err)
			continue
		}
		if rec.Timestamp < cutoff {
			continue
		}
		rec.Time = time.UnixMilli(rec.Timestamp)
		records = append(records, rec)
	}
	return records, nil
}
