package tabular

import (
	"encoding/csv" // CSV encoding for the flat-file table format
	"errors"       // Sentinel errors
	"fmt"          // Error formatting
	"os"           // File operations
	"path/filepath"
	"sort"    // Deterministic header order for unregistered tables
	"strconv" // Numeric criteria detection
	"strings" // Case-insensitive matching
	"sync"    // Per-table write serialization
	"time"    // last_updated stamps

	"github.com/sirupsen/logrus" // Logging library
)

// Sentinel errors returned by store operations. Callers check them with
// errors.Is and map them to user-facing messages.
var (
	// ErrNoMatch is returned by Update and Delete when no row matches.
	ErrNoMatch = errors.New("no matching record found")
	// ErrCorrupted wraps CSV parse failures so callers can tell a damaged
	// table apart from an absent one.
	ErrCorrupted = errors.New("table file is corrupted")
	// ErrSchema is returned when a record carries columns the table's
	// header does not know about.
	ErrSchema = errors.New("record does not match table schema")
	// ErrEmptyRecord is returned when appending a record with no fields.
	ErrEmptyRecord = errors.New("record has no fields")
)

// Record is one row's worth of named field values. Values are kept as
// strings, the native currency of the CSV format.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store provides append/load/update/delete/search over named CSV tables,
// one file per table under a single data directory. Writes to the same
// table are serialized through a per-table mutex; the load-modify-rewrite
// cycle of Update and Delete holds the lock for its whole duration.
type Store struct {
	dir string

	mu    sync.Mutex // Guards the locks map
	locks map[string]*sync.Mutex
}

// Open creates the data directory if needed and returns a Store over it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the data directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// Path returns the backing file for a logical table name.
func (s *Store) Path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

// lock returns the mutex for a table, creating it on first use.
func (s *Store) lock(table string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[table]
	if !ok {
		m = &sync.Mutex{}
		s.locks[table] = m
	}
	return m
}

// Append writes a record as a new row. A missing table file is created
// with a header first: the registry's column order when the table is
// known, the record's sorted keys otherwise. The record is validated
// against the header at the boundary: unknown columns are rejected with
// ErrSchema, missing columns are written empty.
func (s *Store) Append(table string, rec Record) error {
	if len(rec) == 0 {
		return ErrEmptyRecord
	}
	m := s.lock(table)
	m.Lock()
	defer m.Unlock()

	header, err := s.header(table)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if header == nil {
		header = headerFor(table, rec)
		if err := s.writeAll(table, header, nil); err != nil {
			return err
		}
	}
	row, err := recordToRow(header, rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.Path(table), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", table, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return f.Sync()
}

// Load reads the whole table into memory. An absent table is not an
// error: it degrades to an empty result. A malformed file returns an
// ErrCorrupted-wrapped error so callers can alert instead of treating
// the table as empty.
func (s *Store) Load(table string) ([]Record, error) {
	_, recs, err := s.read(table)
	return recs, err
}

// Update applies field updates to every row where column == value, stamps
// each updated row with a last_updated timestamp, and rewrites the file.
// It returns the number of rows updated, or ErrNoMatch when the table is
// empty or no row matches. An update that introduces a column the header
// does not have migrates the header, backfilling empty values.
func (s *Store) Update(table, column, value string, updates Record) (int, error) {
	m := s.lock(table)
	m.Lock()
	defer m.Unlock()

	header, recs, err := s.read(table)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, fmt.Errorf("update %s where %s=%s: %w", table, column, value, ErrNoMatch)
	}

	stamp := time.Now().Format(TimeLayout)
	matched := 0
	for _, rec := range recs {
		if rec[column] != value {
			continue
		}
		for field, v := range updates {
			rec[field] = v
		}
		rec["last_updated"] = stamp
		matched++
	}
	if matched == 0 {
		return 0, fmt.Errorf("update %s where %s=%s: %w", table, column, value, ErrNoMatch)
	}

	header = migrateHeader(header, updates)
	if err := s.writeAll(table, header, recs); err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"table":   table,
		"column":  column,
		"value":   value,
		"updated": matched,
	}).Info("Table records updated")
	return matched, nil
}

// Delete removes every row where column == value and rewrites the file.
// Returns the number of rows removed, or ErrNoMatch.
func (s *Store) Delete(table, column, value string) (int, error) {
	m := s.lock(table)
	m.Lock()
	defer m.Unlock()

	header, recs, err := s.read(table)
	if err != nil {
		return 0, err
	}
	kept := recs[:0]
	removed := 0
	for _, rec := range recs {
		if rec[column] == value {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if removed == 0 {
		return 0, fmt.Errorf("delete from %s where %s=%s: %w", table, column, value, ErrNoMatch)
	}
	if err := s.writeAll(table, header, kept); err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"table":   table,
		"column":  column,
		"value":   value,
		"removed": removed,
	}).Info("Table records deleted")
	return removed, nil
}

// Criteria is a set of ANDed search conditions, column name to wanted
// value. A value that parses as a number is matched exactly; anything
// else is matched as a case-insensitive substring.
type Criteria map[string]string

// Search loads the table and filters it by the given criteria. An absent
// table yields an empty result, not an error.
func (s *Store) Search(table string, criteria Criteria) ([]Record, error) {
	recs, err := s.Load(table)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if matches(rec, criteria) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Lookup loads the table and returns the rows whose column equals value
// exactly. No substring or numeric coercion: this is the keyed form for
// ownership-scoped listings and id lookups, where Search's fuzzy
// matching would leak rows across similar keys.
func (s *Store) Lookup(table, column, value string) ([]Record, error) {
	recs, err := s.Load(table)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec[column] == value {
			out = append(out, rec)
		}
	}
	return out, nil
}

// matches reports whether a record satisfies every criterion.
func matches(rec Record, criteria Criteria) bool {
	for column, want := range criteria {
		got, ok := rec[column]
		if !ok {
			return false
		}
		if wantNum, err := strconv.ParseFloat(want, 64); err == nil {
			gotNum, err := strconv.ParseFloat(got, 64)
			if err != nil || gotNum != wantNum {
				return false
			}
			continue
		}
		if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

// FileStats describes the backing file of a table.
type FileStats struct {
	Exists       bool      `json:"exists"`
	RecordCount  int       `json:"record_count"`
	ColumnCount  int       `json:"column_count"`
	Columns      []string  `json:"columns"`
	SizeBytes    int64     `json:"file_size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Stats returns record/column counts and file metadata for a table.
func (s *Store) Stats(table string) (*FileStats, error) {
	info, err := os.Stat(s.Path(table))
	if errors.Is(err, os.ErrNotExist) {
		return &FileStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	header, recs, err := s.read(table)
	if err != nil {
		return nil, err
	}
	return &FileStats{
		Exists:       true,
		RecordCount:  len(recs),
		ColumnCount:  len(header),
		Columns:      header,
		SizeBytes:    info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// TimeLayout is the timestamp format used across all tables, matching
// the format the tables have always carried.
const TimeLayout = "2006-01-02 15:04:05"

// header reads just the header row of a table file.
func (s *Store) header(table string) ([]string, error) {
	f, err := os.Open(s.Path(table))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		// A zero-byte file has no header; treat it as uncreated.
		if errors.Is(err, os.ErrNotExist) || err.Error() == "EOF" {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("read header of %s: %w: %v", table, ErrCorrupted, err)
	}
	return header, nil
}

// read loads header and records. Absence degrades to an empty table.
func (s *Store) read(table string) ([]string, []Record, error) {
	f, err := os.Open(s.Path(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"table": table,
			"error": err.Error(),
		}).Warn("Failed to parse table file")
		return nil, nil, fmt.Errorf("load %s: %w: %v", table, ErrCorrupted, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	header := rows[0]
	recs := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		recs = append(recs, rec)
	}
	return header, recs, nil
}

// writeAll rewrites the table file atomically: the new content goes to a
// temp file in the same directory, then replaces the live file by rename.
func (s *Store) writeAll(table string, header []string, recs []Record) error {
	tmp, err := os.CreateTemp(s.dir, table+".*.tmp")
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", table, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite %s: %w", table, err)
	}
	for _, rec := range recs {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("rewrite %s: %w", table, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite %s: %w", table, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewrite %s: %w", table, err)
	}
	return os.Rename(tmp.Name(), s.Path(table))
}

// headerFor picks the header for a table created on first write: the
// registered schema when the table is known, otherwise the record's keys
// in sorted order.
func headerFor(table string, rec Record) []string {
	if cols, ok := Schemas[table]; ok {
		return cols
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// recordToRow lays a record out in header order. Missing columns become
// empty fields; columns the header does not know about are a schema
// violation.
func recordToRow(header []string, rec Record) ([]string, error) {
	known := make(map[string]bool, len(header))
	row := make([]string, len(header))
	for i, col := range header {
		known[col] = true
		row[i] = rec[col]
	}
	for k := range rec {
		if !known[k] {
			return nil, fmt.Errorf("column %q: %w", k, ErrSchema)
		}
	}
	return row, nil
}

// migrateHeader extends a header with any new columns introduced by an
// update, last_updated included.
func migrateHeader(header []string, updates Record) []string {
	known := make(map[string]bool, len(header))
	for _, col := range header {
		known[col] = true
	}
	cols := make([]string, 0, len(updates)+1)
	for k := range updates {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	cols = append(cols, "last_updated")
	for _, col := range cols {
		if !known[col] {
			header = append(header, col)
			known[col] = true
		}
	}
	return header
}
