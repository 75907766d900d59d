package tabular

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"       // Dedup on merge and clean
	"github.com/sirupsen/logrus" // Logging library
)

// ErrNothingToMerge is returned when none of the merge inputs had data.
var ErrNothingToMerge = errors.New("no data to merge")

// Backup snapshots a table to a timestamped .bak copy next to the live
// file and returns the backup file path. The live file is untouched. An
// optional suffix replaces the timestamp in the backup name.
func (s *Store) Backup(table, suffix string) (string, error) {
	m := s.lock(table)
	m.Lock()
	defer m.Unlock()

	data, err := os.ReadFile(s.Path(table))
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", table, err)
	}
	if suffix == "" {
		suffix = time.Now().Format("20060102_150405")
	}
	backupPath := s.Path(table) + "." + suffix + ".bak"
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("backup %s: %w", table, err)
	}
	logrus.WithFields(logrus.Fields{
		"table":  table,
		"backup": backupPath,
	}).Info("Table backed up")
	return backupPath, nil
}

// Merge concatenates several tables into one output table. The output
// header is the union of the input headers in first-seen order; values a
// source table does not have are written empty. With dedupe set, rows
// that are exact duplicates over the merged header are dropped.
func (s *Store) Merge(tables []string, output string, dedupe bool) error {
	var header []string
	seen := map[string]bool{}
	var merged []Record

	for _, table := range tables {
		cols, recs, err := s.read(table)
		if err != nil {
			return err
		}
		for _, col := range cols {
			if !seen[col] {
				seen[col] = true
				header = append(header, col)
			}
		}
		merged = append(merged, recs...)
	}
	if len(merged) == 0 {
		return ErrNothingToMerge
	}
	if dedupe {
		merged = lo.UniqBy(merged, func(r Record) string { return rowKey(header, r) })
	}

	m := s.lock(output)
	m.Lock()
	defer m.Unlock()
	if err := s.writeAll(output, header, merged); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"output":  output,
		"sources": len(tables),
		"records": len(merged),
	}).Info("Tables merged")
	return nil
}

// CleanupResult summarizes an age-based cleanup pass.
type CleanupResult struct {
	Checked    int   `json:"checked"`
	Cleaned    int   `json:"cleaned"`
	Errors     int   `json:"errors"`
	BytesFreed int64 `json:"bytes_freed"`
}

// Cleanup backs up and deletes every listed table whose file modification
// time is older than maxAge. Destructive beyond the backup copy; tables
// younger than maxAge and absent tables are skipped.
func (s *Store) Cleanup(tables []string, maxAge time.Duration) *CleanupResult {
	res := &CleanupResult{}
	cutoff := time.Now().Add(-maxAge)

	for _, table := range tables {
		res.Checked++
		info, err := os.Stat(s.Path(table))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			res.Errors++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if _, err := s.Backup(table, "cleanup"); err != nil {
			logrus.WithFields(logrus.Fields{
				"table": table,
				"error": err.Error(),
			}).Warn("Cleanup backup failed, table kept")
			res.Errors++
			continue
		}
		m := s.lock(table)
		m.Lock()
		err = os.Remove(s.Path(table))
		m.Unlock()
		if err != nil {
			res.Errors++
			continue
		}
		res.Cleaned++
		res.BytesFreed += info.Size()
		logrus.WithField("table", table).Info("Stale table cleaned up")
	}
	return res
}

// Clean operations understood by Clean.
const (
	CleanRemoveDuplicates = "remove_duplicates"
	CleanStripWhitespace  = "strip_whitespace"
	CleanRemoveEmptyRows  = "remove_empty_rows"
)

// Clean rewrites a table after applying the requested cleaning
// operations. A nil ops slice applies all of them. Returns the number of
// records remaining.
func (s *Store) Clean(table string, ops []string) (int, error) {
	if ops == nil {
		ops = []string{CleanRemoveDuplicates, CleanStripWhitespace, CleanRemoveEmptyRows}
	}
	m := s.lock(table)
	m.Lock()
	defer m.Unlock()

	header, recs, err := s.read(table)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	before := len(recs)

	if lo.Contains(ops, CleanStripWhitespace) {
		for _, rec := range recs {
			for k, v := range rec {
				rec[k] = strings.TrimSpace(v)
			}
		}
	}
	if lo.Contains(ops, CleanRemoveDuplicates) {
		recs = lo.UniqBy(recs, func(r Record) string { return rowKey(header, r) })
	}
	if lo.Contains(ops, CleanRemoveEmptyRows) {
		recs = lo.Filter(recs, func(r Record, _ int) bool {
			for _, v := range r {
				if v != "" {
					return true
				}
			}
			return false
		})
	}

	if err := s.writeAll(table, header, recs); err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"table":  table,
		"before": before,
		"after":  len(recs),
	}).Info("Table cleaned")
	return len(recs), nil
}

// ExportFiltered writes the records matching the criteria to a new
// output table. Fails with ErrNoMatch when nothing matches.
func (s *Store) ExportFiltered(table string, criteria Criteria, output string) error {
	header, recs, err := s.read(table)
	if err != nil {
		return err
	}
	matched := lo.Filter(recs, func(r Record, _ int) bool { return matches(r, criteria) })
	if len(matched) == 0 {
		return fmt.Errorf("export from %s: %w", table, ErrNoMatch)
	}
	m := s.lock(output)
	m.Lock()
	defer m.Unlock()
	return s.writeAll(output, header, matched)
}
