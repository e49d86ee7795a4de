package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("entry not found")

// activeLookback is how many days FindActiveEntry searches, to recover a
// timer left running across midnight.
const activeLookback = 7

// Store is a persistent collection of entries. Entries are filed under the
// calendar day of their start time.
type Store interface {
	// LoadRange returns all entries starting in [from, to], oldest day first.
	LoadRange(from, to time.Time) ([]model.Entry, error)
	// FindActiveEntry returns the most recent running entry, or nil.
	FindActiveEntry(now time.Time) (*model.Entry, error)
	// FindEntry looks up an entry by id among the days of [from, to].
	FindEntry(id string, from, to time.Time) (model.Entry, error)
	// UpdateEntry replaces the entry with the same id, or appends it.
	UpdateEntry(e model.Entry) error
	// DeleteEntry removes the entry. Deleting a missing entry is not an error.
	DeleteEntry(e model.Entry) error
	Close() error
}

// dayFilePath returns the path for the given date's JSON file.
func dayFilePath(base string, t time.Time) string {
	return filepath.Join(base, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// LoadDay loads the DayFile for the given date. Returns an empty DayFile if not found.
func LoadDay(base string, t time.Time) (model.DayFile, error) {
	path := dayFilePath(base, t)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.DayFile{Date: timecalc.DayKey(t), Entries: []model.Entry{}}, nil
	}
	if err != nil {
		return model.DayFile{}, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var df model.DayFile
	if err := json.Unmarshal(data, &df); err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return model.DayFile{}, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return df, nil
}

// SaveDay atomically writes a DayFile for the given date. A day without
// entries is removed from disk.
func SaveDay(base string, t time.Time, df model.DayFile) error {
	path := dayFilePath(base, t)
	if len(df.Entries) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage error removing %s: %w", path, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Files stores entries as one JSON document per day under Base.
type Files struct {
	Base string
}

// NewFiles returns a file store rooted at base.
func NewFiles(base string) *Files {
	return &Files{Base: base}
}

// LoadRange loads all entries in [from, to] inclusive.
func (f *Files) LoadRange(from, to time.Time) ([]model.Entry, error) {
	var entries []model.Entry
	for d := timecalc.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		df, err := LoadDay(f.Base, d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, df.Entries...)
	}
	return entries, nil
}

// FindActiveEntry searches the last few day files, most recent first, for a
// running entry.
func (f *Files) FindActiveEntry(now time.Time) (*model.Entry, error) {
	for i := 0; i < activeLookback; i++ {
		df, err := LoadDay(f.Base, now.AddDate(0, 0, -i))
		if err != nil {
			return nil, err
		}
		for j := len(df.Entries) - 1; j >= 0; j-- {
			if df.Entries[j].IsRunning() {
				return &df.Entries[j], nil
			}
		}
	}
	return nil, nil
}

// FindEntry returns the entry with id from the days in [from, to].
func (f *Files) FindEntry(id string, from, to time.Time) (model.Entry, error) {
	entries, err := f.LoadRange(from, to)
	if err != nil {
		return model.Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// UpdateEntry replaces or appends an entry in the day file of its start.
func (f *Files) UpdateEntry(entry model.Entry) error {
	df, err := LoadDay(f.Base, entry.Start)
	if err != nil {
		return err
	}
	for i, e := range df.Entries {
		if e.ID == entry.ID {
			df.Entries[i] = entry
			return SaveDay(f.Base, entry.Start, df)
		}
	}
	df.Entries = append(df.Entries, entry)
	return SaveDay(f.Base, entry.Start, df)
}

// DeleteEntry removes an entry from the day file of its start.
func (f *Files) DeleteEntry(entry model.Entry) error {
	df, err := LoadDay(f.Base, entry.Start)
	if err != nil {
		return err
	}
	n := len(df.Entries)
	df.Entries = slices.DeleteFunc(df.Entries, func(e model.Entry) bool { return e.ID == entry.ID })
	if len(df.Entries) == n {
		return nil
	}
	return SaveDay(f.Base, entry.Start, df)
}

// Close is a no-op; every call reads and writes the day files directly.
func (f *Files) Close() error { return nil }
