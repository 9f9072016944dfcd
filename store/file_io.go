package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

const recordExt = ".json"

// sequence allocates increasing ids, seeded from the highest id on disk.
type sequence struct {
	last atomic.Uint64
}

func (s *sequence) observe(id uint) {
	for {
		cur := s.last.Load()
		if uint64(id) <= cur || s.last.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

func (s *sequence) next() uint {
	return uint(s.last.Add(1))
}

func recordPath(dir string, id uint) string {
	return filepath.Join(dir, strconv.FormatUint(uint64(id), 10)+recordExt)
}

// listRecordIDs returns the ids of every record file in dir. Temp files and
// names that are not numeric ids are ignored.
func listRecordIDs(dir string) ([]uint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, recordExt), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// readRecord decodes the file for id into out. A missing file is ErrNotFound.
func readRecord(dir string, id uint, out interface{}) error {
	b, err := os.ReadFile(recordPath(dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read record %d: %w", id, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, recordPath(dir, id), err)
	}
	return nil
}

// writeRecord writes v to a temp file and renames it over the record so
// readers never observe a partially written file.
func writeRecord(dir string, id uint, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %d: %w", id, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write record %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close record %d: %w", id, err)
	}
	if err := os.Rename(tmpName, recordPath(dir, id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit record %d: %w", id, err)
	}
	return nil
}

func removeRecord(dir string, id uint) error {
	if err := os.Remove(recordPath(dir, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove record %d: %w", id, err)
	}
	return nil
}
