package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/erg0nix/skill-improver/internal/core"
)

const (
	recordPrefix = "skill-improver."
	recordSuffix = ".local.md"
	tempSuffix   = ".tmp"
)

var recordNamePattern = regexp.MustCompile(`^skill-improver\.(\d{14}-[0-9a-fA-F]{8})\.local\.md$`)

type FileStore struct {
	Fs  afero.Fs
	Dir string
}

func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{Fs: fsys, Dir: dir}
}

func (store *FileStore) Path(id core.SessionID) string {
	return filepath.Join(store.Dir, recordPrefix+string(id)+recordSuffix)
}

// IsRecordFile reports whether a base file name is a committed session record.
// Temporary files written during Create never match.
func IsRecordFile(name string) bool {
	return recordNamePattern.MatchString(name)
}

func (store *FileStore) tempPath(id core.SessionID) string {
	return filepath.Join(store.Dir, "."+recordPrefix+string(id)+"."+uuid.NewString()+tempSuffix)
}

// Create writes the record to a temporary file in Dir and renames it into
// place, so readers see either no record or a complete one. The temporary
// file is removed on every path that does not end in a successful rename,
// including cancellation of ctx by an interrupt signal.
func (store *FileStore) Create(ctx context.Context, record Record) (string, error) {
	data, err := EncodeRecord(record)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := store.Fs.MkdirAll(store.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}

	path := store.Path(record.ID)
	if _, err := store.Fs.Stat(path); err == nil {
		return "", fmt.Errorf("create session %s: %w", record.ID, ErrExists)
	}

	tmp := store.tempPath(record.ID)
	file, err := store.Fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create session temp file: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := store.Fs.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove session temp file", "path", tmp, "error", err)
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fmt.Errorf("write session record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return "", fmt.Errorf("sync session record: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close session record: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("create session %s: interrupted: %w", record.ID, err)
	}

	if err := store.Fs.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit session record: %w", err)
	}
	committed = true

	slog.Debug("created session record", "session_id", record.ID, "path", path)
	return path, nil
}

// List returns the records present in Dir, ordered by identifier. Files that
// vanish mid-listing are skipped; damaged records are salvaged so they can
// still be cancelled.
func (store *FileStore) List(ctx context.Context) ([]Info, error) {
	entries, err := afero.ReadDir(store.Fs, store.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var result []Info
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if entry.IsDir() {
			continue
		}

		match := recordNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		info, err := store.load(core.SessionID(match[1]))
		if err != nil {
			slog.Debug("skipping session record", "name", entry.Name(), "error", err)
			continue
		}
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (store *FileStore) Find(_ context.Context, id core.SessionID) (Info, error) {
	if !core.ValidSessionID(string(id)) {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return store.load(id)
}

// Delete removes the record for id. Removing a record that is already gone
// reports ErrNotFound so callers can tell "nothing to cancel" from "cancelled".
func (store *FileStore) Delete(_ context.Context, id core.SessionID) error {
	if !core.ValidSessionID(string(id)) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	path := store.Path(id)
	if err := store.Fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete session: %w", err)
	}

	slog.Debug("deleted session record", "session_id", id, "path", path)
	return nil
}

func (store *FileStore) load(id core.SessionID) (Info, error) {
	path := store.Path(id)

	stat, err := store.Fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Info{}, fmt.Errorf("stat session: %w", err)
	}

	data, err := afero.ReadFile(store.Fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Info{}, fmt.Errorf("read session: %w", err)
	}

	record, err := DecodeRecord(data)
	if err != nil {
		slog.Warn("damaged session record", "session_id", id, "path", path, "error", err)
		record = salvageRecord(id, data)
	} else if record.ID != id {
		slog.Warn("session record id does not match file name", "session_id", id, "record_id", record.ID)
		record.ID = id
	}

	return Info{
		Record:     record,
		Path:       path,
		CreatedAt:  id.CreatedAt(),
		ModifiedAt: stat.ModTime(),
	}, nil
}
