package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"

	"github.com/erg0nix/skill-improver/internal/core"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(afero.NewOsFs(), filepath.Join(t.TempDir(), ".claude"))
}

func testRecord(id core.SessionID) Record {
	return Record{
		ID:            id,
		Iteration:     1,
		MaxIterations: DefaultMaxIterations,
		SkillPath:     "/work/skills/foo",
		SkillName:     "foo",
	}
}

func writeRecordFile(t *testing.T, store *FileStore, id core.SessionID, content string) {
	t.Helper()
	if err := store.Fs.MkdirAll(store.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(store.Fs, store.Path(id), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func dirNames(t *testing.T, store *FileStore) []string {
	t.Helper()
	entries, err := afero.ReadDir(store.Fs, store.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreate_WritesRecord(t *testing.T) {
	store := newTestStore(t)
	id := core.SessionID("20250212123045-a1b2c3d4")

	path, err := store.Create(context.Background(), testRecord(id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != filepath.Join(store.Dir, "skill-improver.20250212123045-a1b2c3d4.local.md") {
		t.Fatalf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := `---
session_id: "20250212123045-a1b2c3d4"
iteration: 1
max_iterations: 20
skill_path: "/work/skills/foo"
skill_name: "foo"
---
`
	if string(data) != want {
		t.Fatalf("record content:\n%s\nwant:\n%s", data, want)
	}

	names := dirNames(t, store)
	if len(names) != 1 {
		t.Fatalf("expected only the record file, got %v", names)
	}
}

func TestCreate_RefusesExisting(t *testing.T) {
	store := newTestStore(t)
	id := core.SessionID("20250212123045-a1b2c3d4")

	if _, err := store.Create(context.Background(), testRecord(id)); err != nil {
		t.Fatal(err)
	}

	_, err := store.Create(context.Background(), testRecord(id))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestCreate_InterruptedLeavesNothing(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, testRecord("20250212123045-a1b2c3d4"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if names := dirNames(t, store); len(names) != 0 {
		t.Fatalf("expected empty state dir, got %v", names)
	}
}

func TestCreate_InvalidRecord(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("20250212123045-a1b2c3d4")
	record.SkillPath = "relative/path"

	_, err := store.Create(context.Background(), record)
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if names := dirNames(t, store); len(names) != 0 {
		t.Fatalf("expected no files, got %v", names)
	}
}

type failingRenameFs struct {
	afero.Fs
}

func (f failingRenameFs) Rename(string, string) error {
	return errors.New("rename refused")
}

func TestCreate_RenameFailureRemovesTemp(t *testing.T) {
	mem := afero.NewMemMapFs()
	store := NewFileStore(failingRenameFs{Fs: mem}, "/work/.claude")

	_, err := store.Create(context.Background(), testRecord("20250212123045-a1b2c3d4"))
	if err == nil || !strings.Contains(err.Error(), "rename refused") {
		t.Fatalf("expected rename error, got %v", err)
	}

	entries, err := afero.ReadDir(mem, "/work/.claude")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestList_Empty(t *testing.T) {
	store := newTestStore(t)

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list != nil {
		t.Fatalf("expected nil, got %v", list)
	}

	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		t.Fatal(err)
	}

	list, err = store.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list != nil {
		t.Fatalf("expected nil for empty dir, got %v", list)
	}
}

func TestList_OnlyRecordFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testRecord("20250102000000-bbbbbbbb")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, testRecord("20250101000000-aaaaaaaa")); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		".skill-improver.20250103000000-cccccccc.1234.tmp",
		"skill-improver.not-an-id.local.md",
		"settings.json",
		"ralph-loop.local.md",
	} {
		if err := os.WriteFile(filepath.Join(store.Dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(store.Dir, "skill-improver.20250104000000-dddddddd.local.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].ID != "20250101000000-aaaaaaaa" || list[1].ID != "20250102000000-bbbbbbbb" {
		t.Fatalf("expected id order, got %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].CreatedAt.Year() != 2025 || list[0].ModifiedAt.IsZero() {
		t.Fatalf("unexpected timestamps: %+v", list[0])
	}
}

func TestList_SalvagesDamagedRecord(t *testing.T) {
	store := newTestStore(t)
	id := core.SessionID("20250101000000-aaaaaaaa")

	writeRecordFile(t, store, id, "---\niteration: 3\nmax_iterations: 5\nextra: \"field\"\n---\n")

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}

	got := list[0]
	if got.ID != id || got.SkillName != UnknownSkillName || got.Iteration != 3 || got.MaxIterations != 5 {
		t.Fatalf("unexpected salvaged record: %+v", got.Record)
	}
}

func TestFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := core.SessionID("20250212123045-a1b2c3d4")

	if _, err := store.Create(ctx, testRecord(id)); err != nil {
		t.Fatal(err)
	}

	info, err := store.Find(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Record != testRecord(id) {
		t.Fatalf("got %+v, want %+v", info.Record, testRecord(id))
	}
	if info.Path != store.Path(id) {
		t.Fatalf("unexpected path %s", info.Path)
	}

	if _, err := store.Find(ctx, "20250212123045-ffffffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Find(ctx, "../../etc/passwd"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestFind_SeesDriverIterationRewrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := core.SessionID("20250212123045-a1b2c3d4")

	path, err := store.Create(ctx, testRecord(id))
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rewritten := strings.Replace(string(data), "iteration: 1\n", "iteration: 21\n", 1)
	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := store.Find(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Iteration != 21 || info.MaxIterations != 20 {
		t.Fatalf("unexpected progress %d/%d", info.Iteration, info.MaxIterations)
	}
	if !info.Overdue() {
		t.Fatal("expected overdue session")
	}
	if info.CompletedIterations() != 20 {
		t.Fatalf("expected 20 completed iterations, got %d", info.CompletedIterations())
	}
}

func TestDelete_TwiceReportsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := core.SessionID("20250101000000-aaaaaaaa")
	other := core.SessionID("20250101000000-bbbbbbbb")

	for _, id := range []core.SessionID{target, other} {
		if _, err := store.Create(ctx, testRecord(id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Delete(ctx, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, target); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	if _, err := store.Find(ctx, other); err != nil {
		t.Fatalf("unrelated session affected: %v", err)
	}
}

func TestDelete_InvalidID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete(context.Background(), "abc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestCreate_ConcurrentUniqueIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 300

	var (
		mu  sync.Mutex
		ids = make(map[core.SessionID]bool, n)
		wg  conc.WaitGroup
	)

	for range n {
		wg.Go(func() {
			id, err := core.NewSessionID()
			if err != nil {
				t.Errorf("generate id: %v", err)
				return
			}
			if _, err := store.Create(ctx, testRecord(id)); err != nil {
				t.Errorf("create %s: %v", id, err)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(ids) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(ids))
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != n {
		t.Fatalf("expected %d records, got %d", n, len(list))
	}
}

func TestList_NeverObservesPartialRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 100

	var (
		wg   conc.WaitGroup
		done atomic.Bool
	)

	wg.Go(func() {
		for !done.Load() {
			list, err := store.List(ctx)
			if err != nil {
				t.Errorf("list: %v", err)
				return
			}
			for _, info := range list {
				data, err := os.ReadFile(info.Path)
				if err != nil {
					t.Errorf("read %s: %v", info.Path, err)
					return
				}
				if _, err := DecodeRecord(data); err != nil {
					t.Errorf("torn record %s: %v", info.Path, err)
					return
				}
			}
		}
	})

	var creators conc.WaitGroup
	for range writers {
		creators.Go(func() {
			id, err := core.NewSessionID()
			if err != nil {
				t.Errorf("generate id: %v", err)
				return
			}
			if _, err := store.Create(ctx, testRecord(id)); err != nil {
				t.Errorf("create: %v", err)
			}
		})
	}
	creators.Wait()
	done.Store(true)
	wg.Wait()
}

func TestIsRecordFile(t *testing.T) {
	tests := map[string]bool{
		"skill-improver.20250212123045-deadbeef.local.md":      true,
		".skill-improver.20250212123045-deadbeef.0f1e2d3c.tmp": false,
		"skill-improver.20250212123045-deadbeef.local.md.bak":  false,
		"skill-improver.local.md":                              false,
		"skill-improver.2025021212304-deadbeef.local.md":       false,
	}
	for name, want := range tests {
		if got := IsRecordFile(name); got != want {
			t.Errorf("IsRecordFile(%q) = %v, want %v", name, got, want)
		}
	}
}
