package repositories

import (
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	return NewStateStore(filepath.Join(t.TempDir(), "playlists_state.json"), log.New(io.Discard))
}

func TestStateStore(t *testing.T) {
	t.Run("first run bootstraps an empty file", func(t *testing.T) {
		store := newTestStore(t)

		state, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(state) != 0 {
			t.Errorf("expected empty state, got %v", state)
		}

		data, err := os.ReadFile(store.Path())
		if err != nil {
			t.Fatalf("expected state file to be created: %v", err)
		}
		if strings.TrimSpace(string(data)) != "{}" {
			t.Errorf("expected {} on disk, got %q", data)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		store := newTestStore(t)
		state := models.PlaylistState{
			"p1": {"t1": "SongA", "t2": "SongB"},
			"p2": {},
		}

		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(loaded) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(loaded))
		}
		if loaded["p1"]["t2"] != "SongB" {
			t.Errorf("expected t2=SongB, got %v", loaded["p1"])
		}
		if _, ok := loaded["p2"]; !ok {
			t.Error("expected empty playlist entry to survive the round trip")
		}

		first, _ := os.ReadFile(store.Path())
		if err := store.Save(loaded); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		second, _ := os.ReadFile(store.Path())
		if string(first) != string(second) {
			t.Errorf("expected identical content after Save(Load()), got\n%s\nvs\n%s", first, second)
		}
	})

	t.Run("indented with four spaces", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.Save(models.PlaylistState{"p1": {"t1": "SongA"}}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		data, _ := os.ReadFile(store.Path())
		if !strings.Contains(string(data), "\n    \"p1\": {\n        \"t1\": \"SongA\"") {
			t.Errorf("unexpected layout:\n%s", data)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		store := newTestStore(t)
		if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to write corrupt state: %v", err)
		}

		_, err := store.Load()
		if !errors.Is(err, shared.ErrCorruptState) {
			t.Fatalf("expected ErrCorruptState, got %v", err)
		}

		data, _ := os.ReadFile(store.Path())
		if string(data) != "{not json" {
			t.Error("corrupt file should be left untouched")
		}
	})

	t.Run("save leaves no temp files", func(t *testing.T) {
		store := newTestStore(t)
		for range 3 {
			if err := store.Save(models.PlaylistState{"p1": {"t1": "SongA"}}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		entries, err := os.ReadDir(filepath.Dir(store.Path()))
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		if len(entries) != 1 {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected only the state file, got %v", names)
		}
	})

	t.Run("Get and Put", func(t *testing.T) {
		state := models.PlaylistState{}
		if got := state.Get("missing"); got == nil || len(got) != 0 {
			t.Errorf("expected empty set for unseen playlist, got %v", got)
		}

		state.Put("p1", nil)
		if state["p1"] == nil {
			t.Error("Put should store an empty set rather than nil")
		}

		state.Put("p1", models.TrackSet{"t1": "SongA"})
		if state.Get("p1")["t1"] != "SongA" {
			t.Errorf("expected SongA, got %v", state.Get("p1"))
		}
	})
}

func TestRunRepository(t *testing.T) {
	newRun := func(kind, status string, started time.Time) *models.SyncRun {
		return &models.SyncRun{
			Kind:       kind,
			Status:     status,
			Playlists:  2,
			Added:      1,
			Removed:    1,
			StartedAt:  started,
			FinishedAt: started.Add(5 * time.Second),
			Actions: []models.SyncAction{
				{PlaylistID: "p1", TrackID: "t2", Action: models.ActionDownloadTrack, Target: "https://open.spotify.com/track/t2"},
				{PlaylistID: "p1", TrackID: "t3", Action: models.ActionDeleteFile, Target: "/music/p1/SongC.mp3"},
			},
		}
	}

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newRun(models.RunKindUpdate, models.RunStatusSucceeded, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence)
		}
	})

	t.Run("Create requires kind and status", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewRunRepository(db).Create(&models.SyncRun{})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newRun(models.RunKindUpdate, models.RunStatusPartial, time.Now())
		run.Error = "1 playlist failed"
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Status != models.RunStatusPartial || retrieved.Error != "1 playlist failed" {
			t.Errorf("unexpected run %+v", retrieved)
		}
		if len(retrieved.Actions) != 2 {
			t.Fatalf("expected 2 actions, got %d", len(retrieved.Actions))
		}
		if retrieved.Actions[1].Action != models.ActionDeleteFile {
			t.Errorf("expected actions in insertion order, got %+v", retrieved.Actions)
		}
		if retrieved.Duration() != 5*time.Second {
			t.Errorf("expected 5s duration, got %v", retrieved.Duration())
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewRunRepository(db).Get("nonexistent-id"); err == nil {
			t.Fatal("expected error when getting nonexistent run")
		}
	})

	t.Run("List and Latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		base := time.Now().Add(-time.Hour)
		for i, kind := range []string{models.RunKindUpdate, models.RunKindDownload, models.RunKindUpdate} {
			if err := repo.Create(newRun(kind, models.RunStatusSucceeded, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		all, err := repo.List("", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Sequence != 3 {
			t.Errorf("expected newest first, got sequence %d", all[0].Sequence)
		}

		updates, err := repo.List(models.RunKindUpdate, 10)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(updates) != 2 {
			t.Errorf("expected 2 update runs, got %d", len(updates))
		}

		latest, err := repo.Latest(models.RunKindDownload)
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest == nil || latest.Sequence != 2 {
			t.Errorf("expected download run #2, got %+v", latest)
		}
	})

	t.Run("Latest with no runs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		latest, err := NewRunRepository(db).Latest(models.RunKindUpdate)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if latest != nil {
			t.Errorf("expected nil, got %+v", latest)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		old := newRun(models.RunKindUpdate, models.RunStatusSucceeded, time.Now().Add(-48*time.Hour))
		recent := newRun(models.RunKindUpdate, models.RunStatusSucceeded, time.Now())
		for _, run := range []*models.SyncRun{old, recent} {
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		n, err := repo.Prune(time.Now().Add(-24 * time.Hour))
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned run, got %d", n)
		}

		actions, err := repo.Actions(old.ID)
		if err != nil {
			t.Fatalf("failed to list actions: %v", err)
		}
		if len(actions) != 0 {
			t.Errorf("expected pruned run's actions to be removed, got %d", len(actions))
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "sync_runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}
