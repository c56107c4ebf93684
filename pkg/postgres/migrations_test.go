package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationDir_Auction(t *testing.T) {
	dir, err := migrationDir("auction")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertUpDownPairs(t, dir, 1)
}

func TestMigrationDir_Search(t *testing.T) {
	dir, err := migrationDir("search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertUpDownPairs(t, dir, 2)
}

func TestMigrationDir_Unknown(t *testing.T) {
	if _, err := migrationDir("analytics"); err == nil {
		t.Fatal("expected error for a service without migrations")
	}
}

func TestSearchMigrationsCreateProjectionTables(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(migrationFS, "migrations/search", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		b, err := fs.ReadFile(migrationFS, path)
		all.Write(b)
		return err
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for _, table := range []string{"auction_projections", "auction_tombstones"} {
		if !strings.Contains(all.String(), table) {
			t.Errorf("expected search migrations to create %s", table)
		}
	}
}

func assertUpDownPairs(t *testing.T, dir string, want int) {
	t.Helper()
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up != want || down != want {
		t.Fatalf("expected %d up/down pairs in %s, got %d up %d down", want, dir, up, down)
	}
}
