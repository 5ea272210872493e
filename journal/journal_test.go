package journal

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/aradel/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("journal.New() failed: %v", err)
	}

	repo := NewJournalRepo(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testQueryRecord(t *testing.T, repo *Repository, statement string) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	record := &domain.QueryRecord{
		ID:         id,
		ExecutedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Kind:       domain.KindExec,
		Statement:  statement,
		Level:      domain.LevelDebug,
		Duration:   250 * time.Microsecond,
		Context:    make(map[string]any),
	}

	err = repo.InsertQuery(record)
	if err != nil {
		t.Fatalf("inserting query: %v", err)
	}
	return id
}

func TestNew(t *testing.T) {
	t.Run("should open a journal file and apply migrations", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		count, err := repo.CountQueries()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if count != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", count)
		}
	})
}
