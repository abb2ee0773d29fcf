package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/kshou/lualab/internal/storage"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubmitAndListScores(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	changed, err := s.SubmitScore(ctx, &storage.Score{
		StudentName:   "alice",
		QuestionID:    "1",
		QuestionTitle: "print a string",
		Overall:       80,
		Readability:   7,
	})
	if err != nil {
		t.Fatalf("SubmitScore: %v", err)
	}
	if !changed {
		t.Error("first submission should change the record")
	}

	scores, err := s.StudentScores(ctx, "alice")
	if err != nil {
		t.Fatalf("StudentScores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1", len(scores))
	}
	got := scores[0]
	if got.Overall != 80 || got.Readability != 7 {
		t.Errorf("score = %+v", got)
	}
	if got.ID == "" {
		t.Error("score should get an ID")
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestSubmitScoreKeepsHighest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	submit := func(overall int) bool {
		t.Helper()
		changed, err := s.SubmitScore(ctx, &storage.Score{
			StudentName: "bob",
			QuestionID:  "2",
			Overall:     overall,
		})
		if err != nil {
			t.Fatalf("SubmitScore(%d): %v", overall, err)
		}
		return changed
	}

	if !submit(60) {
		t.Error("60 should be recorded")
	}
	if submit(50) {
		t.Error("50 must not replace 60")
	}
	if !submit(90) {
		t.Error("90 should replace 60")
	}

	scores, err := s.StudentScores(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || scores[0].Overall != 90 {
		t.Errorf("scores = %+v, want single record at 90", scores)
	}
}

func TestSubmitScoreTruncatesCode(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	long := strings.Repeat("print(1) ", 50)
	if _, err := s.SubmitScore(ctx, &storage.Score{
		StudentName: "carol",
		QuestionID:  "3",
		Overall:     10,
		Code:        long,
	}); err != nil {
		t.Fatal(err)
	}

	scores, err := s.StudentScores(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores[0].Code) > 100 {
		t.Errorf("stored code length = %d, want at most 100", len(scores[0].Code))
	}
}

func TestStudentScoresIsolated(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"dora", "evan"} {
		if _, err := s.SubmitScore(ctx, &storage.Score{
			StudentName: name,
			QuestionID:  "1",
			Overall:     50,
		}); err != nil {
			t.Fatal(err)
		}
	}

	scores, err := s.StudentScores(ctx, "dora")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || scores[0].StudentName != "dora" {
		t.Errorf("scores = %+v, want only dora's", scores)
	}
}
