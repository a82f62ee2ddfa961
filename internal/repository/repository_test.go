package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/util"
	"lms_content_backend/pkg/database"
	"lms_content_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAttemptGetOrCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if first.CompletionStatus != model.CompletionNotAttempted {
		t.Errorf("fresh completion status = %s", first.CompletionStatus)
	}
	if first.SessionState != model.SessionNotInitialized {
		t.Errorf("fresh session state = %s", first.SessionState)
	}
	if first.LastError != "0" {
		t.Errorf("fresh last error = %q", first.LastError)
	}

	second, err := repo.GetOrCreate(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new row: %d != %d", second.ID, first.ID)
	}

	other, err := repo.GetOrCreate(ctx, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Error("different users share an attempt row")
	}
}

func TestAttemptMarkCompletedMonotonic(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	attempt, err := repo.GetOrCreate(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.MarkCompleted(ctx, attempt.ID); err != nil {
		t.Fatal(err)
	}
	// A second promotion matches zero rows and must not error.
	if err := repo.MarkCompleted(ctx, attempt.ID); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID(ctx, attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletionStatus != model.CompletionCompleted {
		t.Errorf("completion status = %s", got.CompletionStatus)
	}
}

func TestCompletedPackageIDsCountsTerminalOutcomes(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	attempts := []model.Attempt{
		{UserID: 1, PackageID: 10, CompletionStatus: model.CompletionCompleted, SuccessStatus: model.SuccessUnknown},
		{UserID: 1, PackageID: 11, CompletionStatus: model.CompletionIncomplete, SuccessStatus: model.SuccessFailed},
		{UserID: 1, PackageID: 12, CompletionStatus: model.CompletionIncomplete, SuccessStatus: model.SuccessUnknown},
	}
	for i := range attempts {
		if err := db.Create(&attempts[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	done, err := repo.CompletedPackageIDs(ctx, 1, []uint{10, 11, 12})
	if err != nil {
		t.Fatal(err)
	}
	if !done[10] {
		t.Error("completed attempt not counted")
	}
	if !done[11] {
		t.Error("failed attempt must count as finished")
	}
	if done[12] {
		t.Error("in-progress attempt counted as finished")
	}
}

func TestCMIUpsertAllLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	repo := NewCMIRepository(db)
	ctx := context.Background()

	attempt := &model.Attempt{UserID: 1, PackageID: 10}
	if err := db.Create(attempt).Error; err != nil {
		t.Fatal(err)
	}

	err := repo.UpsertAll(db, attempt.ID, map[string]string{
		"cmi.core.lesson_location": "page-1",
		"cmi.core.score.raw":       "70",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = repo.UpsertAll(db, attempt.ID, map[string]string{
		"cmi.core.lesson_location": "page-4",
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, err := repo.Get(ctx, attempt.ID, "cmi.core.lesson_location")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Value != "page-4" {
		t.Errorf("value = %q, want page-4", entry.Value)
	}

	entries, err := repo.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestCompletionEnsureOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompletionRepository(db)
	ctx := context.Background()

	if err := repo.Ensure(ctx, 1, 5); err != nil {
		t.Fatal(err)
	}
	if err := repo.Ensure(ctx, 1, 5); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&model.LessonCompletion{}).Where("user_id = ? AND lesson_id = ?", 1, 5).Count(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}

	done, err := repo.CompletedLessonIDs(ctx, 1, []uint{5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !done[5] || done[6] {
		t.Errorf("completed map = %v", done)
	}
}

func TestEnrollmentMarkCompletedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	if _, err := repo.GetOrCreate(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkCompleted(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}

	first, err := repo.Find(ctx, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if first.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	time.Sleep(5 * time.Millisecond)
	if err := repo.MarkCompleted(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}
	second, _ := repo.Find(ctx, 1, 3)
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Error("completed_at moved on a repeat promotion")
	}
}

func TestWithRetry(t *testing.T) {
	cfg := config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	t.Run("succeeds after contention", func(t *testing.T) {
		calls := 0
		err := WithRetry(cfg, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("exhaustion surfaces transient error", func(t *testing.T) {
		err := WithRetry(cfg, func() error {
			return errors.New("Deadlock found when trying to get lock")
		})
		if !errors.Is(err, util.ErrTransientStorage) {
			t.Errorf("got %v, want ErrTransientStorage", err)
		}
	})

	t.Run("other errors surface immediately", func(t *testing.T) {
		sentinel := errors.New("constraint violation")
		calls := 0
		err := WithRetry(cfg, func() error {
			calls++
			return sentinel
		})
		if !errors.Is(err, sentinel) || calls != 1 {
			t.Errorf("err=%v calls=%d", err, calls)
		}
	})
}

func TestIsLockError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Error 1213: Deadlock found"), true},
		{errors.New("Error 1205: Lock wait timeout exceeded"), true},
		{errors.New("database is locked"), true},
		{errors.New("record not found"), false},
	}
	for _, tt := range tests {
		if got := isLockError(tt.err); got != tt.want {
			t.Errorf("isLockError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
