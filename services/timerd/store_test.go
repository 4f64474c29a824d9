package timerd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testUser struct {
	ID       uuid.UUID `gorm:"primaryKey"`
	Username string    `gorm:"not null"`
}

func (testUser) TableName() string { return "users" }

func openTestORM(t *testing.T) *gorm.DB {
	t.Helper()

	orm, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := orm.AutoMigrate(&testUser{}, &sessionModel{}); err != nil {
		t.Fatal(err)
	}
	return orm
}

func seedSession(t *testing.T, orm *gorm.DB, status string, startedAt time.Time, remaining *int) sessionModel {
	t.Helper()

	user := testUser{ID: uuid.New(), Username: "seed-" + uuid.NewString()[:8]}
	if err := orm.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	model := sessionModel{
		ID:               uuid.New(),
		UserID:           user.ID,
		Task:             "seeded",
		Type:             "WORK",
		Status:           status,
		DurationMinutes:  25,
		RemainingSeconds: remaining,
		StartedAt:        startedAt,
	}
	if err := orm.Create(&model).Error; err != nil {
		t.Fatal(err)
	}
	return model
}

func TestStoreListResumable(t *testing.T) {
	orm := openTestORM(t)
	store, err := NewStore(orm)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	remaining := 600
	live := seedSession(t, orm, statusActive, now.Add(-10*time.Minute), &remaining)
	seedSession(t, orm, statusActive, now.Add(-25*time.Hour), &remaining)
	seedSession(t, orm, statusPaused, now.Add(-10*time.Minute), &remaining)
	seedSession(t, orm, statusCompleted, now.Add(-10*time.Minute), nil)

	records, err := store.ListResumable(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("resumable = %d, want 1", len(records))
	}
	record := records[0]
	if record.ID != live.ID {
		t.Fatalf("resumable session = %s, want %s", record.ID, live.ID)
	}
	if record.UserID != live.UserID {
		t.Fatalf("user id = %s, want %s", record.UserID, live.UserID)
	}
	if record.Username == "" {
		t.Fatal("record should carry the owner's username")
	}
	if record.DurationMinutes != 25 {
		t.Fatalf("duration = %d, want 25", record.DurationMinutes)
	}
	if record.RemainingSeconds == nil || *record.RemainingSeconds != 600 {
		t.Fatalf("remaining = %v, want 600", record.RemainingSeconds)
	}
	if drift := record.StartedAt.Sub(live.StartedAt); drift < -time.Second || drift > time.Second {
		t.Fatalf("startedAt = %v, want %v", record.StartedAt, live.StartedAt)
	}
}

func TestStoreSaveRemaining(t *testing.T) {
	orm := openTestORM(t)
	store, err := NewStore(orm)
	if err != nil {
		t.Fatal(err)
	}

	remaining := 600
	active := seedSession(t, orm, statusActive, time.Now().UTC(), &remaining)

	if err := store.SaveRemaining(context.Background(), active.ID, 450); err != nil {
		t.Fatal(err)
	}

	var model sessionModel
	if err := orm.First(&model, "id = ?", active.ID).Error; err != nil {
		t.Fatal(err)
	}
	if model.RemainingSeconds == nil || *model.RemainingSeconds != 450 {
		t.Fatalf("remaining = %v, want 450", model.RemainingSeconds)
	}

	if err := store.SaveRemaining(context.Background(), uuid.New(), 450); err != ErrNotFound {
		t.Fatalf("missing session: err = %v, want ErrNotFound", err)
	}

	done := seedSession(t, orm, statusCompleted, time.Now().UTC(), nil)
	if err := store.SaveRemaining(context.Background(), done.ID, 450); err != ErrNotFound {
		t.Fatalf("finished session: err = %v, want ErrNotFound", err)
	}
}

func TestStoreCompleteIsIdempotent(t *testing.T) {
	orm := openTestORM(t)
	store, err := NewStore(orm)
	if err != nil {
		t.Fatal(err)
	}

	remaining := 600
	active := seedSession(t, orm, statusActive, time.Now().UTC(), &remaining)

	first, err := store.Complete(context.Background(), active.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != statusCompleted {
		t.Fatalf("status = %s, want COMPLETED", first.Status)
	}

	var model sessionModel
	if err := orm.First(&model, "id = ?", active.ID).Error; err != nil {
		t.Fatal(err)
	}
	if model.CompletedAt == nil {
		t.Fatal("completedAt should be set")
	}
	firstCompletedAt := *model.CompletedAt
	if model.RemainingSeconds == nil || *model.RemainingSeconds != 0 {
		t.Fatalf("remaining = %v, want 0", model.RemainingSeconds)
	}

	second, err := store.Complete(context.Background(), active.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != statusCompleted {
		t.Fatalf("second complete status = %s", second.Status)
	}

	if err := orm.First(&model, "id = ?", active.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !model.CompletedAt.Equal(firstCompletedAt) {
		t.Fatal("repeat completion must not move completedAt")
	}
}
