package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

// fakeSyncRepo is an in-memory sync.Repository.
type fakeSyncRepo struct {
	progress map[string]json.RawMessage // userID|habitID
	habits   map[string]json.RawMessage // habit id
	habitOwn map[string]string          // habit id → userID
	profiles map[string]json.RawMessage // userID
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{
		progress: map[string]json.RawMessage{},
		habits:   map[string]json.RawMessage{},
		habitOwn: map[string]string{},
		profiles: map[string]json.RawMessage{},
	}
}

func progressKey(userID, habitID string) string { return userID + "|" + habitID }

func (f *fakeSyncRepo) GetProgress(ctx context.Context, userID, habitID string) (*models.ProgressDoc, error) {
	doc, ok := f.progress[progressKey(userID, habitID)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.ProgressDoc{UserID: userID, HabitID: habitID, Doc: doc, UpdatedAt: time.Now()}, nil
}

func (f *fakeSyncRepo) UpsertProgress(ctx context.Context, userID, habitID string, doc json.RawMessage) error {
	f.progress[progressKey(userID, habitID)] = doc
	return nil
}

func (f *fakeSyncRepo) UpsertHabit(ctx context.Context, id, userID string, doc json.RawMessage) error {
	f.habits[id] = doc
	f.habitOwn[id] = userID
	return nil
}

func (f *fakeSyncRepo) DeleteHabit(ctx context.Context, userID, id string) error {
	if f.habitOwn[id] == userID {
		delete(f.habits, id)
		delete(f.habitOwn, id)
	}
	delete(f.progress, progressKey(userID, id))
	return nil
}

func (f *fakeSyncRepo) UpsertProfile(ctx context.Context, userID string, doc json.RawMessage) error {
	f.profiles[userID] = doc
	return nil
}

func (f *fakeSyncRepo) ListHabits(ctx context.Context, userID string) ([]*models.HabitDoc, error) {
	var out []*models.HabitDoc
	for id, doc := range f.habits {
		if f.habitOwn[id] == userID {
			out = append(out, &models.HabitDoc{ID: id, UserID: userID, Doc: doc})
		}
	}
	return out, nil
}

func (f *fakeSyncRepo) ListProgress(ctx context.Context, userID string) ([]*models.ProgressDoc, error) {
	var out []*models.ProgressDoc
	for key, doc := range f.progress {
		if len(key) > len(userID) && key[:len(userID)] == userID {
			out = append(out, &models.ProgressDoc{UserID: userID, Doc: doc})
		}
	}
	return out, nil
}

func newSyncFixture(t *testing.T) (*SyncService, *fakeSyncRepo) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	// every op runs in its own tx; failed ops roll back
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	repo := newFakeSyncRepo()
	return NewSyncService(db, &fakeRepoManager{s: repo}), repo
}

func completionOp(t *testing.T, id, habitID, date string) api.Operation {
	t.Helper()
	return api.Operation{
		ID:      id,
		Type:    "HABIT_COMPLETION",
		Payload: mustJSON(t, map[string]string{"habitId": habitID, "date": date}),
	}
}

func TestApplyOps_CompletionCreatesAndMerges(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	results := svc.ApplyOps(ctx, "acc-1", []api.Operation{
		completionOp(t, "op-1", "habit-1", "2023-01-14"),
		completionOp(t, "op-2", "habit-1", "2023-01-13"),
	})
	for _, r := range results {
		if !r.OK {
			t.Fatalf("op %s failed: %s", r.ID, r.Error)
		}
	}

	var doc struct {
		HabitID     string   `json:"habitId"`
		Completions []string `json:"completions"`
	}
	if err := json.Unmarshal(repo.progress["acc-1|habit-1"], &doc); err != nil {
		t.Fatalf("unmarshal replica: %v", err)
	}
	if doc.HabitID != "habit-1" {
		t.Fatalf("habitId = %q", doc.HabitID)
	}
	if len(doc.Completions) != 2 || doc.Completions[0] != "2023-01-13" || doc.Completions[1] != "2023-01-14" {
		t.Fatalf("completions = %v", doc.Completions)
	}
}

func TestApplyOps_CompletionIsIdempotent(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	op := completionOp(t, "op-1", "habit-1", "2023-01-14")
	svc.ApplyOps(ctx, "acc-1", []api.Operation{op})
	svc.ApplyOps(ctx, "acc-1", []api.Operation{op})

	var doc struct {
		Completions []string `json:"completions"`
	}
	if err := json.Unmarshal(repo.progress["acc-1|habit-1"], &doc); err != nil {
		t.Fatalf("unmarshal replica: %v", err)
	}
	if len(doc.Completions) != 1 {
		t.Fatalf("duplicate push changed replica: %v", doc.Completions)
	}
}

func TestApplyOps_CompletionPreservesOpaqueFields(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	repo.progress["acc-1|habit-1"] = mustJSON(t, map[string]any{
		"habitId":       "habit-1",
		"completions":   []string{"2023-01-13"},
		"currentStreak": 1,
		"dateStarted":   "2023-01-10",
	})

	svc.ApplyOps(ctx, "acc-1", []api.Operation{completionOp(t, "op-1", "habit-1", "2023-01-14")})

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(repo.progress["acc-1|habit-1"], &doc); err != nil {
		t.Fatalf("unmarshal replica: %v", err)
	}
	if _, ok := doc["dateStarted"]; !ok {
		t.Fatal("opaque field dropped by the merge")
	}
	var completions []string
	if err := json.Unmarshal(doc["completions"], &completions); err != nil {
		t.Fatalf("unmarshal completions: %v", err)
	}
	if len(completions) != 2 {
		t.Fatalf("completions = %v", completions)
	}
}

func TestApplyOps_HabitLifecycle(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	create := api.Operation{
		ID:   "op-1",
		Type: "CUSTOM_HABIT",
		Payload: mustJSON(t, map[string]any{
			"habit": map[string]any{"id": "custom-1", "title": "Stretch"},
		}),
	}
	results := svc.ApplyOps(ctx, "acc-1", []api.Operation{create})
	if !results[0].OK {
		t.Fatalf("create failed: %s", results[0].Error)
	}
	if _, ok := repo.habits["custom-1"]; !ok {
		t.Fatal("habit replica not stored")
	}

	svc.ApplyOps(ctx, "acc-1", []api.Operation{completionOp(t, "op-2", "custom-1", "2023-01-14")})

	del := api.Operation{
		ID:      "op-3",
		Type:    "HABIT_DELETION",
		Payload: mustJSON(t, map[string]string{"habitId": "custom-1"}),
	}
	results = svc.ApplyOps(ctx, "acc-1", []api.Operation{del})
	if !results[0].OK {
		t.Fatalf("delete failed: %s", results[0].Error)
	}
	if _, ok := repo.habits["custom-1"]; ok {
		t.Fatal("habit replica survived deletion")
	}
	if _, ok := repo.progress["acc-1|custom-1"]; ok {
		t.Fatal("progress replica survived deletion")
	}
}

func TestApplyOps_UserUpdateStoresProfile(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	op := api.Operation{
		ID:   "op-1",
		Type: "USER_UPDATE",
		Payload: mustJSON(t, map[string]any{
			"user": map[string]any{"name": "Alice", "language": "en"},
		}),
	}
	results := svc.ApplyOps(ctx, "acc-1", []api.Operation{op})
	if !results[0].OK {
		t.Fatalf("user update failed: %s", results[0].Error)
	}
	var doc map[string]string
	if err := json.Unmarshal(repo.profiles["acc-1"], &doc); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if doc["name"] != "Alice" {
		t.Fatalf("profile = %v", doc)
	}
}

func TestApplyOps_BadOperationDoesNotStopBatch(t *testing.T) {
	svc, repo := newSyncFixture(t)
	ctx := context.Background()

	results := svc.ApplyOps(ctx, "acc-1", []api.Operation{
		{ID: "op-1", Type: "NO_SUCH_OP", Payload: mustJSON(t, map[string]string{})},
		completionOp(t, "op-2", "habit-1", "2023-01-14"),
	})
	if results[0].OK || results[0].Error == "" {
		t.Fatalf("unknown op should fail: %+v", results[0])
	}
	if !results[1].OK {
		t.Fatalf("second op should still apply: %+v", results[1])
	}
	if _, ok := repo.progress["acc-1|habit-1"]; !ok {
		t.Fatal("second op not applied")
	}
}

func TestApplyOps_CountsMetrics(t *testing.T) {
	svc, _ := newSyncFixture(t)
	ctx := context.Background()

	svc.ApplyOps(ctx, "acc-1", []api.Operation{
		completionOp(t, "op-1", "habit-1", "2023-01-14"),
		completionOp(t, "op-2", "habit-2", "2023-01-14"),
	})
	m := svc.Metrics()
	if m.SyncRequests != 1 || m.SyncOperations != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}
