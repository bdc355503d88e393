package research

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE research (
  id TEXT PRIMARY KEY,
  language TEXT NOT NULL DEFAULT 'en',
  title TEXT NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  reading_minutes INTEGER NOT NULL DEFAULT 0,
  habit_ids TEXT NOT NULL DEFAULT '[]'
);
`)
	require.NoError(t, err)
	return db
}

func article(id, language, title string) *models.ResearchArticle {
	return &models.ResearchArticle{
		ID:             id,
		Language:       language,
		Title:          title,
		Summary:        "what the study found",
		ReadingMinutes: 4,
		HabitIDs:       []string{"habit-1"},
	}
}

func TestUpsertAndGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := article("a1", "en", "Sleep and memory")
	require.NoError(t, repo.Upsert(ctx, a))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// replace by id
	a.Title = "Sleep and memory (revised)"
	a.ReadingMinutes = 6
	require.NoError(t, repo.Upsert(ctx, a))

	got, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Sleep and memory (revised)", got.Title)
	assert.Equal(t, 6, got.ReadingMinutes)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert_NilHabitIDs(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := article("a1", "en", "Hydration")
	a.HabitIDs = nil
	require.NoError(t, repo.Upsert(ctx, a))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.HabitIDs)
}

func TestListByLanguage(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, article("a1", "en", "Zinc")))
	require.NoError(t, repo.Upsert(ctx, article("a2", "en", "Breathing")))
	require.NoError(t, repo.Upsert(ctx, article("a3", "de", "Atmung")))

	got, err := repo.ListByLanguage(ctx, "en")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// ordered by title
	assert.Equal(t, "Breathing", got[0].Title)
	assert.Equal(t, "Zinc", got[1].Title)

	empty, err := repo.ListByLanguage(ctx, "fr")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteAll(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, article("a1", "en", "Zinc")))
	require.NoError(t, repo.Upsert(ctx, article("a2", "de", "Atmung")))

	require.NoError(t, repo.DeleteAll(ctx))

	for _, lang := range []string{"en", "de"} {
		got, err := repo.ListByLanguage(ctx, lang)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}
