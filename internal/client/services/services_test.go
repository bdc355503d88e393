package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

// setupRepos opens an in-memory database with the real migrated schema so
// service tests exercise the same SQL the application runs.
func setupRepos(t *testing.T) *client.Repositories {
	t.Helper()
	repos, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })
	return repos
}

func fixedClock(day string) func() time.Time {
	return func() time.Time {
		ts, err := time.Parse("2006-01-02", day)
		if err != nil {
			panic(err)
		}
		return ts
	}
}

func seedHabit(t *testing.T, repos *client.Repositories, id string, freq models.Frequency) {
	t.Helper()
	h := &models.Habit{
		ID:        id,
		Title:     "Test habit " + id,
		Category:  "health",
		Frequency: freq,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repos.Habits.Upsert(context.Background(), h))
}

func seedUser(t *testing.T, repos *client.Repositories, id string) {
	t.Helper()
	u := &models.User{
		ID:        id,
		Name:      "tester",
		Language:  "en",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repos.Users.Save(context.Background(), u))
}
