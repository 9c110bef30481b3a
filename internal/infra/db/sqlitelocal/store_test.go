package sqlitelocal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

func openTestStore(t *testing.T) *SessionRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleSession(owner, name string, at time.Time) *domain.Session {
	return &domain.Session{
		OwnerID:      owner,
		DocumentName: name,
		CreatedAt:    at,
		Result: domain.Result{
			Summary:              "summary of " + name,
			Assumptions:          []string{"a1", "a2"},
			ValidationCode:       "print(1)",
			SimulationData:       []domain.Point{{X: 1, Y: 0.5}},
			ReproducibilityScore: 80,
			CitationIntegrity:    "High",
		},
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.Create(ctx, sampleSession(domain.LocalOwner, "first.txt", base))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID, "ids are generated locally")
	assert.True(t, first.StoredLocally)

	second, err := repo.Create(ctx, sampleSession(domain.LocalOwner, "second.txt", base.Add(time.Hour)))
	require.NoError(t, err)

	list, err := repo.List(ctx, domain.LocalOwner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	got := list[1]
	assert.Equal(t, "first.txt", got.DocumentName)
	assert.Equal(t, "summary of first.txt", got.Result.Summary)
	assert.Equal(t, []string{"a1", "a2"}, got.Result.Assumptions)
	assert.Equal(t, []domain.Point{{X: 1, Y: 0.5}}, got.Result.SimulationData)
	assert.Equal(t, 80, got.Result.ReproducibilityScore)
	assert.Equal(t, "High", got.Result.CitationIntegrity)
	assert.True(t, got.StoredLocally)
}

func TestCreateDefaultsOwnerToLocal(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()

	stored, err := repo.Create(ctx, &domain.Session{DocumentName: "x.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.LocalOwner, stored.OwnerID)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestOwnerScoping(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, sampleSession("user-1", "a.txt", now))
	require.NoError(t, err)
	other, err := repo.Create(ctx, sampleSession("user-2", "b.txt", now))
	require.NoError(t, err)

	list, err := repo.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.txt", list[0].DocumentName)

	// deleting across owners behaves exactly like a missing row
	err = repo.Delete(ctx, "user-1", other.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = repo.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, list, 1, "the other owner's row survived")
}

func TestDelete(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()

	stored, err := repo.Create(ctx, sampleSession("user-1", "a.txt", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "user-1", stored.ID))

	list, err := repo.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(ctx, "user-1", stored.ID), domain.ErrNotFound)
}

func TestClearAll(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, sampleSession("user-1", "a.txt", now))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleSession("user-1", "b.txt", now.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleSession("user-2", "c.txt", now))
	require.NoError(t, err)

	require.NoError(t, repo.ClearAll(ctx, "user-1"))

	list, err := repo.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, list, 1, "clear is owner-scoped")
}
