package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passvault/internal/domain/model"
)

func testInput(service, username, password string) model.RecordInput {
	return model.RecordInput{Service: service, Username: username, Password: password}
}

func TestRecordRepo_CreateAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	expires := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, model.RecordInput{
		Service:   "Twitter",
		Username:  "t@x.com",
		Password:  "p1",
		URL:       "https://twitter.com",
		Notes:     "work account",
		Folder:    "social",
		Tags:      []string{"work", "social"},
		ExpiresAt: &expires,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt), "createdAt must equal updatedAt on insert")

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, *created, *found, "round trip must be lossless")
}

func TestRecordRepo_FindByIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)

	found, err := repo.FindByID(context.Background(), "pwd_nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecordRepo_CreateRejectsEmptyFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	cases := []struct {
		name  string
		input model.RecordInput
	}{
		{"empty service", testInput("  ", "user", "pass")},
		{"empty username", testInput("Gmail", "", "pass")},
		{"empty password", testInput("Gmail", "user", "   ")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tc.input)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total, "rejected creates must not persist anything")
}

func TestRecordRepo_FindAllSortedByRecency(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	a, err := repo.Create(ctx, testInput("Gmail", "a@gmail.com", "p"))
	require.NoError(t, err)
	b, err := repo.Create(ctx, testInput("GitHub", "b@github.com", "p"))
	require.NoError(t, err)
	c, err := repo.Create(ctx, testInput("Fastmail", "c@fastmail.com", "p"))
	require.NoError(t, err)

	// Touch the oldest record so it becomes the most recent.
	_, err = repo.Update(ctx, a.ID, model.RecordPatch{Notes: strPtr("touched")})
	require.NoError(t, err)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, c.ID, all[1].ID)
	assert.Equal(t, b.ID, all[2].ID)
}

func TestRecordRepo_FindAllEmptyStore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func TestRecordRepo_SearchCaseInsensitiveSubstring(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, testInput("Gmail", "alice@gmail.com", "p"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testInput("Facebook", "bob", "p"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testInput("Bank", "GMAIL-backup", "p"))
	require.NoError(t, err)

	results, err := repo.Search(ctx, "gMaIl")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, rec := range results {
		assert.NotEqual(t, "Facebook", rec.Service)
	}
}

func TestRecordRepo_SearchWhitespaceReturnsAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, testInput("Service", "user", "pass"))
		require.NoError(t, err)
	}

	results, err := repo.Search(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, results, 5)

	// Sorted by recency: every record must be at least as recent as the next.
	for i := 1; i < len(results); i++ {
		assert.False(t, results[i-1].UpdatedAt.Before(results[i].UpdatedAt))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, results, "whitespace search must behave exactly like FindAll")
}

func TestRecordRepo_UpdateMergesAndBumpsTimestamp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, testInput("Twitter", "t@x.com", "p1"))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, model.RecordPatch{Password: strPtr("p2")})
	require.NoError(t, err)

	assert.Equal(t, "p2", updated.Password)
	assert.Equal(t, "Twitter", updated.Service, "unpatched fields keep their values")
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "createdAt is immutable")
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt), "updatedAt must strictly increase")
}

func TestRecordRepo_UpdateEmptyPatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, testInput("Gmail", "a@gmail.com", "secret"))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, model.RecordPatch{})
	require.NoError(t, err)

	assert.Equal(t, created.Service, updated.Service)
	assert.Equal(t, created.Username, updated.Username)
	assert.Equal(t, created.Password, updated.Password)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt must strictly increase even for an empty patch")
}

func TestRecordRepo_UpdateMissingID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)

	_, err := repo.Update(context.Background(), "pwd_missing", model.RecordPatch{Password: strPtr("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRecordRepo_DeleteIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, testInput("Gmail", "a@gmail.com", "p"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// Second delete of the same ID must not error.
	assert.NoError(t, repo.Delete(ctx, created.ID))
}

func TestRecordRepo_ClearAndStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 0, HasAny: false}, stats)

	_, err = repo.Create(ctx, testInput("Gmail", "a", "p"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testInput("Bank", "b", "p"))
	require.NoError(t, err)

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 2, HasAny: true}, stats)

	require.NoError(t, repo.Clear(ctx))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 0, HasAny: false}, stats)
}

func TestRecordRepo_BatchCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	inputs := []model.RecordInput{
		testInput("Gmail", "a", "p1"),
		testInput("Bank", "b", "p2"),
		testInput("GitHub", "c", "p3"),
	}

	recs, err := repo.BatchCreate(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	seen := map[string]bool{}
	for i, rec := range recs {
		assert.Equal(t, inputs[i].Service, rec.Service, "results keep input order")
		assert.NotEmpty(t, rec.ID)
		assert.False(t, seen[rec.ID], "batch ids must be distinct")
		seen[rec.ID] = true
		assert.True(t, rec.CreatedAt.Equal(rec.UpdatedAt))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordRepo_BatchCreateRollsBackOnInvalidItem(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	_, err := repo.BatchCreate(ctx, []model.RecordInput{
		testInput("Gmail", "a", "p1"),
		testInput("", "b", "p2"), // invalid
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total, "no item of a failed batch may persist")
}

func TestRecordRepo_BatchUpdateAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	a, err := repo.Create(ctx, testInput("Gmail", "a", "p1"))
	require.NoError(t, err)
	b, err := repo.Create(ctx, testInput("Bank", "b", "p2"))
	require.NoError(t, err)

	recs, err := repo.BatchUpdate(ctx, []model.PatchByID{
		{ID: a.ID, Patch: model.RecordPatch{Password: strPtr("n1")}},
		{ID: b.ID, Patch: model.RecordPatch{Password: strPtr("n2")}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "n1", recs[0].Password)
	assert.Equal(t, "n2", recs[1].Password)

	// A missing ID aborts the whole batch.
	_, err = repo.BatchUpdate(ctx, []model.PatchByID{
		{ID: a.ID, Patch: model.RecordPatch{Password: strPtr("x1")}},
		{ID: "pwd_missing", Patch: model.RecordPatch{Password: strPtr("x2")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	current, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "n1", current.Password, "failed batch must not leave partial writes")
}

func strPtr(s string) *string { return &s }
